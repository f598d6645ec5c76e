package quantize

import (
	"math/rand"
	"testing"

	"github.com/schollz/pianoml/music"
)

func TestEncode(t *testing.T) {
	c := NewCodec(testScheme())

	// first note: velocity delta against the base velocity
	note := music.Note{Pitch: 60, Duration: 100, Velocity: 70, TimeShift: 0, Pedal: true}
	s, err := c.Encode(note, nil)
	if err != nil {
		t.Fatal(err)
	}
	if s.Pitch != 60-music.PitchMin {
		t.Errorf("pitch index %d, want %d", s.Pitch, 60-music.PitchMin)
	}
	// delta 6 falls in [6,16)
	if got := c.Scheme.Velocity[s.Velocity]; got != 6 {
		t.Errorf("velocity bin starts at %d, want 6", got)
	}
	if !s.Pedal {
		t.Error("pedal flag not carried")
	}

	// later note: delta against the previous note
	prev := note
	next := music.Note{Pitch: 64, Duration: 40, Velocity: 60, TimeShift: 30}
	s2, err := c.Encode(next, &prev)
	if err != nil {
		t.Fatal(err)
	}
	// delta -10 falls in [-15,-5)
	if got := c.Scheme.Velocity[s2.Velocity]; got != -15 {
		t.Errorf("velocity bin starts at %d, want -15", got)
	}
}

func TestEncodePitchRange(t *testing.T) {
	c := NewCodec(testScheme())
	for _, pitch := range []int{20, 109} {
		_, err := c.Encode(music.Note{Pitch: pitch, Velocity: 64}, nil)
		if err == nil {
			t.Errorf("pitch %d should fail", pitch)
			continue
		}
		if _, ok := err.(music.RangeError); !ok {
			t.Errorf("pitch %d returned %T, want RangeError", pitch, err)
		}
	}
}

func TestEncodeOutOfRangeSurfaces(t *testing.T) {
	c := NewCodec(testScheme())
	// duration 1000 is at the cap, which is exclusive
	_, err := c.Encode(music.Note{Pitch: 60, Duration: 1000, Velocity: 64}, nil)
	if err == nil {
		t.Error("duration at the cap must surface an error, not clamp")
	}
}

func TestDecodeVelocityClamp(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	c := NewCodec(testScheme())
	top := c.Scheme.VelocityBins() - 1 // deltas in [16,41)
	bottom := 0                        // deltas in [-40,-15)
	for trial := 0; trial < 50; trial++ {
		if v := c.DecodeVelocity(top, 118, rng); v != music.VelocityCeil {
			t.Fatalf("decoded %d, want clamp to %d", v, music.VelocityCeil)
		}
		if v := c.DecodeVelocity(bottom, 25, rng); v != music.VelocityFloor {
			t.Fatalf("decoded %d, want clamp to %d", v, music.VelocityFloor)
		}
		v := c.DecodeVelocity(top, 64, rng)
		if v < music.VelocityFloor || v > music.VelocityCeil {
			t.Fatalf("decoded %d outside [%d,%d]", v, music.VelocityFloor, music.VelocityCeil)
		}
	}
}
