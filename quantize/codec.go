package quantize

import (
	"math/rand"

	"github.com/pkg/errors"

	"github.com/schollz/pianoml/music"
)

// BaseVelocity anchors the velocity delta of the first note in a
// sequence, which has no previous velocity to diff against.
const BaseVelocity = 64

// State is the discretized form of a note, the representation the
// generative cell consumes and predicts. Pitch is an index over the
// 88 keys; the rest are bin indices into the Scheme tables.
type State struct {
	Pitch     int
	Duration  int
	Velocity  int
	TimeShift int
	Pedal     bool
}

// Codec maps between raw notes and their discretized states.
type Codec struct {
	Scheme *Scheme
}

// NewCodec returns a codec over the given scheme.
func NewCodec(s *Scheme) *Codec {
	return &Codec{Scheme: s}
}

// Encode discretizes a note. The velocity is encoded as a delta
// from the previous note's velocity (or BaseVelocity when prev is
// nil). Fails on pitches outside the keyboard and on feature values
// outside the configured bin edges.
func (c *Codec) Encode(n music.Note, prev *music.Note) (s State, err error) {
	if n.Pitch < music.PitchMin || n.Pitch > music.PitchMax {
		return s, music.RangeError{Field: "pitch", Value: n.Pitch}
	}
	s.Pitch = n.Pitch - music.PitchMin
	if s.Duration, err = BinIndex(n.Duration, c.Scheme.Duration); err != nil {
		return s, errors.Wrap(err, "duration")
	}
	prevVelocity := BaseVelocity
	if prev != nil {
		prevVelocity = prev.Velocity
	}
	if s.Velocity, err = BinIndex(n.Velocity-prevVelocity, c.Scheme.Velocity); err != nil {
		return s, errors.Wrap(err, "velocity delta")
	}
	if s.TimeShift, err = BinIndex(n.TimeShift, c.Scheme.TimeShift); err != nil {
		return s, errors.Wrap(err, "time shift")
	}
	s.Pedal = n.Pedal
	return s, nil
}

// DecodeVelocity dequantizes a velocity-delta bin against the
// previous velocity. Every decoded velocity is clamped to
// [VelocityFloor, VelocityCeil]; that clamp is a hard invariant on
// generated notes.
func (c *Codec) DecodeVelocity(index, prevVelocity int, rng *rand.Rand) int {
	v := prevVelocity + SampleFromBin(index, c.Scheme.Velocity, rng)
	if v < music.VelocityFloor {
		v = music.VelocityFloor
	}
	if v > music.VelocityCeil {
		v = music.VelocityCeil
	}
	return v
}
