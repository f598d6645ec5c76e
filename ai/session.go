package ai

import (
	"errors"
	"fmt"
	"math/rand"

	log "github.com/sirupsen/logrus"

	"github.com/schollz/pianoml/music"
	"github.com/schollz/pianoml/quantize"
)

// PedalTransitMS is the minimum accumulated time shift before the
// pedal head is re-evaluated. Re-sampling the pedal on every note
// made the sustain audibly choppy; gating on elapsed time decouples
// pedal cadence from note density.
const PedalTransitMS = 20

type phase int

const (
	warming phase = iota
	generating
	done
)

// Session drives one autoregressive generation run. It owns the
// recurrent memory, the running velocity, the pedal flag and its
// transit accumulator, and the random source; nothing here is
// shared, so independent sessions can run concurrently over the
// same Cell.
type Session struct {
	cell  *Cell
	codec *quantize.Codec
	rng   *rand.Rand
	tau   float64

	memory   []float64
	state    quantize.State
	velocity int
	pedal    bool
	transit  int
	phase    phase
}

// NewSession prepares a session with the given sampling temperature
// and random source.
func NewSession(cell *Cell, codec *quantize.Codec, tau float64, rng *rand.Rand) (*Session, error) {
	if tau <= 0 {
		return nil, quantize.ConfigError(fmt.Sprintf("temperature must be positive, got %g", tau))
	}
	if rng == nil {
		return nil, errors.New("session needs a random source")
	}
	return &Session{
		cell:   cell,
		codec:  codec,
		rng:    rng,
		tau:    tau,
		memory: cell.NewMemory(),
	}, nil
}

// Warm feeds the seed through the cell to build up the memory that
// reflects the seed's musical context. The cell's predictions are
// discarded here; the seed's own feature values drive every step.
func (s *Session) Warm(seed music.Notes) (err error) {
	logger := log.WithFields(log.Fields{
		"function": "Session.Warm",
	})
	if s.phase != warming {
		return errors.New("session already warmed")
	}
	if len(seed) == 0 {
		s.phase = done
		return quantize.ConfigError("seed sequence is empty")
	}
	var prev *music.Note
	for i := range seed {
		state, err := s.codec.Encode(seed[i], prev)
		if err != nil {
			s.phase = done
			return err
		}
		s.memory, _, err = s.cell.Step(s.memory, state)
		if err != nil {
			s.phase = done
			return err
		}
		s.state = state
		s.velocity = seed[i].Velocity
		s.pedal = seed[i].Pedal
		prev = &seed[i]
	}
	s.phase = generating
	logger.Debugf("Warmed on %d seed notes", len(seed))
	return nil
}

// Generate produces n notes, one cell step at a time. A count of
// zero is legal and produces nothing. The session is spent
// afterwards; no further operation is legal.
func (s *Session) Generate(n int) (notes music.Notes, err error) {
	logger := log.WithFields(log.Fields{
		"function": "Session.Generate",
	})
	switch s.phase {
	case warming:
		return nil, errors.New("session not warmed")
	case done:
		return nil, errors.New("session is spent")
	}
	defer func() { s.phase = done }()
	if n < 0 {
		return nil, quantize.ConfigError(fmt.Sprintf("requested note count must not be negative, got %d", n))
	}

	notes = make(music.Notes, 0, n)
	for len(notes) < n {
		note, err := s.step()
		if err != nil {
			return nil, err
		}
		notes = append(notes, note)
	}
	logger.Infof("Generated %d notes", len(notes))
	return notes, nil
}

// step runs one generation iteration: cell transition, independent
// sampling of the four streams, stochastic dequantization, the
// pedal hysteresis policy, and the state roll-over.
func (s *Session) step() (note music.Note, err error) {
	memory, lg, err := s.cell.Step(s.memory, s.state)
	if err != nil {
		return note, err
	}

	pitchIdx, err := SampleIndex(lg.Pitch, s.tau, s.rng)
	if err != nil {
		return note, err
	}
	durationIdx, err := SampleIndex(lg.Duration, s.tau, s.rng)
	if err != nil {
		return note, err
	}
	velocityIdx, err := SampleIndex(lg.Velocity, s.tau, s.rng)
	if err != nil {
		return note, err
	}
	shiftIdx, err := SampleIndex(lg.TimeShift, s.tau, s.rng)
	if err != nil {
		return note, err
	}

	scheme := s.codec.Scheme
	note.Pitch = pitchIdx + music.PitchMin
	note.Duration = quantize.SampleFromBin(durationIdx, scheme.Duration, s.rng)
	note.Velocity = s.codec.DecodeVelocity(velocityIdx, s.velocity, s.rng)
	note.TimeShift = quantize.SampleFromBin(shiftIdx, scheme.TimeShift, s.rng)

	s.transit += note.TimeShift
	if s.transit > PedalTransitMS {
		p, err := s.cell.PedalProb(memory)
		if err != nil {
			return note, err
		}
		s.pedal = s.rng.Float64() < p
		s.transit = 0
	}
	note.Pedal = s.pedal

	s.memory = memory
	s.velocity = note.Velocity
	s.state = quantize.State{
		Pitch:     pitchIdx,
		Duration:  durationIdx,
		Velocity:  velocityIdx,
		TimeShift: shiftIdx,
		Pedal:     s.pedal,
	}
	return note, nil
}
