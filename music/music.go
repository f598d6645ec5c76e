package music

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// Domain limits for a piano performance. Pitches cover the 88 keys;
// generated velocities are kept away from the inaudible and the
// clipping ends of the MIDI range.
const (
	PitchMin = 21
	PitchMax = 108

	VelocityFloor = 20
	VelocityCeil  = 120

	// SustainController is the MIDI controller number for the sustain pedal
	SustainController = 64
)

// Note carries the pitch, velocity, and timing information of a
// single press. Duration and TimeShift are milliseconds; TimeShift
// is measured from the previous note's onset.
type Note struct {
	Pitch     int  `json:"pitch"`
	Duration  int  `json:"duration"`
	Velocity  int  `json:"velocity"`
	TimeShift int  `json:"time_shift"`
	Pedal     bool `json:"pedal"`
}

// RangeError signals an input value outside the configured domain.
type RangeError struct {
	Field string
	Value int
}

func (e RangeError) Error() string {
	return fmt.Sprintf("%s %d outside configured domain", e.Field, e.Value)
}

// Validate checks the note against the performance domain.
func (n Note) Validate() error {
	if n.Pitch < PitchMin || n.Pitch > PitchMax {
		return RangeError{"pitch", n.Pitch}
	}
	if n.Duration < 0 {
		return RangeError{"duration", n.Duration}
	}
	if n.Velocity < 0 || n.Velocity > 127 {
		return RangeError{"velocity", n.Velocity}
	}
	if n.TimeShift < 0 {
		return RangeError{"time_shift", n.TimeShift}
	}
	return nil
}

// Notes is an ordered performance, onset order following the
// running sum of time shifts.
type Notes []Note

// Onsets returns the absolute onset time of every note in
// milliseconds, the prefix sum of the time shifts.
func (notes Notes) Onsets() []int {
	onsets := make([]int, len(notes))
	t := 0
	for i, n := range notes {
		t += n.TimeShift
		onsets[i] = t
	}
	return onsets
}

// Validate checks every note in the performance.
func (notes Notes) Validate() error {
	for i, n := range notes {
		if err := n.Validate(); err != nil {
			return errors.Wrapf(err, "note %d", i)
		}
	}
	return nil
}

// Open reads a seed performance from a 5xN JSON array with rows
// pitch, duration, velocity, time shift, pedal.
func Open(filename string) (notes Notes, err error) {
	logger := log.WithFields(log.Fields{
		"function": "music.Open",
	})
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrap(err, "opening seed")
	}
	var rows [][]int
	if err = json.Unmarshal(b, &rows); err != nil {
		return nil, errors.Wrap(err, "parsing seed")
	}
	notes, err = FromRows(rows)
	if err != nil {
		return nil, err
	}
	logger.Debugf("Loaded %d seed notes from %s", len(notes), filename)
	return notes, nil
}

// FromRows converts the 5xN array form into Notes, validating
// every column against the performance domain.
func FromRows(rows [][]int) (notes Notes, err error) {
	if len(rows) != 5 {
		return nil, fmt.Errorf("seed must have 5 rows, got %d", len(rows))
	}
	n := len(rows[0])
	if n < 1 {
		return nil, fmt.Errorf("seed must have at least one note")
	}
	for i := 1; i < 5; i++ {
		if len(rows[i]) != n {
			return nil, fmt.Errorf("seed row %d has %d columns, want %d", i, len(rows[i]), n)
		}
	}
	notes = make(Notes, n)
	for j := 0; j < n; j++ {
		notes[j] = Note{
			Pitch:     rows[0][j],
			Duration:  rows[1][j],
			Velocity:  rows[2][j],
			TimeShift: rows[3][j],
			Pedal:     rows[4][j] != 0,
		}
		if err = notes[j].Validate(); err != nil {
			return nil, errors.Wrapf(err, "seed note %d", j)
		}
	}
	return notes, nil
}

// Rows converts Notes back to the 5xN array form.
func (notes Notes) Rows() [][]int {
	rows := make([][]int, 5)
	for i := range rows {
		rows[i] = make([]int, len(notes))
	}
	for j, n := range notes {
		rows[0][j] = n.Pitch
		rows[1][j] = n.Duration
		rows[2][j] = n.Velocity
		rows[3][j] = n.TimeShift
		if n.Pedal {
			rows[4][j] = 1
		}
	}
	return rows
}

// Save writes the performance in the 5xN array form.
func (notes Notes) Save(filename string) (err error) {
	b, err := json.Marshal(notes.Rows())
	if err != nil {
		return err
	}
	return os.WriteFile(filename, b, 0644)
}
