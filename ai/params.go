package ai

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// PitchClasses is the number of pitch output classes, one per
// piano key.
const PitchClasses = 88

// ShapeError signals a parameter or state dimensionality mismatch.
type ShapeError struct {
	What string
	Want int
	Got  int
}

func (e ShapeError) Error() string {
	return fmt.Sprintf("%s: want %d, got %d", e.What, e.Want, e.Got)
}

// Head holds the pretrained tensors of one output stream: a key
// bank scored against the memory, a value bank the attention
// weights blend, and the projection from [context; memory] to
// logits over that stream's bins.
type Head struct {
	Keys    [][]float64 `json:"keys"`    // bins x memory
	Values  [][]float64 `json:"values"`  // bins x memory
	Weights [][]float64 `json:"weights"` // bins x 2*memory
	Bias    []float64   `json:"bias"`    // bins
}

// Bins returns the number of output classes of this head.
func (h *Head) Bins() int { return len(h.Bias) }

func (h *Head) validate(name string, memory int) error {
	bins := h.Bins()
	if bins == 0 {
		return ShapeError{name + " bias", 1, 0}
	}
	for tag, bank := range map[string][][]float64{
		"keys":   h.Keys,
		"values": h.Values,
	} {
		if len(bank) != bins {
			return ShapeError{name + " " + tag, bins, len(bank)}
		}
		for _, row := range bank {
			if len(row) != memory {
				return ShapeError{name + " " + tag + " row", memory, len(row)}
			}
		}
	}
	if len(h.Weights) != bins {
		return ShapeError{name + " weights", bins, len(h.Weights)}
	}
	for _, row := range h.Weights {
		if len(row) != 2*memory {
			return ShapeError{name + " weights row", 2 * memory, len(row)}
		}
	}
	return nil
}

// Params is the pretrained parameter store: the gated memory
// update, the four per-stream attention heads, and the pedal head.
// Loaded once and treated as read only, so any number of sessions
// can share one instance.
type Params struct {
	MemorySize int `json:"memory_size"`

	ForgetWeights    [][]float64 `json:"forget_weights"` // memory x (memory+input)
	ForgetBias       []float64   `json:"forget_bias"`
	UpdateWeights    [][]float64 `json:"update_weights"`
	UpdateBias       []float64   `json:"update_bias"`
	CandidateWeights [][]float64 `json:"candidate_weights"`
	CandidateBias    []float64   `json:"candidate_bias"`

	Pitch     Head `json:"pitch"`
	Duration  Head `json:"duration"`
	Velocity  Head `json:"velocity"`
	TimeShift Head `json:"time_shift"`

	PedalWeights []float64 `json:"pedal_weights"` // memory
	PedalBias    float64   `json:"pedal_bias"`
}

// InputSize is the width of the discrete-feature embedding the gate
// matrices consume: one-hot pitch, duration, velocity and time
// shift, plus the pedal bit.
func (p *Params) InputSize() int {
	return PitchClasses + p.Duration.Bins() + p.Velocity.Bins() + p.TimeShift.Bins() + 1
}

// Validate checks every tensor against the configured memory size
// and per-stream bin counts.
func (p *Params) Validate() error {
	if p.MemorySize <= 0 {
		return ShapeError{"memory size", 1, p.MemorySize}
	}
	if p.Pitch.Bins() != PitchClasses {
		return ShapeError{"pitch bins", PitchClasses, p.Pitch.Bins()}
	}
	for name, h := range map[string]*Head{
		"pitch":      &p.Pitch,
		"duration":   &p.Duration,
		"velocity":   &p.Velocity,
		"time_shift": &p.TimeShift,
	} {
		if err := h.validate(name, p.MemorySize); err != nil {
			return err
		}
	}
	width := p.MemorySize + p.InputSize()
	for name, gate := range map[string]struct {
		w [][]float64
		b []float64
	}{
		"forget":    {p.ForgetWeights, p.ForgetBias},
		"update":    {p.UpdateWeights, p.UpdateBias},
		"candidate": {p.CandidateWeights, p.CandidateBias},
	} {
		if len(gate.w) != p.MemorySize {
			return ShapeError{name + " weights", p.MemorySize, len(gate.w)}
		}
		for _, row := range gate.w {
			if len(row) != width {
				return ShapeError{name + " weights row", width, len(row)}
			}
		}
		if len(gate.b) != p.MemorySize {
			return ShapeError{name + " bias", p.MemorySize, len(gate.b)}
		}
	}
	if len(p.PedalWeights) != p.MemorySize {
		return ShapeError{"pedal weights", p.MemorySize, len(p.PedalWeights)}
	}
	return nil
}

// LoadParams reads and validates a pretrained parameter file.
func LoadParams(filename string) (p *Params, err error) {
	logger := log.WithFields(log.Fields{
		"function": "ai.LoadParams",
	})
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrap(err, "opening parameters")
	}
	p = new(Params)
	if err = json.Unmarshal(b, p); err != nil {
		return nil, errors.Wrap(err, "parsing parameters")
	}
	if err = p.Validate(); err != nil {
		return nil, err
	}
	logger.Infof("Loaded parameters: memory %d, bins %d/%d/%d",
		p.MemorySize, p.Duration.Bins(), p.Velocity.Bins(), p.TimeShift.Bins())
	return p, nil
}
