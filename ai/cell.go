package ai

import (
	"math"

	"github.com/schollz/pianoml/quantize"
)

// Cell is the recurrent generative unit. It holds only read-only
// pretrained parameters; all mutable state (the memory vector) lives
// in the session, so one Cell serves any number of concurrent
// sessions.
type Cell struct {
	params *Params
	scheme *quantize.Scheme
}

// Logits are the four categorical distributions (pre-softmax) one
// step produces.
type Logits struct {
	Pitch     []float64
	Duration  []float64
	Velocity  []float64
	TimeShift []float64
}

// NewCell binds validated parameters to a quantization scheme,
// checking that the per-stream bin counts agree.
func NewCell(p *Params, s *quantize.Scheme) (*Cell, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if p.Duration.Bins() != s.DurationBins() {
		return nil, ShapeError{"duration bins vs scheme", s.DurationBins(), p.Duration.Bins()}
	}
	if p.Velocity.Bins() != s.VelocityBins() {
		return nil, ShapeError{"velocity bins vs scheme", s.VelocityBins(), p.Velocity.Bins()}
	}
	if p.TimeShift.Bins() != s.TimeShiftBins() {
		return nil, ShapeError{"time shift bins vs scheme", s.TimeShiftBins(), p.TimeShift.Bins()}
	}
	return &Cell{params: p, scheme: s}, nil
}

// NewMemory returns a zeroed recurrent memory of the configured size.
func (c *Cell) NewMemory() []float64 {
	return make([]float64, c.params.MemorySize)
}

// Step runs one gated-recurrent transition: the previous discrete
// feature state updates the memory, and each output stream attends
// over its key/value bank to produce logits. Pure given its inputs;
// the input memory is not mutated.
func (c *Cell) Step(memory []float64, state quantize.State) (newMemory []float64, lg Logits, err error) {
	if err = c.checkState(memory, state); err != nil {
		return nil, lg, err
	}
	x := c.embed(memory, state)

	p := c.params
	forget := make([]float64, p.MemorySize)
	update := make([]float64, p.MemorySize)
	candidate := make([]float64, p.MemorySize)
	for i := 0; i < p.MemorySize; i++ {
		forget[i] = sigmoid(dot(p.ForgetWeights[i], x) + p.ForgetBias[i])
		update[i] = sigmoid(dot(p.UpdateWeights[i], x) + p.UpdateBias[i])
		candidate[i] = math.Tanh(dot(p.CandidateWeights[i], x) + p.CandidateBias[i])
	}
	newMemory = make([]float64, p.MemorySize)
	for i := 0; i < p.MemorySize; i++ {
		newMemory[i] = forget[i]*memory[i] + update[i]*candidate[i]
	}

	lg.Pitch = attend(&p.Pitch, newMemory)
	lg.Duration = attend(&p.Duration, newMemory)
	lg.Velocity = attend(&p.Velocity, newMemory)
	lg.TimeShift = attend(&p.TimeShift, newMemory)
	return newMemory, lg, nil
}

// PedalProb is the sustain-continuation probability of the pedal
// head, clamped to [0,1] before any Bernoulli use. Independent of
// sampling temperature.
func (c *Cell) PedalProb(memory []float64) (float64, error) {
	if len(memory) != c.params.MemorySize {
		return 0, ShapeError{"memory", c.params.MemorySize, len(memory)}
	}
	p := sigmoid(dot(c.params.PedalWeights, memory) + c.params.PedalBias)
	if p < 0 {
		p = 0
	}
	if p > 1 {
		p = 1
	}
	return p, nil
}

func (c *Cell) checkState(memory []float64, s quantize.State) error {
	p := c.params
	if len(memory) != p.MemorySize {
		return ShapeError{"memory", p.MemorySize, len(memory)}
	}
	if s.Pitch < 0 || s.Pitch >= PitchClasses {
		return ShapeError{"pitch index", PitchClasses, s.Pitch}
	}
	if s.Duration < 0 || s.Duration >= p.Duration.Bins() {
		return ShapeError{"duration index", p.Duration.Bins(), s.Duration}
	}
	if s.Velocity < 0 || s.Velocity >= p.Velocity.Bins() {
		return ShapeError{"velocity index", p.Velocity.Bins(), s.Velocity}
	}
	if s.TimeShift < 0 || s.TimeShift >= p.TimeShift.Bins() {
		return ShapeError{"time shift index", p.TimeShift.Bins(), s.TimeShift}
	}
	return nil
}

// embed builds the gate input [memory; one-hot features; pedal bit].
func (c *Cell) embed(memory []float64, s quantize.State) []float64 {
	p := c.params
	x := make([]float64, p.MemorySize+p.InputSize())
	copy(x, memory)
	offset := p.MemorySize
	x[offset+s.Pitch] = 1
	offset += PitchClasses
	x[offset+s.Duration] = 1
	offset += p.Duration.Bins()
	x[offset+s.Velocity] = 1
	offset += p.Velocity.Bins()
	x[offset+s.TimeShift] = 1
	offset += p.TimeShift.Bins()
	if s.Pedal {
		x[offset] = 1
	}
	return x
}

// attend scores the memory against the head's key bank, blends the
// value bank by the softmaxed scores, and projects [context; memory]
// to logits.
func attend(h *Head, memory []float64) []float64 {
	bins := h.Bins()
	scores := make([]float64, bins)
	for j := 0; j < bins; j++ {
		scores[j] = dot(h.Keys[j], memory)
	}
	alpha := softmax(scores)

	context := make([]float64, len(memory))
	for j := 0; j < bins; j++ {
		for i := range context {
			context[i] += alpha[j] * h.Values[j][i]
		}
	}

	combined := make([]float64, 2*len(memory))
	copy(combined, context)
	copy(combined[len(memory):], memory)

	logits := make([]float64, bins)
	for j := 0; j < bins; j++ {
		logits[j] = dot(h.Weights[j], combined) + h.Bias[j]
	}
	return logits
}

func dot(a, b []float64) (s float64) {
	for i := range a {
		s += a[i] * b[i]
	}
	return
}

func sigmoid(v float64) float64 {
	return 1 / (1 + math.Exp(-v))
}

func softmax(v []float64) []float64 {
	max := v[0]
	for _, x := range v[1:] {
		if x > max {
			max = x
		}
	}
	out := make([]float64, len(v))
	sum := 0.0
	for i, x := range v {
		out[i] = math.Exp(x - max)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}
