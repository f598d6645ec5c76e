package ai

import (
	"fmt"
	"math/rand"

	"github.com/schollz/pianoml/quantize"
)

// SampleIndex draws one class from softmax(logits/tau). Low
// temperatures concentrate mass on the argmax, high temperatures
// flatten toward uniform. The rng is the single randomness source,
// so a seeded Rand makes generation reproducible.
func SampleIndex(logits []float64, tau float64, rng *rand.Rand) (int, error) {
	if tau <= 0 {
		return 0, quantize.ConfigError(fmt.Sprintf("temperature must be positive, got %g", tau))
	}
	scaled := make([]float64, len(logits))
	for i, v := range logits {
		scaled[i] = v / tau
	}
	probs := softmax(scaled)

	// cumulative draw; the final bin absorbs rounding residue
	r := rng.Float64()
	cum := 0.0
	for i, p := range probs {
		cum += p
		if r < cum {
			return i, nil
		}
	}
	return len(probs) - 1, nil
}
