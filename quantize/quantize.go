// Package quantize discretizes continuous performance features into
// categorical bins. The bin edges follow a Weber's-law style spacing
// (narrow near zero, wide at large magnitudes) so that one bin step
// stays perceptually the same size everywhere; the tables themselves
// are configuration supplied from outside and opaque data here.
package quantize

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"sort"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// ConfigError reports a malformed quantization or generation
// configuration. Not retryable.
type ConfigError string

func (e ConfigError) Error() string { return string(e) }

// OutOfRangeError signals a lookup value outside all configured bin
// edges. The scheme never auto-clamps; callers must see this.
type OutOfRangeError struct {
	Value     int
	Low, High int
}

func (e OutOfRangeError) Error() string {
	return fmt.Sprintf("value %d outside bin edges [%d,%d)", e.Value, e.Low, e.High)
}

// Scheme holds the bin-edge tables for the three continuous
// features. Each table has N+1 strictly increasing edges for N bins;
// the final edge of each is the overflow cap appended at load time.
type Scheme struct {
	Duration  []int `json:"duration"`
	Velocity  []int `json:"velocity"`
	TimeShift []int `json:"time_shift"`
}

// schemeFile is the on-disk layout: the raw training-derived tables
// plus the overflow caps to append.
type schemeFile struct {
	Duration  []int `json:"duration"`
	Velocity  []int `json:"velocity"`
	TimeShift []int `json:"time_shift"`
	Caps      struct {
		Duration  int `json:"duration"`
		Velocity  int `json:"velocity"`
		TimeShift int `json:"time_shift"`
	} `json:"caps"`
}

// Default overflow caps, used when the config file does not carry
// its own: the longest representable note/gap and velocity jump.
const (
	DefaultDurationCap  = 5000
	DefaultVelocityCap  = 128
	DefaultTimeShiftCap = 5000
)

// Load reads the bin-edge tables, appends the overflow caps, and
// validates monotonicity.
func Load(filename string) (s *Scheme, err error) {
	logger := log.WithFields(log.Fields{
		"function": "quantize.Load",
	})
	b, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrap(err, "opening quantization config")
	}
	var f schemeFile
	if err = json.Unmarshal(b, &f); err != nil {
		return nil, errors.Wrap(err, "parsing quantization config")
	}
	if f.Caps.Duration == 0 {
		f.Caps.Duration = DefaultDurationCap
	}
	if f.Caps.Velocity == 0 {
		f.Caps.Velocity = DefaultVelocityCap
	}
	if f.Caps.TimeShift == 0 {
		f.Caps.TimeShift = DefaultTimeShiftCap
	}
	s = &Scheme{
		Duration:  append(f.Duration, f.Caps.Duration),
		Velocity:  append(f.Velocity, f.Caps.Velocity),
		TimeShift: append(f.TimeShift, f.Caps.TimeShift),
	}
	if err = s.Validate(); err != nil {
		return nil, err
	}
	logger.Debugf("Loaded %d/%d/%d bins (duration/velocity/time shift)",
		s.DurationBins(), s.VelocityBins(), s.TimeShiftBins())
	return s, nil
}

// Validate rejects missing or non-monotonic tables.
func (s *Scheme) Validate() error {
	for _, table := range []struct {
		name  string
		edges []int
	}{
		{"duration", s.Duration},
		{"velocity", s.Velocity},
		{"time_shift", s.TimeShift},
	} {
		if len(table.edges) < 2 {
			return ConfigError(fmt.Sprintf("%s table needs at least one bin", table.name))
		}
		for i := 1; i < len(table.edges); i++ {
			if table.edges[i] <= table.edges[i-1] {
				return ConfigError(fmt.Sprintf("%s edges not strictly increasing at %d", table.name, i))
			}
		}
	}
	return nil
}

// DurationBins returns the number of duration bins.
func (s *Scheme) DurationBins() int { return len(s.Duration) - 1 }

// VelocityBins returns the number of velocity-delta bins.
func (s *Scheme) VelocityBins() int { return len(s.Velocity) - 1 }

// TimeShiftBins returns the number of time-shift bins.
func (s *Scheme) TimeShiftBins() int { return len(s.TimeShift) - 1 }

// BinIndex returns the unique i with edges[i] <= v < edges[i+1].
func BinIndex(v int, edges []int) (int, error) {
	if v < edges[0] || v >= edges[len(edges)-1] {
		return 0, OutOfRangeError{v, edges[0], edges[len(edges)-1]}
	}
	// first edge strictly above v, minus one
	i := sort.SearchInts(edges, v+1) - 1
	return i, nil
}

// SampleFromBin dequantizes a bin index by drawing uniformly from
// the integer range [edges[i], edges[i+1]). A width-1 bin returns
// its single value without consuming randomness.
func SampleFromBin(i int, edges []int, rng *rand.Rand) int {
	width := edges[i+1] - edges[i]
	if width <= 1 {
		return edges[i]
	}
	return edges[i] + rng.Intn(width)
}
