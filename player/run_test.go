package player

import (
	"encoding/json"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/schollz/pianoml/ai"
)

func randMatrix(rng *rand.Rand, rows, cols int) [][]float64 {
	m := make([][]float64, rows)
	for i := range m {
		m[i] = make([]float64, cols)
		for j := range m[i] {
			m[i][j] = rng.Float64() - 0.5
		}
	}
	return m
}

func randVector(rng *rand.Rand, n int) []float64 {
	v := make([]float64, n)
	for i := range v {
		v[i] = rng.Float64() - 0.5
	}
	return v
}

func randHead(rng *rand.Rand, bins, memory int) ai.Head {
	return ai.Head{
		Keys:    randMatrix(rng, bins, memory),
		Values:  randMatrix(rng, bins, memory),
		Weights: randMatrix(rng, bins, 2*memory),
		Bias:    randVector(rng, bins),
	}
}

// writeFixtures lays down a parameter store, quantization config,
// and seed matching each other's bin counts.
func writeFixtures(t *testing.T, dir string) (paramsFile, schemeFile, seedFile string) {
	t.Helper()
	rng := rand.New(rand.NewSource(42))
	const memory = 4
	p := &ai.Params{MemorySize: memory}
	p.Pitch = randHead(rng, ai.PitchClasses, memory)
	p.Duration = randHead(rng, 5, memory)
	p.Velocity = randHead(rng, 7, memory)
	p.TimeShift = randHead(rng, 6, memory)
	width := memory + p.InputSize()
	p.ForgetWeights = randMatrix(rng, memory, width)
	p.ForgetBias = randVector(rng, memory)
	p.UpdateWeights = randMatrix(rng, memory, width)
	p.UpdateBias = randVector(rng, memory)
	p.CandidateWeights = randMatrix(rng, memory, width)
	p.CandidateBias = randVector(rng, memory)
	p.PedalWeights = randVector(rng, memory)

	b, err := json.Marshal(p)
	if err != nil {
		t.Fatal(err)
	}
	paramsFile = filepath.Join(dir, "params.json")
	if err = os.WriteFile(paramsFile, b, 0644); err != nil {
		t.Fatal(err)
	}

	schemeFile = filepath.Join(dir, "quantization.json")
	scheme := `{
		"duration": [0, 20, 50, 120, 300],
		"velocity": [-40, -15, -5, 0, 1, 6, 16],
		"time_shift": [0, 1, 25, 60, 150, 400],
		"caps": {"duration": 1000, "velocity": 41, "time_shift": 1000}
	}`
	if err = os.WriteFile(schemeFile, []byte(scheme), 0644); err != nil {
		t.Fatal(err)
	}

	seedFile = filepath.Join(dir, "seed.json")
	seed := `[[60, 64, 67], [100, 40, 210], [70, 75, 66], [0, 30, 90], [1, 1, 0]]`
	if err = os.WriteFile(seedFile, []byte(seed), 0644); err != nil {
		t.Fatal(err)
	}
	return
}

func TestRunEndToEnd(t *testing.T) {
	dir := t.TempDir()
	paramsFile, schemeFile, seedFile := writeFixtures(t, dir)

	p := New(false)
	p.ParamsFile = paramsFile
	p.SchemeFile = schemeFile
	p.SeedFile = seedFile
	p.NoteCount = 20
	p.Temperature = 1.0
	p.RandomSeed = 7
	p.OutputFile = filepath.Join(dir, "out.mid")
	p.RecordsFile = filepath.Join(dir, "records.csv")

	if err := p.Run(); err != nil {
		t.Fatal(err)
	}

	midi, err := os.ReadFile(p.OutputFile)
	if err != nil {
		t.Fatal(err)
	}
	if len(midi) == 0 || string(midi[:4]) != "MThd" {
		t.Error("output MIDI file is not an MThd container")
	}

	records, err := os.ReadFile(p.RecordsFile)
	if err != nil {
		t.Fatal(err)
	}
	text := string(records)
	if !strings.Contains(text, "TimeDivision") || !strings.Contains(text, "NoteOn") {
		t.Errorf("records missing expected lines:\n%s", text)
	}
}

func TestRunZeroNotes(t *testing.T) {
	dir := t.TempDir()
	paramsFile, schemeFile, seedFile := writeFixtures(t, dir)

	p := New(false)
	p.ParamsFile = paramsFile
	p.SchemeFile = schemeFile
	p.SeedFile = seedFile
	p.NoteCount = 0
	p.Temperature = 1.0
	p.RandomSeed = 7
	p.OutputFile = filepath.Join(dir, "out.mid")
	p.RecordsFile = filepath.Join(dir, "records.csv")

	if err := p.Run(); err != nil {
		t.Fatal(err)
	}
	records, err := os.ReadFile(p.RecordsFile)
	if err != nil {
		t.Fatal(err)
	}
	// 3 header records + 3 seed notes x on/off + 2 pedal controls
	// (down at the first note, up before the third) + end of track
	lines := strings.Count(strings.TrimSpace(string(records)), "\n") + 1
	if want := 3 + 6 + 2 + 1; lines != want {
		t.Errorf("got %d records, want %d:\n%s", lines, want, string(records))
	}
}
