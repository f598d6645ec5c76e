package player

import (
	"math/rand"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	hashids "github.com/speps/go-hashids"

	"github.com/schollz/pianoml/ai"
	"github.com/schollz/pianoml/midifile"
	"github.com/schollz/pianoml/music"
	"github.com/schollz/pianoml/piano"
	"github.com/schollz/pianoml/quantize"
)

func init() {
	log.SetLevel(log.DebugLevel)
}

// Player wires the whole pipeline together: load the pretrained
// parameters, the quantization tables and the seed, warm a session,
// generate, synthesize events, and write them out.
type Player struct {
	// ParamsFile is the pretrained parameter store
	ParamsFile string
	// SchemeFile is the quantization bin-edge config
	SchemeFile string
	// SeedFile is the 5xN seed performance
	SeedFile string

	// NoteCount is how many notes to generate after the seed
	NoteCount int
	// Temperature controls sampling sharpness
	Temperature float64
	// RandomSeed fixes the random source; 0 means time-based
	RandomSeed int64

	// OutputFile is the binary MIDI file to write; empty picks a
	// fingerprint-derived name
	OutputFile string
	// RecordsFile optionally receives the textual record stream
	RecordsFile string
	// Play sends the finished events to a MIDI device afterwards
	Play bool
}

// New initializes a player with the standard defaults.
func New(debug bool) (p *Player) {
	p = new(Player)
	if !debug {
		log.SetLevel(log.InfoLevel)
	}
	p.NoteCount = 100
	p.Temperature = 1.0
	return
}

// Run performs one full generation.
func (p *Player) Run() (err error) {
	logger := log.WithFields(log.Fields{
		"function": "Player.Run",
	})

	logger.Debug("Loading quantization scheme")
	scheme, err := quantize.Load(p.SchemeFile)
	if err != nil {
		return
	}

	logger.Debug("Loading parameters")
	params, err := ai.LoadParams(p.ParamsFile)
	if err != nil {
		return
	}
	cell, err := ai.NewCell(params, scheme)
	if err != nil {
		return
	}

	logger.Debug("Loading seed")
	seed, err := music.Open(p.SeedFile)
	if err != nil {
		return
	}

	randomSeed := p.RandomSeed
	if randomSeed == 0 {
		randomSeed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(randomSeed))

	session, err := ai.NewSession(cell, quantize.NewCodec(scheme), p.Temperature, rng)
	if err != nil {
		return
	}
	if err = session.Warm(seed); err != nil {
		return
	}
	generated, err := session.Generate(p.NoteCount)
	if err != nil {
		return
	}

	performance := append(append(music.Notes{}, seed...), generated...)
	events := music.Synthesize(performance, rng)

	name := Fingerprint(performance)
	logger.Infof("Performance %s: %d notes, %d events", name, len(performance), len(events))

	if p.RecordsFile != "" {
		var f *os.File
		f, err = os.Create(p.RecordsFile)
		if err != nil {
			return
		}
		err = midifile.WriteRecords(f, events)
		f.Close()
		if err != nil {
			return
		}
		logger.Infof("Wrote records to %s", p.RecordsFile)
	}

	out := p.OutputFile
	if out == "" {
		out = name + ".mid"
	}
	if err = midifile.WriteSMF(out, events); err != nil {
		return
	}

	if p.Play {
		var pn *piano.Piano
		pn, err = piano.New()
		if err != nil {
			return
		}
		defer pn.Close()
		err = pn.PlayEvents(events)
	}
	return
}

// Fingerprint names a performance after its opening pitches.
func Fingerprint(notes music.Notes) string {
	hd := hashids.NewData()
	hd.Salt = "pianoml"
	hd.MinLength = 8
	h, err := hashids.NewWithData(hd)
	if err != nil {
		return "performance"
	}
	pitches := make([]int, 0, 16)
	for _, n := range notes {
		pitches = append(pitches, n.Pitch)
		if len(pitches) == 16 {
			break
		}
	}
	id, err := h.Encode(pitches)
	if err != nil {
		return "performance"
	}
	return id
}
