// Package midifile serializes a finished event list into the
// interchange track-event formats: a textual record stream for
// inspection and a binary standard MIDI file.
package midifile

import (
	"fmt"
	"io"

	log "github.com/sirupsen/logrus"
	gomidi "gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/schollz/pianoml/music"
)

// One tick is one millisecond: a 500-tick quarter note at 120 BPM
// lasts exactly 500 ms, so absolute event times map to deltas with
// no rounding.
const (
	TicksPerQuarter = 500
	Tempo           = 120

	// Channel and Program pin the whole performance to one
	// acoustic grand on channel 0.
	Channel = 0
	Program = 0
)

// WriteRecords writes the textual record stream: header records for
// the time division, tempo, and program assignment, then one record
// per event as `track, absolute_time, kind, channel, key, value`.
func WriteRecords(w io.Writer, events []music.Event) (err error) {
	microsPerQuarter := 60000000 / Tempo
	if _, err = fmt.Fprintf(w, "1, 0, TimeDivision, 0, 0, %d\n", TicksPerQuarter); err != nil {
		return
	}
	if _, err = fmt.Fprintf(w, "1, 0, Tempo, 0, 0, %d\n", microsPerQuarter); err != nil {
		return
	}
	if _, err = fmt.Fprintf(w, "1, 0, Program, %d, 0, %d\n", Channel, Program); err != nil {
		return
	}
	last := 0
	for _, ev := range events {
		if _, err = fmt.Fprintf(w, "1, %d, %s, %d, %d, %d\n",
			ev.Time, ev.Kind, Channel, ev.Key, ev.Value); err != nil {
			return
		}
		last = ev.Time
	}
	_, err = fmt.Fprintf(w, "1, %d, EndOfTrack, 0, 0, 0\n", last)
	return
}

// Track builds the single-track binary container from the ordered
// event list.
func Track(events []music.Event) *smf.SMF {
	s := smf.New()
	s.TimeFormat = smf.MetricTicks(TicksPerQuarter)

	var tr smf.Track
	tr.Add(0, smf.MetaTempo(Tempo))
	tr.Add(0, gomidi.ProgramChange(Channel, Program))
	last := 0
	for _, ev := range events {
		delta := uint32(ev.Time - last)
		last = ev.Time
		switch ev.Kind {
		case music.NoteOn:
			tr.Add(delta, gomidi.NoteOn(Channel, uint8(ev.Key), uint8(ev.Value)))
		case music.NoteOff:
			tr.Add(delta, gomidi.NoteOff(Channel, uint8(ev.Key)))
		case music.Control:
			tr.Add(delta, gomidi.ControlChange(Channel, uint8(ev.Key), uint8(ev.Value)))
		}
	}
	tr.Close(0)
	s.Add(tr)
	return s
}

// WriteSMF writes the binary standard MIDI file.
func WriteSMF(filename string, events []music.Event) (err error) {
	logger := log.WithFields(log.Fields{
		"function": "midifile.WriteSMF",
	})
	if err = Track(events).WriteFile(filename); err != nil {
		return err
	}
	logger.Infof("Wrote %d events to %s", len(events), filename)
	return nil
}
