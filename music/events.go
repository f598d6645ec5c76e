package music

import (
	"math/rand"
	"sort"
)

// EventKind discriminates the three event types a performance
// synthesizes to.
type EventKind int

const (
	NoteOn EventKind = iota
	NoteOff
	Control
)

func (k EventKind) String() string {
	switch k {
	case NoteOn:
		return "NoteOn"
	case NoteOff:
		return "NoteOff"
	case Control:
		return "Control"
	}
	return "Unknown"
}

// Event is a single track event at an absolute time. Key is the
// pitch for note events and the controller number for controls.
type Event struct {
	Time  int
	Kind  EventKind
	Key   int
	Value int
}

// Synthesize converts a finished performance into a time-ordered
// event list. Note on/off pairs are placed at absolute onset and
// release times; a sustain control is emitted whenever the pedal
// flag flips, timed somewhere inside the preceding inter-onset gap
// rather than exactly at the new onset. The sort is stable, so
// events at equal times keep their emission order.
func Synthesize(notes Notes, rng *rand.Rand) []Event {
	onsets := notes.Onsets()
	events := make([]Event, 0, 2*len(notes)+2)
	for i, n := range notes {
		events = append(events, Event{
			Time:  onsets[i],
			Kind:  NoteOn,
			Key:   n.Pitch,
			Value: n.Velocity,
		})
		events = append(events, Event{
			Time:  onsets[i] + n.Duration,
			Kind:  NoteOff,
			Key:   n.Pitch,
			Value: 0,
		})
	}

	// pedal flips ride the gap before the note that changed them
	pedal := false
	for i, n := range notes {
		if n.Pedal == pedal {
			continue
		}
		pedal = n.Pedal
		t := onsets[i]
		if i > 0 {
			t = onsets[i-1]
			if gap := onsets[i] - onsets[i-1]; gap > 0 {
				t += rng.Intn(gap)
			}
		}
		value := 0
		if pedal {
			value = 127
		}
		events = append(events, Event{
			Time:  t,
			Kind:  Control,
			Key:   SustainController,
			Value: value,
		})
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Time < events[j].Time
	})
	return events
}
