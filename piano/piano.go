// Package piano plays a finished event list on a real MIDI device
// over portmidi.
package piano

import (
	"sync"
	"time"

	"github.com/rakyll/portmidi"
	log "github.com/sirupsen/logrus"

	"github.com/schollz/pianoml/music"
)

const (
	statusNoteOn  = 0x90
	statusNoteOff = 0x80
	statusControl = 0xB0
)

// Piano wraps the portmidi output stream of the connected keyboard.
type Piano struct {
	OutputDevice portmidi.DeviceID
	outputStream *portmidi.Stream
	sync.Mutex
}

// New finds an output device and opens a stream to it. Optionally
// you can pass the output port to use.
func New(ports ...int) (p *Piano, err error) {
	p = new(Piano)
	logger := log.WithFields(log.Fields{
		"function": "Piano.New",
	})
	logger.Debug("Initializing portmidi...")
	err = portmidi.Initialize()
	if err != nil {
		logger.WithFields(log.Fields{
			"msg": "initialization failed",
		}).Error(err.Error())
		return
	}
	numDevices := portmidi.CountDevices()
	logger.Debugf("Found %d devices", numDevices)
	for i := 0; i < numDevices; i++ {
		deviceInfo := portmidi.Info(portmidi.DeviceID(i))
		if deviceInfo.IsOutputAvailable {
			p.OutputDevice = portmidi.DeviceID(i)
			logger.Debugf("%d) %s %s output", i, deviceInfo.Interface, deviceInfo.Name)
		}
	}
	if len(ports) == 1 {
		p.OutputDevice = portmidi.DeviceID(ports[0])
	}
	logger.Infof("Using output device %d", p.OutputDevice)

	p.outputStream, err = portmidi.NewOutputStream(p.OutputDevice, 1024, 0)
	if err != nil {
		logger.WithFields(log.Fields{
			"msg": "problem getting output stream",
		}).Error(err.Error())
	}
	return
}

// Close will shutdown the stream and gracefully terminate.
func (p *Piano) Close() (err error) {
	logger := log.WithFields(log.Fields{
		"function": "Piano.Close",
	})
	logger.Debug("Closing output stream")
	p.outputStream.Close()
	logger.Debug("Terminating portmidi")
	portmidi.Terminate()
	return
}

// PlayEvents performs the ordered event list in real time, pacing
// by the absolute event times.
func (p *Piano) PlayEvents(events []music.Event) (err error) {
	p.Lock()
	defer p.Unlock()
	logger := log.WithFields(log.Fields{
		"function": "Piano.PlayEvents",
	})
	last := 0
	for _, ev := range events {
		if ev.Time > last {
			time.Sleep(time.Duration(ev.Time-last) * time.Millisecond)
			last = ev.Time
		}
		var status int64
		switch ev.Kind {
		case music.NoteOn:
			status = statusNoteOn
		case music.NoteOff:
			status = statusNoteOff
		case music.Control:
			status = statusControl
		}
		err = p.outputStream.WriteShort(status, int64(ev.Key), int64(ev.Value))
		if err != nil {
			logger.WithFields(log.Fields{
				"k":   ev.Key,
				"v":   ev.Value,
				"msg": "problem writing event",
			}).Error(err.Error())
			return
		}
	}
	return
}
