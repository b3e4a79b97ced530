package audio

import (
	"context"
	"fmt"
	"log"
	"strings"

	"gitlab.com/gomidi/midi"
	"gitlab.com/gomidi/rtmididrv"
)

// NoteReceiver is played by midi input.
type NoteReceiver interface {
	NoteOn(pitch, velocity int) error
	NoteOff(pitch int) error
}

type midiMessage struct {
	kind     eventKind
	channel  int
	pitch    int
	velocity int
}

// parseMIDI decodes note on and note off channel messages. A note on with
// velocity 0 is a note off.
func parseMIDI(data []byte) (midiMessage, bool) {
	if len(data) < 3 {
		return midiMessage{}, false
	}
	msg := midiMessage{
		channel:  int(data[0] & 0x0f),
		pitch:    int(data[1] & 0x7f),
		velocity: int(data[2] & 0x7f),
	}
	switch data[0] & 0xf0 {
	case 0x80:
		msg.kind = noteOff
	case 0x90:
		msg.kind = noteOn
		if msg.velocity == 0 {
			msg.kind = noteOff
		}
	default:
		return midiMessage{}, false
	}
	return msg, true
}

// ListenMIDI forwards notes from the first midi input whose name contains port,
// or the first input when port is empty. It blocks until ctx is done.
func ListenMIDI(ctx context.Context, port string, r NoteReceiver) error {
	drv, err := rtmididrv.New()
	if err != nil {
		return fmt.Errorf("midi: init driver: %w", err)
	}
	defer func() {
		if err := drv.Close(); err != nil {
			log.Printf("midi: close driver: %v", err)
		}
	}()

	ins, err := drv.Ins()
	if err != nil {
		return fmt.Errorf("midi: list inputs: %w", err)
	}
	in, err := findInput(ins, port)
	if err != nil {
		return err
	}
	if err := in.Open(); err != nil {
		return fmt.Errorf("midi: open %s: %w", in, err)
	}
	defer func() {
		if err := in.Close(); err != nil {
			log.Printf("midi: close %s: %v", in, err)
		}
	}()
	log.Printf("midi: listening on %s", in)

	err = in.SetListener(func(data []byte, deltaMicroseconds int64) {
		msg, ok := parseMIDI(data)
		if !ok {
			return
		}
		var err error
		if msg.kind == noteOn {
			err = r.NoteOn(msg.pitch, msg.velocity)
		} else {
			err = r.NoteOff(msg.pitch)
		}
		if err != nil {
			log.Printf("midi: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("midi: set listener: %w", err)
	}
	<-ctx.Done()
	if err := in.StopListening(); err != nil {
		log.Printf("midi: stop listening: %v", err)
	}
	return nil
}

func findInput(ins []midi.In, port string) (midi.In, error) {
	if len(ins) == 0 {
		return nil, fmt.Errorf("midi: no inputs found")
	}
	if port == "" {
		return ins[0], nil
	}
	for _, in := range ins {
		if strings.Contains(in.String(), port) {
			return in, nil
		}
	}
	return nil, fmt.Errorf("midi: no input matching %q", port)
}
