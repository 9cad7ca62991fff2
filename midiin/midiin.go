// Package midiin turns raw MIDI messages into engine events.
package midiin

import (
	"gitlab.com/gomidi/midi/v2"

	"github.com/cwbudde/algo-keys/piano"
)

// OmniChannel accepts messages on every channel.
const OmniChannel = -1

// Decoder converts channel voice messages. It keeps no state.
type Decoder struct {
	// Channel restricts decoding to one MIDI channel (0-15), or OmniChannel.
	Channel int
}

// NewDecoder returns a decoder listening on every channel.
func NewDecoder() Decoder {
	return Decoder{Channel: OmniChannel}
}

// Decode returns the event carried by msg. Messages the engine does not use
// (clock, sysex, pitch bend, other controllers, other channels) report false.
func (d Decoder) Decode(msg midi.Message) (piano.Event, bool) {
	var ch, key, vel, cc, val uint8
	switch {
	case msg.GetNoteStart(&ch, &key, &vel):
		if !d.accepts(ch) {
			return piano.Event{}, false
		}
		return piano.NoteOnEvent(int(key), int(vel)), true
	case msg.GetNoteEnd(&ch, &key):
		if !d.accepts(ch) {
			return piano.Event{}, false
		}
		return piano.NoteOffEvent(int(key)), true
	case msg.GetControlChange(&ch, &cc, &val):
		if !d.accepts(ch) {
			return piano.Event{}, false
		}
		switch cc {
		case piano.SustainPedal, piano.AllNotesOff:
			return piano.ControlEvent(int(cc), int(val)), true
		}
	}
	return piano.Event{}, false
}

func (d Decoder) accepts(ch uint8) bool {
	return d.Channel < 0 || int(ch) == d.Channel
}

// Forward decodes msg and delivers it to sink. It reports whether anything
// was delivered.
func (d Decoder) Forward(msg midi.Message, sink func(piano.Event)) bool {
	ev, ok := d.Decode(msg)
	if !ok {
		return false
	}
	sink(ev)
	return true
}
