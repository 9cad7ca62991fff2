package main

import "github.com/cwbudde/algo-keys/piano"

// keyRow lays out one and a half octaves on a QWERTY row, starting at C.
const keyRow = "awsedftgyhujkolp;'"

const (
	minOctave     = 0
	maxOctave     = 9
	defaultOctave = 4
)

// keymap turns terminal key presses into engine events. Terminals report no
// key releases, so a note key toggles its note.
type keymap struct {
	octave int
	held   map[int]bool
	pedal  bool
}

func newKeymap() *keymap {
	return &keymap{octave: defaultOctave, held: make(map[int]bool)}
}

type keyAction int

const (
	keyIgnored keyAction = iota
	keyEvent
	keyOctave
	keyQuit
)

// press maps one input byte. Only keyEvent results carry an event.
func (k *keymap) press(b byte) (piano.Event, keyAction) {
	switch b {
	case 'q', 0x03, 0x04:
		return piano.Event{}, keyQuit
	case 'z':
		if k.octave > minOctave {
			k.octave--
		}
		return piano.Event{}, keyOctave
	case 'x':
		if k.octave < maxOctave {
			k.octave++
		}
		return piano.Event{}, keyOctave
	case ' ':
		k.pedal = !k.pedal
		v := 0
		if k.pedal {
			v = 127
		}
		return piano.ControlEvent(piano.SustainPedal, v), keyEvent
	case 0x1b, 0x7f:
		clear(k.held)
		return piano.ControlEvent(piano.AllNotesOff, 0), keyEvent
	}

	for i := 0; i < len(keyRow); i++ {
		if keyRow[i] != b {
			continue
		}
		note := (k.octave+1)*12 + i
		if note > 127 {
			return piano.Event{}, keyIgnored
		}
		if k.held[note] {
			delete(k.held, note)
			return piano.NoteOffEvent(note), keyEvent
		}
		k.held[note] = true
		return piano.NoteOnEvent(note, piano.UIVelocity), keyEvent
	}
	return piano.Event{}, keyIgnored
}
