package piano

import "fmt"

// Kind is the type of an inbound event.
type Kind int

const (
	NoteOn Kind = iota + 1
	NoteOff
	Controller
)

func (k Kind) String() string {
	switch k {
	case NoteOn:
		return "note-on"
	case NoteOff:
		return "note-off"
	case Controller:
		return "controller"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Controller numbers the engine understands.
const (
	SustainPedal = 64
	AllNotesOff  = 123
)

// UIVelocity is the velocity used for on-screen key presses.
const UIVelocity = 100

// Event is one inbound message from MIDI, the on-screen keyboard or a script.
// Note and Value are MIDI data bytes; Controller is only used by Controller
// events.
type Event struct {
	Kind       Kind
	Note       int
	Value      int
	Controller int
}

// NoteOnEvent builds a note-on.
func NoteOnEvent(note, velocity int) Event {
	return Event{Kind: NoteOn, Note: note, Value: velocity}
}

// NoteOffEvent builds a note-off.
func NoteOffEvent(note int) Event {
	return Event{Kind: NoteOff, Note: note}
}

// ControlEvent builds a controller change.
func ControlEvent(controller, value int) Event {
	return Event{Kind: Controller, Controller: controller, Value: value}
}

func (e Event) String() string {
	switch e.Kind {
	case Controller:
		return fmt.Sprintf("%s cc=%d value=%d", e.Kind, e.Controller, e.Value)
	case NoteOff:
		return fmt.Sprintf("%s note=%d", e.Kind, e.Note)
	default:
		return fmt.Sprintf("%s note=%d value=%d", e.Kind, e.Note, e.Value)
	}
}

// Normalize validates e at the boundary. Out-of-range data bytes, unknown
// kinds and unknown controllers are rejected; a note-on with value zero
// becomes a note-off.
func (e Event) Normalize() (Event, bool) {
	if e.Value < 0 || e.Value > 127 {
		return e, false
	}
	switch e.Kind {
	case NoteOn, NoteOff:
		if e.Note < 0 || e.Note > 127 {
			return e, false
		}
		if e.Kind == NoteOn && e.Value == 0 {
			e.Kind = NoteOff
		}
		if e.Kind == NoteOff {
			e.Value = 0
		}
		return e, true
	case Controller:
		switch e.Controller {
		case SustainPedal, AllNotesOff:
			return e, true
		}
		return e, false
	default:
		return e, false
	}
}
