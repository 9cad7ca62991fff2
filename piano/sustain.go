package piano

// Sustain is the sustain pedal state machine. While engaged it swallows
// note-offs and remembers them; releasing the pedal hands them back exactly
// once. It is the single source of truth for deferred note-offs.
type Sustain struct {
	engaged bool
	held    map[int]struct{}
}

// NewSustain returns a released pedal.
func NewSustain() *Sustain {
	return &Sustain{held: make(map[int]struct{})}
}

// Engaged reports whether the pedal is down.
func (s *Sustain) Engaged() bool {
	return s.engaged
}

// Pedal applies a controller value: any positive value engages, zero
// releases. On release it returns the deferred notes, ascending, which the
// caller must deliver as note-offs.
func (s *Sustain) Pedal(value int) []int {
	if value > 0 {
		s.engaged = true
		return nil
	}
	if !s.engaged {
		return nil
	}
	s.engaged = false
	if len(s.held) == 0 {
		return nil
	}
	notes := sortedNotes(s.held)
	clear(s.held)
	return notes
}

// NoteOff reports whether a note-off should be delivered now. With the pedal
// down the note is held instead; holding an already held note is a no-op.
func (s *Sustain) NoteOff(note int) bool {
	if !s.engaged {
		return true
	}
	s.held[note] = struct{}{}
	return false
}

// Holds reports whether a note-off for note is currently deferred.
func (s *Sustain) Holds(note int) bool {
	_, ok := s.held[note]
	return ok
}

// Held returns the deferred notes, ascending.
func (s *Sustain) Held() []int {
	return sortedNotes(s.held)
}

// Reset releases the pedal and forgets the deferred notes without returning
// them.
func (s *Sustain) Reset() {
	s.engaged = false
	clear(s.held)
}
