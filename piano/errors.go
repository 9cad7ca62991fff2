package piano

import "errors"

var (
	// ErrEngineUnavailable reports that the audio backend did not accept
	// scheduling instructions. Voice and timeline state are still updated.
	ErrEngineUnavailable = errors.New("piano: audio engine unavailable")
	// ErrNoteOutOfRange reports a note number outside 0..127.
	ErrNoteOutOfRange = errors.New("piano: note out of range")
)
