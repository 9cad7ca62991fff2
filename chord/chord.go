// Package chord derives a chord label from the set of sounding notes. Naming
// itself is delegated to an Oracle; the package only spells pitch classes and
// classifies the outcome.
package chord

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
)

var (
	sharpNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}
	flatNames  = [12]string{"C", "Db", "D", "Eb", "E", "F", "Gb", "G", "Ab", "A", "Bb", "B"}
)

// PitchClassName spells the pitch class of a MIDI note, preferring flats when
// flats is set.
func PitchClassName(note int, flats bool) string {
	pc := ((note % 12) + 12) % 12
	if flats {
		return flatNames[pc]
	}
	return sharpNames[pc]
}

// PitchClass parses a spelled pitch class such as "C#", "Eb" or "B". It
// accepts both spellings regardless of preference.
func PitchClass(name string) (int, bool) {
	for i := range sharpNames {
		if sharpNames[i] == name || flatNames[i] == name {
			return i, true
		}
	}
	return 0, false
}

// Oracle names a chord from pitch-class names. Input order and duplicates do
// not affect the answer. Candidates come best first; an empty result means no
// match.
type Oracle interface {
	Detect(names []string) ([]string, error)
}

// OracleFunc adapts a function to the Oracle interface.
type OracleFunc func(names []string) ([]string, error)

func (f OracleFunc) Detect(names []string) ([]string, error) {
	return f(names)
}

// Kind classifies an observation.
type Kind int

const (
	// NoChord means no notes are sounding.
	NoChord Kind = iota
	// Unknown means notes are sounding but no chord could be named.
	Unknown
	// Named carries a chord label.
	Named
)

func (k Kind) String() string {
	switch k {
	case NoChord:
		return "none"
	case Unknown:
		return "unknown"
	case Named:
		return "named"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// Result is one chord observation.
type Result struct {
	Kind       Kind
	Notes      []int
	Names      []string
	Label      string
	Candidates []string
}

// String renders the result the way the chord display shows it.
func (r Result) String() string {
	switch r.Kind {
	case NoChord:
		return "None"
	case Unknown:
		return "Unknown"
	default:
		return r.Label
	}
}

// NotesString lists the sounding notes, or "None".
func (r Result) NotesString() string {
	if len(r.Notes) == 0 {
		return "None"
	}
	parts := make([]string, len(r.Notes))
	for i, n := range r.Notes {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ", ")
}

// ErrNoOracle is reported through Unknown results when no oracle is wired.
var ErrNoOracle = errors.New("chord: no oracle configured")

// Observer turns the active note set into a chord Result.
type Observer struct {
	oracle Oracle
	flats  bool
	logger *slog.Logger
}

// NewObserver creates an observer backed by oracle. A nil oracle yields
// Unknown for every non-empty set.
func NewObserver(oracle Oracle, flats bool, logger *slog.Logger) *Observer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Observer{oracle: oracle, flats: flats, logger: logger}
}

// SetFlats switches the spelling used for subsequent observations.
func (o *Observer) SetFlats(flats bool) {
	o.flats = flats
}

// Flats reports whether flat spelling is selected.
func (o *Observer) Flats() bool {
	return o.flats
}

// OnActiveSetChanged spells currentNotes and asks the oracle for a label.
// Oracle failures, including panics, degrade to Unknown.
func (o *Observer) OnActiveSetChanged(currentNotes []int) Result {
	if len(currentNotes) == 0 {
		return Result{Kind: NoChord}
	}
	notes := append([]int(nil), currentNotes...)
	names := make([]string, len(notes))
	for i, n := range notes {
		names[i] = PitchClassName(n, o.flats)
	}
	res := Result{Kind: Unknown, Notes: notes, Names: names}

	candidates, err := o.detect(names)
	if err != nil {
		o.logger.Warn("chord: oracle failed", "names", strings.Join(names, " "), "err", err)
		return res
	}
	if len(candidates) == 0 || candidates[0] == "" {
		return res
	}
	res.Kind = Named
	res.Label = candidates[0]
	res.Candidates = candidates
	return res
}

func (o *Observer) detect(names []string) (candidates []string, err error) {
	if o.oracle == nil {
		return nil, ErrNoOracle
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("chord: oracle panic: %v", r)
		}
	}()
	return o.oracle.Detect(append([]string(nil), names...))
}
