// Package score reads timed event scripts and renders them offline through
// the engine.
//
// A script has one event per line:
//
//	# comment
//	0    on  60 100
//	500  off C4
//	500  cc  64 127
//
// Times are milliseconds from the start. Notes are MIDI numbers or names
// such as C4, F#3 or Bb2 (C4 = 60).
package score

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cwbudde/algo-keys/chord"
	"github.com/cwbudde/algo-keys/piano"
)

// ErrSyntax is wrapped by every parse error.
var ErrSyntax = errors.New("score: syntax error")

// Timed is an event with its offset from the start of the score.
type Timed struct {
	At    time.Duration
	Event piano.Event
}

// Score is an ordered list of timed events.
type Score struct {
	Events []Timed
}

// Duration returns the time of the last event.
func (s *Score) Duration() time.Duration {
	if len(s.Events) == 0 {
		return 0
	}
	return s.Events[len(s.Events)-1].At
}

// ParseFile parses the script at path.
func ParseFile(path string) (*Score, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	s, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Parse reads a script. Events are ordered by time; events sharing a time
// keep their script order.
func Parse(r io.Reader) (*Score, error) {
	sc := bufio.NewScanner(r)
	s := &Score{}
	line := 0
	for sc.Scan() {
		line++
		text := sc.Text()
		if i := strings.IndexByte(text, '#'); i >= 0 {
			text = text[:i]
		}
		fields := strings.Fields(text)
		if len(fields) == 0 {
			continue
		}
		ev, err := parseLine(fields)
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: %v", ErrSyntax, line, err)
		}
		s.Events = append(s.Events, ev)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	sort.SliceStable(s.Events, func(i, j int) bool {
		return s.Events[i].At < s.Events[j].At
	})
	return s, nil
}

func parseLine(fields []string) (Timed, error) {
	if len(fields) < 3 {
		return Timed{}, fmt.Errorf("expected '<ms> <on|off|cc> ...', got %q", strings.Join(fields, " "))
	}
	ms, err := strconv.ParseFloat(fields[0], 64)
	if err != nil || ms < 0 {
		return Timed{}, fmt.Errorf("invalid time %q", fields[0])
	}
	at := time.Duration(ms * float64(time.Millisecond))

	switch strings.ToLower(fields[1]) {
	case "on":
		if len(fields) != 4 {
			return Timed{}, fmt.Errorf("on takes a note and a velocity")
		}
		note, err := ParseNote(fields[2])
		if err != nil {
			return Timed{}, err
		}
		vel, err := parseByte("velocity", fields[3])
		if err != nil {
			return Timed{}, err
		}
		return Timed{At: at, Event: piano.NoteOnEvent(note, vel)}, nil
	case "off":
		if len(fields) != 3 {
			return Timed{}, fmt.Errorf("off takes a note")
		}
		note, err := ParseNote(fields[2])
		if err != nil {
			return Timed{}, err
		}
		return Timed{At: at, Event: piano.NoteOffEvent(note)}, nil
	case "cc":
		if len(fields) != 4 {
			return Timed{}, fmt.Errorf("cc takes a controller and a value")
		}
		num, err := parseByte("controller", fields[2])
		if err != nil {
			return Timed{}, err
		}
		val, err := parseByte("value", fields[3])
		if err != nil {
			return Timed{}, err
		}
		return Timed{At: at, Event: piano.ControlEvent(num, val)}, nil
	default:
		return Timed{}, fmt.Errorf("unknown event %q", fields[1])
	}
}

func parseByte(what, s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 || n > 127 {
		return 0, fmt.Errorf("invalid %s %q (expected 0..127)", what, s)
	}
	return n, nil
}

// ParseNote accepts a MIDI number or a note name with octave.
func ParseNote(s string) (int, error) {
	if n, err := strconv.Atoi(s); err == nil {
		if n < 0 || n > 127 {
			return 0, fmt.Errorf("note %d out of range", n)
		}
		return n, nil
	}
	split := len(s)
	for split > 0 && (s[split-1] >= '0' && s[split-1] <= '9' || s[split-1] == '-') {
		split--
	}
	name, octStr := s[:split], s[split:]
	if name == "" || octStr == "" {
		return 0, fmt.Errorf("invalid note %q", s)
	}
	if len(name) > 1 {
		name = strings.ToUpper(name[:1]) + name[1:]
	} else {
		name = strings.ToUpper(name)
	}
	pc, ok := chord.PitchClass(name)
	if !ok {
		return 0, fmt.Errorf("invalid note name %q", s)
	}
	oct, err := strconv.Atoi(octStr)
	if err != nil {
		return 0, fmt.Errorf("invalid octave in %q", s)
	}
	n := (oct+1)*12 + pc
	if n < 0 || n > 127 {
		return 0, fmt.Errorf("note %q out of range", s)
	}
	return n, nil
}

// SingleNote returns a score that plays one note and releases it after hold.
func SingleNote(note, velocity int, hold time.Duration) *Score {
	if hold < 0 {
		hold = 0
	}
	return &Score{Events: []Timed{
		{At: 0, Event: piano.NoteOnEvent(note, velocity)},
		{At: hold, Event: piano.NoteOffEvent(note)},
	}}
}
