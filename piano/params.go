package piano

import (
	"math"
	"strings"
	"sync/atomic"
	"time"
)

// Waveform selects the oscillator shape of a voice.
type Waveform int

const (
	Sine Waveform = iota
	Square
	Sawtooth
	Triangle
)

var waveformNames = [...]string{"sine", "square", "sawtooth", "triangle"}

func (w Waveform) String() string {
	if w < 0 || int(w) >= len(waveformNames) {
		return "unknown"
	}
	return waveformNames[w]
}

// Valid reports whether w is one of the known shapes.
func (w Waveform) Valid() bool {
	return w >= 0 && int(w) < len(waveformNames)
}

// ParseWaveform resolves a waveform name, case-insensitively.
func ParseWaveform(s string) (Waveform, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, name := range waveformNames {
		if name == s {
			return Waveform(i), true
		}
	}
	return Sine, false
}

// ADSR holds the envelope and oscillator settings applied to a voice when it
// is created. A voice keeps its copy; later changes do not reach it.
type ADSR struct {
	Attack   time.Duration
	Decay    time.Duration
	Sustain  float64 // level in [0,1], relative to the velocity peak
	Release  time.Duration
	Waveform Waveform
}

// DefaultADSR returns the documented fallback settings.
func DefaultADSR() ADSR {
	return ADSR{
		Attack:   10 * time.Millisecond,
		Decay:    100 * time.Millisecond,
		Sustain:  0.7,
		Release:  300 * time.Millisecond,
		Waveform: Sine,
	}
}

// Sanitize replaces every invalid field with its default.
func (a ADSR) Sanitize() ADSR {
	def := DefaultADSR()
	if a.Attack < 0 {
		a.Attack = def.Attack
	}
	if a.Decay < 0 {
		a.Decay = def.Decay
	}
	if math.IsNaN(a.Sustain) || a.Sustain < 0 || a.Sustain > 1 {
		a.Sustain = def.Sustain
	}
	if a.Release < 0 {
		a.Release = def.Release
	}
	if !a.Waveform.Valid() {
		a.Waveform = def.Waveform
	}
	return a
}

// Settings is the live ADSR configuration. The UI side stores new values at
// any time; the voice manager loads them at every note-on.
type Settings struct {
	cur atomic.Pointer[ADSR]
}

// NewSettings returns settings initialised with a (sanitized).
func NewSettings(a ADSR) *Settings {
	s := &Settings{}
	s.Store(a)
	return s
}

// Load returns the current settings.
func (s *Settings) Load() ADSR {
	if p := s.cur.Load(); p != nil {
		return *p
	}
	return DefaultADSR()
}

// Store replaces the current settings.
func (s *Settings) Store(a ADSR) {
	a = a.Sanitize()
	s.cur.Store(&a)
}
