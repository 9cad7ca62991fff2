package piano

import (
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/cwbudde/algo-keys/clock"
)

// Manager owns the note to voice mapping. At most one live voice exists per
// note; released voices move to a tail queue until their release completes.
//
// All methods except Active belong to the control timeline.
type Manager struct {
	clock    clock.Clock
	settings *Settings
	sched    Scheduler
	logger   *slog.Logger

	voices [128]*Voice
	tails  []*Voice
	nextID uint64

	active atomic.Pointer[[]int]
}

// NewManager creates a voice manager. A nil settings uses the defaults, a nil
// scheduler discards audio instructions and a nil logger uses slog.Default.
func NewManager(clk clock.Clock, settings *Settings, sched Scheduler, logger *slog.Logger) *Manager {
	if settings == nil {
		settings = NewSettings(DefaultADSR())
	}
	if sched == nil {
		sched = Discard
	}
	if logger == nil {
		logger = slog.Default()
	}
	m := &Manager{
		clock:    clk,
		settings: settings,
		sched:    sched,
		logger:   logger,
	}
	m.publish()
	return m
}

// NoteOn starts a voice for note. A velocity of zero or less is a note-off and
// yields no voice. A voice already sounding on the note is cut with a short
// release before the new one is installed.
//
// An ErrEngineUnavailable error leaves the returned voice registered.
func (m *Manager) NoteOn(note, velocity int) (*Voice, error) {
	if note < 0 || note > 127 {
		return nil, fmt.Errorf("%w: %d", ErrNoteOutOfRange, note)
	}
	if velocity <= 0 {
		return nil, m.NoteOff(note)
	}
	if velocity > 127 {
		velocity = 127
	}

	now := m.clock.Now()
	m.reap(now)

	var errs []error
	if old := m.voices[note]; old != nil {
		m.logger.Debug("voice: retrigger", "note", note, "voice", old.id)
		errs = append(errs, m.retire(old, now, RetriggerRelease))
	}

	m.nextID++
	v, cmds := newVoice(m.nextID, note, velocity, m.settings.Load(), now)
	m.voices[note] = v
	m.publish()
	m.logger.Debug("voice: start", "note", note, "velocity", velocity, "voice", v.id, "waveform", v.adsr.Waveform)

	errs = append(errs, m.submit(cmds))
	return v, errors.Join(errs...)
}

// NoteOff releases the voice on note. Without a voice it does nothing. The
// mapping is removed immediately; the release tail keeps sounding.
func (m *Manager) NoteOff(note int) error {
	if note < 0 || note > 127 {
		return nil
	}
	v := m.voices[note]
	if v == nil {
		return nil
	}
	now := m.clock.Now()
	m.reap(now)
	err := m.retire(v, now, v.adsr.Release)
	m.publish()
	m.logger.Debug("voice: release", "note", note, "voice", v.id, "release", v.adsr.Release)
	return err
}

// ReleaseAll releases every live voice.
func (m *Manager) ReleaseAll() error {
	var errs []error
	for note := range m.voices {
		if m.voices[note] != nil {
			errs = append(errs, m.NoteOff(note))
		}
	}
	return errors.Join(errs...)
}

// retire schedules the release of v and hands it to the tail queue.
func (m *Manager) retire(v *Voice, now, length time.Duration) error {
	cmds := v.release(now, length)
	m.voices[v.note] = nil
	m.tails = append(m.tails, v)
	return m.submit(cmds)
}

func (m *Manager) submit(cmds []Command) error {
	if len(cmds) == 0 {
		return nil
	}
	if err := m.sched.Submit(cmds...); err != nil {
		m.logger.Warn("voice: scheduling failed", "err", err)
		if errors.Is(err, ErrEngineUnavailable) {
			return err
		}
		return fmt.Errorf("%w: %v", ErrEngineUnavailable, err)
	}
	return nil
}

// reap drops tails whose release has completed.
func (m *Manager) reap(now time.Duration) {
	kept := m.tails[:0]
	for _, v := range m.tails {
		if !v.Done(now) {
			kept = append(kept, v)
		}
	}
	for i := len(kept); i < len(m.tails); i++ {
		m.tails[i] = nil
	}
	m.tails = kept
}

func (m *Manager) publish() {
	notes := make([]int, 0, 8)
	for note, v := range m.voices {
		if v != nil {
			notes = append(notes, note)
		}
	}
	m.active.Store(&notes)
}

// Voice returns the live voice on note, or nil.
func (m *Manager) Voice(note int) *Voice {
	if note < 0 || note > 127 {
		return nil
	}
	return m.voices[note]
}

// Active returns the notes with a live voice, ascending. It is safe to call
// from any goroutine; the returned slice must not be modified.
func (m *Manager) Active() []int {
	return *m.active.Load()
}

// Tails returns the number of released voices whose tail is still sounding.
func (m *Manager) Tails() int {
	m.reap(m.clock.Now())
	return len(m.tails)
}

// Settings returns the ADSR settings read at each note-on.
func (m *Manager) Settings() *Settings {
	return m.settings
}
