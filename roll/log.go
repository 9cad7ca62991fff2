// Package roll keeps the scrolling timeline of played notes: one NoteEvent
// per accepted note-on, closed when the matching note-off arrives and dropped
// once it scrolls out of the retention window.
package roll

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// DefaultWindow is the retention window used by the live surfaces.
const DefaultWindow = 10 * time.Second

// NoteEvent is one played note on the timeline.
type NoteEvent struct {
	ID       uuid.UUID     `json:"id"`
	Note     int           `json:"note"`
	Start    time.Duration `json:"start"`
	Duration time.Duration `json:"duration"`
	Open     bool          `json:"open"`
}

// Elapsed is the length to draw at time now: the closed duration, or the time
// since the start for a note that is still sounding.
func (e NoteEvent) Elapsed(now time.Duration) time.Duration {
	if !e.Open {
		return e.Duration
	}
	if now < e.Start {
		return 0
	}
	return now - e.Start
}

// Log is the note event timeline. Mutations are serialized internally; reads
// go through immutable snapshots and never block writers.
type Log struct {
	mu     sync.Mutex
	events []NoteEvent
	snap   atomic.Pointer[[]NoteEvent]
}

// NewLog returns an empty log.
func NewLog() *Log {
	l := &Log{}
	empty := []NoteEvent{}
	l.snap.Store(&empty)
	return l
}

// OnNoteOn appends an open event for note starting at t.
func (l *Log) OnNoteOn(note int, t time.Duration) NoteEvent {
	ev := NoteEvent{
		ID:    uuid.New(),
		Note:  note,
		Start: t,
		Open:  true,
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
	l.publish()
	return ev
}

// OnNoteOff closes the most recently opened event for note that is still open.
// It reports whether an event was closed.
func (l *Log) OnNoteOff(note int, t time.Duration) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i := len(l.events) - 1; i >= 0; i-- {
		ev := &l.events[i]
		if ev.Note != note || !ev.Open {
			continue
		}
		closeEvent(ev, t)
		l.publish()
		return true
	}
	return false
}

// CloseAll closes every open event at t and returns how many were closed.
func (l *Log) CloseAll(t time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for i := range l.events {
		if l.events[i].Open {
			closeEvent(&l.events[i], t)
			n++
		}
	}
	if n > 0 {
		l.publish()
	}
	return n
}

// Prune drops every event, open or closed, that started window or more before
// now. It returns the number of dropped events.
func (l *Log) Prune(now, window time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	kept := l.events[:0]
	for _, ev := range l.events {
		if now-ev.Start >= window {
			continue
		}
		kept = append(kept, ev)
	}
	dropped := len(l.events) - len(kept)
	if dropped == 0 {
		return 0
	}
	// Zero the tail so dropped events are not retained by the backing array.
	for i := len(kept); i < len(l.events); i++ {
		l.events[i] = NoteEvent{}
	}
	l.events = kept
	l.publish()
	return dropped
}

// Snapshot returns the events in insertion order. The returned slice is shared
// with other readers and must not be modified.
func (l *Log) Snapshot() []NoteEvent {
	return *l.snap.Load()
}

// Visible returns the events that started within span before now, the part of
// the timeline a scrolling view can show.
func (l *Log) Visible(now, span time.Duration) []NoteEvent {
	all := l.Snapshot()
	out := make([]NoteEvent, 0, len(all))
	for _, ev := range all {
		if now-ev.Start > span {
			continue
		}
		out = append(out, ev)
	}
	return out
}

// Len returns the number of retained events.
func (l *Log) Len() int {
	return len(l.Snapshot())
}

// publish stores a fresh copy of the events for readers. Callers hold mu.
func (l *Log) publish() {
	cp := make([]NoteEvent, len(l.events))
	copy(cp, l.events)
	l.snap.Store(&cp)
}

func closeEvent(ev *NoteEvent, t time.Duration) {
	d := t - ev.Start
	if d < 0 {
		d = 0
	}
	ev.Duration = d
	ev.Open = false
}
