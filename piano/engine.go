package piano

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/cwbudde/algo-keys/chord"
	"github.com/cwbudde/algo-keys/clock"
	"github.com/cwbudde/algo-keys/roll"
)

// Engine is the control timeline. It takes inbound events strictly in arrival
// order, routes note-offs through the sustain pedal, drives the voice manager
// and the note timeline and refreshes the chord label.
//
// Handle, Run, KeyDown and KeyUp must be called from a single goroutine. The
// snapshot readers (ActiveNotes, Roll, Visible, Chord, PedalDown) and Prune
// may be called from the render timeline concurrently.
type Engine struct {
	clock    clock.Clock
	logger   *slog.Logger
	window   time.Duration
	settings *Settings

	sustain *Sustain
	voices  *Manager
	log     *roll.Log
	chords  *chord.Observer

	chord     atomic.Pointer[chord.Result]
	pedalDown atomic.Bool
}

type engineConfig struct {
	logger   *slog.Logger
	sched    Scheduler
	oracle   chord.Oracle
	flats    bool
	window   time.Duration
	settings *Settings
}

// Option configures an Engine.
type Option func(*engineConfig)

// WithLogger sets the logger used by the engine and its components.
func WithLogger(l *slog.Logger) Option {
	return func(c *engineConfig) { c.logger = l }
}

// WithScheduler sets the audio backend receiving voice automation.
func WithScheduler(s Scheduler) Option {
	return func(c *engineConfig) { c.sched = s }
}

// WithOracle sets the chord naming oracle. The default is chord.Templates.
func WithOracle(o chord.Oracle) Option {
	return func(c *engineConfig) { c.oracle = o }
}

// WithFlats selects flat spelling for chord detection.
func WithFlats(flats bool) Option {
	return func(c *engineConfig) { c.flats = flats }
}

// WithWindow sets the timeline retention window used by Prune.
func WithWindow(d time.Duration) Option {
	return func(c *engineConfig) { c.window = d }
}

// WithSettings shares ADSR settings with a UI collaborator.
func WithSettings(s *Settings) Option {
	return func(c *engineConfig) { c.settings = s }
}

// NewEngine creates an engine scheduling against clk.
func NewEngine(clk clock.Clock, opts ...Option) *Engine {
	cfg := engineConfig{
		logger: slog.Default(),
		sched:  Discard,
		window: roll.DefaultWindow,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.oracle == nil {
		cfg.oracle = chord.Templates{}
	}
	if cfg.settings == nil {
		cfg.settings = NewSettings(DefaultADSR())
	}
	if cfg.window <= 0 {
		cfg.window = roll.DefaultWindow
	}

	e := &Engine{
		clock:    clk,
		logger:   cfg.logger,
		window:   cfg.window,
		settings: cfg.settings,
		sustain:  NewSustain(),
		voices:   NewManager(clk, cfg.settings, cfg.sched, cfg.logger),
		log:      roll.NewLog(),
		chords:   chord.NewObserver(cfg.oracle, cfg.flats, cfg.logger),
	}
	e.chord.Store(&chord.Result{Kind: chord.NoChord})
	return e
}

// Handle processes one inbound event. Malformed events are dropped without
// error. The only error is a wrapped ErrEngineUnavailable, after which the
// engine state is still consistent.
func (e *Engine) Handle(ev Event) error {
	norm, ok := ev.Normalize()
	if !ok {
		e.logger.Debug("engine: dropped event", "event", ev.String())
		return nil
	}
	now := e.clock.Now()

	var err error
	switch norm.Kind {
	case NoteOn:
		if e.sustain.Holds(norm.Note) {
			// the pedal-held voice is retired by the retrigger; its event
			// ends here while the deferred note-off stays pending
			e.log.OnNoteOff(norm.Note, now)
		}
		_, err = e.voices.NoteOn(norm.Note, norm.Value)
		e.log.OnNoteOn(norm.Note, now)
	case NoteOff:
		if !e.sustain.NoteOff(norm.Note) {
			e.logger.Debug("engine: note-off held by pedal", "note", norm.Note)
			break
		}
		err = e.release(norm.Note, now)
	case Controller:
		err = e.control(norm, now)
	}

	e.refreshChord()
	return err
}

func (e *Engine) control(ev Event, now time.Duration) error {
	switch ev.Controller {
	case SustainPedal:
		deferred := e.sustain.Pedal(ev.Value)
		e.pedalDown.Store(e.sustain.Engaged())
		var errs []error
		for _, note := range deferred {
			errs = append(errs, e.release(note, now))
		}
		if len(deferred) > 0 {
			e.logger.Debug("engine: pedal released", "notes", len(deferred))
		}
		return errors.Join(errs...)
	case AllNotesOff:
		e.sustain.Reset()
		e.pedalDown.Store(false)
		err := e.voices.ReleaseAll()
		closed := e.log.CloseAll(now)
		e.logger.Info("engine: all notes off", "closed", closed)
		return err
	}
	return nil
}

func (e *Engine) release(note int, now time.Duration) error {
	err := e.voices.NoteOff(note)
	e.log.OnNoteOff(note, now)
	return err
}

func (e *Engine) refreshChord() {
	res := e.chords.OnActiveSetChanged(e.voices.Active())
	prev := e.chord.Load()
	e.chord.Store(&res)
	if prev == nil || prev.String() != res.String() {
		e.logger.Debug("engine: chord", "notes", res.NotesString(), "chord", res.String())
	}
}

// KeyDown plays note from the on-screen keyboard.
func (e *Engine) KeyDown(note int) error {
	return e.Handle(NoteOnEvent(note, UIVelocity))
}

// KeyUp releases an on-screen key. The pedal applies as for MIDI input.
func (e *Engine) KeyUp(note int) error {
	return e.Handle(NoteOffEvent(note))
}

// Run consumes events until the channel closes or ctx is done. Backend
// failures are logged and never stop the loop.
func (e *Engine) Run(ctx context.Context, events <-chan Event) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if err := e.Handle(ev); err != nil {
				e.logger.Warn("engine: event handled with error", "event", ev.String(), "err", err)
			}
		}
	}
}

// SetFlats switches chord spelling. Control timeline only.
func (e *Engine) SetFlats(flats bool) {
	e.chords.SetFlats(flats)
	e.refreshChord()
}

// Prune drops timeline events older than the retention window.
func (e *Engine) Prune() int {
	return e.log.Prune(e.clock.Now(), e.window)
}

// ActiveNotes returns the notes with a live voice, for key highlighting.
func (e *Engine) ActiveNotes() []int {
	return e.voices.Active()
}

// Roll returns the note timeline snapshot.
func (e *Engine) Roll() []roll.NoteEvent {
	return e.log.Snapshot()
}

// Visible returns the timeline events that started within span before now.
func (e *Engine) Visible(span time.Duration) []roll.NoteEvent {
	return e.log.Visible(e.clock.Now(), span)
}

// Chord returns the latest chord observation.
func (e *Engine) Chord() chord.Result {
	return *e.chord.Load()
}

// PedalDown reports the sustain pedal state.
func (e *Engine) PedalDown() bool {
	return e.pedalDown.Load()
}

// Now returns the engine clock reading.
func (e *Engine) Now() time.Duration {
	return e.clock.Now()
}

// Window returns the retention window used by Prune.
func (e *Engine) Window() time.Duration {
	return e.window
}

// Settings returns the ADSR settings read at each note-on.
func (e *Engine) Settings() *Settings {
	return e.settings
}

// Voices exposes the voice manager to the control timeline.
func (e *Engine) Voices() *Manager {
	return e.voices
}

// Sustain exposes the pedal state machine to the control timeline.
func (e *Engine) Sustain() *Sustain {
	return e.sustain
}
