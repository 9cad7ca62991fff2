// Command keys-live plays the engine from MIDI devices, the computer keyboard
// and the HTTP API, and serves roll and chord snapshots.
package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/cwbudde/algo-keys/internal/config"
	"github.com/cwbudde/algo-keys/internal/server"
	"github.com/cwbudde/algo-keys/piano"
	"github.com/cwbudde/algo-keys/preset"
)

// logger is replaced by initLogger once the output is known.
var logger = slog.Default()

func initLogger(w io.Writer, debug bool) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	logger = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:     level,
		AddSource: debug,
	}))
	slog.SetDefault(logger)
}

func main() {
	envFile := flag.String("env", "", "Optional .env file (default: ./.env when present)")
	httpAddr := flag.String("http", "", "HTTP listen address; \"off\" disables the API")
	sampleRate := flag.Int("sample-rate", 0, "Audio sample rate in Hz")
	bufferFrames := flag.Int("buffer", 0, "Frames per block when rendering without a device")
	headless := flag.Bool("headless", false, "Render without an audio device")
	midiDevice := flag.String("midi-device", "", "Comma separated preferred MIDI input name patterns")
	midiChannel := flag.Int("midi-channel", -2, "MIDI channel 0-15, -1 for all")
	presetPath := flag.String("preset", "", "Preset JSON path")
	flats := flag.Bool("flats", false, "Spell chords with flats")
	noKeyboard := flag.Bool("no-keyboard", false, "Do not read the computer keyboard")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	var dotEnvErr error
	if *envFile != "" {
		_, dotEnvErr = config.LoadDotEnv(*envFile)
	} else {
		_, dotEnvErr = config.LoadDotEnv()
	}
	cfg := config.Load()
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "http":
			cfg.HTTPAddr = *httpAddr
		case "sample-rate":
			cfg.SampleRate = *sampleRate
		case "buffer":
			cfg.BufferFrames = *bufferFrames
		case "headless":
			cfg.Headless = *headless
		case "midi-device":
			cfg.MIDIDevice = *midiDevice
		case "midi-channel":
			cfg.MIDIChannel = *midiChannel
		case "preset":
			cfg.PresetPath = *presetPath
		case "flats":
			cfg.Flats = *flats
		case "debug":
			cfg.Debug = *debug
		}
	})
	if cfg.HTTPAddr == "off" {
		cfg.HTTPAddr = ""
	}

	var out io.Writer = os.Stderr
	var raw *rawTerminal
	if !*noKeyboard && stdinIsTerminal() {
		t, err := openRawTerminal()
		if err != nil {
			slog.Warn("keyboard: raw mode unavailable", "err", err)
		} else {
			raw = t
			out = crlfWriter{w: os.Stderr}
		}
	}
	initLogger(out, cfg.Debug)
	if raw != nil {
		defer raw.Close()
	}
	if dotEnvErr != nil {
		logger.Warn("config: .env not loaded", "err", dotEnvErr)
	}

	if err := run(cfg, raw != nil); err != nil {
		logger.Error("keys-live: exiting", "err", err)
		if raw != nil {
			raw.Close()
		}
		os.Exit(1)
	}
}

func run(cfg *config.Config, keyboard bool) error {
	p := preset.Default()
	if cfg.PresetPath != "" {
		loaded, err := preset.LoadJSON(cfg.PresetPath, logger)
		if err != nil {
			return err
		}
		p = loaded
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	renderer := piano.NewRenderer(cfg.SampleRate, p.OutputGain)
	engine := piano.NewEngine(renderer.Clock(),
		piano.WithLogger(logger),
		piano.WithScheduler(renderer),
		piano.WithSettings(piano.NewSettings(p.ADSR)),
		piano.WithFlats(cfg.Flats || p.Flats),
		piano.WithWindow(p.Window),
	)

	audio, err := startAudio(renderer, cfg.BufferFrames, cfg.Headless, logger)
	if err != nil {
		return err
	}

	events := make(chan piano.Event, 256)
	send := func(ev piano.Event) {
		select {
		case events <- ev:
		default:
			logger.Warn("engine: event queue full, dropping", "event", ev.String())
		}
	}

	engineDone := make(chan struct{})
	go func() {
		defer close(engineDone)
		_ = engine.Run(ctx, events)
	}()

	watcher, err := newMIDIWatcher(cfg.MIDIDevice, cfg.MIDIChannel, logger, send, func() {
		send(piano.ControlEvent(piano.AllNotesOff, 0))
	})
	if err != nil {
		logger.Warn("midi: input disabled", "err", err)
	} else {
		defer watcher.Close()
	}

	var httpSrv *http.Server
	if cfg.HTTPAddr != "" {
		if cfg.IsProduction() {
			gin.SetMode(gin.ReleaseMode)
		}
		api := server.New(engine, events, logger)
		httpSrv = &http.Server{Addr: cfg.HTTPAddr, Handler: api.Router()}
		go func() {
			logger.Info("http: listening", "addr", cfg.HTTPAddr)
			if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http: server failed", "err", err)
			}
		}()
	}

	if keyboard {
		km := newKeymap()
		logger.Info("keyboard: a-' play, space pedal, z/x octave, esc all off, q quit")
		go readKeys(os.Stdin, func(b byte) bool {
			ev, action := km.press(b)
			switch action {
			case keyQuit:
				cancel()
				return false
			case keyOctave:
				logger.Info("keyboard: octave", "octave", km.octave)
			case keyEvent:
				send(ev)
			}
			return true
		})
	}

	prune := cfg.PruneInterval
	if prune <= 0 {
		prune = 250 * time.Millisecond
	}
	ticker := time.NewTicker(prune)
	defer ticker.Stop()
	lastChord := ""
loop:
	for {
		select {
		case <-ctx.Done():
			break loop
		case <-ticker.C:
			if watcher != nil {
				watcher.Tick()
			}
			if n := engine.Prune(); n > 0 {
				logger.Debug("roll: pruned", "events", n)
			}
			if c := engine.Chord(); c.String() != lastChord {
				lastChord = c.String()
				logger.Info("chord", "notes", c.NotesString(), "chord", lastChord, "pedal", strconv.FormatBool(engine.PedalDown()))
			}
		}
	}

	<-engineDone
	// The control timeline is ours again: silence everything before the
	// audio output goes away.
	if err := engine.Handle(piano.ControlEvent(piano.AllNotesOff, 0)); err != nil {
		logger.Warn("engine: all notes off failed", "err", err)
	}
	time.Sleep(engine.Settings().Load().Release + piano.Guard)

	if httpSrv != nil {
		shutdownCtx, done := context.WithTimeout(context.Background(), 2*time.Second)
		defer done()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("http: shutdown", "err", err)
		}
	}
	audio.Close()
	renderer.Close()
	logger.Info("keys-live: stopped")
	return nil
}
