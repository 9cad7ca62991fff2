package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"

	"github.com/cwbudde/algo-keys/midiin"
	"github.com/cwbudde/algo-keys/piano"
)

// excludedPorts are virtual or system ports that are never auto-connected.
var excludedPorts = []string{"Midi Through", "Through Port", "Dummy"}

const midiRescanInterval = time.Second

// midiWatcher keeps a connection to the preferred MIDI input and survives
// devices being plugged and unplugged.
//
// onEvent receives every decoded event while a device is connected.
// onDisconnect is called from a new goroutine when the active device is lost.
type midiWatcher struct {
	mu           sync.Mutex
	drv          *rtmididrv.Driver
	inPort       drivers.In
	stopFn       func()
	connected    bool
	selectedName string
	lastRescanAt time.Time

	preferred []string
	decoder   midiin.Decoder
	logger    *slog.Logger

	onEvent      func(piano.Event)
	onDisconnect func()
}

func newMIDIWatcher(preferred string, channel int, logger *slog.Logger, onEvent func(piano.Event), onDisconnect func()) (*midiWatcher, error) {
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, fmt.Errorf("rtmididrv: %w", err)
	}
	var patterns []string
	for _, p := range strings.Split(preferred, ",") {
		if p = strings.TrimSpace(p); p != "" {
			patterns = append(patterns, p)
		}
	}
	return &midiWatcher{
		drv:          drv,
		preferred:    patterns,
		decoder:      midiin.Decoder{Channel: channel},
		logger:       logger,
		onEvent:      onEvent,
		onDisconnect: onDisconnect,
	}, nil
}

func (m *midiWatcher) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeConn()
	m.drv.Close()
}

// Tick rescans the inputs at most once per midiRescanInterval.
func (m *midiWatcher) Tick() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	if !m.lastRescanAt.IsZero() && now.Sub(m.lastRescanAt) < midiRescanInterval {
		return
	}
	m.lastRescanAt = now

	inputs := m.listInputs()

	if m.connected {
		for _, n := range inputs {
			if n == m.selectedName {
				return
			}
		}
		m.logger.Warn("midi: device disappeared", "device", m.selectedName)
		m.lost()
		return
	}

	if len(inputs) == 0 {
		return
	}
	cand, ok := pickPreferred(inputs, m.preferred)
	if !ok {
		return
	}
	if err := m.openByName(cand); err != nil {
		m.logger.Error("midi: connect failed", "device", cand, "err", err)
	}
}

// lost drops the connection and schedules an immediate rescan. m.mu is held.
func (m *midiWatcher) lost() {
	m.closeConn()
	m.lastRescanAt = time.Time{}
	if m.onDisconnect != nil {
		go m.onDisconnect()
	}
}

func (m *midiWatcher) listInputs() []string {
	ins, err := m.drv.Ins()
	if err != nil {
		m.logger.Error("midi: list inputs failed", "err", err)
		return nil
	}
	var names []string
	for _, in := range ins {
		name := in.String()
		if matchesAny(name, excludedPorts) {
			m.logger.Debug("midi: input excluded", "device", name)
			continue
		}
		names = append(names, name)
	}
	m.logger.Debug("midi: inputs found", "count", len(names), "devices", strings.Join(names, ", "))
	return names
}

// pickPreferred returns the first input matching a preferred pattern, or the
// only input when there is exactly one.
func pickPreferred(inputs []string, preferred []string) (string, bool) {
	for _, pat := range preferred {
		for _, name := range inputs {
			if containsCI(name, pat) {
				return name, true
			}
		}
	}
	if len(inputs) == 1 {
		return inputs[0], true
	}
	return "", false
}

func (m *midiWatcher) closeConn() {
	if m.stopFn != nil {
		m.stopFn()
		m.stopFn = nil
	}
	if m.inPort != nil {
		_ = m.inPort.Close()
		m.inPort = nil
	}
	m.connected = false
	m.selectedName = ""
}

func (m *midiWatcher) openByName(name string) error {
	ins, err := m.drv.Ins()
	if err != nil {
		return err
	}
	var found drivers.In
	for _, in := range ins {
		if in.String() == name {
			found = in
			break
		}
	}
	if found == nil {
		return fmt.Errorf("input %q not found", name)
	}
	if err := found.Open(); err != nil {
		return fmt.Errorf("open %q: %w", name, err)
	}

	stop, err := midi.ListenTo(found, func(msg midi.Message, _ int32) {
		if !m.decoder.Forward(msg, m.onEvent) {
			m.logger.Debug("midi: unhandled message", "msg", msg.String())
		}
	}, midi.HandleError(func(listenErr error) {
		m.logger.Warn("midi: listener error", "device", name, "err", listenErr)
		// closeConn must not run on the listener goroutine.
		go func() {
			m.mu.Lock()
			defer m.mu.Unlock()
			if m.connected && m.selectedName == name {
				m.lost()
			}
		}()
	}))
	if err != nil {
		_ = found.Close()
		return fmt.Errorf("listen %q: %w", name, err)
	}

	m.inPort = found
	m.stopFn = stop
	m.connected = true
	m.selectedName = name
	m.logger.Info("midi: connected", "device", name)
	return nil
}

func matchesAny(s string, patterns []string) bool {
	for _, p := range patterns {
		if containsCI(s, p) {
			return true
		}
	}
	return false
}

func containsCI(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}
