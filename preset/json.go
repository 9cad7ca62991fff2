package preset

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"strings"
	"time"

	"github.com/cwbudde/algo-keys/piano"
	"github.com/cwbudde/algo-keys/roll"
)

// Preset is a complete instrument setup: the envelope applied to new voices
// plus the engine and renderer settings that travel with it.
type Preset struct {
	ADSR       piano.ADSR
	OutputGain float32
	Flats      bool
	Window     time.Duration
}

// Default returns the built-in preset.
func Default() *Preset {
	return &Preset{
		ADSR:       piano.DefaultADSR(),
		OutputGain: 0.5,
		Window:     roll.DefaultWindow,
	}
}

// File is the JSON schema for presets. Every field is optional.
type File struct {
	AttackMs     *float64 `json:"attack_ms,omitempty"`
	DecayMs      *float64 `json:"decay_ms,omitempty"`
	SustainLevel *float64 `json:"sustain_level,omitempty"`
	ReleaseMs    *float64 `json:"release_ms,omitempty"`
	Waveform     *string  `json:"waveform,omitempty"`

	OutputGain *float32 `json:"output_gain,omitempty"`
	Flats      *bool    `json:"flats,omitempty"`
	WindowMs   *float64 `json:"window_ms,omitempty"`
}

// LoadJSON loads a preset JSON file and applies it on top of the defaults.
// Out-of-range envelope values fall back to their defaults with a warning;
// unreadable or malformed files are errors.
func LoadJSON(path string, logger *slog.Logger) (*Preset, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f File
	if err := json.Unmarshal(b, &f); err != nil {
		return nil, fmt.Errorf("preset %s: %w", path, err)
	}

	p := Default()
	if err := ApplyFile(p, &f, logger); err != nil {
		return nil, fmt.Errorf("preset %s: %w", path, err)
	}
	return p, nil
}

// ApplyFile applies a parsed preset file onto an existing preset.
func ApplyFile(dst *Preset, f *File, logger *slog.Logger) error {
	if dst == nil {
		return fmt.Errorf("nil destination preset")
	}
	if f == nil {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}
	def := piano.DefaultADSR()

	applyMs := func(name string, v *float64, dst *time.Duration, fallback time.Duration) {
		if v == nil {
			return
		}
		if math.IsNaN(*v) || math.IsInf(*v, 0) || *v < 0 {
			logger.Warn("preset: invalid value, using default", "field", name, "value", *v, "default", fallback)
			*dst = fallback
			return
		}
		*dst = msToDuration(*v)
	}
	applyMs("attack_ms", f.AttackMs, &dst.ADSR.Attack, def.Attack)
	applyMs("decay_ms", f.DecayMs, &dst.ADSR.Decay, def.Decay)
	applyMs("release_ms", f.ReleaseMs, &dst.ADSR.Release, def.Release)

	if f.SustainLevel != nil {
		v := *f.SustainLevel
		if math.IsNaN(v) || v < 0 || v > 1 {
			logger.Warn("preset: invalid value, using default", "field", "sustain_level", "value", v, "default", def.Sustain)
			dst.ADSR.Sustain = def.Sustain
		} else {
			dst.ADSR.Sustain = v
		}
	}
	if f.Waveform != nil {
		w, ok := piano.ParseWaveform(*f.Waveform)
		if !ok {
			logger.Warn("preset: unknown waveform, using default", "value", *f.Waveform, "default", def.Waveform)
			w = def.Waveform
		}
		dst.ADSR.Waveform = w
	}

	if f.OutputGain != nil {
		if *f.OutputGain <= 0 {
			return fmt.Errorf("output_gain must be > 0")
		}
		dst.OutputGain = *f.OutputGain
	}
	if f.Flats != nil {
		dst.Flats = *f.Flats
	}
	if f.WindowMs != nil {
		if *f.WindowMs <= 0 {
			return fmt.Errorf("window_ms must be > 0")
		}
		dst.Window = msToDuration(*f.WindowMs)
	}
	return nil
}

// ToFile converts p back to its JSON schema.
func ToFile(p *Preset) *File {
	attack := durationToMs(p.ADSR.Attack)
	decay := durationToMs(p.ADSR.Decay)
	sustain := p.ADSR.Sustain
	release := durationToMs(p.ADSR.Release)
	waveform := p.ADSR.Waveform.String()
	gain := p.OutputGain
	flats := p.Flats
	window := durationToMs(p.Window)
	return &File{
		AttackMs:     &attack,
		DecayMs:      &decay,
		SustainLevel: &sustain,
		ReleaseMs:    &release,
		Waveform:     &waveform,
		OutputGain:   &gain,
		Flats:        &flats,
		WindowMs:     &window,
	}
}

// WriteJSON writes p as an indented preset file.
func WriteJSON(path string, p *Preset) error {
	b, err := json.MarshalIndent(ToFile(p), "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	if err := os.WriteFile(path, b, 0o644); err != nil {
		return fmt.Errorf("write preset %s: %w", strings.TrimSpace(path), err)
	}
	return nil
}

func msToDuration(ms float64) time.Duration {
	return time.Duration(math.Round(ms * float64(time.Millisecond)))
}

func durationToMs(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
