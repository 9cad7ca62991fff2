package score

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/cwbudde/algo-keys/clock"
	"github.com/cwbudde/algo-keys/piano"
)

// RenderConfig controls offline rendering.
type RenderConfig struct {
	SampleRate int
	OutputGain float32
	// Tail is rendered after the last event so release tails can finish.
	Tail      time.Duration
	BlockSize int
	Logger    *slog.Logger
}

// DefaultRenderConfig returns 48 kHz rendering with a one second tail.
func DefaultRenderConfig() RenderConfig {
	return RenderConfig{
		SampleRate: 48000,
		OutputGain: 0.5,
		Tail:       time.Second,
		BlockSize:  128,
	}
}

// Render plays s through a fresh engine and renderer and returns stereo
// interleaved samples. Blocks are split so every event lands on its own
// frame.
func Render(s *Score, adsr piano.ADSR, cfg RenderConfig) ([]float32, error) {
	def := DefaultRenderConfig()
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = def.SampleRate
	}
	if cfg.BlockSize <= 0 {
		cfg.BlockSize = def.BlockSize
	}
	if cfg.Tail < 0 {
		cfg.Tail = 0
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	r := piano.NewRenderer(cfg.SampleRate, cfg.OutputGain)
	e := piano.NewEngine(r.Clock(),
		piano.WithScheduler(r),
		piano.WithLogger(cfg.Logger),
		piano.WithSettings(piano.NewSettings(adsr)),
	)

	total := clock.DurationToFrames(s.Duration()+cfg.Tail, cfg.SampleRate)
	out := make([]float32, 0, total*2)
	next := 0
	for frame := int64(0); frame < total; {
		for next < len(s.Events) && clock.DurationToFrames(s.Events[next].At, cfg.SampleRate) <= frame {
			ev := s.Events[next].Event
			if err := e.Handle(ev); err != nil {
				return nil, fmt.Errorf("score: event %d (%s): %w", next, ev, err)
			}
			next++
		}
		n := int64(cfg.BlockSize)
		if next < len(s.Events) {
			until := clock.DurationToFrames(s.Events[next].At, cfg.SampleRate) - frame
			if until > 0 && until < n {
				n = until
			}
		}
		if frame+n > total {
			n = total - frame
		}
		out = append(out, r.Process(int(n))...)
		frame += n
	}
	return out, nil
}

// Mono folds stereo interleaved samples to mono.
func Mono(interleaved []float32) []float32 {
	out := make([]float32, len(interleaved)/2)
	for i := range out {
		out[i] = 0.5 * (interleaved[2*i] + interleaved[2*i+1])
	}
	return out
}
