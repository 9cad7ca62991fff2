//go:build !headless

package main

import (
	"fmt"
	"log/slog"
	"sync"
	"unsafe"

	"github.com/ebitengine/oto/v3"

	"github.com/cwbudde/algo-keys/piano"
)

// otoOutput plays the renderer through the default audio device. oto pulls
// blocks from Read on its own goroutine, which makes that goroutine the
// renderer's audio timeline.
type otoOutput struct {
	r      *piano.Renderer
	ctx    *oto.Context
	player *oto.Player
	mu     sync.Mutex
}

func startAudio(r *piano.Renderer, bufferFrames int, headless bool, logger *slog.Logger) (audioOutput, error) {
	if headless {
		logger.Info("audio: headless, rendering without output device")
		return startPump(r, bufferFrames), nil
	}
	op := &oto.NewContextOptions{
		SampleRate:   r.SampleRate(),
		ChannelCount: 2,
		Format:       oto.FormatFloat32LE,
	}
	ctx, ready, err := oto.NewContext(op)
	if err != nil {
		return nil, fmt.Errorf("audio: oto context: %w", err)
	}
	<-ready

	out := &otoOutput{r: r, ctx: ctx}
	out.player = ctx.NewPlayer(out)
	out.player.Play()
	logger.Info("audio: playing", "sample_rate", r.SampleRate())
	return out, nil
}

func (o *otoOutput) Read(p []byte) (int, error) {
	frames := len(p) / 8
	if frames == 0 {
		return 0, nil
	}
	samples := o.r.Process(frames)
	n := copy(p, unsafe.Slice((*byte)(unsafe.Pointer(&samples[0])), len(samples)*4))
	return n, nil
}

func (o *otoOutput) Close() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.player != nil {
		o.player.Close()
		o.player = nil
	}
}
