//go:build headless

package main

import (
	"log/slog"

	"github.com/cwbudde/algo-keys/piano"
)

func startAudio(r *piano.Renderer, bufferFrames int, _ bool, logger *slog.Logger) (audioOutput, error) {
	logger.Info("audio: headless build, rendering without output device")
	return startPump(r, bufferFrames), nil
}
