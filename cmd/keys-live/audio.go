package main

import (
	"sync"
	"time"

	"github.com/cwbudde/algo-keys/piano"
)

type audioOutput interface {
	Close()
}

// pump drives the renderer at real time without an audio device, so the
// frame clock and voice stops keep advancing.
type pump struct {
	stop chan struct{}
	done chan struct{}
	once sync.Once
}

func startPump(r *piano.Renderer, blockFrames int) *pump {
	if blockFrames <= 0 {
		blockFrames = 512
	}
	p := &pump{stop: make(chan struct{}), done: make(chan struct{})}
	period := time.Duration(blockFrames) * time.Second / time.Duration(r.SampleRate())
	go func() {
		defer close(p.done)
		t := time.NewTicker(period)
		defer t.Stop()
		for {
			select {
			case <-p.stop:
				return
			case <-t.C:
				r.Process(blockFrames)
			}
		}
	}()
	return p
}

func (p *pump) Close() {
	p.once.Do(func() { close(p.stop) })
	<-p.done
}
