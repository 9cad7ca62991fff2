// Package clock provides the monotonic time sources shared by voices, the
// audio renderer and the note event log.
package clock

import (
	"sync/atomic"
	"time"
)

// Clock reports elapsed time since an arbitrary, fixed origin. Values never
// decrease.
type Clock interface {
	Now() time.Duration
}

// Wall follows the process monotonic clock.
type Wall struct {
	origin time.Time
}

// NewWall returns a wall clock whose origin is the moment of the call.
func NewWall() *Wall {
	return &Wall{origin: time.Now()}
}

func (w *Wall) Now() time.Duration {
	return time.Since(w.origin)
}

// Frames counts rendered audio frames. The audio renderer advances it once per
// block, so control code scheduling against it stays aligned with the samples
// that are actually produced.
type Frames struct {
	sampleRate int
	frames     atomic.Int64
}

// NewFrames creates a frame clock for the given sample rate.
func NewFrames(sampleRate int) *Frames {
	if sampleRate <= 0 {
		sampleRate = 48000
	}
	return &Frames{sampleRate: sampleRate}
}

func (f *Frames) Now() time.Duration {
	return FramesToDuration(f.frames.Load(), f.sampleRate)
}

// Advance moves the clock forward by n frames. Negative values are ignored.
func (f *Frames) Advance(n int) {
	if n <= 0 {
		return
	}
	f.frames.Add(int64(n))
}

// Frame returns the number of frames rendered so far.
func (f *Frames) Frame() int64 {
	return f.frames.Load()
}

// SampleRate returns the frame rate of the clock.
func (f *Frames) SampleRate() int {
	return f.sampleRate
}

// Manual is a clock that only moves when told to.
type Manual struct {
	now atomic.Int64
}

// NewManual returns a manual clock positioned at start.
func NewManual(start time.Duration) *Manual {
	m := &Manual{}
	m.now.Store(int64(start))
	return m
}

func (m *Manual) Now() time.Duration {
	return time.Duration(m.now.Load())
}

// Advance moves the clock forward by d. Negative durations are ignored.
func (m *Manual) Advance(d time.Duration) {
	if d <= 0 {
		return
	}
	m.now.Add(int64(d))
}

// Set positions the clock at t unless that would move it backwards.
func (m *Manual) Set(t time.Duration) {
	for {
		cur := m.now.Load()
		if int64(t) <= cur {
			return
		}
		if m.now.CompareAndSwap(cur, int64(t)) {
			return
		}
	}
}

// FramesToDuration converts a frame count at sampleRate to a duration.
func FramesToDuration(frames int64, sampleRate int) time.Duration {
	if sampleRate <= 0 {
		return 0
	}
	sec := frames / int64(sampleRate)
	rem := frames % int64(sampleRate)
	return time.Duration(sec)*time.Second + time.Duration(rem)*time.Second/time.Duration(sampleRate)
}

// DurationToFrames converts d to a whole number of frames at sampleRate,
// rounding down.
func DurationToFrames(d time.Duration, sampleRate int) int64 {
	if d <= 0 || sampleRate <= 0 {
		return 0
	}
	sec := int64(d / time.Second)
	rem := int64(d % time.Second)
	return sec*int64(sampleRate) + rem*int64(sampleRate)/int64(time.Second)
}
