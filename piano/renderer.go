package piano

import (
	"math"
	"sync"
	"time"

	dspcore "github.com/cwbudde/algo-dsp/dsp/core"
	"github.com/cwbudde/algo-keys/automation"
	"github.com/cwbudde/algo-keys/clock"
)

// CommandKind identifies a scheduling instruction.
type CommandKind int

const (
	// CmdStart creates an oscillator that begins sounding at Time.
	CmdStart CommandKind = iota
	// CmdPoint adds Point to the voice gain automation.
	CmdPoint
	// CmdCancel drops gain automation scheduled at or after Time.
	CmdCancel
	// CmdStop stops and discards the oscillator at Time.
	CmdStop
)

// Command is a time-stamped instruction from the control timeline to the
// audio renderer.
type Command struct {
	Kind     CommandKind
	Voice    uint64
	Time     time.Duration
	Point    automation.Point
	Freq     float32
	Waveform Waveform
}

// Scheduler accepts instructions without waiting for them to be rendered.
type Scheduler interface {
	Submit(cmds ...Command) error
}

// SchedulerFunc adapts a function to Scheduler.
type SchedulerFunc func(cmds ...Command) error

func (f SchedulerFunc) Submit(cmds ...Command) error { return f(cmds...) }

// Discard accepts and drops every instruction. It is the scheduler of an
// engine without audio output.
var Discard Scheduler = SchedulerFunc(func(...Command) error { return nil })

type oscillator struct {
	freq     float64
	waveform Waveform
	phase    float64
	startAt  time.Duration
	stopAt   time.Duration
	stopping bool
	gain     *automation.Curve
}

func (o *oscillator) next(sampleRate float64) float32 {
	var s float64
	switch o.waveform {
	case Square:
		if o.phase < 0.5 {
			s = 1
		} else {
			s = -1
		}
	case Sawtooth:
		s = 2*o.phase - 1
	case Triangle:
		s = 1 - 4*math.Abs(o.phase-0.5)
	default:
		s = math.Sin(2 * math.Pi * o.phase)
	}
	o.phase += o.freq / sampleRate
	if o.phase >= 1 {
		o.phase -= math.Floor(o.phase)
	}
	return float32(s)
}

// Renderer is the audio-rendering context. The control timeline submits
// commands from its own goroutine; Process runs on the audio goroutine and
// applies whatever arrived before the block starts.
type Renderer struct {
	sampleRate int
	outputGain float32
	clock      *clock.Frames

	mu      sync.Mutex
	pending []Command
	closed  bool

	voices map[uint64]*oscillator
}

// NewRenderer creates a renderer at sampleRate. outputGain scales the mix;
// values <= 0 select 0.5.
func NewRenderer(sampleRate int, outputGain float32) *Renderer {
	if sampleRate <= 0 {
		sampleRate = 48000
	}
	if outputGain <= 0 {
		outputGain = 0.5
	}
	return &Renderer{
		sampleRate: sampleRate,
		outputGain: outputGain,
		clock:      clock.NewFrames(sampleRate),
		voices:     make(map[uint64]*oscillator),
	}
}

// Clock returns the frame clock advanced by Process. Engines driving this
// renderer should schedule against it.
func (r *Renderer) Clock() *clock.Frames {
	return r.clock
}

// SampleRate returns the render rate in Hz.
func (r *Renderer) SampleRate() int {
	return r.sampleRate
}

// Submit queues cmds for the next block.
func (r *Renderer) Submit(cmds ...Command) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return ErrEngineUnavailable
	}
	r.pending = append(r.pending, cmds...)
	return nil
}

// Close rejects further commands. Sounding voices keep rendering until their
// scheduled stop.
func (r *Renderer) Close() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()
}

// Voices returns the number of oscillators alive after the last block. Call
// it from the goroutine that runs Process.
func (r *Renderer) Voices() int {
	return len(r.voices)
}

func (r *Renderer) drain() {
	r.mu.Lock()
	cmds := r.pending
	r.pending = nil
	r.mu.Unlock()

	for _, c := range cmds {
		if c.Kind == CmdStart {
			r.voices[c.Voice] = &oscillator{
				freq:     float64(c.Freq),
				waveform: c.Waveform,
				startAt:  c.Time,
				gain:     automation.New(0),
			}
			continue
		}
		o := r.voices[c.Voice]
		if o == nil {
			continue
		}
		switch c.Kind {
		case CmdPoint:
			o.gain.Apply(c.Point)
		case CmdCancel:
			o.gain.CancelFrom(c.Time)
		case CmdStop:
			o.stopAt = c.Time
			o.stopping = true
		}
	}
}

// Process renders a block of audio samples (stereo interleaved).
func (r *Renderer) Process(numFrames int) []float32 {
	if numFrames <= 0 {
		return nil
	}
	r.drain()

	start := r.clock.Frame()
	sr := float64(r.sampleRate)
	out := make([]float32, numFrames*2)

	for id, o := range r.voices {
		done := false
		for i := 0; i < numFrames; i++ {
			t := clock.FramesToDuration(start+int64(i), r.sampleRate)
			if t < o.startAt {
				continue
			}
			if o.stopping && t >= o.stopAt {
				done = true
				break
			}
			g := float32(o.gain.ValueAt(t))
			s := o.next(sr) * g * r.outputGain
			s = float32(dspcore.FlushDenormals(float64(s)))
			out[i*2] += s
			out[i*2+1] += s
		}
		if done {
			delete(r.voices, id)
			continue
		}
		o.gain.Compact(clock.FramesToDuration(start+int64(numFrames), r.sampleRate))
	}

	r.clock.Advance(numFrames)
	return out
}
