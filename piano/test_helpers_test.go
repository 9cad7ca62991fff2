package piano

import (
	"math"
	"time"

	"github.com/cwbudde/algo-keys/clock"
)

// recorder collects submitted commands and can be switched to fail.
type recorder struct {
	cmds []Command
	err  error
}

func (r *recorder) Submit(cmds ...Command) error {
	if r.err != nil {
		return r.err
	}
	r.cmds = append(r.cmds, cmds...)
	return nil
}

func (r *recorder) kinds(voice uint64) []CommandKind {
	var out []CommandKind
	for _, c := range r.cmds {
		if c.Voice == voice {
			out = append(out, c.Kind)
		}
	}
	return out
}

func newTestManager(sched Scheduler) (*Manager, *clock.Manual) {
	clk := clock.NewManual(0)
	return NewManager(clk, nil, sched, nil), clk
}

func ms(n int) time.Duration {
	return time.Duration(n) * time.Millisecond
}

func measureFundamentalFreq(samples []float32, sampleRate float32) float32 {
	startIdx := len(samples) / 10
	crossings := 0
	for i := startIdx + 1; i < len(samples); i++ {
		if (samples[i-1] < 0 && samples[i] >= 0) || (samples[i-1] >= 0 && samples[i] < 0) {
			crossings++
		}
	}
	if crossings == 0 {
		return 0
	}
	duration := float32(len(samples)-startIdx) / sampleRate
	return float32(crossings) / (2.0 * duration)
}

func leftChannel(interleaved []float32) []float32 {
	out := make([]float32, len(interleaved)/2)
	for i := range out {
		out[i] = interleaved[i*2]
	}
	return out
}

func stereoRMS(interleaved []float32) float64 {
	if len(interleaved) == 0 {
		return 0
	}
	var sum float64
	for _, s := range interleaved {
		v := float64(s)
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(interleaved)))
}

func peakAbs(samples []float32) float64 {
	peak := 0.0
	for _, s := range samples {
		if a := math.Abs(float64(s)); a > peak {
			peak = a
		}
	}
	return peak
}
