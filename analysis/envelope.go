package analysis

import (
	"math"
	"sort"
	"time"
)

const (
	envFrame = 256
	envHop   = 128
)

// Features are ADSR parameters estimated from a rendered or recorded note.
// Times are in milliseconds; SustainLevel is relative to the envelope peak.
type Features struct {
	OnsetMs      float64 `json:"onset_ms"`
	AttackMs     float64 `json:"attack_ms"`
	DecayMs      float64 `json:"decay_ms"`
	SustainLevel float64 `json:"sustain_level"`
	ReleaseMs    float64 `json:"release_ms"`
	Peak         float64 `json:"peak"`
}

// Envelope returns the RMS envelope of x over frame-sized windows spaced hop
// samples apart.
func Envelope(x []float64, frame int, hop int) []float64 {
	if frame <= 0 || hop <= 0 || len(x) < frame {
		return nil
	}
	n := 1 + (len(x)-frame)/hop
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		start := i * hop
		out[i] = rms1(x[start : start+frame])
	}
	return out
}

// Analyze estimates the envelope stages of a single note. noteOff is the
// time the note was released; zero means the note was never released and
// sustain and release stay unset.
func Analyze(x []float64, sampleRate int, noteOff time.Duration) Features {
	var f Features
	env := Envelope(x, envFrame, envHop)
	if sampleRate <= 0 || len(env) == 0 {
		return f
	}
	at := func(i int) float64 {
		return (float64(i*envHop) + envFrame/2) / float64(sampleRate) * 1000
	}
	index := func(ms float64) int {
		i := int((ms/1000*float64(sampleRate) - envFrame/2) / envHop)
		return max(0, min(i, len(env)-1))
	}

	offIdx := len(env)
	if noteOff > 0 {
		offIdx = index(float64(noteOff) / float64(time.Millisecond))
	}

	peakIdx := 0
	for i := 0; i < offIdx && i < len(env); i++ {
		if env[i] > env[peakIdx] {
			peakIdx = i
		}
	}
	peak := env[peakIdx]
	if peak <= 1e-9 {
		return f
	}
	f.Peak = peak

	t10, t90 := -1, -1
	for i := 0; i <= peakIdx; i++ {
		if t10 < 0 && env[i] >= 0.1*peak {
			t10 = i
		}
		if t90 < 0 && env[i] >= 0.9*peak {
			t90 = i
			break
		}
	}
	if t10 >= 0 && t90 >= t10 {
		f.AttackMs = (at(t90) - at(t10)) / 0.8
		f.OnsetMs = math.Max(0, at(t10)-0.1*f.AttackMs)
	}

	if noteOff <= 0 || offIdx <= peakIdx {
		return f
	}

	// sustain from the 50ms before release
	from := index(float64(noteOff)/float64(time.Millisecond) - 50)
	if from < peakIdx {
		from = peakIdx
	}
	sustain := median(env[from:max(offIdx, from+1)])
	f.SustainLevel = clamp01(sustain / peak)

	target := sustain + 0.1*(peak-sustain)
	for i := peakIdx; i < offIdx; i++ {
		if env[i] <= target {
			f.DecayMs = (at(i) - at(peakIdx)) / 0.9
			break
		}
	}

	start := env[offIdx]
	if start <= 1e-9 {
		return f
	}
	for i := offIdx; i < len(env); i++ {
		if env[i] <= 0.1*start {
			f.ReleaseMs = (at(i) - at(offIdx)) / 0.9
			break
		}
	}
	return f
}

func median(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	s := append([]float64(nil), x...)
	sort.Float64s(s)
	return s[len(s)/2]
}
