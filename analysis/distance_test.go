package analysis

import (
	"math"
	"math/rand"
	"testing"
	"time"
)

type shape struct {
	attack, decay, release float64 // seconds
	sustain                float64
	off, length            float64 // seconds
}

func makeNote(sr int, freq float64, s shape) []float64 {
	n := int(s.length * float64(sr))
	out := make([]float64, n)
	offLevel := 0.0
	for i := range out {
		t := float64(i) / float64(sr)
		var g float64
		switch {
		case t >= s.off:
			g = offLevel * math.Max(0, 1-(t-s.off)/s.release)
		case t < s.attack:
			g = t / s.attack
		case t < s.attack+s.decay:
			g = 1 - (1-s.sustain)*(t-s.attack)/s.decay
		default:
			g = s.sustain
		}
		if t < s.off {
			offLevel = g
		}
		out[i] = g * math.Sin(2*math.Pi*freq*t)
	}
	return out
}

var baseShape = shape{attack: 0.05, decay: 0.1, sustain: 0.5, release: 0.3, off: 0.6, length: 1.2}

func TestAnalyzeRecoversADSR(t *testing.T) {
	const sr = 48000
	f := Analyze(makeNote(sr, 440, baseShape), sr, 600*time.Millisecond)

	if math.Abs(f.AttackMs-50) > 8 {
		t.Fatalf("attack estimate off: %f", f.AttackMs)
	}
	if math.Abs(f.DecayMs-100) > 20 {
		t.Fatalf("decay estimate off: %f", f.DecayMs)
	}
	if math.Abs(f.SustainLevel-0.5) > 0.05 {
		t.Fatalf("sustain estimate off: %f", f.SustainLevel)
	}
	if math.Abs(f.ReleaseMs-300) > 25 {
		t.Fatalf("release estimate off: %f", f.ReleaseMs)
	}
}

func TestAnalyzeWithoutRelease(t *testing.T) {
	const sr = 48000
	f := Analyze(makeNote(sr, 440, baseShape), sr, 0)
	if f.AttackMs <= 0 || f.Peak <= 0 {
		t.Fatalf("expected attack and peak, got %+v", f)
	}
	if f.SustainLevel != 0 || f.ReleaseMs != 0 {
		t.Fatalf("expected no sustain/release without note-off, got %+v", f)
	}
}

func TestAnalyzeSilence(t *testing.T) {
	f := Analyze(make([]float64, 48000), 48000, 100*time.Millisecond)
	if f != (Features{}) {
		t.Fatalf("expected zero features for silence, got %+v", f)
	}
}

func TestCompareIdenticalSignalsHasLowDistance(t *testing.T) {
	sr := 48000
	x := makeNote(sr, 440, baseShape)
	m := Compare(x, x, sr, 600*time.Millisecond)
	if m.Score > 0.05 {
		t.Fatalf("expected very low score for identical signals, got %f", m.Score)
	}
	if m.Similarity < 0.8 {
		t.Fatalf("expected high similarity for identical signals, got %f", m.Similarity)
	}
}

func TestCompareIgnoresGain(t *testing.T) {
	sr := 48000
	a := makeNote(sr, 440, baseShape)
	b := make([]float64, len(a))
	for i := range a {
		b[i] = 0.25 * a[i]
	}
	m := Compare(a, b, sr, 600*time.Millisecond)
	if m.Score > 0.05 {
		t.Fatalf("expected gain to be ignored, got score %f", m.Score)
	}
}

func TestCompareDifferentEnvelopesHasHigherDistance(t *testing.T) {
	sr := 48000
	a := makeNote(sr, 440, baseShape)
	other := baseShape
	other.attack = 0.2
	other.sustain = 0.1
	other.release = 0.05
	b := makeNote(sr, 440, other)

	same := Compare(a, a, sr, 600*time.Millisecond)
	diff := Compare(a, b, sr, 600*time.Millisecond)
	if diff.Score < same.Score+0.1 {
		t.Fatalf("expected higher score for different envelopes: same=%f diff=%f", same.Score, diff.Score)
	}
	if diff.SustainDiff < 0.3 {
		t.Fatalf("expected sustain difference to be detected, got %f", diff.SustainDiff)
	}
}

func TestCompareEmptyInput(t *testing.T) {
	m := Compare(nil, []float64{1, 2}, 48000, 0)
	if m.Score != 1 || m.Similarity != 0 {
		t.Fatalf("expected worst score for empty input, got %+v", m)
	}
}

func TestEstimateLagFindsPositiveShift(t *testing.T) {
	const (
		n      = 8192
		shift  = 237
		maxLag = 600
	)
	ref := randomSignal(n, 7)
	cand := make([]float64, n)
	copy(cand, ref[shift:])

	got := estimateLag(ref, cand, maxLag)
	if got != shift {
		t.Fatalf("estimateLag() = %d, want %d", got, shift)
	}
}

func TestEstimateLagFindsNegativeShift(t *testing.T) {
	const (
		n      = 8192
		shift  = -191
		maxLag = 600
	)
	ref := randomSignal(n, 11)
	cand := make([]float64, n)
	copy(cand[-shift:], ref)

	got := estimateLag(ref, cand, maxLag)
	if got != shift {
		t.Fatalf("estimateLag() = %d, want %d", got, shift)
	}
}

func randomSignal(n int, seed int64) []float64 {
	rng := rand.New(rand.NewSource(seed))
	out := make([]float64, n)
	for i := range out {
		out[i] = rng.Float64()*2 - 1
	}
	return out
}

func TestCompareNamesDominantComponent(t *testing.T) {
	sr := 48000
	a := makeNote(sr, 440, baseShape)
	other := baseShape
	other.sustain = 0.05
	b := makeNote(sr, 440, other)

	m := Compare(a, b, sr, 600*time.Millisecond)
	if m.Dominant == "" {
		t.Fatalf("expected a dominant component")
	}
	total := WeightEnvelope + WeightSpectral + WeightAttack + WeightDecay + WeightSustain + WeightRelease
	if math.Abs(total-1) > 1e-9 {
		t.Fatalf("weights must sum to one, got %f", total)
	}
}
