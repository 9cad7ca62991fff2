package analysis

import (
	"math"
	"math/cmplx"
	"time"

	algofft "github.com/cwbudde/algo-fft"
)

// Score weights of the metric components. They sum to one.
const (
	WeightEnvelope = 0.35
	WeightSpectral = 0.20
	WeightAttack   = 0.10
	WeightDecay    = 0.10
	WeightSustain  = 0.15
	WeightRelease  = 0.10
)

// Metrics contains distance and similarity measurements between two notes.
type Metrics struct {
	SampleRate int `json:"sample_rate"`

	ReferenceFrames int `json:"reference_frames"`
	CandidateFrames int `json:"candidate_frames"`
	AlignedFrames   int `json:"aligned_frames"`
	LagSamples      int `json:"lag_samples"`

	EnvelopeRMSEDB float64 `json:"envelope_rmse_db"`
	SpectralRMSEDB float64 `json:"spectral_rmse_db"`

	Reference Features `json:"reference"`
	Candidate Features `json:"candidate"`

	AttackDiffMs  float64 `json:"attack_diff_ms"`
	DecayDiffMs   float64 `json:"decay_diff_ms"`
	SustainDiff   float64 `json:"sustain_diff"`
	ReleaseDiffMs float64 `json:"release_diff_ms"`

	EnvelopeNorm float64 `json:"envelope_norm"`
	SpectralNorm float64 `json:"spectral_norm"`
	AttackNorm   float64 `json:"attack_norm"`
	DecayNorm    float64 `json:"decay_norm"`
	SustainNorm  float64 `json:"sustain_norm"`
	ReleaseNorm  float64 `json:"release_norm"`
	Dominant     string  `json:"dominant"`

	Score      float64 `json:"score"`
	Similarity float64 `json:"similarity"`
}

// Compare returns objective distance metrics and a combined score in [0,1].
// Both signals are peak-normalised so only shape and timbre count. noteOff is
// the release time shared by both renders, or zero when unknown.
func Compare(reference []float64, candidate []float64, sampleRate int, noteOff time.Duration) Metrics {
	m := Metrics{
		SampleRate:      sampleRate,
		ReferenceFrames: len(reference),
		CandidateFrames: len(candidate),
		Score:           1,
	}
	if sampleRate <= 0 || len(reference) == 0 || len(candidate) == 0 {
		return m
	}

	m.Reference = Analyze(reference, sampleRate, noteOff)
	m.Candidate = Analyze(candidate, sampleRate, noteOff)

	ref := normalizePeak(trimLeadingSilence(reference, 1e-6))
	cand := normalizePeak(trimLeadingSilence(candidate, 1e-6))
	if len(ref) == 0 || len(cand) == 0 {
		return m
	}

	maxLag := min(sampleRate/100, len(ref)-1, len(cand)-1)
	maxLag = max(maxLag, 1)
	lag := estimateLag(ref, cand, maxLag)
	m.LagSamples = lag

	refA, candA := alignByLag(ref, cand, lag)
	n := min(len(refA), len(candA), sampleRate*12)
	if n < envFrame {
		return m
	}
	refA = refA[:n]
	candA = candA[:n]
	m.AlignedFrames = n

	refEnv := Envelope(refA, envFrame, envHop)
	candEnv := Envelope(candA, envFrame, envHop)
	envN := min(len(refEnv), len(candEnv))
	if envN > 0 {
		diff := make([]float64, envN)
		for i := 0; i < envN; i++ {
			diff[i] = floorDB(linToDB(refEnv[i])) - floorDB(linToDB(candEnv[i]))
		}
		m.EnvelopeRMSEDB = rms1(diff)
	}
	m.SpectralRMSEDB = spectralRMSEDB(refA, candA)

	m.AttackDiffMs = math.Abs(m.Reference.AttackMs - m.Candidate.AttackMs)
	m.DecayDiffMs = math.Abs(m.Reference.DecayMs - m.Candidate.DecayMs)
	m.SustainDiff = math.Abs(m.Reference.SustainLevel - m.Candidate.SustainLevel)
	m.ReleaseDiffMs = math.Abs(m.Reference.ReleaseMs - m.Candidate.ReleaseMs)

	m.EnvelopeNorm = clamp01(m.EnvelopeRMSEDB / 30.0)
	m.SpectralNorm = clamp01(m.SpectralRMSEDB / 30.0)
	m.AttackNorm = clamp01(m.AttackDiffMs / 100.0)
	m.DecayNorm = clamp01(m.DecayDiffMs / 300.0)
	m.SustainNorm = clamp01(m.SustainDiff / 0.5)
	m.ReleaseNorm = clamp01(m.ReleaseDiffMs / 500.0)

	parts := []struct {
		name string
		v    float64
	}{
		{"envelope", WeightEnvelope * m.EnvelopeNorm},
		{"spectral", WeightSpectral * m.SpectralNorm},
		{"attack", WeightAttack * m.AttackNorm},
		{"decay", WeightDecay * m.DecayNorm},
		{"sustain", WeightSustain * m.SustainNorm},
		{"release", WeightRelease * m.ReleaseNorm},
	}
	best := -1.0
	var score float64
	for _, p := range parts {
		score += p.v
		if p.v > best {
			best = p.v
			m.Dominant = p.name
		}
	}
	m.Score = clamp01(score)
	m.Similarity = clamp01(math.Exp(-4.0 * m.Score))
	return m
}

func trimLeadingSilence(x []float64, threshold float64) []float64 {
	for i := 0; i < len(x); i++ {
		if math.Abs(x[i]) > threshold {
			return x[i:]
		}
	}
	return nil
}

func normalizePeak(x []float64) []float64 {
	peak := 0.0
	for _, v := range x {
		peak = math.Max(peak, math.Abs(v))
	}
	if peak <= 1e-12 {
		return x
	}
	out := make([]float64, len(x))
	for i, v := range x {
		out[i] = v / peak
	}
	return out
}

func estimateLag(ref []float64, cand []float64, maxLag int) int {
	if len(ref) == 0 || len(cand) == 0 {
		return 0
	}
	step := 2
	if len(ref) > 200000 || len(cand) > 200000 {
		step = 4
	}
	bestLag := 0
	best := math.Inf(-1)
	for lag := -maxLag; lag <= maxLag; lag++ {
		s := dotAtLag(ref, cand, lag, step)
		if s > best {
			best = s
			bestLag = lag
		}
	}
	return bestLag
}

func dotAtLag(a []float64, b []float64, lag int, step int) float64 {
	ai, bi := 0, 0
	if lag >= 0 {
		ai = lag
	} else {
		bi = -lag
	}
	n := min(len(a)-ai, len(b)-bi)
	var sum float64
	for i := 0; i < n; i += step {
		sum += a[ai+i] * b[bi+i]
	}
	return sum
}

func alignByLag(ref []float64, cand []float64, lag int) ([]float64, []float64) {
	if lag >= 0 {
		if lag >= len(ref) {
			return nil, nil
		}
		return ref[lag:], cand
	}
	o := -lag
	if o >= len(cand) {
		return nil, nil
	}
	return ref, cand[o:]
}

func rms1(x []float64) float64 {
	if len(x) == 0 {
		return 0
	}
	var sum float64
	for _, v := range x {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(x)))
}

// spectralRMSEDB compares average magnitude spectra over Hann windowed
// frames.
func spectralRMSEDB(a []float64, b []float64) float64 {
	n := min(len(a), len(b))
	size := 4096
	for size > n && size > 512 {
		size /= 2
	}
	if n < size {
		return 0
	}
	plan, err := algofft.NewPlanReal64(size)
	if err != nil {
		return 0
	}

	hann := make([]float64, size)
	for i := range hann {
		hann[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(size-1))
	}
	bins := size / 2
	specA := make([]complex128, bins+1)
	specB := make([]complex128, bins+1)
	bufA := make([]float64, size)
	bufB := make([]float64, size)
	avgA := make([]float64, bins)
	avgB := make([]float64, bins)

	frames := 0
	for pos := 0; pos+size <= n && frames < 32; pos += size / 2 {
		for i := 0; i < size; i++ {
			bufA[i] = a[pos+i] * hann[i]
			bufB[i] = b[pos+i] * hann[i]
		}
		plan.Forward(specA, bufA)
		plan.Forward(specB, bufB)
		for k := 1; k < bins; k++ {
			avgA[k] += cmplx.Abs(specA[k])
			avgB[k] += cmplx.Abs(specB[k])
		}
		frames++
	}
	if frames == 0 {
		return 0
	}

	var sum float64
	for k := 1; k < bins; k++ {
		d := floorDB(linToDB(avgA[k]/float64(frames))) - floorDB(linToDB(avgB[k]/float64(frames)))
		sum += d * d
	}
	return math.Sqrt(sum / float64(bins-1))
}

func linToDB(x float64) float64 {
	if x < 1e-12 {
		x = 1e-12
	}
	return 20.0 * math.Log10(x)
}

// floorDB limits how much silence mismatches can dominate a comparison.
func floorDB(db float64) float64 {
	return math.Max(db, -80)
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
