package analysis

import (
	"fmt"
	"math"
	"math/cmplx"
	"time"

	algofft "github.com/cwbudde/algo-fft"
)

// Band is a frequency range in Hz.
type Band struct {
	Name string
	LoHz float64
	HiHz float64
}

// Window is a time range measured from the start of both signals.
type Window struct {
	Name  string
	Start time.Duration
	End   time.Duration
}

// BandDiff compares the average spectrum of one band inside one window.
type BandDiff struct {
	Band   Band
	RMSEDB float64
	RefDB  float64
	CandDB float64
}

// Diff is the candidate level relative to the reference.
func (d BandDiff) Diff() float64 { return d.CandDB - d.RefDB }

// WindowReport holds the band comparisons of one window.
type WindowReport struct {
	Window Window
	Frames int
	Bands  []BandDiff
}

// DefaultBands splits the audible range into seven bands.
func DefaultBands() []Band {
	return []Band{
		{"sub-bass (20-100Hz)", 20, 100},
		{"bass (100-300Hz)", 100, 300},
		{"low-mid (300-1kHz)", 300, 1000},
		{"mid (1-3kHz)", 1000, 3000},
		{"hi-mid (3-6kHz)", 3000, 6000},
		{"high (6-12kHz)", 6000, 12000},
		{"air (12-20kHz)", 12000, 20000},
	}
}

// PhaseWindows returns one window per envelope phase of a note released at
// noteOff. Empty phases are skipped.
func PhaseWindows(attack, decay, noteOff, release time.Duration) []Window {
	var out []Window
	add := func(name string, start, end time.Duration) {
		if end > start {
			out = append(out, Window{Name: name, Start: start, End: end})
		}
	}
	add("attack", 0, min(attack, noteOff))
	add("decay", min(attack, noteOff), min(attack+decay, noteOff))
	add("sustain", min(attack+decay, noteOff), noteOff)
	add("release", noteOff, noteOff+release)
	return out
}

// AlignByPeak shifts the later of the two signals so their absolute peaks
// coincide. The returned lag is positive when the candidate was shifted.
func AlignByPeak(ref, cand []float64) ([]float64, []float64, int) {
	lag := peakIndex(cand) - peakIndex(ref)
	switch {
	case lag > 0 && lag < len(cand):
		cand = cand[lag:]
	case lag < 0 && -lag < len(ref):
		ref = ref[-lag:]
	}
	return ref, cand, lag
}

func peakIndex(x []float64) int {
	best, at := 0.0, 0
	for i, v := range x {
		if a := math.Abs(v); a > best {
			best, at = a, i
		}
	}
	return at
}

// CompareBands averages Hann windowed STFT magnitudes of both signals inside
// each window and reports the per band level and log spectral distance.
// A window shorter than one FFT frame is analysed as a single zero padded
// frame.
func CompareBands(ref, cand []float64, sampleRate int, windows []Window, bands []Band) ([]WindowReport, error) {
	const fftSize = 4096
	const hop = fftSize / 2
	if sampleRate <= 0 {
		return nil, fmt.Errorf("analysis: invalid sample rate %d", sampleRate)
	}
	plan, err := algofft.NewPlanReal64(fftSize)
	if err != nil {
		return nil, fmt.Errorf("analysis: fft plan: %w", err)
	}

	n := min(len(ref), len(cand))
	binHz := float64(sampleRate) / fftSize
	nBins := fftSize / 2
	hann := make([]float64, fftSize)
	for i := range hann {
		hann[i] = 0.5 - 0.5*math.Cos(2*math.Pi*float64(i)/float64(fftSize-1))
	}
	specRef := make([]complex128, nBins+1)
	specCand := make([]complex128, nBins+1)
	bufRef := make([]float64, fftSize)
	bufCand := make([]float64, fftSize)

	accumulate := func(avgRef, avgCand []float64) {
		plan.Forward(specRef, bufRef)
		plan.Forward(specCand, bufCand)
		for k := 1; k < nBins; k++ {
			avgRef[k] += cmplx.Abs(specRef[k])
			avgCand[k] += cmplx.Abs(specCand[k])
		}
	}

	var out []WindowReport
	for _, w := range windows {
		start := int(w.Start.Seconds() * float64(sampleRate))
		end := min(int(w.End.Seconds()*float64(sampleRate)), n)
		if start >= end {
			continue
		}

		avgRef := make([]float64, nBins)
		avgCand := make([]float64, nBins)
		frames := 0
		for pos := start; pos+fftSize <= end; pos += hop {
			for i := 0; i < fftSize; i++ {
				bufRef[i] = ref[pos+i] * hann[i]
				bufCand[i] = cand[pos+i] * hann[i]
			}
			accumulate(avgRef, avgCand)
			frames++
		}
		if frames == 0 {
			clear(bufRef)
			clear(bufCand)
			for i := 0; i < end-start; i++ {
				bufRef[i] = ref[start+i] * hann[i]
				bufCand[i] = cand[start+i] * hann[i]
			}
			accumulate(avgRef, avgCand)
			frames = 1
		}
		for k := range avgRef {
			avgRef[k] /= float64(frames)
			avgCand[k] /= float64(frames)
		}

		rep := WindowReport{Window: w, Frames: frames}
		for _, b := range bands {
			lo := max(int(b.LoHz/binHz), 1)
			hi := min(int(b.HiHz/binHz), nBins-1)
			if lo > hi {
				continue
			}
			var sumSq, refPow, candPow float64
			for k := lo; k <= hi; k++ {
				d := linToDB(avgRef[k]) - linToDB(avgCand[k])
				sumSq += d * d
				refPow += avgRef[k] * avgRef[k]
				candPow += avgCand[k] * avgCand[k]
			}
			cnt := float64(hi - lo + 1)
			rep.Bands = append(rep.Bands, BandDiff{
				Band:   b,
				RMSEDB: math.Sqrt(sumSq / cnt),
				RefDB:  10 * math.Log10(math.Max(refPow/cnt, 1e-24)),
				CandDB: 10 * math.Log10(math.Max(candPow/cnt, 1e-24)),
			})
		}
		out = append(out, rep)
	}
	return out, nil
}
