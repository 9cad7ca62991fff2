// Command keys-spectrum renders one note from a preset and compares its
// spectrum band by band against a reference recording, separately for each
// envelope phase.
package main

import (
	"flag"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/cwbudde/algo-keys/analysis"
	"github.com/cwbudde/algo-keys/internal/fitcommon"
	"github.com/cwbudde/algo-keys/internal/score"
	"github.com/cwbudde/algo-keys/piano"
	"github.com/cwbudde/algo-keys/preset"
)

func main() {
	refPath := flag.String("reference", "reference/c4.wav", "Reference WAV")
	presetPath := flag.String("preset", "", "Preset to render (default: built-in)")
	waveform := flag.String("waveform", "", "Override oscillator waveform: sine|square|sawtooth|triangle")
	note := flag.Int("note", 60, "MIDI note")
	velocity := flag.Int("velocity", 100, "MIDI velocity")
	releaseAfter := flag.Float64("release-after", 1.0, "Release after seconds")
	tail := flag.Float64("tail", 1.5, "Seconds rendered after release")
	sampleRate := flag.Int("sample-rate", 48000, "Sample rate")
	flag.Parse()

	sr := *sampleRate

	refRaw, refSR, err := fitcommon.ReadWAVMono(*refPath)
	if err != nil {
		die("ref: %v", err)
	}
	ref, err := fitcommon.ResampleIfNeeded(refRaw, refSR, sr)
	if err != nil {
		die("ref resample: %v", err)
	}
	fmt.Printf("Reference: %d frames @ %d Hz (%.2fs)\n", len(ref), sr, float64(len(ref))/float64(sr))

	p := preset.Default()
	if *presetPath != "" {
		if p, err = preset.LoadJSON(*presetPath, nil); err != nil {
			die("preset: %v", err)
		}
	}
	if *waveform != "" {
		w, ok := piano.ParseWaveform(*waveform)
		if !ok {
			die("unknown waveform %q", *waveform)
		}
		p.ADSR.Waveform = w
	}
	noteOff := time.Duration(*releaseAfter * float64(time.Second))
	stereo, err := score.Render(score.SingleNote(*note, *velocity, noteOff), p.ADSR, score.RenderConfig{
		SampleRate: sr,
		OutputGain: p.OutputGain,
		Tail:       time.Duration(*tail * float64(time.Second)),
	})
	if err != nil {
		die("render: %v", err)
	}
	cand := fitcommon.StereoToMono64(stereo)
	fmt.Printf("Candidate: %d frames @ %d Hz (%.2fs) waveform=%s\n\n", len(cand), sr, float64(len(cand))/float64(sr), p.ADSR.Waveform)

	refPeak := fitcommon.Peak64(ref)
	candPeak := fitcommon.Peak64(cand)
	fmt.Printf("Peak levels: ref=%.4f (%.1f dB)  cand=%.4f (%.1f dB)  ratio=%.1fdB\n",
		refPeak, db(refPeak), candPeak, db(candPeak), db(candPeak)-db(refPeak))

	ref, cand, lag := analysis.AlignByPeak(ref, cand)
	fmt.Printf("Peak lag: %d samples (%.1fms)\n\n", lag, float64(lag)/float64(sr)*1000)

	windows := analysis.PhaseWindows(p.ADSR.Attack, p.ADSR.Decay, noteOff, p.ADSR.Release)
	reps, err := analysis.CompareBands(ref, cand, sr, windows, analysis.DefaultBands())
	if err != nil {
		die("compare: %v", err)
	}
	for _, rep := range reps {
		fmt.Printf("--- %s (%.0f-%.0fms, %d STFT frames) ---\n", rep.Window.Name,
			ms(rep.Window.Start), ms(rep.Window.End), rep.Frames)
		for _, b := range rep.Bands {
			marker := ""
			if b.RMSEDB > 15 {
				marker = " <<<"
			}
			if b.RMSEDB > 25 {
				marker = " <<< !!!"
			}
			fmt.Printf("  %-22s RMSE=%5.1fdB  ref=%6.1fdB  cand=%6.1fdB  diff=%+5.1fdB%s\n",
				b.Band.Name, b.RMSEDB, b.RefDB, b.CandDB, b.Diff(), marker)
		}
		fmt.Println()
	}
}

func db(x float64) float64 {
	return 20 * math.Log10(math.Max(x, 1e-12))
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func die(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
