package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/cwbudde/algo-keys/analysis"
	"github.com/cwbudde/algo-keys/internal/fitcommon"
	"github.com/cwbudde/algo-keys/internal/score"
	"github.com/cwbudde/algo-keys/preset"
)

func main() {
	referencePath := flag.String("reference", "reference/c4.wav", "Reference WAV path")
	candidatePath := flag.String("candidate", "", "Candidate WAV path; if empty, render the candidate from a preset")
	presetPath := flag.String("preset", "", "Preset JSON path for the rendered candidate (default: built-in)")
	note := flag.Int("note", 60, "MIDI note for rendered candidate")
	velocity := flag.Int("velocity", 100, "MIDI velocity for rendered candidate")
	sampleRate := flag.Int("sample-rate", 48000, "Analysis sample rate in Hz")
	releaseAfter := flag.Float64("release-after", 1.0, "Note hold time in seconds before NoteOff (also used to locate sustain and release)")
	tail := flag.Float64("tail", 1.5, "Seconds rendered after NoteOff")
	writeCandidate := flag.String("write-candidate", "", "Optional path to write rendered candidate WAV")
	jsonOut := flag.Bool("json", false, "Print metrics as JSON")
	flag.Parse()

	ref, refSR, err := fitcommon.ReadWAVMono(*referencePath)
	if err != nil {
		die("failed to read reference: %v", err)
	}
	ref, err = fitcommon.ResampleIfNeeded(ref, refSR, *sampleRate)
	if err != nil {
		die("failed to resample reference: %v", err)
	}

	noteOff := seconds(*releaseAfter)
	var cand []float64
	if *candidatePath != "" {
		candRaw, candSR, err := fitcommon.ReadWAVMono(*candidatePath)
		if err != nil {
			die("failed to read candidate: %v", err)
		}
		cand, err = fitcommon.ResampleIfNeeded(candRaw, candSR, *sampleRate)
		if err != nil {
			die("failed to resample candidate: %v", err)
		}
	} else {
		p := preset.Default()
		if *presetPath != "" {
			if p, err = preset.LoadJSON(*presetPath, nil); err != nil {
				die("failed to load preset: %v", err)
			}
		}
		stereo, err := score.Render(score.SingleNote(*note, *velocity, noteOff), p.ADSR, score.RenderConfig{
			SampleRate: *sampleRate,
			OutputGain: p.OutputGain,
			Tail:       seconds(*tail),
		})
		if err != nil {
			die("failed to render candidate: %v", err)
		}
		cand = fitcommon.StereoToMono64(stereo)
		if *writeCandidate != "" {
			if err := fitcommon.WriteStereoInterleavedWAV(*writeCandidate, stereo, *sampleRate); err != nil {
				die("failed to write candidate wav: %v", err)
			}
		}
	}

	metrics := analysis.Compare(ref, cand, *sampleRate, noteOff)
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(metrics); err != nil {
			die("json encode failed: %v", err)
		}
		return
	}

	fmt.Printf("Reference frames: %d\n", metrics.ReferenceFrames)
	fmt.Printf("Candidate frames: %d\n", metrics.CandidateFrames)
	fmt.Printf("Aligned frames:   %d\n", metrics.AlignedFrames)
	fmt.Printf("Lag:              %d samples (%.3f ms)\n", metrics.LagSamples, 1000.0*float64(metrics.LagSamples)/float64(metrics.SampleRate))
	fmt.Println()
	fmt.Printf("Component        Raw          Norm   Weight  Contribution\n")
	fmt.Printf("─────────────────────────────────────────────────────────\n")
	printComp := func(name string, raw string, norm, weight float64, dominant bool) {
		marker := ""
		if dominant {
			marker = " ◄"
		}
		fmt.Printf("%-16s %-12s %5.1f%%  ×%.2f   → %.4f%s\n", name, raw, norm*100, weight, norm*weight, marker)
	}
	printComp("Envelope RMSE", fmt.Sprintf("%.1f dB", metrics.EnvelopeRMSEDB), metrics.EnvelopeNorm, analysis.WeightEnvelope, metrics.Dominant == "envelope")
	printComp("Spectral RMSE", fmt.Sprintf("%.1f dB", metrics.SpectralRMSEDB), metrics.SpectralNorm, analysis.WeightSpectral, metrics.Dominant == "spectral")
	printComp("Attack diff", fmt.Sprintf("%.1f ms", metrics.AttackDiffMs), metrics.AttackNorm, analysis.WeightAttack, metrics.Dominant == "attack")
	printComp("Decay diff", fmt.Sprintf("%.1f ms", metrics.DecayDiffMs), metrics.DecayNorm, analysis.WeightDecay, metrics.Dominant == "decay")
	printComp("Sustain diff", fmt.Sprintf("%.3f", metrics.SustainDiff), metrics.SustainNorm, analysis.WeightSustain, metrics.Dominant == "sustain")
	printComp("Release diff", fmt.Sprintf("%.1f ms", metrics.ReleaseDiffMs), metrics.ReleaseNorm, analysis.WeightRelease, metrics.Dominant == "release")
	fmt.Printf("─────────────────────────────────────────────────────────\n")
	fmt.Printf("Score:            %.4f  (0 best, 1 worst)\n", metrics.Score)
	fmt.Printf("Similarity:       %.2f%%\n", metrics.Similarity*100.0)
	fmt.Printf("Dominant factor:  %s\n", metrics.Dominant)
	fmt.Println()
	printFeatures("Reference", metrics.Reference)
	printFeatures("Candidate", metrics.Candidate)
}

func printFeatures(label string, f analysis.Features) {
	fmt.Printf("%-9s attack=%.1fms decay=%.1fms sustain=%.3f release=%.1fms\n", label, f.AttackMs, f.DecayMs, f.SustainLevel, f.ReleaseMs)
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func die(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
