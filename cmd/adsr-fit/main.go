// Command adsr-fit searches envelope settings whose rendered note best
// matches a reference recording and writes them as a preset.
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"strings"
	"time"

	"github.com/cwbudde/algo-keys/analysis"
	"github.com/cwbudde/algo-keys/internal/fitcommon"
	"github.com/cwbudde/algo-keys/piano"
	"github.com/cwbudde/algo-keys/preset"
)

func main() {
	referencePath := flag.String("reference", "reference/c4.wav", "Reference WAV path")
	presetPath := flag.String("preset", "", "Base preset JSON path (default: built-in)")
	outputPreset := flag.String("output-preset", "assets/presets/fitted.json", "Path to write best fitted preset JSON")
	outputWAV := flag.String("output-wav", "", "Optional path to write the best render")
	reportPath := flag.String("report", "", "Optional report JSON path (default: <output-preset>.report.json)")
	waveform := flag.String("waveform", "", "Override oscillator waveform: sine|square|sawtooth|triangle")
	note := flag.Int("note", 60, "MIDI note to fit")
	velocity := flag.Int("velocity", 100, "MIDI velocity for rendering during fit")
	releaseAfter := flag.Float64("release-after", 1.0, "Seconds before NoteOff for each evaluation render")
	tail := flag.Float64("tail", 1.5, "Seconds rendered after NoteOff")
	sampleRate := flag.Int("sample-rate", 48000, "Render/analysis sample rate")
	seed := flag.Int64("seed", 1, "Random seed")
	seedFromReference := flag.Bool("seed-from-reference", true, "Start from the envelope measured on the reference")
	timeBudget := flag.Float64("time-budget", 60.0, "Optimization time budget in seconds")
	maxEvals := flag.Int("max-evals", 2000, "Maximum objective evaluations")
	reportEvery := flag.Int("report-every", 50, "Print progress every N evaluations")
	topK := flag.Int("top-k", 5, "How many top candidates to keep in report")

	mayflyVariant := flag.String("mayfly-variant", "desma", "Mayfly variant: ma|desma|olce|eobbma|gsasma|mpma|aoblmoa")
	mayflyPop := flag.Int("mayfly-pop", 10, "Male and female population size per Mayfly run")
	mayflyRoundEvals := flag.Int("mayfly-round-evals", 240, "Target eval budget per Mayfly round")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if *outputPreset == "" {
		die("output-preset must not be empty")
	}
	if *maxEvals < 1 {
		die("max-evals must be >= 1")
	}
	if *timeBudget <= 0 {
		die("time-budget must be > 0")
	}
	if *releaseAfter < 0.05 {
		*releaseAfter = 0.05
	}
	if *tail < 0 {
		*tail = 0
	}
	if *reportEvery < 1 {
		*reportEvery = 1
	}
	if *mayflyPop < 2 {
		*mayflyPop = 2
	}
	if *mayflyRoundEvals < *mayflyPop*2 {
		*mayflyRoundEvals = *mayflyPop * 2
	}
	if *topK < 1 {
		*topK = 1
	}
	variant := strings.ToLower(*mayflyVariant)

	base := preset.Default()
	if *presetPath != "" {
		p, err := preset.LoadJSON(*presetPath, logger)
		if err != nil {
			die("failed to load preset: %v", err)
		}
		base = p
	}
	if *waveform != "" {
		w, ok := piano.ParseWaveform(*waveform)
		if !ok {
			die("unknown waveform %q", *waveform)
		}
		base.ADSR.Waveform = w
	}

	ref, refSR, err := fitcommon.ReadWAVMono(*referencePath)
	if err != nil {
		die("failed to read reference: %v", err)
	}
	ref, err = fitcommon.ResampleIfNeeded(ref, refSR, *sampleRate)
	if err != nil {
		die("failed to resample reference: %v", err)
	}

	rs := renderSpec{
		sampleRate: *sampleRate,
		note:       *note,
		velocity:   *velocity,
		hold:       seconds(*releaseAfter),
		tail:       seconds(*tail),
	}

	var seedFeatures *analysis.Features
	if *seedFromReference {
		f := analysis.Analyze(ref, *sampleRate, rs.hold)
		seedFeatures = &f
		logger.Info("reference envelope",
			"attack_ms", f.AttackMs, "decay_ms", f.DecayMs,
			"sustain", f.SustainLevel, "release_ms", f.ReleaseMs)
	}
	defs, best := initCandidate(base, seedFeatures)

	start := time.Now()
	deadline := start.Add(seconds(*timeBudget))

	bestPreset := applyCandidate(base, defs, best)
	bestM, bestRender, err := evaluate(ref, bestPreset, rs)
	if err != nil {
		die("initial evaluation failed: %v", err)
	}
	evals := 1
	improves := 0
	top := updateTopCandidates(nil, *topK, evals, bestM, defs, best)
	fmt.Printf("Start score=%.4f similarity=%.2f%%\n", bestM.Score, bestM.Similarity*100.0)

	report := func() runReport {
		return runReport{
			ReferencePath:   *referencePath,
			PresetPath:      *presetPath,
			OutputPreset:    *outputPreset,
			OutputWAV:       *outputWAV,
			SampleRate:      *sampleRate,
			Note:            *note,
			Velocity:        *velocity,
			ReleaseAfterSec: *releaseAfter,
			DurationSec:     time.Since(start).Seconds(),
			Evaluations:     evals,
			MayflyVariant:   variant,
			Seeded:          seedFeatures != nil,
			BestScore:       bestM.Score,
			BestSimilarity:  bestM.Similarity,
			BestMetrics:     bestM,
			BestKnobs:       knobMap(defs, best),
			TopCandidates:   top,
		}
	}

	round := 0
	for evals < *maxEvals && time.Now().Before(deadline) {
		round++
		budget := min(*mayflyRoundEvals, *maxEvals-evals)
		iters := max(1, budget/(2*(*mayflyPop)))

		cfg, err := newMayflyConfig(variant, *mayflyPop, len(defs), iters)
		if err != nil {
			die("invalid mayfly variant: %v", err)
		}
		cfg.Rand = rand.New(rand.NewSource(*seed + int64(round)*7919))

		cfg.ObjectiveFunc = func(pos []float64) float64 {
			if evals >= *maxEvals || time.Now().After(deadline) {
				return bestM.Score + 1.0
			}
			cand := fromNormalized(pos, defs)
			p := applyCandidate(base, defs, cand)
			m, stereo, err := evaluate(ref, p, rs)
			evals++
			if err != nil {
				logger.Debug("evaluation failed", "eval", evals, "err", err)
				return bestM.Score + 0.8
			}

			top = updateTopCandidates(top, *topK, evals, m, defs, cand)

			if m.Score < bestM.Score {
				best = cand
				bestM = m
				bestPreset = p
				bestRender = stereo
				improves++
				fmt.Printf("Improved #%d eval=%d score=%.4f sim=%.2f%% dominant=%s\n",
					improves, evals, bestM.Score, bestM.Similarity*100.0, bestM.Dominant)
			}

			if evals%*reportEvery == 0 {
				fmt.Printf("Progress round=%d eval=%d elapsed=%.1fs best=%.4f\n", round, evals, time.Since(start).Seconds(), bestM.Score)
			}
			return m.Score
		}

		if _, err := runMayfly(cfg); err != nil {
			logger.Warn("mayfly round failed", "round", round, "err", err)
			continue
		}
	}

	if err := writeOutputs(report(), *reportPath, bestPreset, bestRender); err != nil {
		die("failed to write outputs: %v", err)
	}

	fmt.Printf("Done evals=%d elapsed=%.1fs best_score=%.4f best_similarity=%.2f%% variant=%s\n",
		evals, time.Since(start).Seconds(), bestM.Score, bestM.Similarity*100.0, variant)
	for i, d := range defs {
		fmt.Printf("  %-14s %.3f\n", d.Name, best.Vals[i])
	}
}

func seconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

func die(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
