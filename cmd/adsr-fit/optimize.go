package main

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/cwbudde/mayfly"

	"github.com/cwbudde/algo-keys/analysis"
	"github.com/cwbudde/algo-keys/internal/fitcommon"
	"github.com/cwbudde/algo-keys/internal/score"
	"github.com/cwbudde/algo-keys/preset"
)

type renderSpec struct {
	sampleRate int
	note       int
	velocity   int
	hold       time.Duration
	tail       time.Duration
}

type topCandidate struct {
	Eval       int                `json:"eval"`
	Score      float64            `json:"score"`
	Similarity float64            `json:"similarity"`
	Knobs      map[string]float64 `json:"knobs"`
}

// evaluate renders p and scores it against the reference.
func evaluate(ref []float64, p *preset.Preset, rs renderSpec) (analysis.Metrics, []float32, error) {
	stereo, err := score.Render(score.SingleNote(rs.note, rs.velocity, rs.hold), p.ADSR, score.RenderConfig{
		SampleRate: rs.sampleRate,
		OutputGain: p.OutputGain,
		Tail:       rs.tail,
	})
	if err != nil {
		return analysis.Metrics{}, nil, err
	}
	m := analysis.Compare(ref, fitcommon.StereoToMono64(stereo), rs.sampleRate, rs.hold)
	return m, stereo, nil
}

func newMayflyConfig(variant string, pop int, dims int, iters int) (*mayfly.Config, error) {
	var cfg *mayfly.Config
	switch variant {
	case "ma":
		cfg = mayfly.NewDefaultConfig()
	case "desma":
		cfg = mayfly.NewDESMAConfig()
	case "olce":
		cfg = mayfly.NewOLCEConfig()
	case "eobbma":
		cfg = mayfly.NewEOBBMAConfig()
	case "gsasma":
		cfg = mayfly.NewGSASMAConfig()
	case "mpma":
		cfg = mayfly.NewMPMAConfig()
	case "aoblmoa":
		cfg = mayfly.NewAOBLMOAConfig()
	default:
		return nil, fmt.Errorf("unsupported variant %q", variant)
	}
	cfg.ProblemSize = dims
	cfg.LowerBound = 0.0
	cfg.UpperBound = 1.0
	cfg.MaxIterations = iters
	cfg.NPop = pop
	cfg.NPopF = pop
	cfg.NC = 2 * pop
	cfg.NM = max(1, int(math.Round(0.05*float64(pop))))
	return cfg, nil
}

func runMayfly(cfg *mayfly.Config) (_ *mayfly.Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("mayfly panic: %v", r)
		}
	}()
	return mayfly.Optimize(cfg)
}

func updateTopCandidates(top []topCandidate, topK int, eval int, metrics analysis.Metrics, defs []knobDef, cand candidate) []topCandidate {
	top = append(top, topCandidate{
		Eval:       eval,
		Score:      metrics.Score,
		Similarity: metrics.Similarity,
		Knobs:      knobMap(defs, cand),
	})
	sort.Slice(top, func(i, j int) bool {
		if top[i].Score == top[j].Score {
			return top[i].Eval < top[j].Eval
		}
		return top[i].Score < top[j].Score
	})
	if len(top) > topK {
		top = top[:topK]
	}
	return top
}
