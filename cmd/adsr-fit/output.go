package main

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/cwbudde/algo-keys/analysis"
	"github.com/cwbudde/algo-keys/internal/fitcommon"
	"github.com/cwbudde/algo-keys/preset"
)

type runReport struct {
	ReferencePath   string             `json:"reference_path"`
	PresetPath      string             `json:"preset_path,omitempty"`
	OutputPreset    string             `json:"output_preset"`
	OutputWAV       string             `json:"output_wav,omitempty"`
	SampleRate      int                `json:"sample_rate"`
	Note            int                `json:"note"`
	Velocity        int                `json:"velocity"`
	ReleaseAfterSec float64            `json:"release_after_seconds"`
	DurationSec     float64            `json:"elapsed_seconds"`
	Evaluations     int                `json:"evaluations"`
	MayflyVariant   string             `json:"mayfly_variant"`
	Seeded          bool               `json:"seeded_from_reference"`
	BestScore       float64            `json:"best_score"`
	BestSimilarity  float64            `json:"best_similarity"`
	BestMetrics     analysis.Metrics   `json:"best_metrics"`
	BestKnobs       map[string]float64 `json:"best_knobs"`
	TopCandidates   []topCandidate     `json:"top_candidates,omitempty"`
}

func writeOutputs(rep runReport, reportPath string, best *preset.Preset, bestRender []float32) error {
	if err := os.MkdirAll(filepath.Dir(rep.OutputPreset), 0o755); err != nil {
		return err
	}
	if err := preset.WriteJSON(rep.OutputPreset, best); err != nil {
		return err
	}
	if rep.OutputWAV != "" && len(bestRender) > 0 {
		if err := fitcommon.WriteStereoInterleavedWAV(rep.OutputWAV, bestRender, rep.SampleRate); err != nil {
			return err
		}
	}
	if reportPath == "" {
		reportPath = rep.OutputPreset + ".report.json"
	}
	b, err := json.MarshalIndent(rep, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(reportPath, append(b, '\n'), 0o644)
}
