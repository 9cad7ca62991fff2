package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/cwbudde/algo-keys/analysis"
	"github.com/cwbudde/algo-keys/internal/fitcommon"
	"github.com/cwbudde/algo-keys/internal/score"
	"github.com/cwbudde/algo-keys/preset"
)

func TestInitCandidateFromPreset(t *testing.T) {
	base := preset.Default()
	defs, cand := initCandidate(base, nil)
	if len(defs) != 4 {
		t.Fatalf("defs len = %d, want 4", len(defs))
	}
	if len(cand.Vals) != len(defs) {
		t.Fatalf("vals len = %d, want %d", len(cand.Vals), len(defs))
	}
	if cand.Vals[0] != ms(base.ADSR.Attack) {
		t.Fatalf("attack = %v, want %v", cand.Vals[0], ms(base.ADSR.Attack))
	}
	if cand.Vals[2] != base.ADSR.Sustain {
		t.Fatalf("sustain = %v, want %v", cand.Vals[2], base.ADSR.Sustain)
	}
}

func TestInitCandidateSeededAndClamped(t *testing.T) {
	f := &analysis.Features{Peak: 1, AttackMs: 42.4, DecayMs: 9000, SustainLevel: 1.4, ReleaseMs: -3}
	_, cand := initCandidate(preset.Default(), f)
	want := []float64{42, 2000, 1, 0}
	for i, w := range want {
		if cand.Vals[i] != w {
			t.Fatalf("val[%d] = %v, want %v", i, cand.Vals[i], w)
		}
	}
}

func TestApplyCandidateSetsEnvelope(t *testing.T) {
	base := preset.Default()
	base.OutputGain = 0.7
	p := applyCandidate(base, adsrKnobs, candidate{Vals: []float64{25, 300, 0.4, 800}})
	if p.ADSR.Attack != 25*time.Millisecond || p.ADSR.Decay != 300*time.Millisecond {
		t.Fatalf("attack/decay = %v/%v", p.ADSR.Attack, p.ADSR.Decay)
	}
	if p.ADSR.Sustain != 0.4 || p.ADSR.Release != 800*time.Millisecond {
		t.Fatalf("sustain/release = %v/%v", p.ADSR.Sustain, p.ADSR.Release)
	}
	if p.OutputGain != 0.7 {
		t.Fatalf("output gain = %v, want 0.7", p.OutputGain)
	}
	if base.ADSR.Attack == p.ADSR.Attack {
		t.Fatal("base preset was modified")
	}
}

func TestNormalizedRoundTrip(t *testing.T) {
	c := candidate{Vals: []float64{100, 500, 0.25, 1500}}
	got := fromNormalized(toNormalized(c, adsrKnobs), adsrKnobs)
	for i := range c.Vals {
		if d := got.Vals[i] - c.Vals[i]; d > 1e-9 || d < -1e-9 {
			t.Fatalf("val[%d] = %v, want %v", i, got.Vals[i], c.Vals[i])
		}
	}
}

func TestFromNormalizedClampsOutOfRange(t *testing.T) {
	got := fromNormalized([]float64{-1, 2, 0.5}, adsrKnobs)
	if got.Vals[0] != 0 || got.Vals[1] != 2000 || got.Vals[2] != 0.5 || got.Vals[3] != 0 {
		t.Fatalf("vals = %v", got.Vals)
	}
}

func TestNewMayflyConfigRejectsUnknownVariant(t *testing.T) {
	if _, err := newMayflyConfig("nope", 10, 4, 5); err == nil {
		t.Fatal("expected error for unknown variant")
	}
	cfg, err := newMayflyConfig("desma", 10, 4, 5)
	if err != nil {
		t.Fatalf("desma: %v", err)
	}
	if cfg.ProblemSize != 4 || cfg.NPop != 10 || cfg.NC != 20 || cfg.NM != 1 {
		t.Fatalf("unexpected config: size=%d pop=%d nc=%d nm=%d", cfg.ProblemSize, cfg.NPop, cfg.NC, cfg.NM)
	}
}

func TestUpdateTopCandidatesKeepsBest(t *testing.T) {
	var top []topCandidate
	for i, s := range []float64{0.5, 0.2, 0.9, 0.1} {
		top = updateTopCandidates(top, 2, i+1, analysis.Metrics{Score: s}, adsrKnobs, candidate{Vals: make([]float64, 4)})
	}
	if len(top) != 2 {
		t.Fatalf("len = %d, want 2", len(top))
	}
	if top[0].Score != 0.1 || top[1].Score != 0.2 {
		t.Fatalf("scores = %v, %v", top[0].Score, top[1].Score)
	}
}

func TestEvaluateSelfMatchScoresBest(t *testing.T) {
	rs := renderSpec{sampleRate: 16000, note: 69, velocity: 100, hold: 300 * time.Millisecond, tail: 500 * time.Millisecond}
	target := preset.Default()
	stereo, err := score.Render(score.SingleNote(rs.note, rs.velocity, rs.hold), target.ADSR, score.RenderConfig{
		SampleRate: rs.sampleRate,
		OutputGain: target.OutputGain,
		Tail:       rs.tail,
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	ref := fitcommon.StereoToMono64(stereo)

	same, _, err := evaluate(ref, target, rs)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	other := applyCandidate(target, adsrKnobs, candidate{Vals: []float64{250, 50, 0.05, 20}})
	diff, _, err := evaluate(ref, other, rs)
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if same.Score >= diff.Score {
		t.Fatalf("self score %.4f should beat mismatched %.4f", same.Score, diff.Score)
	}
}

func TestWriteOutputsWritesPresetAndReport(t *testing.T) {
	dir := t.TempDir()
	rep := runReport{
		OutputPreset: filepath.Join(dir, "presets", "fit.json"),
		SampleRate:   48000,
		BestScore:    0.25,
		BestKnobs:    map[string]float64{"attack_ms": 12},
	}
	p := preset.Default()
	if err := writeOutputs(rep, "", p, nil); err != nil {
		t.Fatalf("writeOutputs: %v", err)
	}
	got, err := preset.LoadJSON(rep.OutputPreset, nil)
	if err != nil {
		t.Fatalf("reload preset: %v", err)
	}
	if got.ADSR != p.ADSR {
		t.Fatalf("preset ADSR = %+v, want %+v", got.ADSR, p.ADSR)
	}
	b, err := os.ReadFile(rep.OutputPreset + ".report.json")
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	var back runReport
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if back.BestScore != 0.25 || back.BestKnobs["attack_ms"] != 12 {
		t.Fatalf("report = %+v", back)
	}
}
