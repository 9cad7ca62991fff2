package main

import (
	"math"
	"time"

	"github.com/cwbudde/algo-keys/analysis"
	"github.com/cwbudde/algo-keys/internal/fitcommon"
	"github.com/cwbudde/algo-keys/preset"
)

type knobDef struct {
	Name  string
	Min   float64
	Max   float64
	IsInt bool
}

type candidate struct {
	Vals []float64
}

var adsrKnobs = []knobDef{
	{Name: "attack_ms", Min: 0, Max: 500, IsInt: true},
	{Name: "decay_ms", Min: 0, Max: 2000, IsInt: true},
	{Name: "sustain_level", Min: 0, Max: 1},
	{Name: "release_ms", Min: 0, Max: 3000, IsInt: true},
}

// initCandidate starts from the base preset, or from the envelope measured on
// the reference when seed features are given.
func initCandidate(base *preset.Preset, seed *analysis.Features) ([]knobDef, candidate) {
	defs := append([]knobDef(nil), adsrKnobs...)
	vals := []float64{
		ms(base.ADSR.Attack),
		ms(base.ADSR.Decay),
		base.ADSR.Sustain,
		ms(base.ADSR.Release),
	}
	if seed != nil && seed.Peak > 0 {
		vals = []float64{seed.AttackMs, seed.DecayMs, seed.SustainLevel, seed.ReleaseMs}
	}
	for i := range vals {
		vals[i] = fitcommon.Clamp(vals[i], defs[i].Min, defs[i].Max)
		if defs[i].IsInt {
			vals[i] = math.Round(vals[i])
		}
	}
	return defs, candidate{Vals: vals}
}

func applyCandidate(base *preset.Preset, defs []knobDef, c candidate) *preset.Preset {
	p := *base
	for i, def := range defs {
		v := c.Vals[i]
		switch def.Name {
		case "attack_ms":
			p.ADSR.Attack = fromMs(v)
		case "decay_ms":
			p.ADSR.Decay = fromMs(v)
		case "sustain_level":
			p.ADSR.Sustain = v
		case "release_ms":
			p.ADSR.Release = fromMs(v)
		}
	}
	p.ADSR = p.ADSR.Sanitize()
	return &p
}

func fromNormalized(pos []float64, defs []knobDef) candidate {
	vals := make([]float64, len(defs))
	for i := range defs {
		x := 0.0
		if i < len(pos) {
			x = fitcommon.Clamp(pos[i], 0, 1)
		}
		v := defs[i].Min + x*(defs[i].Max-defs[i].Min)
		if defs[i].IsInt {
			v = math.Round(v)
		}
		vals[i] = v
	}
	return candidate{Vals: vals}
}

func toNormalized(c candidate, defs []knobDef) []float64 {
	pos := make([]float64, len(defs))
	for i, d := range defs {
		span := d.Max - d.Min
		if span <= 0 {
			continue
		}
		pos[i] = fitcommon.Clamp((c.Vals[i]-d.Min)/span, 0, 1)
	}
	return pos
}

func knobMap(defs []knobDef, c candidate) map[string]float64 {
	out := make(map[string]float64, len(defs))
	for i, d := range defs {
		out[d.Name] = c.Vals[i]
	}
	return out
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func fromMs(v float64) time.Duration {
	return time.Duration(math.Round(v * float64(time.Millisecond)))
}
