// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package score computes the GemScore, a bounded desirability score built
// only from fields already stored on a candidate record.
package score

import (
	"math"
	"sort"

	"github.com/pdiddy/hidden-gems/pkg/types"
)

// Params configures the scorer. Review bounds come from the filter gates.
type Params struct {
	MinReviews int
	MaxReviews int

	PositivityWeight float64
	ObscurityWeight  float64
	UniquenessWeight float64
	ValueWeight      float64

	ValueConstant   float64
	GenreSaturation int
}

// FromConfig combines the score weights with the filter's review bounds.
func FromConfig(sc types.ScoreConfig, fc types.FilterConfig) Params {
	return Params{
		MinReviews:       fc.MinReviews,
		MaxReviews:       fc.MaxReviews,
		PositivityWeight: sc.PositivityWeight,
		ObscurityWeight:  sc.ObscurityWeight,
		UniquenessWeight: sc.UniquenessWeight,
		ValueWeight:      sc.ValueWeight,
		ValueConstant:    sc.ValueConstant,
		GenreSaturation:  sc.GenreSaturation,
	}
}

// DefaultParams returns the parameters of the default configuration.
func DefaultParams() Params {
	cfg := types.DefaultConfig()
	return FromConfig(cfg.Score, cfg.Filter)
}

// Components holds the four unweighted inputs, each in [0, 1].
type Components struct {
	Positivity float64
	Obscurity  float64
	Uniqueness float64
	Value      float64
}

// Components computes the unweighted inputs for rec.
func (p Params) Components(rec types.CandidateRecord) Components {
	return Components{
		Positivity: positivity(rec),
		Obscurity:  p.Obscurity(rec.TotalReviews),
		Uniqueness: p.uniqueness(len(rec.Genres)),
		Value:      clamp01(p.ValueConstant),
	}
}

// Score returns 100 × the weighted sum of the components, rounded to one
// decimal and clamped to [0, 100].
func (p Params) Score(rec types.CandidateRecord) float64 {
	c := p.Components(rec)
	sum := p.PositivityWeight*c.Positivity +
		p.ObscurityWeight*c.Obscurity +
		p.UniquenessWeight*c.Uniqueness +
		p.ValueWeight*c.Value
	s := math.Round(1000*sum) / 10
	return math.Max(0, math.Min(100, s))
}

// Obscurity interpolates log10(total) between the review bounds: MinReviews
// maps to 1 and MaxReviews to 0. Degenerate bounds or totals give 0.5.
func (p Params) Obscurity(total int) float64 {
	if total <= 0 || p.MinReviews <= 0 || p.MaxReviews <= p.MinReviews {
		return 0.5
	}
	lo := math.Log10(float64(p.MinReviews))
	hi := math.Log10(float64(p.MaxReviews))
	return clamp01((hi - math.Log10(float64(total))) / (hi - lo))
}

func (p Params) uniqueness(genres int) float64 {
	sat := p.GenreSaturation
	if sat <= 0 {
		sat = 8
	}
	return 1 - math.Min(1, float64(genres)/float64(sat))
}

func positivity(rec types.CandidateRecord) float64 {
	if rec.TotalReviews <= 0 {
		return 0
	}
	return clamp01(float64(rec.PositiveReviews) / float64(rec.TotalReviews))
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}

// Ranked pairs a record with its score.
type Ranked struct {
	Record types.CandidateRecord
	Score  float64
}

// Rank scores recs and orders them by descending score. Equal scores keep
// their input order.
func (p Params) Rank(recs []types.CandidateRecord) []Ranked {
	out := make([]Ranked, len(recs))
	for i, r := range recs {
		out[i] = Ranked{Record: r, Score: p.Score(r)}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Score > out[j].Score
	})
	return out
}
