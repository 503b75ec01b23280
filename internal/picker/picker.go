// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package picker chooses one candidate from the pool, avoiding recent picks
// and optionally favoring titles with fewer reviews.
package picker

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/pdiddy/hidden-gems/internal/pool"
	"github.com/pdiddy/hidden-gems/pkg/types"
)

// ErrEmptyPool is returned when there is nothing to pick from.
var ErrEmptyPool = errors.New("candidate pool is empty")

// VerifyFunc confirms a picked id is still usable, for example by loading
// its detail from the cache.
type VerifyFunc func(ctx context.Context, id int) error

// Picker draws candidates with its own random source.
type Picker struct {
	rng *rand.Rand
}

// New returns a picker seeded from src. A nil src seeds from the clock.
func New(src rand.Source) *Picker {
	if src == nil {
		seed := uint64(time.Now().UnixNano())
		src = rand.NewPCG(seed, seed>>1|1)
	}
	return &Picker{rng: rand.New(src)}
}

// Pick returns one id from the normalized pool. Ids in exclude are skipped
// unless that would leave nothing, in which case the exclusion is dropped
// for this call. With useWeights each candidate is weighted by
// 1/sqrt(total_reviews); otherwise the draw is uniform.
func (p *Picker) Pick(sh pool.Shape, exclude map[int]bool, useWeights bool) (int, error) {
	return p.pick(sh.Normalize(), exclude, nil, useWeights)
}

// PickVerified picks an id and checks it with verify. On failure it picks
// once more with the failed id excluded. The failed id stays excluded even
// when the history exclusion has to be dropped.
func (p *Picker) PickVerified(ctx context.Context, sh pool.Shape, exclude map[int]bool, useWeights bool, verify VerifyFunc) (int, error) {
	recs := sh.Normalize()

	first, err := p.pick(recs, exclude, nil, useWeights)
	if err != nil {
		return 0, err
	}
	firstErr := verify(ctx, first)
	if firstErr == nil {
		return first, nil
	}
	if ctx.Err() != nil {
		return 0, ctx.Err()
	}

	second, err := p.pick(recs, exclude, map[int]bool{first: true}, useWeights)
	if err != nil {
		return 0, fmt.Errorf("verifying %d: %v; no other candidate: %w", first, firstErr, err)
	}
	if err := verify(ctx, second); err != nil {
		return 0, fmt.Errorf("verifying %d and %d: %w", first, second, errors.Join(firstErr, err))
	}
	return second, nil
}

// pick applies hard exclusions unconditionally and soft exclusions only
// when they leave at least one candidate.
func (p *Picker) pick(recs []types.CandidateRecord, soft, hard map[int]bool, useWeights bool) (int, error) {
	var base []types.CandidateRecord
	for _, r := range recs {
		if !hard[r.ID] {
			base = append(base, r)
		}
	}
	if len(base) == 0 {
		return 0, ErrEmptyPool
	}

	candidates := base
	if len(soft) > 0 {
		var kept []types.CandidateRecord
		for _, r := range base {
			if !soft[r.ID] {
				kept = append(kept, r)
			}
		}
		if len(kept) > 0 {
			candidates = kept
		}
	}

	if !useWeights {
		return candidates[p.rng.IntN(len(candidates))].ID, nil
	}
	return candidates[p.weightedIndex(Weights(candidates))].ID, nil
}

// Weights returns 1/sqrt(total_reviews) per record. Records without a
// review total get the mean weight of the others, or 1 when none are known.
func Weights(recs []types.CandidateRecord) []float64 {
	w := make([]float64, len(recs))
	sum, known := 0.0, 0
	for i, r := range recs {
		if r.TotalReviews > 0 {
			w[i] = 1 / math.Sqrt(float64(r.TotalReviews))
			sum += w[i]
			known++
		}
	}
	fill := 1.0
	if known > 0 {
		fill = sum / float64(known)
	}
	for i, r := range recs {
		if r.TotalReviews <= 0 {
			w[i] = fill
		}
	}
	return w
}

func (p *Picker) weightedIndex(weights []float64) int {
	total := 0.0
	for _, w := range weights {
		total += w
	}
	x := p.rng.Float64() * total
	for i, w := range weights {
		if x < w {
			return i
		}
		x -= w
	}
	return len(weights) - 1
}
