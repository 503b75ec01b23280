// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package filter implements the three-stage candidate pipeline: structural
// viability, content safety, and the review-volume/positivity gate. Stages
// run in order and stop at the first failure, so review aggregates are only
// fetched for items that already passed the first two stages.
package filter

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/pdiddy/hidden-gems/internal/catalog"
	"github.com/pdiddy/hidden-gems/pkg/types"
)

// Source provides catalog data for one item.
type Source interface {
	Detail(ctx context.Context, id int) (types.ItemDetail, error)
	Reviews(ctx context.Context, id int) (types.ReviewAggregate, error)
}

// Stage names a pipeline stage.
type Stage string

const (
	StageViability  Stage = "viability"
	StageSafety     Stage = "safety"
	StagePopularity Stage = "popularity"
)

// Verdict is the outcome of evaluating one item. Stage is the last stage
// reached; for a failed item it is the stage that rejected it. Err is set
// when the rejection came from a fetch failure rather than a predicate.
type Verdict struct {
	Passed bool
	Stage  Stage
	Reason string
	Err    error
}

// NotFound reports whether the item was rejected because the catalog has
// no detail for it.
func (v Verdict) NotFound() bool {
	return errors.Is(v.Err, catalog.ErrNotFound)
}

func (v Verdict) String() string {
	if v.Passed {
		return "passed"
	}
	return fmt.Sprintf("%s: %s", v.Stage, v.Reason)
}

// Pipeline evaluates catalog ids against the configured gates.
type Pipeline struct {
	Source     Source
	Classifier Classifier
	Config     types.FilterConfig
}

// New returns a pipeline. When cfg.BlockUnsafe is set and classifier is
// nil, the keyword classifier is used.
func New(src Source, classifier Classifier, cfg types.FilterConfig) *Pipeline {
	if classifier == nil && cfg.BlockUnsafe {
		classifier = NewKeywordClassifier(cfg)
	}
	return &Pipeline{Source: src, Classifier: classifier, Config: cfg}
}

// Evaluate runs the stages for id. A survivor's CandidateRecord is
// returned with a passing verdict. Any error is folded into a failing
// verdict; the caller moves on to the next id.
func (p *Pipeline) Evaluate(ctx context.Context, id int) (types.CandidateRecord, Verdict) {
	d, err := p.Source.Detail(ctx, id)
	if err != nil {
		return types.CandidateRecord{}, Verdict{Stage: StageViability, Reason: reasonFor(err), Err: err}
	}
	if reason := Viability(d, p.Config); reason != "" {
		return types.CandidateRecord{}, Verdict{Stage: StageViability, Reason: reason}
	}

	if p.Classifier != nil && p.Classifier.IsUnsafe(d) {
		reason := "unsafe content"
		if ex, ok := p.Classifier.(Explainer); ok {
			if r := ex.Explain(d); r != "" {
				reason = r
			}
		}
		return types.CandidateRecord{}, Verdict{Stage: StageSafety, Reason: reason}
	}

	r, err := p.Source.Reviews(ctx, id)
	if err != nil {
		return types.CandidateRecord{}, Verdict{Stage: StagePopularity, Reason: reasonFor(err), Err: err}
	}
	if reason := Popularity(r, p.Config); reason != "" {
		return types.CandidateRecord{}, Verdict{Stage: StagePopularity, Reason: reason}
	}

	return types.NewCandidateRecord(id, d, r), Verdict{Passed: true, Stage: StagePopularity}
}

func reasonFor(err error) string {
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		return "not found"
	case errors.Is(err, catalog.ErrOffline):
		return "not cached"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "cancelled"
	}
	return "fetch failed"
}

// Viability returns why d is not a released, purchasable game, or "".
func Viability(d types.ItemDetail, cfg types.FilterConfig) string {
	if !strings.EqualFold(d.Type, "game") {
		if d.Type == "" {
			return "missing type"
		}
		return fmt.Sprintf("type %q", d.Type)
	}
	if d.ReleaseDate.ComingSoon {
		return "coming soon"
	}
	if strings.TrimSpace(d.Name) == "" {
		return "missing name"
	}
	if strings.TrimSpace(d.HeaderImage) == "" {
		return "missing header image"
	}
	if cfg.RequiredLanguage != "" && d.SupportedLanguages != "" &&
		!strings.Contains(strings.ToLower(d.SupportedLanguages), strings.ToLower(cfg.RequiredLanguage)) {
		return fmt.Sprintf("no %s support", cfg.RequiredLanguage)
	}
	if tok := excludedToken(d.Name, cfg.ExcludedNameTokens); tok != "" {
		return fmt.Sprintf("name contains %q", tok)
	}
	return ""
}

// excludedToken matches whole words so "ost" does not match "Ghost".
func excludedToken(name string, tokens []string) string {
	if len(tokens) == 0 {
		return ""
	}
	words := strings.FieldsFunc(strings.ToLower(name), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, tok := range tokens {
		tok = strings.ToLower(strings.TrimSpace(tok))
		if tok == "" {
			continue
		}
		for _, w := range words {
			if w == tok {
				return tok
			}
		}
	}
	return ""
}

// Popularity returns why r falls outside the hidden-gem window, or "".
func Popularity(r types.ReviewAggregate, cfg types.FilterConfig) string {
	total := r.TotalReviews
	if cfg.MinReviews > 0 && total < cfg.MinReviews {
		return fmt.Sprintf("%d reviews below %d", total, cfg.MinReviews)
	}
	if cfg.MaxReviews > 0 && total > cfg.MaxReviews {
		return fmt.Sprintf("%d reviews above %d", total, cfg.MaxReviews)
	}
	if total <= 0 {
		return "no reviews"
	}
	if ratio := r.PositiveRatio(); ratio < cfg.MinPositiveRatio {
		return fmt.Sprintf("positive ratio %.2f below %.2f", ratio, cfg.MinPositiveRatio)
	}
	return ""
}
