// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package filter

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/hidden-gems/internal/catalog"
	"github.com/pdiddy/hidden-gems/internal/httputil"
	"github.com/pdiddy/hidden-gems/pkg/types"
)

// fakeSource serves canned details and reviews and counts review fetches.
type fakeSource struct {
	details     map[int]types.ItemDetail
	reviews     map[int]types.ReviewAggregate
	detailErr   map[int]error
	reviewErr   map[int]error
	reviewCalls int
}

func (f *fakeSource) Detail(_ context.Context, id int) (types.ItemDetail, error) {
	if err := f.detailErr[id]; err != nil {
		return types.ItemDetail{}, err
	}
	d, ok := f.details[id]
	if !ok {
		return types.ItemDetail{}, fmt.Errorf("detail %d: %w", id, catalog.ErrNotFound)
	}
	return d, nil
}

func (f *fakeSource) Reviews(_ context.Context, id int) (types.ReviewAggregate, error) {
	f.reviewCalls++
	if err := f.reviewErr[id]; err != nil {
		return types.ReviewAggregate{}, err
	}
	return f.reviews[id], nil
}

func goodDetail(name string) types.ItemDetail {
	return types.ItemDetail{
		Type:               "game",
		Name:               name,
		HeaderImage:        "https://cdn/header.jpg",
		SupportedLanguages: "English, German",
		Genres:             []types.Genre{{ID: "23", Description: "Indie"}},
		ReleaseDate:        types.ReleaseDate{Date: "1 Jan, 2020"},
		Publishers:         []string{"Tiny Studio"},
	}
}

func goodReviews(total int) types.ReviewAggregate {
	pos := total * 9 / 10
	return types.ReviewAggregate{
		TotalReviews:    total,
		TotalPositive:   pos,
		TotalNegative:   total - pos,
		ReviewScoreDesc: "Very Positive",
	}
}

func testConfig() types.FilterConfig {
	return types.DefaultConfig().Filter
}

func TestEvaluate_Passes(t *testing.T) {
	src := &fakeSource{
		details: map[int]types.ItemDetail{1: goodDetail("Quiet Lantern")},
		reviews: map[int]types.ReviewAggregate{1: goodReviews(300)},
	}
	p := New(src, nil, testConfig())

	rec, v := p.Evaluate(context.Background(), 1)
	require.True(t, v.Passed, v.String())
	assert.Equal(t, 1, rec.ID)
	assert.Equal(t, "Quiet Lantern", rec.Name)
	assert.Equal(t, []string{"Indie"}, rec.Genres)
	assert.Equal(t, 300, rec.TotalReviews)
	assert.Equal(t, 270, rec.PositiveReviews)
	assert.Equal(t, "Tiny Studio", rec.Publisher)
	assert.Equal(t, "Price varies", rec.Price)
}

func TestEvaluate_ShortCircuitsBeforeReviews(t *testing.T) {
	nonViable := goodDetail("Quiet Lantern Soundtrack")
	unsafe := goodDetail("Night Club")
	unsafe.RequiredAge = 18
	dlc := goodDetail("Expansion")
	dlc.Type = "dlc"

	src := &fakeSource{
		details: map[int]types.ItemDetail{1: nonViable, 2: unsafe, 3: dlc},
	}
	p := New(src, nil, testConfig())

	for _, id := range []int{1, 2, 3} {
		_, v := p.Evaluate(context.Background(), id)
		assert.False(t, v.Passed)
	}
	assert.Zero(t, src.reviewCalls, "review aggregates must not be fetched for rejected items")
}

func TestEvaluate_NotFound(t *testing.T) {
	src := &fakeSource{}
	p := New(src, nil, testConfig())

	_, v := p.Evaluate(context.Background(), 42)
	assert.False(t, v.Passed)
	assert.True(t, v.NotFound())
	assert.Equal(t, StageViability, v.Stage)
	assert.Equal(t, "not found", v.Reason)
}

func TestEvaluate_ReviewFetchErrorIsNonMatch(t *testing.T) {
	src := &fakeSource{
		details:   map[int]types.ItemDetail{1: goodDetail("Quiet Lantern")},
		reviewErr: map[int]error{1: &httputil.TransientError{URL: "x", Status: 503}},
	}
	p := New(src, nil, testConfig())

	_, v := p.Evaluate(context.Background(), 1)
	assert.False(t, v.Passed)
	assert.Equal(t, StagePopularity, v.Stage)
	assert.True(t, httputil.IsTransient(v.Err))
	assert.Equal(t, "fetch failed", v.Reason)
}

func TestEvaluate_SafetyDisabled(t *testing.T) {
	d := goodDetail("Quiet Lantern")
	d.RequiredAge = 18
	src := &fakeSource{
		details: map[int]types.ItemDetail{1: d},
		reviews: map[int]types.ReviewAggregate{1: goodReviews(100)},
	}
	cfg := testConfig()
	cfg.BlockUnsafe = false

	_, v := New(src, nil, cfg).Evaluate(context.Background(), 1)
	assert.True(t, v.Passed)
}

type rejectAll struct{}

func (rejectAll) IsUnsafe(types.ItemDetail) bool { return true }

func TestEvaluate_CustomClassifier(t *testing.T) {
	src := &fakeSource{details: map[int]types.ItemDetail{1: goodDetail("Quiet Lantern")}}

	_, v := New(src, rejectAll{}, testConfig()).Evaluate(context.Background(), 1)
	assert.False(t, v.Passed)
	assert.Equal(t, StageSafety, v.Stage)
	assert.Equal(t, "unsafe content", v.Reason)
	assert.Zero(t, src.reviewCalls)
}

func TestViability(t *testing.T) {
	cfg := testConfig()
	tests := []struct {
		name   string
		mutate func(d *types.ItemDetail)
		want   string
	}{
		{"viable", func(*types.ItemDetail) {}, ""},
		{"dlc type", func(d *types.ItemDetail) { d.Type = "dlc" }, `type "dlc"`},
		{"missing type", func(d *types.ItemDetail) { d.Type = "" }, "missing type"},
		{"coming soon", func(d *types.ItemDetail) { d.ReleaseDate.ComingSoon = true }, "coming soon"},
		{"blank name", func(d *types.ItemDetail) { d.Name = "  " }, "missing name"},
		{"no header", func(d *types.ItemDetail) { d.HeaderImage = "" }, "missing header image"},
		{"no english", func(d *types.ItemDetail) { d.SupportedLanguages = "Japanese" }, "no English support"},
		{"languages unset", func(d *types.ItemDetail) { d.SupportedLanguages = "" }, ""},
		{"demo", func(d *types.ItemDetail) { d.Name = "Lantern Demo" }, `name contains "demo"`},
		{"ost", func(d *types.ItemDetail) { d.Name = "Lantern - OST" }, `name contains "ost"`},
		{"ost inside word", func(d *types.ItemDetail) { d.Name = "Ghost Harbor" }, ""},
		{"dedicated server", func(d *types.ItemDetail) { d.Name = "Lantern Dedicated Server" }, `name contains "server"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := goodDetail("Quiet Lantern")
			tt.mutate(&d)
			if got := Viability(d, cfg); got != tt.want {
				t.Errorf("Viability() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestPopularity(t *testing.T) {
	cfg := testConfig() // 50..2000, 0.85
	tests := []struct {
		name string
		r    types.ReviewAggregate
		pass bool
	}{
		{"lower bound inclusive", types.ReviewAggregate{TotalReviews: 50, TotalPositive: 45}, true},
		{"upper bound inclusive", types.ReviewAggregate{TotalReviews: 2000, TotalPositive: 1800}, true},
		{"too few", types.ReviewAggregate{TotalReviews: 49, TotalPositive: 49}, false},
		{"too many", types.ReviewAggregate{TotalReviews: 2001, TotalPositive: 2001}, false},
		{"ratio at floor", types.ReviewAggregate{TotalReviews: 100, TotalPositive: 85}, true},
		{"ratio below floor", types.ReviewAggregate{TotalReviews: 100, TotalPositive: 84}, false},
		{"zero", types.ReviewAggregate{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Popularity(tt.r, cfg)
			if (got == "") != tt.pass {
				t.Errorf("Popularity() = %q, want pass=%v", got, tt.pass)
			}
		})
	}
}

func TestKeywordClassifier(t *testing.T) {
	k := NewKeywordClassifier(testConfig())
	tests := []struct {
		name   string
		mutate func(d *types.ItemDetail)
		unsafe bool
	}{
		{"clean", func(*types.ItemDetail) {}, false},
		{"adult age", func(d *types.ItemDetail) { d.RequiredAge = 18 }, true},
		{"teen age", func(d *types.ItemDetail) { d.RequiredAge = 16 }, false},
		{"descriptor 3", func(d *types.ItemDetail) { d.ContentDescriptors.IDs = []int{2, 3} }, true},
		{"descriptor 2", func(d *types.ItemDetail) { d.ContentDescriptors.IDs = []int{2} }, true},
		{"descriptor 5 only", func(d *types.ItemDetail) { d.ContentDescriptors.IDs = []int{5} }, false},
		{"keyword in notes", func(d *types.ItemDetail) { d.ContentDescriptors.Notes = "Contains NUDITY" }, true},
		{"keyword in name", func(d *types.ItemDetail) { d.Name = "Hentai Puzzle" }, true},
		{"keyword in adult content description", func(d *types.ItemDetail) { d.AdultContent = "Frequent nudity and sexual content" }, true},
		{"keyword as substring", func(d *types.ItemDetail) { d.Name = "Airstrip One" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := goodDetail("Quiet Lantern")
			tt.mutate(&d)
			assert.Equal(t, tt.unsafe, k.IsUnsafe(d), k.Explain(d))
		})
	}
}

func TestKeywordClassifier_AppDetailsPayload(t *testing.T) {
	payload := `{
		"type": "game",
		"name": "Moonlit Cafe",
		"required_age": 0,
		"content_descriptors": {"ids": [], "notes": null},
		"adult_content_description": "Sexual content shown between chapters"
	}`
	var d types.ItemDetail
	require.NoError(t, json.Unmarshal([]byte(payload), &d))
	require.Equal(t, "Sexual content shown between chapters", d.AdultContent)

	k := NewKeywordClassifier(testConfig())
	assert.True(t, k.IsUnsafe(d))
	assert.Equal(t, `keyword "sex"`, k.Explain(d))
}

func TestContainsKeyword(t *testing.T) {
	assert.Equal(t, "", ContainsKeyword("anything", nil))
	assert.Equal(t, "NSFW", ContainsKeyword("an nsfw title", []string{"", "NSFW"}))
	assert.Equal(t, "", ContainsKeyword("tidy title", []string{"adult"}))
}

func TestVerdictString(t *testing.T) {
	assert.Equal(t, "passed", Verdict{Passed: true}.String())
	v := Verdict{Stage: StageSafety, Reason: "keyword \"sex\""}
	assert.Equal(t, `safety: keyword "sex"`, v.String())
	assert.False(t, Verdict{Err: errors.New("x")}.NotFound())
}
