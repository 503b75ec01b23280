// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package catalog reads the Steam catalog through the freshness cache.
// Every network call goes through a rate-gated fetcher; responses are cached
// per resource kind and served from disk while fresh.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strconv"
	"strings"

	"github.com/pdiddy/hidden-gems/internal/cache"
	"github.com/pdiddy/hidden-gems/pkg/types"
)

// Steam endpoints. Declared as vars so tests can substitute an httptest
// server.
var (
	appListURL     = "https://api.steampowered.com/ISteamApps/GetAppList/v2/"
	appDetailsURL  = "https://store.steampowered.com/api/appdetails"
	appReviewsBase = "https://store.steampowered.com/appreviews/"
)

var (
	// ErrNotFound is returned when Steam reports no detail for an app id.
	ErrNotFound = errors.New("app not found")

	// ErrOffline is returned in offline mode when the cache has no entry.
	ErrOffline = errors.New("not cached (offline mode)")

	// ErrIndexUnavailable means the catalog index could neither be fetched
	// nor recovered from a stale cached copy.
	ErrIndexUnavailable = errors.New("catalog index unavailable")
)

const indexKey = "all"

// Fetcher issues a GET request and decodes the JSON response into out.
// *httputil.Client satisfies it.
type Fetcher interface {
	GetJSON(ctx context.Context, rawURL string, params url.Values, out any) error
}

// Steam is the catalog client.
type Steam struct {
	HTTP  Fetcher
	Cache *cache.Cache

	// Offline serves from the cache only.
	Offline bool

	// ReviewLanguage filters the review aggregate; SnippetLanguage filters
	// review snippets.
	ReviewLanguage  string
	SnippetLanguage string

	// Log receives cache warnings. Nil discards them.
	Log io.Writer
}

// New builds a Steam client from configuration.
func New(f Fetcher, c *cache.Cache, cfg types.CatalogConfig, log io.Writer) *Steam {
	return &Steam{
		HTTP:            f,
		Cache:           c,
		Offline:         cfg.Offline,
		ReviewLanguage:  cfg.ReviewLanguage,
		SnippetLanguage: cfg.SnippetLanguage,
		Log:             log,
	}
}

type appListResponse struct {
	AppList struct {
		Apps []types.CatalogEntry `json:"apps"`
	} `json:"applist"`
}

// Index returns the full catalog. A fresh cached copy is used when
// available; otherwise the list is fetched. If the fetch fails, a stale
// cached copy is returned instead. With neither, the error wraps
// ErrIndexUnavailable.
func (s *Steam) Index(ctx context.Context) ([]types.CatalogEntry, error) {
	var entries []types.CatalogEntry
	if ok := s.cached(cache.KindIndex, indexKey, &entries); ok {
		return entries, nil
	}

	var fetchErr error
	if s.Offline {
		fetchErr = ErrOffline
	} else {
		var resp appListResponse
		fetchErr = s.HTTP.GetJSON(ctx, appListURL, nil, &resp)
		if fetchErr == nil {
			entries = cleanIndex(resp.AppList.Apps)
			if len(entries) == 0 {
				fetchErr = errors.New("empty app list")
			}
		}
	}

	if fetchErr == nil {
		if err := s.Cache.Put(cache.KindIndex, indexKey, entries); err != nil {
			s.logf("warning: caching app list: %v\n", err)
		}
		return entries, nil
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	var stale []types.CatalogEntry
	if ok, _ := s.Cache.Peek(cache.KindIndex, indexKey, &stale); ok && len(stale) > 0 {
		s.logf("warning: app list refresh failed, using stale copy: %v\n", fetchErr)
		return stale, nil
	}
	return nil, fmt.Errorf("%w: %v", ErrIndexUnavailable, fetchErr)
}

// cleanIndex drops entries without an id or name.
func cleanIndex(apps []types.CatalogEntry) []types.CatalogEntry {
	out := make([]types.CatalogEntry, 0, len(apps))
	for _, a := range apps {
		if a.ID <= 0 || strings.TrimSpace(a.Name) == "" {
			continue
		}
		out = append(out, a)
	}
	return out
}

type appDetailsEnvelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
}

// Detail returns the appdetails projection for id. Steam's success:false
// maps to ErrNotFound; not-found responses are not cached.
func (s *Steam) Detail(ctx context.Context, id int) (types.ItemDetail, error) {
	key := strconv.Itoa(id)
	var d types.ItemDetail
	if ok := s.cached(cache.KindDetail, key, &d); ok {
		return d, nil
	}
	d = types.ItemDetail{}
	if s.Offline {
		return d, fmt.Errorf("detail %d: %w", id, ErrOffline)
	}

	params := url.Values{"appids": {key}, "l": {"english"}}
	var resp map[string]appDetailsEnvelope
	if err := s.HTTP.GetJSON(ctx, appDetailsURL, params, &resp); err != nil {
		return d, fmt.Errorf("fetching detail %d: %w", id, err)
	}

	env, ok := resp[key]
	if !ok || !env.Success || len(env.Data) == 0 {
		return d, fmt.Errorf("detail %d: %w", id, ErrNotFound)
	}
	if err := json.Unmarshal(env.Data, &d); err != nil {
		return d, fmt.Errorf("decoding detail %d: %w", id, err)
	}
	if d.AppID == 0 {
		d.AppID = id
	}

	if err := s.Cache.Put(cache.KindDetail, key, d); err != nil {
		s.logf("warning: caching detail %d: %v\n", id, err)
	}
	return d, nil
}

type reviewsResponse struct {
	Success      int                   `json:"success"`
	QuerySummary types.ReviewAggregate `json:"query_summary"`
	Reviews      []struct {
		Review string `json:"review"`
	} `json:"reviews"`
}

// Reviews returns the review aggregate for id.
func (s *Steam) Reviews(ctx context.Context, id int) (types.ReviewAggregate, error) {
	key := strconv.Itoa(id)
	var r types.ReviewAggregate
	if ok := s.cached(cache.KindReviews, key, &r); ok {
		return r, nil
	}
	if s.Offline {
		return r, fmt.Errorf("reviews %d: %w", id, ErrOffline)
	}

	lang := s.ReviewLanguage
	if lang == "" {
		lang = "all"
	}
	params := url.Values{
		"json":          {"1"},
		"language":      {lang},
		"purchase_type": {"all"},
		"filter":        {"summary"},
		"num_per_page":  {"0"},
	}
	var resp reviewsResponse
	if err := s.HTTP.GetJSON(ctx, appReviewsBase+key, params, &resp); err != nil {
		return r, fmt.Errorf("fetching reviews %d: %w", id, err)
	}
	if resp.Success != 1 {
		return r, fmt.Errorf("reviews %d: %w", id, ErrNotFound)
	}
	r = resp.QuerySummary
	if r.TotalReviews == 0 && r.TotalPositive+r.TotalNegative > 0 {
		r.TotalReviews = r.TotalPositive + r.TotalNegative
	}

	if err := s.Cache.Put(cache.KindReviews, key, r); err != nil {
		s.logf("warning: caching reviews %d: %v\n", id, err)
	}
	return r, nil
}

// ReviewSnippets returns up to max recent review texts for prose
// generation. Snippets are not cached.
func (s *Steam) ReviewSnippets(ctx context.Context, id, max int) ([]string, error) {
	if s.Offline {
		return nil, ErrOffline
	}
	if max <= 0 {
		max = 20
	}
	lang := s.SnippetLanguage
	if lang == "" {
		lang = "english"
	}
	params := url.Values{
		"json":          {"1"},
		"language":      {lang},
		"purchase_type": {"all"},
		"filter":        {"recent"},
		"num_per_page":  {strconv.Itoa(max)},
	}
	var resp reviewsResponse
	if err := s.HTTP.GetJSON(ctx, appReviewsBase+strconv.Itoa(id), params, &resp); err != nil {
		return nil, fmt.Errorf("fetching review snippets %d: %w", id, err)
	}

	var out []string
	for _, rv := range resp.Reviews {
		text := strings.TrimSpace(rv.Review)
		if text == "" {
			continue
		}
		out = append(out, text)
		if len(out) == max {
			break
		}
	}
	return out, nil
}

// cached reads a fresh entry. Corrupt entries are logged and treated as
// misses.
func (s *Steam) cached(kind cache.Kind, key string, out any) bool {
	ok, err := s.Cache.Get(kind, key, out)
	if err != nil {
		s.logf("warning: %v; refetching\n", err)
		return false
	}
	return ok
}

func (s *Steam) logf(format string, args ...any) {
	if s.Log == nil {
		return
	}
	fmt.Fprintf(s.Log, format, args...)
}
