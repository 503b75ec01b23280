// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package catalog

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/hidden-gems/internal/cache"
	"github.com/pdiddy/hidden-gems/internal/httputil"
)

func init() {
	httputil.RetryBaseDelay = 1 * time.Millisecond
}

const detailBody = `{"620":{"success":true,"data":{
	"type":"game","name":"Portal 2","steam_appid":620,"required_age":"0",
	"is_free":false,"header_image":"https://cdn/620.jpg",
	"supported_languages":"English<strong>*</strong>, French",
	"genres":[{"id":"1","description":"Action"},{"id":"25","description":"Adventure"}],
	"price_overview":{"currency":"EUR","final":999,"final_formatted":"9,99€"},
	"release_date":{"coming_soon":false,"date":"18 Apr, 2011"},
	"content_descriptors":{"ids":[],"notes":null},
	"publishers":["Valve"],"developers":["Valve"],
	"unknown_field":{"nested":true}}}}`

// steamServer serves the three catalog endpoints and counts requests.
type steamServer struct {
	*httptest.Server
	calls atomic.Int32
}

func newSteamServer(t *testing.T, handler http.HandlerFunc) *steamServer {
	t.Helper()
	s := &steamServer{}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.calls.Add(1)
		handler(w, r)
	}))
	t.Cleanup(s.Close)

	oldList, oldDetails, oldReviews := appListURL, appDetailsURL, appReviewsBase
	appListURL = s.URL + "/applist"
	appDetailsURL = s.URL + "/appdetails"
	appReviewsBase = s.URL + "/appreviews/"
	t.Cleanup(func() {
		appListURL, appDetailsURL, appReviewsBase = oldList, oldDetails, oldReviews
	})
	return s
}

func newTestSteam(t *testing.T, srv *steamServer) (*Steam, *bytes.Buffer) {
	t.Helper()
	c := cache.New(t.TempDir(), map[cache.Kind]time.Duration{
		cache.KindIndex:   time.Hour,
		cache.KindDetail:  time.Hour,
		cache.KindReviews: time.Hour,
	})
	var log bytes.Buffer
	client := &httputil.Client{HTTP: srv.Client(), MaxRetries: 1}
	return &Steam{HTTP: client, Cache: c, Log: &log}, &log
}

func TestDetail_FetchesAndCaches(t *testing.T) {
	srv := newSteamServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/appdetails", r.URL.Path)
		assert.Equal(t, "620", r.URL.Query().Get("appids"))
		w.Write([]byte(detailBody))
	})
	s, _ := newTestSteam(t, srv)

	d, err := s.Detail(context.Background(), 620)
	require.NoError(t, err)
	assert.Equal(t, "Portal 2", d.Name)
	assert.Equal(t, "game", d.Type)
	assert.Equal(t, []string{"Action", "Adventure"}, d.GenreNames())
	assert.Equal(t, "9,99€", d.PriceLabel())
	assert.Equal(t, 0, int(d.RequiredAge))

	// Second call is served from the cache.
	_, err = s.Detail(context.Background(), 620)
	require.NoError(t, err)
	assert.Equal(t, int32(1), srv.calls.Load())
}

func TestDetail_NotFound(t *testing.T) {
	srv := newSteamServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"999":{"success":false}}`))
	})
	s, _ := newTestSteam(t, srv)

	_, err := s.Detail(context.Background(), 999)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 0, s.Cache.Count(cache.KindDetail), "not-found responses are not cached")
}

func TestDetail_FatalStatus(t *testing.T) {
	srv := newSteamServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	})
	s, _ := newTestSteam(t, srv)

	_, err := s.Detail(context.Background(), 1)
	assert.True(t, httputil.IsFatal(err))
}

func TestDetail_CorruptCacheRefetches(t *testing.T) {
	srv := newSteamServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(detailBody))
	})
	s, log := newTestSteam(t, srv)
	require.NoError(t, s.Cache.Put(cache.KindDetail, "620", "placeholder"))

	d, err := s.Detail(context.Background(), 620)
	require.NoError(t, err)
	assert.Equal(t, "Portal 2", d.Name)
	assert.Contains(t, log.String(), "corrupt cache entry")
	assert.Equal(t, int32(1), srv.calls.Load())
}

func TestDetail_Offline(t *testing.T) {
	srv := newSteamServer(t, func(w http.ResponseWriter, _ *http.Request) {
		t.Error("offline mode must not hit the network")
	})
	s, _ := newTestSteam(t, srv)
	s.Offline = true

	_, err := s.Detail(context.Background(), 620)
	assert.ErrorIs(t, err, ErrOffline)
}

func TestReviews(t *testing.T) {
	srv := newSteamServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/appreviews/620", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "summary", q.Get("filter"))
		assert.Equal(t, "all", q.Get("language"))
		w.Write([]byte(`{"success":1,"query_summary":{"num_reviews":0,"review_score":9,
			"review_score_desc":"Overwhelmingly Positive","total_positive":190,
			"total_negative":10,"total_reviews":200}}`))
	})
	s, _ := newTestSteam(t, srv)

	r, err := s.Reviews(context.Background(), 620)
	require.NoError(t, err)
	assert.Equal(t, 200, r.TotalReviews)
	assert.Equal(t, 190, r.TotalPositive)
	assert.Equal(t, "Overwhelmingly Positive", r.ReviewScoreDesc)
	assert.InDelta(t, 0.95, r.PositiveRatio(), 1e-9)

	_, err = s.Reviews(context.Background(), 620)
	require.NoError(t, err)
	assert.Equal(t, int32(1), srv.calls.Load())
}

func TestReviews_Unsuccessful(t *testing.T) {
	srv := newSteamServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"success":2}`))
	})
	s, _ := newTestSteam(t, srv)

	_, err := s.Reviews(context.Background(), 5)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestReviewSnippets(t *testing.T) {
	srv := newSteamServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "recent", r.URL.Query().Get("filter"))
		assert.Equal(t, "2", r.URL.Query().Get("num_per_page"))
		w.Write([]byte(`{"success":1,"reviews":[{"review":"  Great puzzles. "},{"review":""},{"review":"Too short"},{"review":"extra"}]}`))
	})
	s, _ := newTestSteam(t, srv)

	got, err := s.ReviewSnippets(context.Background(), 620, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"Great puzzles.", "Too short"}, got)
}

func TestIndex_FetchesAndCleans(t *testing.T) {
	srv := newSteamServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"applist":{"apps":[{"appid":10,"name":"Counter-Strike"},{"appid":0,"name":"bad"},{"appid":20,"name":" "},{"appid":30,"name":"Day of Defeat"}]}}`))
	})
	s, _ := newTestSteam(t, srv)

	entries, err := s.Index(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, 10, entries[0].ID)
	assert.Equal(t, "Day of Defeat", entries[1].Name)

	_, err = s.Index(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), srv.calls.Load())
}

func TestIndex_StaleFallback(t *testing.T) {
	srv := newSteamServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	s, log := newTestSteam(t, srv)

	// Seed an expired cached copy by giving the index kind a tiny TTL.
	s.Cache = cache.New(s.Cache.Dir(), map[cache.Kind]time.Duration{cache.KindIndex: time.Nanosecond})
	require.NoError(t, s.Cache.Put(cache.KindIndex, indexKey, []map[string]any{{"appid": 7, "name": "Old"}}))
	time.Sleep(time.Millisecond)

	entries, err := s.Index(context.Background())
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, 7, entries[0].ID)
	assert.True(t, strings.Contains(log.String(), "stale copy"))
}

func TestIndex_Unavailable(t *testing.T) {
	srv := newSteamServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	s, _ := newTestSteam(t, srv)

	_, err := s.Index(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrIndexUnavailable))
	assert.Equal(t, 0, s.Cache.Count(cache.KindIndex))
}

func TestIndex_OfflineWithoutCache(t *testing.T) {
	srv := newSteamServer(t, func(w http.ResponseWriter, _ *http.Request) {
		t.Error("offline mode must not hit the network")
	})
	s, _ := newTestSteam(t, srv)
	s.Offline = true

	_, err := s.Index(context.Background())
	assert.ErrorIs(t, err, ErrIndexUnavailable)
}
