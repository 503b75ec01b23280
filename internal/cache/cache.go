// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package cache is the on-disk freshness cache for catalog responses.
// Entries live at <dir>/<kind>/<key>.json; an entry's age is its file
// modification time, and each kind has its own time-to-live.
package cache

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pdiddy/hidden-gems/internal/fsutil"
	"github.com/pdiddy/hidden-gems/pkg/types"
)

// Kind names a logical resource. Each kind is a subdirectory of the cache.
type Kind string

const (
	KindIndex   Kind = "applist"
	KindDetail  Kind = "appdetails"
	KindReviews Kind = "reviews"
	KindSummary Kind = "summaries"
)

// Kinds lists every kind in display order.
var Kinds = []Kind{KindIndex, KindDetail, KindReviews, KindSummary}

// CorruptionError reports a cached file that exists but does not decode.
// Callers treat it as a miss and re-fetch.
type CorruptionError struct {
	Path string
	Err  error
}

func (e *CorruptionError) Error() string {
	return fmt.Sprintf("corrupt cache entry %s: %v", e.Path, e.Err)
}

func (e *CorruptionError) Unwrap() error { return e.Err }

// Cache is a directory of JSON entries grouped by kind.
type Cache struct {
	dir  string
	ttls map[Kind]time.Duration
	now  func() time.Time
}

// New returns a cache rooted at dir. A kind without a TTL, or with a TTL of
// zero or less, never expires.
func New(dir string, ttls map[Kind]time.Duration) *Cache {
	m := make(map[Kind]time.Duration, len(ttls))
	for k, v := range ttls {
		m[k] = v
	}
	return &Cache{dir: dir, ttls: m, now: time.Now}
}

// FromConfig builds a cache from the cache section of the configuration.
func FromConfig(cfg types.CacheConfig) *Cache {
	return New(cfg.Dir, map[Kind]time.Duration{
		KindIndex:   cfg.IndexTTL,
		KindDetail:  cfg.DetailTTL,
		KindReviews: cfg.ReviewTTL,
		KindSummary: cfg.SummaryTTL,
	})
}

// Dir returns the cache root.
func (c *Cache) Dir() string { return c.dir }

// TTL returns the time-to-live configured for kind.
func (c *Cache) TTL(kind Kind) time.Duration { return c.ttls[kind] }

// Path returns the file backing (kind, key).
func (c *Cache) Path(kind Kind, key string) string {
	return filepath.Join(c.dir, string(kind), url.PathEscape(key)+".json")
}

// Get decodes a fresh entry into out. It reports false when the entry is
// missing or older than the kind's TTL. A decode failure returns false and
// a *CorruptionError.
func (c *Cache) Get(kind Kind, key string, out any) (bool, error) {
	path := c.Path(kind, key)
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat %s: %w", path, err)
	}
	if c.expired(kind, info.ModTime()) {
		return false, nil
	}
	return c.read(path, out)
}

// Peek decodes an entry regardless of its age. Used for stale fallbacks
// when a refresh fails.
func (c *Cache) Peek(kind Kind, key string, out any) (bool, error) {
	return c.read(c.Path(kind, key), out)
}

// Age reports how old the entry is. ok is false when it does not exist.
func (c *Cache) Age(kind Kind, key string) (age time.Duration, ok bool) {
	info, err := os.Stat(c.Path(kind, key))
	if err != nil {
		return 0, false
	}
	return c.now().Sub(info.ModTime()), true
}

// Put encodes value and atomically replaces the entry. The entry's
// modification time is set from the cache clock.
func (c *Cache) Put(kind Kind, key string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encoding %s/%s: %w", kind, key, err)
	}
	path := c.Path(kind, key)
	if err := fsutil.WriteFileAtomic(path, data, 0o644); err != nil {
		return err
	}
	now := c.now()
	if err := os.Chtimes(path, now, now); err != nil {
		return fmt.Errorf("touching %s: %w", path, err)
	}
	return nil
}

// Prune deletes expired entries of kind and returns how many were removed.
func (c *Cache) Prune(kind Kind) (int, error) {
	dir := filepath.Join(c.dir, string(kind))
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", dir, err)
	}

	removed := 0
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if !c.expired(kind, info.ModTime()) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, e.Name())); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return removed, fmt.Errorf("removing %s: %w", e.Name(), err)
		}
		removed++
	}
	return removed, nil
}

// Count returns the number of entries stored for kind.
func (c *Cache) Count(kind Kind) int {
	entries, err := os.ReadDir(filepath.Join(c.dir, string(kind)))
	if err != nil {
		return 0
	}
	n := 0
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".json") {
			n++
		}
	}
	return n
}

func (c *Cache) expired(kind Kind, modTime time.Time) bool {
	ttl := c.ttls[kind]
	if ttl <= 0 {
		return false
	}
	return c.now().Sub(modTime) > ttl
}

func (c *Cache) read(path string, out any) (bool, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading %s: %w", path, err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, &CorruptionError{Path: path, Err: err}
	}
	return true, nil
}
