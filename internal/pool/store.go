// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pool persists the candidate store: a deduplicated list of
// records that passed the filter pipeline, plus advisory refresh metadata.
// Both files are YAML and replaced atomically on every write.
package pool

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pdiddy/hidden-gems/internal/fsutil"
	"github.com/pdiddy/hidden-gems/pkg/types"
)

// File names inside the data directory.
const (
	PoolFile = "candidate_pool.yaml"
	MetaFile = "pool_meta.yaml"
)

// poolFile is the canonical on-disk layout.
type poolFile struct {
	Candidates []types.CandidateRecord `yaml:"candidates"`
}

// Store is the candidate store. A Store serializes its own writes;
// separate processes rely on atomic file replacement only.
type Store struct {
	// Log receives warnings about unreadable files. Nil discards them.
	Log io.Writer

	path     string
	metaPath string
	now      func() time.Time
	mu       sync.Mutex
}

// Open returns the store rooted at dir. Files are created on first write.
func Open(dir string) *Store {
	return &Store{
		path:     filepath.Join(dir, PoolFile),
		metaPath: filepath.Join(dir, MetaFile),
		now:      time.Now,
	}
}

// Path returns the pool file path.
func (s *Store) Path() string { return s.path }

// Shape reads the pool file as whatever layout it was written in. A
// missing, empty or unparseable file is an empty record list; the next
// write replaces an unparseable file.
func (s *Store) Shape() (Shape, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return Shape{Kind: RecordListShape}, nil
	}
	if err != nil {
		return Shape{}, fmt.Errorf("reading pool: %w", err)
	}
	sh, err := DecodeShape(data)
	if err != nil {
		s.warnf("warning: treating unreadable %s as empty: %v\n", filepath.Base(s.path), err)
		return Shape{Kind: RecordListShape}, nil
	}
	return sh, nil
}

// List returns every candidate in insertion order.
func (s *Store) List() ([]types.CandidateRecord, error) {
	sh, err := s.Shape()
	if err != nil {
		return nil, err
	}
	return sh.Normalize(), nil
}

// Has reports whether id is in the store.
func (s *Store) Has(id int) (bool, error) {
	recs, err := s.List()
	if err != nil {
		return false, err
	}
	for _, r := range recs {
		if r.ID == id {
			return true, nil
		}
	}
	return false, nil
}

// AppendIfAbsent adds rec unless its id is already stored. added is false
// for a no-op; nothing is written in that case.
func (s *Store) AppendIfAbsent(rec types.CandidateRecord) (added bool, err error) {
	n, err := s.AppendAll([]types.CandidateRecord{rec})
	return n == 1, err
}

// AppendAll adds every record whose id is not yet stored, keeping the
// first of any duplicates in recs, and returns how many were added. The
// store and its metadata are rewritten only when something was added.
func (s *Store) AppendAll(recs []types.CandidateRecord) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.List()
	if err != nil {
		return 0, err
	}
	seen := make(map[int]bool, len(current)+len(recs))
	for _, r := range current {
		seen[r.ID] = true
	}

	added := 0
	for _, r := range recs {
		if r.ID <= 0 || seen[r.ID] {
			continue
		}
		seen[r.ID] = true
		current = append(current, r)
		added++
	}
	if added == 0 {
		return 0, nil
	}
	if err := s.write(current); err != nil {
		return 0, err
	}
	return added, nil
}

// Rewrite replaces the whole store with recs (deduplicated by id) and
// refreshes the metadata.
func (s *Store) Rewrite(recs []types.CandidateRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(RecordList(recs).Normalize())
}

// Meta reads the pool metadata. A missing or unparseable file yields the
// zero value, which reads as a pool that was never refreshed.
func (s *Store) Meta() (types.PoolMeta, error) {
	var m types.PoolMeta
	if _, err := fsutil.ReadYAML(s.metaPath, &m); err != nil {
		if fsutil.IsDecodeError(err) {
			s.warnf("warning: ignoring unreadable %s: %v\n", filepath.Base(s.metaPath), err)
			return types.PoolMeta{}, nil
		}
		return types.PoolMeta{}, err
	}
	return m, nil
}

func (s *Store) warnf(format string, args ...any) {
	if s.Log != nil {
		fmt.Fprintf(s.Log, format, args...)
	}
}

// Touch rewrites the metadata for the current store without changing it.
// A harvest calls it after every completed refresh so an unproductive run
// still counts as a refresh.
func (s *Store) Touch() (types.PoolMeta, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	recs, err := s.List()
	if err != nil {
		return types.PoolMeta{}, err
	}
	return s.writeMeta(len(recs))
}

func (s *Store) write(recs []types.CandidateRecord) error {
	if recs == nil {
		recs = []types.CandidateRecord{}
	}
	if err := fsutil.WriteYAML(s.path, poolFile{Candidates: recs}); err != nil {
		return fmt.Errorf("writing pool: %w", err)
	}
	if _, err := s.writeMeta(len(recs)); err != nil {
		return err
	}
	return nil
}

// writeMeta never moves last_refresh backwards.
func (s *Store) writeMeta(size int) (types.PoolMeta, error) {
	prev, _ := s.Meta()
	now := s.now().UTC()
	if now.Before(prev.LastRefresh) {
		now = prev.LastRefresh
	}
	m := types.PoolMeta{LastRefresh: now, Size: size}
	if err := fsutil.WriteYAML(s.metaPath, m); err != nil {
		return types.PoolMeta{}, fmt.Errorf("writing pool meta: %w", err)
	}
	return m, nil
}

// Migrate rewrites a pool file of any historical layout (YAML or legacy
// JSON) into the canonical layout of this store, merging with any records
// already present. It returns the layout found and the number of records
// added.
func (s *Store) Migrate(legacyPath string) (ShapeKind, int, error) {
	data, err := os.ReadFile(legacyPath)
	if err != nil {
		return 0, 0, fmt.Errorf("reading %s: %w", legacyPath, err)
	}
	sh, err := DecodeShape(data)
	if err != nil {
		return 0, 0, err
	}
	if filepath.Clean(legacyPath) == filepath.Clean(s.path) {
		return sh.Kind, 0, s.Rewrite(sh.Normalize())
	}
	n, err := s.AppendAll(sh.Normalize())
	return sh.Kind, n, err
}
