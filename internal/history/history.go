// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package history tracks recently picked ids so the picker can avoid
// short-term repeats.
package history

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pdiddy/hidden-gems/internal/fsutil"
)

// File is the history file name inside the data directory.
const File = "seen.yaml"

// LegacyFile is the JSON history earlier versions kept next to File. It is
// read only while File does not exist; the next Save writes File.
const LegacyFile = "seen.json"

// DefaultMax caps the history when no limit is configured.
const DefaultMax = 500

type seenFile struct {
	SeenIDs []int `yaml:"seen_ids"`
	// Legacy key written by earlier versions.
	SeenAppIDs []int `yaml:"seen_appids,omitempty"`
}

// History is a bounded list of picked ids, most recent last. When full,
// the oldest entries are evicted first.
type History struct {
	path string
	max  int
	ids  []int
}

// Load reads the history at path. A missing, empty or unparseable file is
// an empty history; the parse failure is reported to warn.
func Load(path string, max int, warn io.Writer) (*History, error) {
	if max <= 0 {
		max = DefaultMax
	}
	h := &History{path: path, max: max}

	src := source(path)
	var f seenFile
	if _, err := fsutil.ReadYAML(src, &f); err != nil {
		if !fsutil.IsDecodeError(err) {
			return nil, fmt.Errorf("loading history: %w", err)
		}
		if warn != nil {
			fmt.Fprintf(warn, "warning: ignoring unreadable history: %v\n", err)
		}
		return h, nil
	}
	ids := f.SeenIDs
	if len(ids) == 0 {
		ids = f.SeenAppIDs
	}
	for _, id := range ids {
		h.Add(id)
	}
	return h, nil
}

// source returns path, or the legacy file beside it when path is the
// default history file and does not exist yet.
func source(path string) string {
	if filepath.Base(path) != File {
		return path
	}
	if _, err := os.Stat(path); !errors.Is(err, fs.ErrNotExist) {
		return path
	}
	legacy := filepath.Join(filepath.Dir(path), LegacyFile)
	if _, err := os.Stat(legacy); err == nil {
		return legacy
	}
	return path
}

// Add records id as the most recent pick. An id already present moves to
// the end.
func (h *History) Add(id int) {
	if id <= 0 {
		return
	}
	for i, v := range h.ids {
		if v == id {
			h.ids = append(h.ids[:i], h.ids[i+1:]...)
			break
		}
	}
	h.ids = append(h.ids, id)
	if over := len(h.ids) - h.max; over > 0 {
		h.ids = append([]int(nil), h.ids[over:]...)
	}
}

// Recent returns the last n ids, oldest first. n <= 0 returns them all.
func (h *History) Recent(n int) []int {
	if n <= 0 || n > len(h.ids) {
		n = len(h.ids)
	}
	out := make([]int, n)
	copy(out, h.ids[len(h.ids)-n:])
	return out
}

// Exclusion returns the recent ids as a set for the picker.
func (h *History) Exclusion(n int) map[int]bool {
	recent := h.Recent(n)
	set := make(map[int]bool, len(recent))
	for _, id := range recent {
		set[id] = true
	}
	return set
}

// Contains reports whether id is in the history.
func (h *History) Contains(id int) bool {
	for _, v := range h.ids {
		if v == id {
			return true
		}
	}
	return false
}

// Len returns the number of ids held.
func (h *History) Len() int { return len(h.ids) }

// Save writes the history atomically in the current layout.
func (h *History) Save() error {
	ids := h.ids
	if ids == nil {
		ids = []int{}
	}
	return fsutil.WriteYAML(h.path, seenFile{SeenIDs: ids})
}
