// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package lock serializes harvest runs that share a data directory. The
// request budget is per process, so two concurrent harvests would double
// the load on the catalog API.
package lock

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// File is the lock file name inside the data directory.
const File = "harvest.lock"

// ErrLocked is returned when another live run holds the lock.
var ErrLocked = errors.New("another harvest is running")

// Lock is a held lock file.
type Lock struct {
	Path  string
	RunID string
}

type holder struct {
	PID   int       `json:"pid"`
	RunID string    `json:"run_id"`
	Since time.Time `json:"since"`
}

// Acquire creates the lock file exclusively. A lock file older than ttl is
// considered abandoned and replaced. The returned lock carries a fresh run
// id.
func Acquire(path string, ttl time.Duration) (*Lock, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating lock directory: %w", err)
	}
	runID := uuid.NewString()

	for attempt := 0; attempt < 3; attempt++ {
		f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			h := holder{PID: os.Getpid(), RunID: runID, Since: time.Now().UTC()}
			encErr := json.NewEncoder(f).Encode(h)
			closeErr := f.Close()
			if err := errors.Join(encErr, closeErr); err != nil {
				os.Remove(path)
				return nil, fmt.Errorf("writing lock: %w", err)
			}
			return &Lock{Path: path, RunID: runID}, nil
		}
		if !errors.Is(err, fs.ErrExist) {
			return nil, fmt.Errorf("creating lock: %w", err)
		}

		info, err := os.Stat(path)
		if err != nil {
			continue
		}
		if ttl > 0 && time.Since(info.ModTime()) >= ttl {
			os.Remove(path)
			continue
		}
		if h, err := readHolder(path); err == nil {
			return nil, fmt.Errorf("%w (pid %d, run %s, since %s)", ErrLocked, h.PID, h.RunID, h.Since.Format(time.RFC3339))
		}
		return nil, ErrLocked
	}
	return nil, ErrLocked
}

// Refresh bumps the lock's modification time so long runs are not
// mistaken for abandoned ones.
func (l *Lock) Refresh() error {
	now := time.Now()
	return os.Chtimes(l.Path, now, now)
}

// Release removes the lock file if this run still owns it.
func (l *Lock) Release() error {
	if l == nil {
		return nil
	}
	h, err := readHolder(l.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err == nil && h.RunID != l.RunID {
		return fmt.Errorf("lock %s now held by run %s", l.Path, h.RunID)
	}
	if err := os.Remove(l.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing lock: %w", err)
	}
	return nil
}

func readHolder(path string) (holder, error) {
	var h holder
	data, err := os.ReadFile(path)
	if err != nil {
		return h, err
	}
	if err := json.Unmarshal(data, &h); err != nil {
		return h, err
	}
	return h, nil
}
