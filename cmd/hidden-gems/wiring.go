package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/pdiddy/hidden-gems/internal/cache"
	"github.com/pdiddy/hidden-gems/internal/catalog"
	"github.com/pdiddy/hidden-gems/internal/history"
	"github.com/pdiddy/hidden-gems/internal/httputil"
	"github.com/pdiddy/hidden-gems/internal/inference"
	"github.com/pdiddy/hidden-gems/internal/ledger"
	"github.com/pdiddy/hidden-gems/internal/lock"
	"github.com/pdiddy/hidden-gems/internal/pool"
	"github.com/pdiddy/hidden-gems/internal/secrets"
	"github.com/pdiddy/hidden-gems/pkg/types"
)

// paths locates every file kept under the data directory.
type paths struct {
	Data    string
	Ledger  string
	Lock    string
	History string
}

func dataPaths(c types.Config) paths {
	return paths{
		Data:    c.DataDir,
		Ledger:  filepath.Join(c.DataDir, ledger.File),
		Lock:    filepath.Join(c.DataDir, lock.File),
		History: filepath.Join(c.DataDir, history.File),
	}
}

func ensureDataDir(c types.Config) error {
	if err := os.MkdirAll(c.DataDir, 0o755); err != nil {
		return fmt.Errorf("creating data directory: %w", err)
	}
	return nil
}

func newCache(c types.Config) *cache.Cache {
	return cache.FromConfig(c.Cache)
}

// newSteam builds the rate-gated, cached catalog client.
func newSteam(c types.Config, log io.Writer) *catalog.Steam {
	return catalog.New(httputil.NewClient(c.HTTP), newCache(c), c.Catalog, log)
}

func newStore(c types.Config, log io.Writer) *pool.Store {
	s := pool.Open(c.DataDir)
	s.Log = log
	return s
}

// newSummarizer returns the configured prose backend, or nil with a warning
// when it cannot be built. Prose is best-effort.
func newSummarizer(c types.Config, log io.Writer) inference.Summarizer {
	key := loadedSecrets.Get(secrets.AnthropicAPIKey, c.Inference.APIKey)
	s, err := inference.FromConfig(c.Inference, key)
	if err != nil {
		fmt.Fprintf(log, "warning: prose generation disabled: %v\n", err)
		return nil
	}
	return s
}
