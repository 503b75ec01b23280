// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/hidden-gems/pkg/types"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "hidden-gems.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// chdir moves into an empty directory so no stray config file is found.
func chdir(t *testing.T) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { os.Chdir(wd) })
	t.Setenv("HOME", t.TempDir())
}

func TestLoad_Defaults(t *testing.T) {
	chdir(t)

	got, err := Load(Options{})
	require.NoError(t, err)
	assert.Empty(t, got.File)

	want := types.DefaultConfig()
	want.Cache.Dir = filepath.Join(want.DataDir, "cache")
	assert.Equal(t, want, got.Config)
}

func TestLoad_FileMergesOverDefaults(t *testing.T) {
	path := writeConfig(t, `
data_dir: /srv/gems
filter:
  min_reviews: 100
  blocked_keywords: [gore]
harvest:
  pool_ttl: 72h
cache:
  dir: /tmp/gem-cache
`)
	got, err := Load(Options{Path: path})
	require.NoError(t, err)
	assert.Equal(t, path, got.File)

	cfg := got.Config
	assert.Equal(t, "/srv/gems", cfg.DataDir)
	assert.Equal(t, 100, cfg.Filter.MinReviews)
	assert.Equal(t, 2000, cfg.Filter.MaxReviews)
	assert.Equal(t, []string{"gore"}, cfg.Filter.BlockedKeywords)
	assert.Equal(t, 72*time.Hour, cfg.Harvest.PoolTTL)
	assert.Equal(t, 180, cfg.Harvest.MaxProbe)
	assert.Equal(t, "/tmp/gem-cache", cfg.Cache.Dir)
}

func TestLoad_EnvAndOverrides(t *testing.T) {
	chdir(t)
	t.Setenv("HIDDEN_GEMS_FILTER_MIN_REVIEWS", "75")
	t.Setenv("HIDDEN_GEMS_HTTP_REQUESTS_PER_MINUTE", "30")
	t.Setenv("HIDDEN_GEMS_CACHE_DETAIL_TTL", "48h")
	t.Setenv("HIDDEN_GEMS_INFERENCE_API_KEY", "sk-test")
	t.Setenv("HIDDEN_GEMS_HARVEST_MAX_PROBE", "10")

	got, err := Load(Options{Overrides: map[string]any{"harvest.max_probe": 25, "data_dir": "/data"}})
	require.NoError(t, err)

	cfg := got.Config
	assert.Equal(t, 75, cfg.Filter.MinReviews)
	assert.Equal(t, 30, cfg.HTTP.RequestsPerMinute)
	assert.Equal(t, 48*time.Hour, cfg.Cache.DetailTTL)
	assert.Equal(t, "sk-test", cfg.Inference.APIKey)
	assert.Equal(t, 25, cfg.Harvest.MaxProbe)
	assert.Equal(t, filepath.Join("/data", "cache"), cfg.Cache.Dir)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	_, err := Load(Options{Path: filepath.Join(t.TempDir(), "absent.yaml")})
	assert.Error(t, err)
}

func TestLoad_InvalidValues(t *testing.T) {
	path := writeConfig(t, `
filter:
  min_reviews: 500
  max_reviews: 100
`)
	_, err := Load(Options{Path: path})
	assert.ErrorContains(t, err, "review bounds")
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*types.Config)
		wantErr string
	}{
		{"defaults", func(*types.Config) {}, ""},
		{"ratio above one", func(c *types.Config) { c.Filter.MinPositiveRatio = 1.5 }, "min_positive_ratio"},
		{"negative weight", func(c *types.Config) { c.Score.ValueWeight = -0.1 }, "value_weight"},
		{"weights over one", func(c *types.Config) { c.Score.PositivityWeight = 0.9 }, "sum to more than 1"},
		{"negative budget", func(c *types.Config) { c.HTTP.RequestsPerMinute = -1 }, "requests_per_minute"},
		{"unknown provider", func(c *types.Config) { c.Inference.Provider = "oracle" }, "unknown provider"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := types.DefaultConfig()
			tt.mutate(&cfg)
			err := Validate(cfg)
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() = nil, want error containing %q", tt.wantErr)
			}
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
