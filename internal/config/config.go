// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package config loads the hidden-gems configuration. Built-in defaults are
// layered under an optional YAML file, then HIDDEN_GEMS_* environment
// variables, then explicit overrides from command-line flags.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/hidden-gems/pkg/types"
)

const (
	// Name is the config file base name searched for in . and
	// ~/.config/hidden-gems/.
	Name = "hidden-gems"

	// EnvPrefix prefixes environment overrides, e.g.
	// HIDDEN_GEMS_FILTER_MIN_REVIEWS=100.
	EnvPrefix = "HIDDEN_GEMS"
)

// Options control where configuration comes from.
type Options struct {
	// Path is an explicit config file. It must exist when set.
	Path string

	// Overrides are applied last, keyed by dotted config key.
	Overrides map[string]any
}

// Loaded is the decoded configuration and the file it came from, if any.
type Loaded struct {
	Config types.Config
	File   string
}

// Load builds the configuration. A missing default config file is not an
// error; a missing explicit Path is.
func Load(opts Options) (Loaded, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	defaults, err := yaml.Marshal(types.DefaultConfig())
	if err != nil {
		return Loaded{}, fmt.Errorf("encoding defaults: %w", err)
	}
	if err := v.ReadConfig(bytes.NewReader(defaults)); err != nil {
		return Loaded{}, fmt.Errorf("loading defaults: %w", err)
	}

	if opts.Path != "" {
		v.SetConfigFile(opts.Path)
	} else {
		v.SetConfigName(Name)
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".config", Name))
		}
	}
	if err := v.MergeInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if opts.Path != "" || !errors.As(err, &notFound) {
			return Loaded{}, fmt.Errorf("reading config: %w", err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Keys absent from the defaults are invisible to AutomaticEnv.
	if err := v.BindEnv("inference.api_key"); err != nil {
		return Loaded{}, err
	}

	for k, val := range opts.Overrides {
		v.Set(k, val)
	}

	var cfg types.Config
	err = v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "yaml"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	})
	if err != nil {
		return Loaded{}, fmt.Errorf("decoding config: %w", err)
	}

	if cfg.Cache.Dir == "" {
		cfg.Cache.Dir = filepath.Join(cfg.DataDir, "cache")
	}
	if err := Validate(cfg); err != nil {
		return Loaded{}, err
	}
	return Loaded{Config: cfg, File: v.ConfigFileUsed()}, nil
}

// Validate reports every inconsistent setting at once.
func Validate(cfg types.Config) error {
	var errs []error
	f := cfg.Filter
	if f.MinReviews < 0 || f.MaxReviews < f.MinReviews {
		errs = append(errs, fmt.Errorf("filter: review bounds [%d, %d] are invalid", f.MinReviews, f.MaxReviews))
	}
	if f.MinPositiveRatio < 0 || f.MinPositiveRatio > 1 {
		errs = append(errs, fmt.Errorf("filter: min_positive_ratio %v outside [0, 1]", f.MinPositiveRatio))
	}
	s := cfg.Score
	for name, w := range map[string]float64{
		"positivity_weight": s.PositivityWeight,
		"obscurity_weight":  s.ObscurityWeight,
		"uniqueness_weight": s.UniquenessWeight,
		"value_weight":      s.ValueWeight,
	} {
		if w < 0 {
			errs = append(errs, fmt.Errorf("score: %s must not be negative", name))
		}
	}
	if s.PositivityWeight+s.ObscurityWeight+s.UniquenessWeight+s.ValueWeight > 1.0000001 {
		errs = append(errs, errors.New("score: weights sum to more than 1"))
	}
	if cfg.HTTP.RequestsPerMinute < 0 {
		errs = append(errs, errors.New("http: requests_per_minute must not be negative"))
	}
	if cfg.Harvest.MaxProbe < 0 || cfg.Harvest.SampleCap < 0 {
		errs = append(errs, errors.New("harvest: max_probe and sample_cap must not be negative"))
	}
	switch cfg.Inference.Provider {
	case types.ProviderNone, types.ProviderAnthropic, "":
	default:
		errs = append(errs, fmt.Errorf("inference: unknown provider %q", cfg.Inference.Provider))
	}
	return errors.Join(errs...)
}
