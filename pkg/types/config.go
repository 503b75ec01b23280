package types

import "time"

// HTTPConfig holds settings for the rate-gated catalog client.
type HTTPConfig struct {
	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is sent with every catalog request.
	UserAgent string `json:"user_agent" yaml:"user_agent"`

	// RequestsPerMinute is the sliding-window request budget.
	RequestsPerMinute int `json:"requests_per_minute" yaml:"requests_per_minute"`

	// Window is the length of the sliding window (default one minute).
	Window time.Duration `json:"window" yaml:"window"`

	// MaxRetries bounds retries of throttled or 5xx responses (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// Pace is a fixed delay paid after every successful request.
	Pace time.Duration `json:"pace" yaml:"pace"`
}

// CatalogConfig selects how the catalog is queried.
type CatalogConfig struct {
	// Offline serves catalog data from the cache only.
	Offline bool `json:"offline" yaml:"offline"`

	// ReviewLanguage filters the review aggregate ("all" counts every review).
	ReviewLanguage string `json:"review_language" yaml:"review_language"`

	// SnippetLanguage is the language of review snippets fed to prose generation.
	SnippetLanguage string `json:"snippet_language" yaml:"snippet_language"`
}

// CacheConfig holds freshness windows for each cached resource kind.
type CacheConfig struct {
	// Dir is the cache root; empty means <data_dir>/cache.
	Dir string `json:"dir" yaml:"dir"`

	IndexTTL  time.Duration `json:"index_ttl" yaml:"index_ttl"`
	DetailTTL time.Duration `json:"detail_ttl" yaml:"detail_ttl"`
	ReviewTTL time.Duration `json:"review_ttl" yaml:"review_ttl"`

	// SummaryTTL bounds how long generated prose is reused for an item.
	SummaryTTL time.Duration `json:"summary_ttl" yaml:"summary_ttl"`
}

// FilterConfig holds the hard gates of the filter pipeline.
type FilterConfig struct {
	// MinReviews and MaxReviews bound total reviews inclusively.
	MinReviews int `json:"min_reviews" yaml:"min_reviews"`
	MaxReviews int `json:"max_reviews" yaml:"max_reviews"`

	// MinPositiveRatio is the lifetime positive/total floor.
	MinPositiveRatio float64 `json:"min_positive_ratio" yaml:"min_positive_ratio"`

	// RequiredLanguage must appear in supported_languages when that field is set.
	RequiredLanguage string `json:"required_language" yaml:"required_language"`

	// ExcludedNameTokens reject titles containing these whole words
	// (demos, soundtracks and other non-game entries mislabeled as games).
	ExcludedNameTokens []string `json:"excluded_name_tokens" yaml:"excluded_name_tokens"`

	// BlockUnsafe enables the content-safety stage.
	BlockUnsafe bool `json:"block_unsafe" yaml:"block_unsafe"`

	// AdultAge rejects titles whose required_age is at or above it.
	AdultAge int `json:"adult_age" yaml:"adult_age"`

	// BlockedDescriptorIDs are Steam content descriptor ids for adult content.
	BlockedDescriptorIDs []int `json:"blocked_descriptor_ids" yaml:"blocked_descriptor_ids"`

	// BlockedKeywords are matched case-insensitively against the display
	// name, the descriptor notes and the adult content description.
	BlockedKeywords []string `json:"blocked_keywords" yaml:"blocked_keywords"`
}

// HarvestConfig drives the harvest state machine.
type HarvestConfig struct {
	// PoolTTL is the maximum age of the pool before a refresh.
	PoolTTL time.Duration `json:"pool_ttl" yaml:"pool_ttl"`

	// PoolMinSize triggers a refresh when the pool is smaller.
	PoolMinSize int `json:"pool_min_size" yaml:"pool_min_size"`

	// SampleCap bounds the random catalog subset drawn per run.
	SampleCap int `json:"sample_cap" yaml:"sample_cap"`

	// MaxProbe bounds the number of ids evaluated per run.
	MaxProbe int `json:"max_probe" yaml:"max_probe"`

	// Force refreshes regardless of staleness.
	Force bool `json:"force" yaml:"force"`

	// RejectTTL skips ids the probe ledger rejected more recently than this.
	RejectTTL time.Duration `json:"reject_ttl" yaml:"reject_ttl"`

	// LockTTL is the age after which an abandoned harvest lock is stolen.
	LockTTL time.Duration `json:"lock_ttl" yaml:"lock_ttl"`
}

// ScoreConfig holds the desirability weights.
type ScoreConfig struct {
	PositivityWeight float64 `json:"positivity_weight" yaml:"positivity_weight"`
	ObscurityWeight  float64 `json:"obscurity_weight" yaml:"obscurity_weight"`
	UniquenessWeight float64 `json:"uniqueness_weight" yaml:"uniqueness_weight"`
	ValueWeight      float64 `json:"value_weight" yaml:"value_weight"`

	// ValueConstant stands in for a price-to-content signal.
	ValueConstant float64 `json:"value_constant" yaml:"value_constant"`

	// GenreSaturation is the genre count at which uniqueness reaches zero.
	GenreSaturation int `json:"genre_saturation" yaml:"genre_saturation"`
}

// PickConfig holds settings for the pick run.
type PickConfig struct {
	// UseWeights favors titles with fewer reviews.
	UseWeights bool `json:"use_weights" yaml:"use_weights"`

	// HistoryMax caps the persisted seen history.
	HistoryMax int `json:"history_max" yaml:"history_max"`

	// ExcludeRecent is the exclusion window in picks; 0 excludes all history.
	ExcludeRecent int `json:"exclude_recent" yaml:"exclude_recent"`

	// PostsDir receives rendered posts.
	PostsDir string `json:"posts_dir" yaml:"posts_dir"`

	// Timezone is used for post dates and slugs.
	Timezone string `json:"timezone" yaml:"timezone"`

	// SnippetCount is the number of review snippets fed to prose generation.
	SnippetCount int `json:"snippet_count" yaml:"snippet_count"`
}

// InferenceProvider identifies the prose backend.
type InferenceProvider string

const (
	ProviderAnthropic InferenceProvider = "anthropic"
	ProviderNone      InferenceProvider = "none"
)

// InferenceConfig holds settings for the best-effort prose backend.
type InferenceConfig struct {
	Provider InferenceProvider `json:"provider" yaml:"provider"`

	// Model is the model identifier passed to the provider.
	Model string `json:"model" yaml:"model"`

	// APIKey authenticates with the provider; falls back to .secrets/.
	APIKey string `json:"api_key,omitempty" yaml:"api_key,omitempty"`

	// RequestsPerMinute paces calls to the provider.
	RequestsPerMinute int `json:"requests_per_minute" yaml:"requests_per_minute"`

	// Timeout bounds each generation call.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`
}

// ScheduleConfig holds cron specs for the serve command.
type ScheduleConfig struct {
	Harvest  string `json:"harvest" yaml:"harvest"`
	Pick     string `json:"pick" yaml:"pick"`
	Timezone string `json:"timezone" yaml:"timezone"`
}

// Config groups all stage configurations.
type Config struct {
	// DataDir holds the pool, meta, history, ledger, lock and cache.
	DataDir string `json:"data_dir" yaml:"data_dir"`

	HTTP      HTTPConfig      `json:"http" yaml:"http"`
	Catalog   CatalogConfig   `json:"catalog" yaml:"catalog"`
	Cache     CacheConfig     `json:"cache" yaml:"cache"`
	Filter    FilterConfig    `json:"filter" yaml:"filter"`
	Harvest   HarvestConfig   `json:"harvest" yaml:"harvest"`
	Score     ScoreConfig     `json:"score" yaml:"score"`
	Pick      PickConfig      `json:"pick" yaml:"pick"`
	Inference InferenceConfig `json:"inference" yaml:"inference"`
	Schedule  ScheduleConfig  `json:"schedule" yaml:"schedule"`
}

const day = 24 * time.Hour

// DefaultConfig returns the configuration used when no file or environment
// override is present.
func DefaultConfig() Config {
	return Config{
		DataDir: "content/data",
		HTTP: HTTPConfig{
			Timeout:           20 * time.Second,
			UserAgent:         "hidden-gems/0.1",
			RequestsPerMinute: 15,
			Window:            time.Minute,
			MaxRetries:        3,
			Pace:              250 * time.Millisecond,
		},
		Catalog: CatalogConfig{
			ReviewLanguage:  "all",
			SnippetLanguage: "english",
		},
		Cache: CacheConfig{
			IndexTTL:   7 * day,
			DetailTTL:  14 * day,
			ReviewTTL:  3 * day,
			SummaryTTL: 90 * day,
		},
		Filter: FilterConfig{
			MinReviews:           50,
			MaxReviews:           2000,
			MinPositiveRatio:     0.85,
			RequiredLanguage:     "English",
			ExcludedNameTokens:   []string{"demo", "soundtrack", "ost", "dlc", "server", "playtest"},
			BlockUnsafe:          true,
			AdultAge:             18,
			BlockedDescriptorIDs: []int{1, 2, 3, 4},
			BlockedKeywords: []string{
				"hentai", "sex", "sexual", "nsfw", "adult", "ahega", "porn", "erotic",
				"nudity", "strip", "yuri", "yaoi",
			},
		},
		Harvest: HarvestConfig{
			PoolTTL:     7 * day,
			PoolMinSize: 80,
			SampleCap:   600,
			MaxProbe:    180,
			RejectTTL:   30 * day,
			LockTTL:     2 * time.Hour,
		},
		Score: ScoreConfig{
			PositivityWeight: 0.45,
			ObscurityWeight:  0.25,
			UniquenessWeight: 0.15,
			ValueWeight:      0.15,
			ValueConstant:    0.6,
			GenreSaturation:  8,
		},
		Pick: PickConfig{
			UseWeights:    true,
			HistoryMax:    500,
			ExcludeRecent: 0,
			PostsDir:      "content/posts",
			Timezone:      "Europe/Berlin",
			SnippetCount:  20,
		},
		Inference: InferenceConfig{
			Provider:          ProviderNone,
			Model:             "claude-3-5-haiku-latest",
			RequestsPerMinute: 20,
			Timeout:           45 * time.Second,
		},
		Schedule: ScheduleConfig{
			Harvest:  "0 3 * * 1",
			Pick:     "0 9 * * *",
			Timezone: "Europe/Berlin",
		},
	}
}
