package model

import "time"

// Config is the full runtime configuration for ballotcheck
type Config struct {
	Store        StoreConfig       `yaml:"store" mapstructure:"store"`
	Cache        CacheConfig       `yaml:"cache" mapstructure:"cache"`
	YouTube      YouTubeConfig     `yaml:"youtube" mapstructure:"youtube"`
	Extractor    ExtractorConfig   `yaml:"extractor" mapstructure:"extractor"`
	RateLimiting RateLimitConfig   `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Concurrency  ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
	Rules        RulesConfig       `yaml:"rules" mapstructure:"rules"`
	Log          LogConfig         `yaml:"log" mapstructure:"log"`
	Metrics      MetricsConfig     `yaml:"metrics" mapstructure:"metrics"`
}

// StoreConfig selects the record store
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // memory, postgres
	DatabaseURL string `yaml:"database_url,omitempty" mapstructure:"database_url"`
}

// CacheConfig controls the metadata cache in front of the store
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskDir   string        `yaml:"disk_dir,omitempty" mapstructure:"disk_dir"` // Empty disables the disk layer
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
	RedisURL  string        `yaml:"redis_url,omitempty" mapstructure:"redis_url"` // Replaces the disk layer when set
}

// YouTubeConfig configures the YouTube Data API client
type YouTubeConfig struct {
	APIKey     string        `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL    string        `yaml:"base_url" mapstructure:"base_url"`
	Timeout    time.Duration `yaml:"timeout" mapstructure:"timeout"`
	MaxRetries uint64        `yaml:"max_retries" mapstructure:"max_retries"`
	Proxy      string        `yaml:"proxy,omitempty" mapstructure:"proxy"` // Empty uses HTTP(S)_PROXY from the environment
}

// ExtractorConfig configures the yt-dlp runner used for every other platform
type ExtractorConfig struct {
	Binary        string        `yaml:"binary" mapstructure:"binary"`
	CookiesFile   string        `yaml:"cookies_file,omitempty" mapstructure:"cookies_file"`
	Extractors    []string      `yaml:"extractors" mapstructure:"extractors"`
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout"`
	SleepInterval int           `yaml:"sleep_interval" mapstructure:"sleep_interval"` // Seconds, passed to yt-dlp
	MaxFailures   uint32        `yaml:"max_failures" mapstructure:"max_failures"`     // Consecutive failures before the breaker opens
	OpenTimeout   time.Duration `yaml:"open_timeout" mapstructure:"open_timeout"`
	Proxy         string        `yaml:"proxy,omitempty" mapstructure:"proxy"`
}

// RateLimitConfig throttles calls to the generic extractor per platform
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// ConcurrencyConfig bounds parallel work
type ConcurrencyConfig struct {
	Workers      int `yaml:"workers" mapstructure:"workers"`             // Ballot files processed at once
	EntryFetches int `yaml:"entry_fetches" mapstructure:"entry_fetches"` // Entries of one ballot resolved at once
}

// RulesConfig holds the policy constants of the single-video rules
type RulesConfig struct {
	ReservedUploader string `yaml:"reserved_uploader" mapstructure:"reserved_uploader"` // The host's own channel
	MinSeconds       int    `yaml:"min_seconds" mapstructure:"min_seconds"`             // Below this: too short
	WarnSeconds      int    `yaml:"warn_seconds" mapstructure:"warn_seconds"`           // Up to this (inclusive): maybe too short
	EdgePivotDay     int    `yaml:"edge_pivot_day" mapstructure:"edge_pivot_day"`       // Days before this shift forward when probing edge dates
}

// LogConfig configures zerolog output
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // json, console
}

// MetricsConfig configures the Prometheus endpoint
type MetricsConfig struct {
	Addr string `yaml:"addr,omitempty" mapstructure:"addr"` // Empty disables the listener
}

// DefaultConfig returns the built-in configuration
func DefaultConfig() *Config {
	return &Config{
		Store: StoreConfig{
			Driver: "memory",
		},
		Cache: CacheConfig{
			Enabled:   true,
			MemoryTTL: 30 * time.Minute,
			DiskTTL:   7 * 24 * time.Hour,
		},
		YouTube: YouTubeConfig{
			BaseURL:    "https://www.googleapis.com/youtube/v3",
			Timeout:    10 * time.Second,
			MaxRetries: 3,
		},
		Extractor: ExtractorConfig{
			Binary: "yt-dlp",
			Extractors: []string{
				"BiliBili", "Bluesky", "dailymotion", "Instagram", "lbry",
				"Newgrounds", "PeerTube", "TikTok", "twitter", "vimeo", "generic",
			},
			Timeout:       60 * time.Second,
			SleepInterval: 2,
			MaxFailures:   5,
			OpenTimeout:   time.Minute,
		},
		RateLimiting: RateLimitConfig{
			RequestsPerSecond: 0.5,
			BurstSize:         2,
		},
		Concurrency: ConcurrencyConfig{
			Workers:      4,
			EntryFetches: 4,
		},
		Rules: RulesConfig{
			ReservedUploader: "LittleshyFiM",
			MinSeconds:       30,
			WarnSeconds:      45,
			EdgePivotDay:     10,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}
