package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"tech-events-scraper/internal/models"
)

// Adapter kind constants for source configuration.
const (
	AdapterSearch  = "search"
	AdapterListing = "listing"
	AdapterStatic  = "static"
)

// Config is the full pipeline configuration, loaded once at startup and
// treated as read-only afterwards. Secrets (API keys) stay in the
// environment and are not part of this file.
type Config struct {
	Run        RunConfig        `yaml:"run"`
	Fetch      FetchConfig      `yaml:"fetch"`
	Extraction ExtractionConfig `yaml:"extraction"`
	Validation ValidationConfig `yaml:"validation"`
	Reenrich   ReenrichConfig   `yaml:"reenrich"`
	Storage    StorageConfig    `yaml:"storage"`
	Filter     FilterConfig     `yaml:"filter"`
	Sources    []SourceConfig   `yaml:"sources"`
}

// RunConfig bounds one pipeline run.
type RunConfig struct {
	WorkerCount       int `yaml:"worker_count"`
	MaxURLsPerSource  int `yaml:"max_urls_per_source"`
	MaxTotalURLs      int `yaml:"max_total_urls"`
	MaxAttemptsPerURL int `yaml:"max_attempts_per_url"` // 0 = retry forever
}

// FetchConfig controls the content fetcher.
type FetchConfig struct {
	PrimaryTimeoutSeconds  int `yaml:"primary_timeout_seconds"`
	FallbackTimeoutSeconds int `yaml:"fallback_timeout_seconds"`
	RetryBackoffMS         int `yaml:"retry_backoff_ms"`
	MaxConcurrent          int `yaml:"max_concurrent"`
}

// ExtractionConfig controls the AI extractor.
type ExtractionConfig struct {
	Model            string  `yaml:"model"`
	Temperature      float32 `yaml:"temperature"`
	MaxTokens        int     `yaml:"max_tokens"`
	TimeoutSeconds   int     `yaml:"timeout_seconds"`
	MinContentLength int     `yaml:"min_content_length"`
	MaxConcurrent    int     `yaml:"max_concurrent"`
}

// ValidationConfig controls the legitimacy gate.
type ValidationConfig struct {
	Enabled        bool   `yaml:"enabled"`
	Model          string `yaml:"model"`
	BatchSize      int    `yaml:"batch_size"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`

	// FailOpen accepts events when the classifier is unavailable instead of
	// rejecting them. Either way the outage is logged loudly.
	FailOpen bool `yaml:"fail_open"`
}

// ReenrichConfig controls the optional forced re-enrichment sample that
// refreshes stale records.
type ReenrichConfig struct {
	SampleSize int `yaml:"sample_size"` // 0 disables the sample

	// Refetch re-runs the full pipeline for sampled URLs, fetch included.
	// Raw content is never cached, so disabling this disables the sample.
	Refetch bool `yaml:"refetch"`
}

// StorageConfig names the persistence targets.
type StorageConfig struct {
	DedupTable     string `yaml:"dedup_table"`
	EventsTable    string `yaml:"events_table"`
	ArchiveBucket  string `yaml:"archive_bucket"`
	ArchiveEnabled bool   `yaml:"archive_enabled"`
}

// FilterConfig feeds the quality and relevance filter.
type FilterConfig struct {
	TargetCities  []CityAliases   `yaml:"target_cities"`
	RemoteAliases []string        `yaml:"remote_aliases"`
	Keywords      []string        `yaml:"keywords"`
	AllowAnywhere map[string]bool `yaml:"allow_anywhere"` // keyed by source type
}

// CityAliases maps a canonical city name to the free-text spellings that
// should normalize to it.
type CityAliases struct {
	Name    string   `yaml:"name"`
	Aliases []string `yaml:"aliases"`
}

// SourceConfig describes one candidate-URL source.
type SourceConfig struct {
	Name        string  `yaml:"name"`
	Type        string  `yaml:"type"`    // hackathon | conference
	Adapter     string  `yaml:"adapter"` // search | listing | static
	Query       string  `yaml:"query"`       // search adapter
	ListingURL  string  `yaml:"listing_url"` // listing adapter
	URLPattern  string  `yaml:"url_pattern"` // listing adapter: detail-link regexp
	URLs        []string `yaml:"urls"`       // static adapter
	Reliability float64 `yaml:"reliability"` // base quality score contribution
	Enabled     bool    `yaml:"enabled"`
}

// Load reads and validates a YAML config file. Validation failures are
// fatal to the run by design: no work may begin on a broken config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Run.WorkerCount <= 0 {
		c.Run.WorkerCount = 8
	}
	if c.Run.MaxURLsPerSource <= 0 {
		c.Run.MaxURLsPerSource = 50
	}
	if c.Run.MaxTotalURLs <= 0 {
		c.Run.MaxTotalURLs = 200
	}
	if c.Fetch.PrimaryTimeoutSeconds <= 0 {
		c.Fetch.PrimaryTimeoutSeconds = 45
	}
	if c.Fetch.FallbackTimeoutSeconds <= 0 {
		c.Fetch.FallbackTimeoutSeconds = 30
	}
	if c.Fetch.RetryBackoffMS <= 0 {
		c.Fetch.RetryBackoffMS = 1500
	}
	if c.Fetch.MaxConcurrent <= 0 {
		c.Fetch.MaxConcurrent = 4
	}
	if c.Extraction.Model == "" {
		c.Extraction.Model = "gpt-4o-mini"
	}
	if c.Extraction.Temperature <= 0 {
		c.Extraction.Temperature = 0.1
	}
	if c.Extraction.MaxTokens <= 0 {
		c.Extraction.MaxTokens = 2000
	}
	if c.Extraction.TimeoutSeconds <= 0 {
		c.Extraction.TimeoutSeconds = 60
	}
	if c.Extraction.MinContentLength <= 0 {
		c.Extraction.MinContentLength = 200
	}
	if c.Extraction.MaxConcurrent <= 0 {
		c.Extraction.MaxConcurrent = 3
	}
	if c.Validation.Model == "" {
		c.Validation.Model = "gpt-4o-mini"
	}
	if c.Validation.BatchSize <= 0 {
		c.Validation.BatchSize = 5
	}
	if c.Validation.TimeoutSeconds <= 0 {
		c.Validation.TimeoutSeconds = 30
	}
}

// Validate checks the parts of the config a run cannot proceed without.
func (c *Config) Validate() error {
	if len(c.Sources) == 0 {
		return fmt.Errorf("config error: no sources configured")
	}

	enabled := 0
	for i, src := range c.Sources {
		if src.Name == "" {
			return fmt.Errorf("config error: source %d has no name", i)
		}
		if !models.ValidSourceType(src.Type) {
			return fmt.Errorf("config error: source %q has unknown type %q", src.Name, src.Type)
		}
		switch src.Adapter {
		case AdapterSearch:
			if src.Query == "" {
				return fmt.Errorf("config error: search source %q requires a query", src.Name)
			}
		case AdapterListing:
			if src.ListingURL == "" || src.URLPattern == "" {
				return fmt.Errorf("config error: listing source %q requires listing_url and url_pattern", src.Name)
			}
		case AdapterStatic:
			if len(src.URLs) == 0 {
				return fmt.Errorf("config error: static source %q has no urls", src.Name)
			}
		default:
			return fmt.Errorf("config error: source %q has unknown adapter %q", src.Name, src.Adapter)
		}
		if src.Enabled {
			enabled++
		}
	}
	if enabled == 0 {
		return fmt.Errorf("config error: no enabled sources")
	}

	if c.Storage.DedupTable == "" || c.Storage.EventsTable == "" {
		return fmt.Errorf("config error: storage.dedup_table and storage.events_table are required")
	}
	if c.Storage.ArchiveEnabled && c.Storage.ArchiveBucket == "" {
		return fmt.Errorf("config error: storage.archive_bucket is required when archiving is enabled")
	}
	return nil
}

// PrimaryTimeout returns the primary fetch timeout as a duration.
func (f FetchConfig) PrimaryTimeout() time.Duration {
	return time.Duration(f.PrimaryTimeoutSeconds) * time.Second
}

// FallbackTimeout returns the fallback fetch timeout as a duration.
func (f FetchConfig) FallbackTimeout() time.Duration {
	return time.Duration(f.FallbackTimeoutSeconds) * time.Second
}

// RetryBackoff returns the fixed backoff between fetch retries.
func (f FetchConfig) RetryBackoff() time.Duration {
	return time.Duration(f.RetryBackoffMS) * time.Millisecond
}

// Timeout returns the per-call extraction timeout as a duration.
func (e ExtractionConfig) Timeout() time.Duration {
	return time.Duration(e.TimeoutSeconds) * time.Second
}

// Timeout returns the per-batch validation timeout as a duration.
func (v ValidationConfig) Timeout() time.Duration {
	return time.Duration(v.TimeoutSeconds) * time.Second
}
