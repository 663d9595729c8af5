package model

import "time"

// Config holds the complete hindsite configuration
type Config struct {
	HTTP        HTTPConfig        `yaml:"http" mapstructure:"http"`
	Cache       CacheConfig       `yaml:"cache" mapstructure:"cache"`
	RateLimit   RateLimitConfig   `yaml:"rate_limit" mapstructure:"rate_limit"`
	Robots      RobotsConfig      `yaml:"robots" mapstructure:"robots"`
	Collection  CollectionConfig  `yaml:"collection" mapstructure:"collection"`
	Concurrency ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
	LLM         LLMConfig         `yaml:"llm" mapstructure:"llm"`
	Output      OutputConfig      `yaml:"output" mapstructure:"output"`
}

// HTTPConfig controls the fetch gateway
type HTTPConfig struct {
	Timeout      time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent    string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	InsecureTLS  bool          `yaml:"insecure_tls" mapstructure:"insecure_tls"`
	HTTPProxy    string        `yaml:"http_proxy" mapstructure:"http_proxy"`
	HTTPSProxy   string        `yaml:"https_proxy" mapstructure:"https_proxy"`
	NoProxy      string        `yaml:"no_proxy" mapstructure:"no_proxy"`
}

// CacheConfig controls caching of fetched pages and feeds
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
}

// RateLimitConfig controls per-domain politeness
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
	// PolitenessDelay is the fixed inter-request delay inside pagination
	// loops. Omitting it risks being blocked mid-collection.
	PolitenessDelay time.Duration `yaml:"politeness_delay" mapstructure:"politeness_delay"`
}

// RobotsConfig controls robots.txt compliance for crawl-style methods
type RobotsConfig struct {
	Respect bool          `yaml:"respect" mapstructure:"respect"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// CollectionConfig bounds the collection strategies
type CollectionConfig struct {
	// MaxPages caps pagination-by-guessing loops
	MaxPages int `yaml:"max_pages" mapstructure:"max_pages"`
	// EmptyPageCooldown is the run of consecutive empty pages that stops
	// a pagination loop
	EmptyPageCooldown int `yaml:"empty_page_cooldown" mapstructure:"empty_page_cooldown"`
	// MinArticleThreshold gates the Universal agent's listing-page
	// scraping: scraping only runs when fewer articles were found
	MinArticleThreshold int `yaml:"min_article_threshold" mapstructure:"min_article_threshold"`
	// FeedTimeout bounds a single feed fetch so one unresponsive page
	// cannot stall a whole pagination loop
	FeedTimeout time.Duration `yaml:"feed_timeout" mapstructure:"feed_timeout"`
	// SitemapMaxDepth bounds recursive sitemap-index expansion
	SitemapMaxDepth int `yaml:"sitemap_max_depth" mapstructure:"sitemap_max_depth"`
}

// ConcurrencyConfig controls batch processing
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers"`
}

// LLMConfig configures the optional platform-hint provider.
// Never affects agent selection or collection.
type LLMConfig struct {
	Provider string `yaml:"provider" mapstructure:"provider"`
	Model    string `yaml:"model" mapstructure:"model"`
	APIKey   string `yaml:"-" mapstructure:"-"`
	BaseURL  string `yaml:"base_url" mapstructure:"base_url"`
}

// OutputConfig controls CLI output
type OutputConfig struct {
	Verbose bool `yaml:"verbose" mapstructure:"verbose"`
}

// DefaultConfig returns the built-in defaults
func DefaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Timeout:      10 * time.Second,
			UserAgent:    "Hindsite/0.2 (+https://github.com/okhval/hindsite)",
			MaxBodyBytes: 4_000_000,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       "",
			MemoryTTL: 15 * time.Minute,
			DiskTTL:   6 * time.Hour,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 2,
			BurstSize:         4,
			PolitenessDelay:   1 * time.Second,
		},
		Robots: RobotsConfig{
			Respect: true,
			Timeout: 5 * time.Second,
		},
		Collection: CollectionConfig{
			MaxPages:            50,
			EmptyPageCooldown:   3,
			MinArticleThreshold: 10,
			FeedTimeout:         10 * time.Second,
			SitemapMaxDepth:     2,
		},
		Concurrency: ConcurrencyConfig{
			Workers: 4,
		},
		Output: OutputConfig{},
	}
}
