// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by components that make network requests.
type HTTPConfig struct {
	// Timeout is the HTTP request timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with HTTP requests
	// (e.g. "scielo-harvest/0.1").
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// BadStatusPolicy selects what the harvester does when the search engine
// answers a page request with a status other than 200.
type BadStatusPolicy string

const (
	// PolicyRetry retries the same page with exponential backoff. The offset
	// only advances after a successful response.
	PolicyRetry BadStatusPolicy = "retry"

	// PolicySkip advances the offset before the status is checked, so a
	// failed page is skipped and the next one is fetched immediately.
	PolicySkip BadStatusPolicy = "skip"
)

// Valid reports whether p names a known policy.
func (p BadStatusPolicy) Valid() bool {
	return p == PolicyRetry || p == PolicySkip
}

// SearchConfig holds settings for the search engine client and the harvester.
type SearchConfig struct {
	HTTPConfig `yaml:",inline"`

	// BaseURL is the search engine endpoint (default http://search.scielo.org/).
	BaseURL string `json:"base_url" yaml:"base_url"`

	// PageSize is the number of identifiers requested per page (default 100).
	PageSize int `json:"page_size" yaml:"page_size"`

	// OnBadStatus selects the non-200 handling: retry or skip.
	OnBadStatus BadStatusPolicy `json:"on_bad_status" yaml:"on_bad_status"`

	// MaxAttempts caps consecutive failed requests for one page (default 5).
	MaxAttempts int `json:"max_attempts" yaml:"max_attempts"`
}

// ArticleMetaConfig holds settings for the metadata lookup client.
type ArticleMetaConfig struct {
	HTTPConfig `yaml:",inline"`

	// BaseURL is the ArticleMeta article endpoint.
	BaseURL string `json:"base_url" yaml:"base_url"`

	// MaxRetries is the number of attempts pester makes per lookup (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`
}

// CacheConfig holds settings for the on-disk ArticleMeta payload cache.
type CacheConfig struct {
	// Enabled turns the cache on.
	Enabled bool `json:"enabled" yaml:"enabled"`

	// Path is the SQLite database file. Empty means the XDG cache location.
	Path string `json:"path,omitempty" yaml:"path,omitempty"`

	// TTL is how long a cached payload stays fresh. Zero never expires.
	TTL time.Duration `json:"ttl" yaml:"ttl"`
}

// Config groups all settings of a harvest run.
type Config struct {
	Search      SearchConfig      `json:"search" yaml:"search"`
	ArticleMeta ArticleMetaConfig `json:"articlemeta" yaml:"articlemeta"`
	Cache       CacheConfig       `json:"cache" yaml:"cache"`
	LogLevel    string            `json:"log_level" yaml:"log_level"`
}
