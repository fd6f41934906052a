package coordinator

import "time"

// Config configures the Coordinator.
type Config struct {
	// QueryTimeout is the maximum time a single plan may spend collecting
	// hits. Zero disables it.
	QueryTimeout time.Duration `json:"query_timeout" yaml:"queryTimeout"`

	// MaxConcurrentQueries bounds the plans Run executes at once.
	MaxConcurrentQueries int `json:"max_concurrent_queries" yaml:"maxConcurrentQueries"`

	// DefaultTopN applies to plans that set no topN.
	DefaultTopN int `json:"default_top_n" yaml:"defaultTopN"`

	// DefaultMaxDocsPerGroup applies to to_parent plans that set no
	// maxDocsPerGroup.
	DefaultMaxDocsPerGroup int `json:"default_max_docs_per_group" yaml:"defaultMaxDocsPerGroup"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		QueryTimeout:           10 * time.Second,
		MaxConcurrentQueries:   4,
		DefaultTopN:            10,
		DefaultMaxDocsPerGroup: 3,
	}
}
