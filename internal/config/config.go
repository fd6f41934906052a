// Package config loads the joinsearch configuration from a YAML file with
// GOJOIN_* environment overrides.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v3"

	"GoJoin/internal/analysis"
	"GoJoin/internal/coordinator"
	"GoJoin/internal/corpus"
	"GoJoin/internal/index"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "GOJOIN_"

var ErrInvalidConfig = errors.New("invalid config")

// Config is the top-level configuration.
type Config struct {
	Logging LoggingConfig           `yaml:"logging"`
	Index   IndexConfig             `yaml:"index"`
	Search  coordinator.Config      `yaml:"search"`
	Metrics MetricsConfig           `yaml:"metrics"`
	Server  ServerConfig            `yaml:"server"`
	Queries []coordinator.QueryPlan `yaml:"queries"`
}

// LoggingConfig controls the slog handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// IndexConfig describes the corpus and how it is indexed.
type IndexConfig struct {
	CorpusPath  string `yaml:"corpusPath"`
	Compression string `yaml:"compression"`

	// Checksum is the expected "sha256:<hex>" digest of a single corpus file.
	Checksum string `yaml:"checksum"`

	MaxDocsPerSegment int          `yaml:"maxDocsPerSegment"`
	Schema            index.Schema `yaml:"schema"`
}

// MetricsConfig controls the Prometheus collectors.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
	Addr      string `yaml:"addr"`
}

// ServerConfig controls the HTTP API.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
}

// DefaultConfig returns the configuration used for anything a file and the
// environment leave unset.
func DefaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Index: IndexConfig{
			Compression:       string(corpus.CompressionAuto),
			MaxDocsPerSegment: index.DefaultMaxDocsPerSegment,
			Schema:            index.Schema{DefaultAnalyzer: analysis.Standard},
		},
		Search: coordinator.DefaultConfig(),
		Metrics: MetricsConfig{
			Namespace: "gojoin",
			Addr:      ":9090",
		},
		Server: ServerConfig{
			Addr:            ":8080",
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    60 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
	}
}

// Load reads the YAML file at path, if any, over the defaults and applies
// environment overrides. The result is not validated.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "reading config file %s", path)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, errors.Wrapf(err, "parsing config file %s", path)
		}
	}
	if err := applyEnvOverrides(cfg, os.Getenv); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides overrides fields from GOJOIN_* variables read through
// getenv.
func applyEnvOverrides(cfg *Config, getenv func(string) string) error {
	env := func(key string) string { return getenv(EnvPrefix + key) }

	if v := env("LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := env("LOG_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := env("CORPUS_PATH"); v != "" {
		cfg.Index.CorpusPath = v
	}
	if v := env("CORPUS_COMPRESSION"); v != "" {
		cfg.Index.Compression = v
	}
	if v := env("CORPUS_CHECKSUM"); v != "" {
		cfg.Index.Checksum = v
	}
	if v := env("SEGMENT_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrapf(ErrInvalidConfig, "%sSEGMENT_SIZE: %q", EnvPrefix, v)
		}
		cfg.Index.MaxDocsPerSegment = n
	}
	if v := env("TOP_N"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return errors.Wrapf(ErrInvalidConfig, "%sTOP_N: %q", EnvPrefix, v)
		}
		cfg.Search.DefaultTopN = n
	}
	if v := env("QUERY_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return errors.Wrapf(ErrInvalidConfig, "%sQUERY_TIMEOUT: %q", EnvPrefix, v)
		}
		cfg.Search.QueryTimeout = d
	}
	if v := env("METRICS_ENABLED"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return errors.Wrapf(ErrInvalidConfig, "%sMETRICS_ENABLED: %q", EnvPrefix, v)
		}
		cfg.Metrics.Enabled = b
	}
	if v := env("METRICS_NAMESPACE"); v != "" {
		cfg.Metrics.Namespace = v
	}
	if v := env("METRICS_ADDR"); v != "" {
		cfg.Metrics.Addr = v
	}
	if v := env("SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	return nil
}

// Validate checks the configuration, including every configured query plan.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return errors.Wrapf(ErrInvalidConfig, "logging.level %q", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "text":
	default:
		return errors.Wrapf(ErrInvalidConfig, "logging.format %q", c.Logging.Format)
	}

	if _, err := corpus.ParseCompression(c.Index.Compression); err != nil {
		return errors.Wrap(err, "index.compression")
	}
	if c.Index.MaxDocsPerSegment <= 0 {
		return errors.Wrapf(ErrInvalidConfig, "index.maxDocsPerSegment must be positive, got %d", c.Index.MaxDocsPerSegment)
	}
	if err := c.Index.Schema.Validate(); err != nil {
		return errors.Wrap(err, "index.schema")
	}

	if c.Search.DefaultTopN <= 0 || c.Search.DefaultMaxDocsPerGroup <= 0 || c.Search.MaxConcurrentQueries <= 0 {
		return errors.Wrap(ErrInvalidConfig, "search limits must be positive")
	}
	if c.Search.QueryTimeout < 0 {
		return errors.Wrap(ErrInvalidConfig, "search.queryTimeout must not be negative")
	}
	if c.Metrics.Enabled && c.Metrics.Namespace == "" {
		return errors.Wrap(ErrInvalidConfig, "metrics.namespace is required when metrics are enabled")
	}

	names := make(map[string]bool, len(c.Queries))
	for i, q := range c.Queries {
		if err := q.Validate(); err != nil {
			return errors.Wrapf(err, "queries[%d]", i)
		}
		if names[q.Name] {
			return errors.Wrapf(ErrInvalidConfig, "duplicate query name %q", q.Name)
		}
		names[q.Name] = true
	}
	return nil
}
