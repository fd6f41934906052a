package join

import (
	"log/slog"

	"GoJoin/internal/metrics"
)

type options struct {
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// Option configures CreateJoinQuery and NewBlockJoinCollector.
type Option func(*options)

// WithLogger sets the logger used for join diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithMetrics records join activity in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

func buildOptions(opts []Option) options {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	o.logger = o.logger.With("component", "join")
	return o
}
