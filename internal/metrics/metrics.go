// Package metrics defines the Prometheus collectors recorded by the join
// engine. Every recording method is safe to call on a nil *Metrics, so the
// engine runs unchanged when metrics are disabled.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the join engine collectors.
type Metrics struct {
	JoinQueriesBuilt  *prometheus.CounterVec
	JoinKeysCollected prometheus.Histogram
	TermJoinScoring   *prometheus.CounterVec
	BlockJoinGroups   prometheus.Histogram
	SearchLatency     *prometheus.HistogramVec
}

// New creates the collectors under namespace and registers them on reg.
func New(namespace string, reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		JoinQueriesBuilt: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "join_queries_built_total",
				Help:      "Join queries built, by join kind and score mode.",
			},
			[]string{"kind", "score_mode"},
		),
		JoinKeysCollected: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "join_keys_collected",
				Help:      "Distinct join keys collected from the from side of a term join.",
				Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
			},
		),
		TermJoinScoring: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "term_join_scorers_total",
				Help:      "Segment scorers created by scoring term joins, by delivery order.",
			},
			[]string{"order"},
		),
		BlockJoinGroups: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "block_join_groups_returned",
				Help:      "Parent groups returned per block join group retrieval.",
				Buckets:   []float64{0, 1, 5, 10, 25, 50, 100, 250},
			},
		),
		SearchLatency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "search_latency_seconds",
				Help:      "Query execution latency in seconds, by query name.",
				Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
			},
			[]string{"query"},
		),
	}

	for _, c := range []prometheus.Collector{
		m.JoinQueriesBuilt,
		m.JoinKeysCollected,
		m.TermJoinScoring,
		m.BlockJoinGroups,
		m.SearchLatency,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// JoinBuilt counts a built join query.
func (m *Metrics) JoinBuilt(kind, scoreMode string) {
	if m == nil {
		return
	}
	m.JoinQueriesBuilt.WithLabelValues(kind, scoreMode).Inc()
}

// KeysCollected records the size of a frozen join key table.
func (m *Metrics) KeysCollected(n int) {
	if m == nil {
		return
	}
	m.JoinKeysCollected.Observe(float64(n))
}

// TermJoinScorer counts a scoring term join segment scorer. inOrder reports
// whether it delivers docs in doc ID order.
func (m *Metrics) TermJoinScorer(inOrder bool) {
	if m == nil {
		return
	}
	order := "out_of_order"
	if inOrder {
		order = "in_order"
	}
	m.TermJoinScoring.WithLabelValues(order).Inc()
}

// GroupsReturned records the number of groups a block join retrieval returned.
func (m *Metrics) GroupsReturned(n int) {
	if m == nil {
		return
	}
	m.BlockJoinGroups.Observe(float64(n))
}

// ObserveSearch records the latency of a named query.
func (m *Metrics) ObserveSearch(query string, seconds float64) {
	if m == nil {
		return
	}
	m.SearchLatency.WithLabelValues(query).Observe(seconds)
}

// Handler returns the scrape handler for the collectors registered on g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
