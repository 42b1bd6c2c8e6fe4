package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// searchesTotal counts finished searches by environment and result
	searchesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "treesearch_searches_total",
		Help: "Total searches by environment and result",
	}, []string{"env", "result"})

	// searchIterations tracks iterations run per search
	searchIterations = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "treesearch_search_iterations",
		Help:    "Iterations run per search",
		Buckets: prometheus.ExponentialBuckets(10, 2, 12),
	})

	// searchDuration tracks search latency
	searchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "treesearch_search_duration_seconds",
		Help:    "Search duration in seconds",
		Buckets: prometheus.ExponentialBuckets(0.0001, 2, 16),
	}, []string{"env"})

	// sessionOpsTotal counts session operations by kind and outcome
	sessionOpsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "treesearch_session_ops_total",
		Help: "Total session operations by op and result",
	}, []string{"op", "result"})
)

// ObserveSearch records a finished search.
func ObserveSearch(env string, m SearchMetric, err error) {
	if env == "" {
		env = "unknown"
	}
	searchesTotal.WithLabelValues(env, result(err)).Inc()
	if err != nil {
		return
	}
	searchIterations.Observe(float64(m.Iterations))
	searchDuration.WithLabelValues(env).Observe(m.Duration.Seconds())
}

// ObserveOp records a session operation.
func ObserveOp(op string, err error) {
	sessionOpsTotal.WithLabelValues(op, result(err)).Inc()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
