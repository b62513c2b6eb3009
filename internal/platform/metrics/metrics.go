// Package metrics defines the Prometheus metrics for route fetching and
// route following. All metrics register with the default registry.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "navsim"

// ProviderRequestsTotal counts route provider calls.
// Label:
//   - outcome: "ok", "cache_hit", "unavailable", "no_route", "invalid_response"
var ProviderRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "provider_requests_total",
		Help:      "Total number of route provider requests, by outcome.",
	},
	[]string{"outcome"},
)

// ProviderRequestDuration measures network round trips to the provider.
var ProviderRequestDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "provider_request_duration_seconds",
		Help:      "Duration of route provider requests that reached the network.",
		Buckets:   prometheus.DefBuckets,
	},
)

// RouteCacheLookupsTotal counts cache lookups.
// Label:
//   - result: "hit", "miss" or "error"
var RouteCacheLookupsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "route_cache_lookups_total",
		Help:      "Total number of route cache lookups, by result.",
	},
	[]string{"result"},
)

// TraceSamplesTotal counts simulated positions appended to traces.
var TraceSamplesTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "trace_samples_total",
		Help:      "Total number of simulated positions sampled.",
	},
)

// DeviationsTotal counts runs that left the planned path.
var DeviationsTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "deviations_total",
		Help:      "Total number of detected route deviations.",
	},
)

// RecalculationsTotal counts replacement route requests.
// Label:
//   - outcome: "ok" or "failed"
var RecalculationsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "recalculations_total",
		Help:      "Total number of route recalculations, by outcome.",
	},
	[]string{"outcome"},
)

// WriteTextfile dumps the default registry in the node_exporter textfile format.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
