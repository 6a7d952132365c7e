// Package metrics holds the process-wide Prometheus collectors for outbound
// calls made by the remote collection client and the reverse geocoder.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var durationBuckets = []float64{1, 5, 10, 20, 50, 100, 200, 500, 1000, 2000}

var (
	RemoteRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "triplog_remote_requests_total",
		Help: "Total requests sent to the cities collection",
	}, []string{"op"})
	RemoteFailuresTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "triplog_remote_failures_total",
		Help: "Total failed requests to the cities collection (transport, status or decode)",
	}, []string{"op"})
	RemoteDurationMs = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "triplog_remote_duration_ms",
		Help:    "Cities collection call duration in milliseconds",
		Buckets: durationBuckets,
	}, []string{"op"})

	GeocodeRequestsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "triplog_geocode_requests_total",
		Help: "Total reverse geocode lookups sent upstream",
	})
	GeocodeFailuresTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "triplog_geocode_failures_total",
		Help: "Total reverse geocode transport failures",
	})
	GeocodeUnresolvableTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "triplog_geocode_unresolvable_total",
		Help: "Total reverse geocode responses without a country code",
	})
	GeocodeCacheHitsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "triplog_geocode_cache_hits_total",
		Help: "Total reverse geocode cache hits",
	})
	GeocodeCacheMissesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "triplog_geocode_cache_misses_total",
		Help: "Total reverse geocode cache misses",
	})
	GeocodeDurationMs = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "triplog_geocode_duration_ms",
		Help:    "Reverse geocode call duration in milliseconds",
		Buckets: durationBuckets,
	})

	ActionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "triplog_actions_total",
		Help: "Actions dispatched to the collection state machine by kind",
	}, []string{"kind"})
	StaleResultsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "triplog_stale_results_total",
		Help: "Results discarded because a newer request already landed",
	}, []string{"kind"})
)

func init() {
	prometheus.MustRegister(RemoteRequestsTotal)
	prometheus.MustRegister(RemoteFailuresTotal)
	prometheus.MustRegister(RemoteDurationMs)
	prometheus.MustRegister(GeocodeRequestsTotal)
	prometheus.MustRegister(GeocodeFailuresTotal)
	prometheus.MustRegister(GeocodeUnresolvableTotal)
	prometheus.MustRegister(GeocodeCacheHitsTotal)
	prometheus.MustRegister(GeocodeCacheMissesTotal)
	prometheus.MustRegister(GeocodeDurationMs)
	prometheus.MustRegister(ActionsTotal)
	prometheus.MustRegister(StaleResultsTotal)
}

// Handler exposes the registered collectors in the Prometheus text format.
func Handler() http.Handler { return promhttp.Handler() }
