package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	Resolutions      *prometheus.CounterVec
	StrategyFailures *prometheus.CounterVec
	StaleResults     prometheus.Counter
	ResolveSeconds   *prometheus.HistogramVec
	IPRequestSeconds prometheus.Histogram
	NearbySearches   *prometheus.CounterVec
	PlaceSearches    *prometheus.CounterVec
	GeocoderSeconds  *prometheus.HistogramVec
	ActiveSessions   prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	return &Metrics{
		Resolutions: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "compass_location_resolutions_total",
			Help: "Total number of settled location resolutions by strategy.",
		}, []string{"strategy"}),
		StrategyFailures: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "compass_location_strategy_failures_total",
			Help: "Total number of failed location strategies by reason.",
		}, []string{"strategy", "reason"}),
		StaleResults: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "compass_location_stale_results_total",
			Help: "Total number of results discarded because a newer resolution started.",
		}),
		ResolveSeconds: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "compass_location_resolution_duration_seconds",
			Help:    "Duration of a resolution cycle until it settled.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 20, 30, 45},
		}, []string{"strategy"}),
		IPRequestSeconds: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name:    "compass_ip_geolocation_request_duration_seconds",
			Help:    "Duration of requests to the IP geolocation API.",
			Buckets: prometheus.DefBuckets,
		}),
		NearbySearches: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "compass_nearby_searches_total",
			Help: "Total number of nearby business searches.",
		}, []string{"status"}),
		PlaceSearches: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "compass_place_searches_total",
			Help: "Total number of free-text place lookups by outcome.",
		}, []string{"status"}),
		GeocoderSeconds: promauto.With(reg).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "compass_geocoding_provider_request_duration_seconds",
			Help:    "Duration of requests to the geocoding provider API.",
			Buckets: prometheus.DefBuckets,
		}, []string{"provider"}),
		ActiveSessions: promauto.With(reg).NewGauge(prometheus.GaugeOpts{
			Name: "compass_active_sessions",
			Help: "Current number of open map sessions.",
		}),
	}
}

// NewMetricsForTesting creates Metrics with a fresh registry so tests can build
// as many instances as they need.
func NewMetricsForTesting() *Metrics {
	return NewMetrics(prometheus.NewRegistry())
}
