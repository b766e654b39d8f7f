// Package metrics provides Prometheus metrics for catalog harvesting.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	pagesFetchedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mapharvest_pages_fetched_total",
			Help: "Listing pages fetched, by outcome",
		},
		[]string{"outcome"},
	)

	pageFetchDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mapharvest_page_fetch_duration_seconds",
			Help:    "Listing page fetch duration in seconds, including retries",
			Buckets: prometheus.DefBuckets,
		},
	)

	catalogBuildsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mapharvest_catalog_builds_total",
			Help: "Catalog builds, by outcome",
		},
		[]string{"outcome"},
	)

	catalogBuildDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "mapharvest_catalog_build_duration_seconds",
			Help:    "Time to build a full catalog",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
		},
	)

	regionsDegradedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "mapharvest_regions_degraded_total",
			Help: "Regions emitted without sub-regions because their sub-listing failed",
		},
	)

	catalogDocuments = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mapharvest_catalog_documents",
			Help: "Documents in the last built catalog",
		},
		[]string{"enabled"},
	)
)

// RecordPageFetch records one page fetch and its duration.
func RecordPageFetch(outcome string, duration time.Duration) {
	pagesFetchedTotal.WithLabelValues(outcome).Inc()
	pageFetchDuration.Observe(duration.Seconds())
}

// RecordBuild records one catalog build and its duration.
func RecordBuild(outcome string, duration time.Duration) {
	catalogBuildsTotal.WithLabelValues(outcome).Inc()
	catalogBuildDuration.Observe(duration.Seconds())
}

// RecordDegradedRegion counts a region whose sub-listing was dropped.
func RecordDegradedRegion() {
	regionsDegradedTotal.Inc()
}

// SetCatalogDocuments sets the document gauges for the last catalog.
func SetCatalogDocuments(enabled, disabled int) {
	catalogDocuments.WithLabelValues("true").Set(float64(enabled))
	catalogDocuments.WithLabelValues("false").Set(float64(disabled))
}

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}
