// Package metrics exposes the gallery's Prometheus instruments.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	upstreamRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vodgallery_upstream_requests_total",
		Help: "VOD API page requests by outcome",
	}, []string{"outcome"}) // outcome=success|transport_error|decode_error

	upstreamDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "vodgallery_upstream_request_duration_seconds",
		Help:    "Latency of VOD API page requests",
		Buckets: prometheus.DefBuckets,
	})

	pageCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vodgallery_page_cache_lookups_total",
		Help: "Page cache lookups by result",
	}, []string{"result"}) // result=fresh|stale|miss

	staleServed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vodgallery_stale_pages_served_total",
		Help: "Pages served from an expired cache entry after an upstream failure",
	})

	responsesDiscarded = promauto.NewCounter(prometheus.CounterOpts{
		Name: "vodgallery_superseded_responses_total",
		Help: "Page responses discarded because a later request was issued",
	})

	adSlotFailures = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vodgallery_ad_slot_failures_total",
		Help: "Ad slot render failures replaced with an empty region",
	}, []string{"slot"})

	activeSessions = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "vodgallery_sessions_active",
		Help: "Open gallery websocket sessions",
	})

	prefetchJobs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "vodgallery_prefetch_jobs_total",
		Help: "Prefetch jobs by outcome",
	}, []string{"outcome"}) // outcome=enqueued|duplicate|warmed|failed
)

func RecordUpstream(outcome string, d time.Duration) {
	upstreamRequests.WithLabelValues(outcome).Inc()
	upstreamDuration.Observe(d.Seconds())
}

func RecordCacheLookup(result string) {
	pageCacheLookups.WithLabelValues(result).Inc()
}

func RecordStaleServed() {
	staleServed.Inc()
}

func RecordResponseDiscarded() {
	responsesDiscarded.Inc()
}

func RecordAdSlotFailure(slot string) {
	adSlotFailures.WithLabelValues(slot).Inc()
}

func SessionOpened() {
	activeSessions.Inc()
}

func SessionClosed() {
	activeSessions.Dec()
}

func RecordPrefetch(outcome string) {
	prefetchJobs.WithLabelValues(outcome).Inc()
}

// RegisterCacheStats exposes the counters a page cache backend keeps itself,
// read at scrape time.
func RegisterCacheStats(reg prometheus.Registerer, backend string, stats func() (hits, misses, sets int64)) {
	factory := promauto.With(reg)
	labels := prometheus.Labels{"backend": backend}

	factory.NewCounterFunc(prometheus.CounterOpts{
		Name:        "vodgallery_cache_backend_hits_total",
		Help:        "Page cache backend reads that found an entry",
		ConstLabels: labels,
	}, func() float64 {
		h, _, _ := stats()
		return float64(h)
	})
	factory.NewCounterFunc(prometheus.CounterOpts{
		Name:        "vodgallery_cache_backend_misses_total",
		Help:        "Page cache backend reads that found nothing",
		ConstLabels: labels,
	}, func() float64 {
		_, m, _ := stats()
		return float64(m)
	})
	factory.NewCounterFunc(prometheus.CounterOpts{
		Name:        "vodgallery_cache_backend_sets_total",
		Help:        "Page cache backend writes",
		ConstLabels: labels,
	}, func() float64 {
		_, _, n := stats()
		return float64(n)
	})
}
