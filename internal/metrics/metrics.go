package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FeedFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pogoslides_feed_fetch_total",
		Help: "Total feed fetch attempts, labelled by outcome.",
	}, []string{"outcome"})

	RefreshSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "pogoslides_refresh_skipped_total",
		Help: "Refresh calls skipped because a refresh was already running.",
	})

	CachedEvents = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "pogoslides_cached_events",
		Help: "Number of raw events currently held in the cache.",
	})

	SlidesComposed = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "pogoslides_slides_per_response",
		Help:    "Slides emitted per /api/events response.",
		Buckets: []float64{1, 2, 3, 5, 8, 13, 21},
	})
)
