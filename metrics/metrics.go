// Package metrics holds the Prometheus collectors shared by the server and the ETL.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "lawchat"

// Search outcomes
const (
	OutcomeOK          = "ok"
	OutcomeBadRequest  = "bad_request"
	OutcomeUnavailable = "unavailable"
)

var (
	SearchRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "search_requests_total",
		Help:      "Search requests by index and outcome.",
	}, []string{"index", "outcome"})

	SearchLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "search_duration_seconds",
		Help:      "Search latency by index.",
		Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
	}, []string{"index"})

	SearchHits = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "search_hits",
		Help:      "Hits returned per search.",
		Buckets:   []float64{0, 1, 3, 5, 10, 25, 50},
	}, []string{"index"})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by route and status class.",
	}, []string{"route", "method", "status"})

	RecordsIngested = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "records_ingested_total",
		Help:      "Normalized records written to the row store.",
	}, []string{"entity"})

	DocumentsIndexed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "documents_indexed_total",
		Help:      "Documents accepted by the search index.",
	}, []string{"index"})
)

// ObserveSearch records one finished search.
func ObserveSearch(index, outcome string, hits int, elapsed time.Duration) {
	SearchRequests.WithLabelValues(index, outcome).Inc()
	SearchLatency.WithLabelValues(index).Observe(elapsed.Seconds())
	if outcome == OutcomeOK {
		SearchHits.WithLabelValues(index).Observe(float64(hits))
	}
}
