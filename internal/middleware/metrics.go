package middleware

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/alfredjeanlab/linkgraph/internal/traverse"
)

// Fetch outcomes used as the "result" label.
const (
	resultOK       = "ok"
	resultError    = "error"
	resultCanceled = "canceled"
)

var (
	fetchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "linkgraph_fetch_total",
		Help: "Total issue link fetches by result",
	}, []string{"result"})

	fetchDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "linkgraph_fetch_duration_seconds",
		Help:    "Time spent fetching one issue's links",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
	}, []string{"result"})

	fetchLinks = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "linkgraph_fetch_links",
		Help:    "Number of links returned per fetched issue",
		Buckets: []float64{0, 1, 2, 5, 10, 25, 50, 100},
	})

	cacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "linkgraph_cache_hits_total",
		Help: "Number of fetch cache hits",
	})

	cacheMisses = promauto.NewCounter(prometheus.CounterOpts{
		Name: "linkgraph_cache_misses_total",
		Help: "Number of fetch cache misses",
	})
)

// Metrics records the count, latency and link fan-out of every fetch.
func Metrics() Decorator {
	return func(next traverse.Fetcher) traverse.Fetcher {
		return traverse.FetcherFunc(func(ctx context.Context, key string) (*traverse.RawLinks, error) {
			start := time.Now()
			raw, err := next.FetchLinks(ctx, key)
			result := resultOK
			switch {
			case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
				result = resultCanceled
			case err != nil:
				result = resultError
			}
			fetchTotal.WithLabelValues(result).Inc()
			fetchDuration.WithLabelValues(result).Observe(time.Since(start).Seconds())
			if err == nil && raw != nil {
				fetchLinks.Observe(float64(len(raw.Links)))
			}
			return raw, err
		})
	}
}
