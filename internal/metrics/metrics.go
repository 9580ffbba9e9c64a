// Package metrics exposes Prometheus collectors for the comic service.
package metrics

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	crawlOpsTotal              *prometheus.CounterVec
	imagesTotal                *prometheus.CounterVec
	chapterImagesHistogram     prometheus.Histogram
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec
	cacheEntries               prometheus.GaugeFunc

	once sync.Once
)

// Init initializes the Prometheus metrics collectors. The cacheLen callback
// reports the live crawler cache size; nil disables the gauge.
// It is safe to call this function multiple times.
func Init(cacheLen func() int) {
	once.Do(func() {
		crawlOpsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "comic_crawl_ops_total",
				Help: "Total crawler operations, labeled by site, operation and outcome.",
			},
			[]string{"site", "op", "outcome"},
		)

		imagesTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "comic_images_total",
				Help: "Total image downloads, labeled by site and outcome.",
			},
			[]string{"site", "outcome"},
		)

		chapterImagesHistogram = promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "comic_chapter_images",
				Help:    "Histogram of image counts per resolved chapter.",
				Buckets: []float64{5, 10, 20, 40, 80, 160, 320},
			},
		)

		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)

		if cacheLen != nil {
			cacheEntries = promauto.NewGaugeFunc(
				prometheus.GaugeOpts{
					Name: "comic_cache_entries",
					Help: "Live crawler instances held by the TTL cache.",
				},
				func() float64 { return float64(cacheLen()) },
			)
		}
	})
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveCrawlOp counts one crawler operation.
func ObserveCrawlOp(site, op string, err error) {
	if crawlOpsTotal == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	crawlOpsTotal.WithLabelValues(site, op, outcome).Inc()
}

// ObserveImages records a download batch outcome for a site.
func ObserveImages(site string, written, skipped, failed int) {
	if imagesTotal == nil {
		return
	}
	imagesTotal.WithLabelValues(site, "written").Add(float64(written))
	imagesTotal.WithLabelValues(site, "skipped").Add(float64(skipped))
	imagesTotal.WithLabelValues(site, "failed").Add(float64(failed))
}

// ObserveChapterSize records the image count of a resolved chapter.
func ObserveChapterSize(images int) {
	if chapterImagesHistogram == nil {
		return
	}
	chapterImagesHistogram.Observe(float64(images))
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	if httpRequestsTotal == nil {
		return
	}
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}
