package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registry = prometheus.NewRegistry()

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "photoalbum",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		},
		[]string{"method", "route", "status"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "photoalbum",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10),
		},
		[]string{"method", "route"},
	)

	photosUploaded = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "photoalbum",
		Name:      "photos_uploaded_total",
		Help:      "Photos stored through uploads.",
	})

	collagesGenerated = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "photoalbum",
		Name:      "collages_generated_total",
		Help:      "Collage generation attempts by outcome.",
	}, []string{"result"})

	exportsServed = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "photoalbum",
		Name:      "bug_report_exports_total",
		Help:      "Bug report spreadsheets exported.",
	})
)

func init() {
	registry.MustRegister(
		httpRequests,
		httpDuration,
		photosUploaded,
		collagesGenerated,
		exportsServed,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
}

func metricsHandler() http.Handler {
	return promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
}

// instrument records request counts and latency by route template.
func instrument() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		httpRequests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		httpDuration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}
