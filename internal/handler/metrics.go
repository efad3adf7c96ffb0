package handler

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmerrifield20/exitrisk/internal/risk"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	exitriskRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "exitrisk_requests_total",
		Help: "Total HTTP requests by method, path, and response status.",
	}, []string{"method", "path", "status"})

	exitriskRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "exitrisk_request_duration_seconds",
		Help:    "Request duration in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	exitriskScoresTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "exitrisk_scores_total",
		Help: "Total risk scores computed by level.",
	}, []string{"level"})

	exitriskLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "exitrisk_lookups_total",
		Help: "Total address checks by outcome.",
	}, []string{"result"})

	exitriskDeletesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "exitrisk_deletes_total",
		Help: "Total delete requests by outcome.",
	}, []string{"result"})

	exitriskRateLimitedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "exitrisk_rate_limited_total",
		Help: "Total requests rejected by the rate limiter, by scope.",
	}, []string{"scope"})

	exitriskStoreUp = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "exitrisk_store_up",
		Help: "1 if the last store probe succeeded, 0 otherwise.",
	})
)

// PrometheusMiddleware returns a Gin middleware that records per-request metrics.
func PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := strconv.Itoa(c.Writer.Status())
		method := c.Request.Method
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}

		exitriskRequestsTotal.WithLabelValues(method, path, status).Inc()
		exitriskRequestDuration.WithLabelValues(method, path).Observe(duration)
	}
}

// MetricsHandler returns a Gin handler that serves Prometheus metrics.
func MetricsHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}

// RecordScore records a computed risk level. It matches
// service.ScoreObserverFunc.
func RecordScore(level risk.Level) {
	exitriskScoresTotal.WithLabelValues(string(level)).Inc()
}

func recordLookup(result string) {
	exitriskLookupsTotal.WithLabelValues(result).Inc()
}

func recordDelete(result string) {
	exitriskDeletesTotal.WithLabelValues(result).Inc()
}

func recordRateLimited(scope string) {
	exitriskRateLimitedTotal.WithLabelValues(scope).Inc()
}

// RecordStoreProbe records the outcome of a background store probe. It
// matches health.MetricsRecordFunc.
func RecordStoreProbe(up bool) {
	if up {
		exitriskStoreUp.Set(1)
		return
	}
	exitriskStoreUp.Set(0)
}
