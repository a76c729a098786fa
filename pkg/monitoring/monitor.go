package monitoring

import (
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests",
			Buckets: []float64{0.1, 0.5, 1, 2, 5},
		},
		[]string{"method", "endpoint"},
	)

	// 答题引擎指标
	AttemptsStarted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assessment_attempts_started_total",
			Help: "Attempts created, by mode",
		},
		[]string{"mode"},
	)

	AttemptsCompleted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assessment_attempts_completed_total",
			Help: "Attempts completed, by mode and end reason",
		},
		[]string{"mode", "reason"},
	)

	AntiCheatEvents = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assessment_anticheat_events_total",
			Help: "Anti-cheat events accepted, by type",
		},
		[]string{"type"},
	)

	ScoringDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "assessment_scoring_duration_seconds",
			Help:    "Time spent scoring a submission",
			Buckets: []float64{0.005, 0.05, 0.25, 1, 5, 15},
		},
		[]string{"mode"},
	)

	HubConnections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "assessment_ws_connections",
			Help: "Open websocket connections on this instance",
		},
	)

	OutboxPending = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "assessment_outbox_pending",
			Help: "Unprocessed completion events seen by the last dispatch",
		},
	)
)

var initOnce sync.Once

func Init() {
	initOnce.Do(func() {
		prometheus.MustRegister(RequestCounter)
		prometheus.MustRegister(RequestDuration)
		prometheus.MustRegister(AttemptsStarted)
		prometheus.MustRegister(AttemptsCompleted)
		prometheus.MustRegister(AntiCheatEvents)
		prometheus.MustRegister(ScoringDuration)
		prometheus.MustRegister(HubConnections)
		prometheus.MustRegister(OutboxPending)
	})
}

func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start).Seconds()
		status := c.Writer.Status()

		RequestCounter.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
			strconv.Itoa(status),
		).Inc()

		RequestDuration.WithLabelValues(
			c.Request.Method,
			c.FullPath(),
		).Observe(duration)
	}
}

func PrometheusHandler() gin.HandlerFunc {
	h := promhttp.Handler()
	return func(c *gin.Context) {
		h.ServeHTTP(c.Writer, c.Request)
	}
}
