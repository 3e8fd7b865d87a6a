package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Submissions counts check-in/check-out submissions by kind and outcome.
	Submissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wellcheck",
		Name:      "submissions_total",
		Help:      "Attendance submissions by kind and result.",
	}, []string{"kind", "result"})

	// Warnings is the number of members per warning at the last reminder sweep.
	Warnings = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: "wellcheck",
		Name:      "attendance_warnings",
		Help:      "Members per attendance warning at the last sweep.",
	}, []string{"warning"})

	// QueueMessages counts worker messages by type and outcome.
	QueueMessages = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wellcheck",
		Name:      "queue_messages_total",
		Help:      "Queue messages handled by the worker.",
	}, []string{"type", "result"})

	// SelfieUploads counts selfie uploads to image storage.
	SelfieUploads = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "wellcheck",
		Name:      "selfie_uploads_total",
		Help:      "Selfie uploads to image storage by result.",
	}, []string{"result"})

	requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "wellcheck",
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by route and status.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route", "status"})
)

// GinMiddleware records request latency per matched route.
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		requestDuration.
			WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).
			Observe(time.Since(start).Seconds())
	}
}
