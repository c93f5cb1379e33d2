package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "requests_total",
			Help: "Total number of requests",
		},
		[]string{"service", "method", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "request_duration_seconds",
			Help:    "Request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"service", "method"},
	)

	UploadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lecture_uploads_total",
			Help: "Total number of lecture file uploads",
		},
		[]string{"kind", "status"},
	)

	UploadBytes = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lecture_upload_size_bytes",
			Help:    "Size distribution of uploaded lecture files",
			Buckets: prometheus.ExponentialBuckets(1024, 4, 10),
		},
		[]string{"kind"},
	)

	TranscriptionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transcriptions_total",
			Help: "Total number of transcription runs",
		},
		[]string{"status"},
	)

	TranscriptionDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "transcription_duration_seconds",
			Help:    "Transcription run duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 12),
		},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		UploadsTotal,
		UploadBytes,
		TranscriptionsTotal,
		TranscriptionDuration,
	)
}

// RecordRequest records one handled HTTP request.
func RecordRequest(service, method, status string, duration time.Duration) {
	RequestsTotal.WithLabelValues(service, method, status).Inc()
	RequestDuration.WithLabelValues(service, method).Observe(duration.Seconds())
}

// RecordUpload records the outcome of one upload pipeline run.
func RecordUpload(kind, status string, sizeBytes int64) {
	UploadsTotal.WithLabelValues(kind, status).Inc()
	if sizeBytes > 0 {
		UploadBytes.WithLabelValues(kind).Observe(float64(sizeBytes))
	}
}

// RecordTranscription records the outcome of one transcription run.
func RecordTranscription(status string, duration time.Duration) {
	TranscriptionsTotal.WithLabelValues(status).Inc()
	TranscriptionDuration.Observe(duration.Seconds())
}

// PrometheusMiddleware records request metrics for every gin route.
func PrometheusMiddleware(serviceName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		statusCode := strconv.Itoa(c.Writer.Status())
		method := c.Request.Method + " " + c.FullPath()
		RecordRequest(serviceName, method, statusCode, time.Since(start))
	}
}

// Handler exposes the prometheus scrape endpoint as a gin handler.
func Handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.Handler())
}
