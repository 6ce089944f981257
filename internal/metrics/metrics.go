package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the server
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPRequestSize     *prometheus.HistogramVec

	// Rate limiting metrics
	RateLimitExceededTotal *prometheus.CounterVec

	// Change feed metrics
	ChangesPublishedTotal *prometheus.CounterVec

	// Realtime metrics
	RealtimeConnections   prometheus.Gauge
	RealtimeSubscriptions prometheus.Gauge
	RealtimeMessagesSent  *prometheus.CounterVec
	RealtimeDroppedTotal  prometheus.Counter

	// Storage metrics
	UploadBytesTotal prometheus.Counter

	// Error metrics
	ErrorsTotal *prometheus.CounterVec
}

var (
	instance *Metrics
	once     sync.Once
)

// Initialize creates and registers all Prometheus metrics
func Initialize() *Metrics {
	once.Do(func() {
		instance = &Metrics{
			HTTPRequestsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "http_requests_total",
					Help: "Total number of HTTP requests",
				},
				[]string{"method", "path", "status"},
			),
			HTTPRequestDuration: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "http_request_duration_seconds",
					Help:    "HTTP request latency in seconds",
					Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
				},
				[]string{"method", "path", "status"},
			),
			HTTPRequestSize: promauto.NewHistogramVec(
				prometheus.HistogramOpts{
					Name:    "http_request_size_bytes",
					Help:    "HTTP request body size in bytes",
					Buckets: prometheus.ExponentialBuckets(100, 10, 7),
				},
				[]string{"method", "path"},
			),
			RateLimitExceededTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "rate_limit_exceeded_total",
					Help: "Requests rejected by the rate limiter",
				},
				[]string{"path", "method"},
			),
			ChangesPublishedTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "changefeed_changes_published_total",
					Help: "Row changes published to the change feed",
				},
				[]string{"table", "event"},
			),
			RealtimeConnections: promauto.NewGauge(prometheus.GaugeOpts{
				Name: "realtime_connections",
				Help: "Open realtime websocket connections",
			}),
			RealtimeSubscriptions: promauto.NewGauge(prometheus.GaugeOpts{
				Name: "realtime_subscriptions",
				Help: "Active realtime channel subscriptions",
			}),
			RealtimeMessagesSent: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "realtime_messages_sent_total",
					Help: "Frames sent to realtime clients",
				},
				[]string{"type"},
			),
			RealtimeDroppedTotal: promauto.NewCounter(prometheus.CounterOpts{
				Name: "realtime_messages_dropped_total",
				Help: "Frames dropped because a client send buffer was full",
			}),
			UploadBytesTotal: promauto.NewCounter(prometheus.CounterOpts{
				Name: "storage_upload_bytes_total",
				Help: "Bytes uploaded to object storage",
			}),
			ErrorsTotal: promauto.NewCounterVec(
				prometheus.CounterOpts{
					Name: "errors_total",
					Help: "Errors returned to clients by code",
				},
				[]string{"code"},
			),
		}
	})
	return instance
}

// Get returns the metrics, registering them on first use
func Get() *Metrics {
	return Initialize()
}
