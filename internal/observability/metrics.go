package observability

import (
	"strconv"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	registerOnce sync.Once

	framesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bglink",
			Subsystem: "dispatch",
			Name:      "frames_total",
			Help:      "Frames read from the radio by type, class, command and outcome.",
		},
		[]string{"type", "class", "command", "outcome"},
	)
	handlerErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bglink",
			Subsystem: "dispatch",
			Name:      "handler_errors_total",
			Help:      "Handler decode or state errors by message name.",
		},
		[]string{"message"},
	)
	transportErrors = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bglink",
			Subsystem: "link",
			Name:      "transport_errors_total",
			Help:      "Fatal transport and protocol errors by operation.",
		},
		[]string{"op"},
	)
	waitDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "bglink",
			Subsystem: "link",
			Name:      "wait_duration_seconds",
			Help:      "Time spent blocked in a wait by kind and outcome.",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30},
		},
		[]string{"kind", "outcome"},
	)
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "bglink",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total admin HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)
	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "bglink",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Admin HTTP request duration in seconds.",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

func RegisterMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(framesTotal, handlerErrors, transportErrors, waitDuration, httpRequests, httpDuration)
	})
}

func RecordFrame(msgType string, class, command uint8, outcome string) {
	RegisterMetrics()
	framesTotal.WithLabelValues(msgType, strconv.Itoa(int(class)), strconv.Itoa(int(command)), outcome).Inc()
}

func RecordHandlerError(message string) {
	RegisterMetrics()
	handlerErrors.WithLabelValues(message).Inc()
}

func RecordTransportError(op string) {
	RegisterMetrics()
	transportErrors.WithLabelValues(op).Inc()
}

func RecordWait(kind, outcome string, duration time.Duration) {
	RegisterMetrics()
	waitDuration.WithLabelValues(kind, outcome).Observe(duration.Seconds())
}

func RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	RegisterMetrics()
	statusLabel := strconv.Itoa(status)
	httpRequests.WithLabelValues(method, path, statusLabel).Inc()
	httpDuration.WithLabelValues(method, path, statusLabel).Observe(duration.Seconds())
}
