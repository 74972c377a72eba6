// Package metrics declares the Prometheus collectors of the service.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "beatmarket",
			Subsystem: "api",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "beatmarket",
			Subsystem: "api",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 120},
		},
		[]string{"method", "endpoint"},
	)

	// UploadsTotal counts orchestrated uploads by bucket, mode (single|chunked|existing) and status.
	UploadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "beatmarket",
			Subsystem: "upload",
			Name:      "uploads_total",
			Help:      "Total orchestrated uploads",
		},
		[]string{"bucket", "mode", "status"},
	)

	UploadBytesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "beatmarket",
			Subsystem: "upload",
			Name:      "bytes_total",
			Help:      "Total bytes persisted by the upload pipeline",
		},
		[]string{"bucket"},
	)

	StorageOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "beatmarket",
			Subsystem: "storage",
			Name:      "operations_total",
			Help:      "Total object storage operations",
		},
		[]string{"operation", "status"},
	)

	StorageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "beatmarket",
			Subsystem: "storage",
			Name:      "duration_seconds",
			Help:      "Object storage operation duration in seconds",
			Buckets:   []float64{0.05, 0.1, 0.5, 1, 2, 5, 15, 60},
		},
		[]string{"operation"},
	)

	GatewayCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "beatmarket",
			Subsystem: "gateway",
			Name:      "calls_total",
			Help:      "Total payment gateway calls",
		},
		[]string{"operation", "status"},
	)

	WebhookEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "beatmarket",
			Subsystem: "webhook",
			Name:      "events_total",
			Help:      "Total gateway webhook deliveries",
		},
		[]string{"event", "outcome"},
	)

	// InconsistentStateTotal counts gateway mutations whose database write failed.
	// Every increment needs manual reconciliation.
	InconsistentStateTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "beatmarket",
			Subsystem: "payments",
			Name:      "inconsistent_state_total",
			Help:      "Gateway mutations not persisted locally",
		},
		[]string{"operation"},
	)
)

// RecordRequest records an HTTP request.
func RecordRequest(method, endpoint, status string, durationSec float64) {
	RequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	RequestDuration.WithLabelValues(method, endpoint).Observe(durationSec)
}

// RecordUpload records an orchestrated upload.
func RecordUpload(bucket, mode, status string, bytes int64) {
	UploadsTotal.WithLabelValues(bucket, mode, status).Inc()
	if status == "success" {
		UploadBytesTotal.WithLabelValues(bucket).Add(float64(bytes))
	}
}

// RecordStorageOperation records an object storage call.
func RecordStorageOperation(operation, status string, durationSec float64) {
	StorageOperationsTotal.WithLabelValues(operation, status).Inc()
	StorageDuration.WithLabelValues(operation).Observe(durationSec)
}

// RecordGatewayCall records a payment gateway call.
func RecordGatewayCall(operation, status string) {
	GatewayCallsTotal.WithLabelValues(operation, status).Inc()
}

// RecordWebhook records a webhook delivery outcome.
func RecordWebhook(event, outcome string) {
	WebhookEventsTotal.WithLabelValues(event, outcome).Inc()
}

// RecordInconsistentState records a gateway mutation that was not persisted.
func RecordInconsistentState(operation string) {
	InconsistentStateTotal.WithLabelValues(operation).Inc()
}

func Status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
