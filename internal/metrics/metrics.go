package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	once sync.Once

	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "spotbook",
			Name:      "http_requests_total",
			Help:      "HTTP requests by endpoint.",
		},
		[]string{"endpoint"},
	)

	bookingOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "spotbook",
			Name:      "booking_operations_total",
			Help:      "Successful booking lifecycle operations.",
		},
		[]string{"operation"},
	)

	bookingConflicts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "spotbook",
			Name:      "booking_conflicts_total",
			Help:      "Rejected bookings by detection stage (precheck or store).",
		},
		[]string{"stage"},
	)
)

// Register registers Prometheus metrics. Safe to call multiple times.
func Register() {
	once.Do(func() {
		prometheus.MustRegister(httpRequests, bookingOps, bookingConflicts)
	})
}

// IncHTTP increments the counter for an endpoint label.
func IncHTTP(endpoint string) {
	httpRequests.WithLabelValues(endpoint).Inc()
}

// IncBookingOp counts a completed create/modify/cancel.
func IncBookingOp(operation string) {
	bookingOps.WithLabelValues(operation).Inc()
}

// IncConflict counts a conflict rejection at the given stage.
func IncConflict(stage string) {
	bookingConflicts.WithLabelValues(stage).Inc()
}
