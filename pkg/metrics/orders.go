package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// OrderMetrics records admission outcomes and latency.
type OrderMetrics struct {
	admissionDuration *prometheus.HistogramVec
	admitted          *prometheus.CounterVec
	rejected          *prometheus.CounterVec
}

// NewOrderMetrics registers the order admission metrics on the provided registerer.
func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	if reg == nil {
		return &OrderMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "order_admission_duration_seconds",
		Help:    "Duration of order admission transactions in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})
	admitted := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_admitted_total",
		Help: "Orders admitted, by resulting status.",
	}, []string{"status"})
	rejected := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "orders_rejected_total",
		Help: "Order submissions rejected, by reason.",
	}, []string{"reason"})
	reg.MustRegister(duration, admitted, rejected)
	return &OrderMetrics{
		admissionDuration: duration,
		admitted:          admitted,
		rejected:          rejected,
	}
}

// ObserveAdmission records how long an admission attempt took.
func (m *OrderMetrics) ObserveAdmission(outcome string, duration time.Duration) {
	if m == nil || m.admissionDuration == nil {
		return
	}
	m.admissionDuration.WithLabelValues(normalizeLabel(outcome)).Observe(duration.Seconds())
}

// IncAdmitted increments the admitted counter for the resulting status.
func (m *OrderMetrics) IncAdmitted(status string) {
	if m == nil || m.admitted == nil {
		return
	}
	m.admitted.WithLabelValues(normalizeLabel(status)).Inc()
}

// IncRejected increments the rejection counter for the given reason.
func (m *OrderMetrics) IncRejected(reason string) {
	if m == nil || m.rejected == nil {
		return
	}
	m.rejected.WithLabelValues(normalizeLabel(reason)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
