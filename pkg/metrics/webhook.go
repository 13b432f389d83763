package metrics

import "github.com/prometheus/client_golang/prometheus"

// WebhookMetrics records e-transfer verification outcomes.
type WebhookMetrics struct {
	results    *prometheus.CounterVec
	duplicates prometheus.Counter
}

// NewWebhookMetrics registers the webhook metrics on the provided registerer.
func NewWebhookMetrics(reg prometheus.Registerer) *WebhookMetrics {
	if reg == nil {
		return &WebhookMetrics{}
	}
	results := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "etransfer_verifications_total",
		Help: "E-transfer verification attempts, by result.",
	}, []string{"result"})
	duplicates := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "etransfer_duplicate_notifications_total",
		Help: "Notifications skipped because the message was already processed.",
	})
	reg.MustRegister(results, duplicates)
	return &WebhookMetrics{results: results, duplicates: duplicates}
}

// IncResult increments the verification counter for the given result.
func (m *WebhookMetrics) IncResult(result string) {
	if m == nil || m.results == nil {
		return
	}
	m.results.WithLabelValues(normalizeLabel(result)).Inc()
}

// IncDuplicate increments the duplicate notification counter.
func (m *WebhookMetrics) IncDuplicate() {
	if m == nil || m.duplicates == nil {
		return
	}
	m.duplicates.Inc()
}
