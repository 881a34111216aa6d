package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// PaymentMetrics records counters for ledger transitions and webhook traffic.
type PaymentMetrics struct {
	transitions *prometheus.CounterVec
	webhooks    *prometheus.CounterVec
	providerErr *prometheus.CounterVec
}

// NewPaymentMetrics registers the payment metrics on the provided registerer.
func NewPaymentMetrics(reg prometheus.Registerer) *PaymentMetrics {
	if reg == nil {
		return &PaymentMetrics{}
	}
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_transitions_total",
		Help: "Payment status transitions by target status and trigger source.",
	}, []string{"status", "source"})
	webhooks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_webhooks_total",
		Help: "Webhook deliveries by provider and outcome.",
	}, []string{"provider", "outcome"})
	providerErr := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "payment_provider_errors_total",
		Help: "Provider call failures by provider and error kind.",
	}, []string{"provider", "kind"})
	reg.MustRegister(transitions, webhooks, providerErr)
	return &PaymentMetrics{
		transitions: transitions,
		webhooks:    webhooks,
		providerErr: providerErr,
	}
}

// IncTransition increments the transition counter.
func (p *PaymentMetrics) IncTransition(status, source string) {
	if p == nil || p.transitions == nil {
		return
	}
	p.transitions.WithLabelValues(normalizeLabel(status), normalizeLabel(source)).Inc()
}

// IncWebhook increments the webhook counter.
func (p *PaymentMetrics) IncWebhook(provider, outcome string) {
	if p == nil || p.webhooks == nil {
		return
	}
	p.webhooks.WithLabelValues(normalizeLabel(provider), normalizeLabel(outcome)).Inc()
}

// IncProviderError increments the provider error counter.
func (p *PaymentMetrics) IncProviderError(provider, kind string) {
	if p == nil || p.providerErr == nil {
		return
	}
	p.providerErr.WithLabelValues(normalizeLabel(provider), normalizeLabel(kind)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
