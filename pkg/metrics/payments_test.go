package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPaymentMetricsCounters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewPaymentMetrics(reg)

	m.IncTransition("completed", "webhook")
	m.IncTransition("completed", "webhook")
	m.IncWebhook("paystack", "processed")
	m.IncProviderError("flutterwave", "transient")

	if got := testutil.ToFloat64(m.transitions.WithLabelValues("completed", "webhook")); got != 2 {
		t.Fatalf("expected 2 transitions, got %v", got)
	}
	if got := testutil.ToFloat64(m.webhooks.WithLabelValues("paystack", "processed")); got != 1 {
		t.Fatalf("expected 1 webhook, got %v", got)
	}
	if got := testutil.ToFloat64(m.providerErr.WithLabelValues("flutterwave", "transient")); got != 1 {
		t.Fatalf("expected 1 provider error, got %v", got)
	}
}

func TestPaymentMetricsNilSafe(t *testing.T) {
	var m *PaymentMetrics
	m.IncTransition("completed", "manual")
	m.IncWebhook("paystack", "ignored")
	m.IncProviderError("paystack", "rejected")

	empty := NewPaymentMetrics(nil)
	empty.IncTransition("failed", "webhook")
}
