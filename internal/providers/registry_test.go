package providers

import (
	"context"
	"testing"

	"github.com/tobimartins/servicehub-backend/pkg/enums"
)

type noopAdapter struct {
	method enums.PaymentMethod
}

func (n noopAdapter) Name() enums.PaymentMethod { return n.method }
func (n noopAdapter) SupportsVerify() bool      { return false }

func (n noopAdapter) Initialize(context.Context, InitializeParams) (*InitializeResult, error) {
	return nil, nil
}

func (n noopAdapter) Verify(context.Context, string) (*VerifyResult, error) {
	return nil, nil
}

func (n noopAdapter) VerifyWebhookSignature([]byte, string) bool { return false }

func (n noopAdapter) ParseWebhookEvent([]byte) (*WebhookEvent, error) {
	return nil, nil
}

func TestRegistryResolve(t *testing.T) {
	registry, err := NewRegistry(
		noopAdapter{method: enums.PaymentMethodPaystack},
		noopAdapter{method: enums.PaymentMethodCash},
	)
	if err != nil {
		t.Fatalf("NewRegistry returned error: %v", err)
	}

	adapter, err := registry.Resolve(enums.PaymentMethodPaystack)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if adapter.Name() != enums.PaymentMethodPaystack {
		t.Fatalf("unexpected adapter %s", adapter.Name())
	}

	if _, err := registry.Resolve(enums.PaymentMethodFlutterwave); err == nil {
		t.Fatal("expected error for unregistered method")
	}

	methods := registry.Methods()
	if len(methods) != 2 {
		t.Fatalf("expected 2 methods, got %d", len(methods))
	}
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	_, err := NewRegistry(
		noopAdapter{method: enums.PaymentMethodCash},
		noopAdapter{method: enums.PaymentMethodCash},
	)
	if err == nil {
		t.Fatal("expected error for duplicate adapters")
	}
}

func TestErrorKinds(t *testing.T) {
	transient := NewTransientError("paystack", "timeout", nil)
	if KindOf(transient) != KindTransient {
		t.Fatal("expected transient kind")
	}
	rejected := NewRejectedError("paystack", "declined")
	if KindOf(rejected) != KindRejected {
		t.Fatal("expected rejected kind")
	}
	if AsAdapterError(rejected) == nil {
		t.Fatal("expected typed adapter error")
	}
	if KindOf(context.Canceled) != KindTransient {
		t.Fatal("unclassified errors default to transient")
	}
}
