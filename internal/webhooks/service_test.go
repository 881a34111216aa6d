package webhooks

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/tobimartins/servicehub-backend/internal/providers"
	"github.com/tobimartins/servicehub-backend/pkg/enums"
	apperrors "github.com/tobimartins/servicehub-backend/pkg/errors"
)

type fakeAdapter struct {
	method      enums.PaymentMethod
	validSig    string
	parseErr    error
	parseCalls  int
	parsedEvent *providers.WebhookEvent
}

func (f *fakeAdapter) Name() enums.PaymentMethod { return f.method }
func (f *fakeAdapter) SupportsVerify() bool      { return true }

func (f *fakeAdapter) Initialize(context.Context, providers.InitializeParams) (*providers.InitializeResult, error) {
	return nil, nil
}

func (f *fakeAdapter) Verify(context.Context, string) (*providers.VerifyResult, error) {
	return nil, nil
}

func (f *fakeAdapter) VerifyWebhookSignature(_ []byte, signatureHeader string) bool {
	return signatureHeader == f.validSig
}

func (f *fakeAdapter) ParseWebhookEvent(rawBody []byte) (*providers.WebhookEvent, error) {
	f.parseCalls++
	if f.parseErr != nil {
		return nil, f.parseErr
	}
	if f.parsedEvent != nil {
		return f.parsedEvent, nil
	}
	var event providers.WebhookEvent
	if err := json.Unmarshal(rawBody, &event); err != nil {
		return nil, err
	}
	return &event, nil
}

type fakeApplier struct {
	mu     sync.Mutex
	calls  int
	err    error
	lastEv *providers.WebhookEvent
}

func (f *fakeApplier) ApplyWebhookEvent(_ context.Context, _ enums.PaymentMethod, event *providers.WebhookEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastEv = event
	return f.err
}

type fakeStore struct {
	mu   sync.Mutex
	data map[string]string
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: make(map[string]string)}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.data[key], nil
}

func (f *fakeStore) SetNX(_ context.Context, key string, value any, _ time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	f.data[key] = "1"
	return true, nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return "sh:idempotency:" + scope + ":" + id
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, key := range keys {
		delete(f.data, key)
	}
	return nil
}

func newIngestor(t *testing.T, adapter *fakeAdapter, applier *fakeApplier, guard *IdempotencyGuard) *Service {
	t.Helper()
	registry, err := providers.NewRegistry(adapter)
	if err != nil {
		t.Fatalf("NewRegistry returned error: %v", err)
	}
	service, err := NewService(ServiceParams{
		Registry:    registry,
		Payments:    applier,
		Idempotency: guard,
	})
	if err != nil {
		t.Fatalf("NewService returned error: %v", err)
	}
	return service
}

func TestHandleWebhookRejectsBadSignatureBeforeParsing(t *testing.T) {
	adapter := &fakeAdapter{method: enums.PaymentMethodPaystack, validSig: "good"}
	applier := &fakeApplier{}
	service := newIngestor(t, adapter, applier, nil)

	err := service.HandleWebhook(context.Background(), enums.PaymentMethodPaystack, []byte(`{"reference":"SHP-X"}`), "bad")
	if err == nil {
		t.Fatal("expected an authentication error")
	}
	typed := apperrors.As(err)
	if typed == nil || typed.Code() != apperrors.CodeUnauthorized {
		t.Fatalf("expected %s, got %v", apperrors.CodeUnauthorized, err)
	}
	if adapter.parseCalls != 0 {
		t.Fatal("body must not be parsed before the signature check passes")
	}
	if applier.calls != 0 {
		t.Fatal("no payment may be touched on an unauthenticated delivery")
	}

	err = service.HandleWebhook(context.Background(), enums.PaymentMethodPaystack, []byte(`{"reference":"SHP-X"}`), "")
	if typed := apperrors.As(err); typed == nil || typed.Code() != apperrors.CodeUnauthorized {
		t.Fatalf("missing signature header must be unauthorized, got %v", err)
	}
}

func TestHandleWebhookAcksMalformedBody(t *testing.T) {
	adapter := &fakeAdapter{
		method:   enums.PaymentMethodPaystack,
		validSig: "good",
		parseErr: providers.NewMalformedError("paystack", "bad body", nil),
	}
	applier := &fakeApplier{}
	service := newIngestor(t, adapter, applier, nil)

	err := service.HandleWebhook(context.Background(), enums.PaymentMethodPaystack, []byte(`not json`), "good")
	if err != nil {
		t.Fatalf("authenticated malformed body must be acknowledged, got %v", err)
	}
	if applier.calls != 0 {
		t.Fatal("malformed body must not reach the orchestrator")
	}
}

func TestHandleWebhookAppliesEvent(t *testing.T) {
	adapter := &fakeAdapter{
		method:   enums.PaymentMethodPaystack,
		validSig: "good",
		parsedEvent: &providers.WebhookEvent{
			EventType: "charge.success",
			Reference: "SHP-20250810120000-ABCDEFGHIJ",
			Outcome:   providers.OutcomeSucceeded,
		},
	}
	applier := &fakeApplier{}
	service := newIngestor(t, adapter, applier, nil)

	if err := service.HandleWebhook(context.Background(), enums.PaymentMethodPaystack, []byte(`{}`), "good"); err != nil {
		t.Fatalf("HandleWebhook returned error: %v", err)
	}
	if applier.calls != 1 {
		t.Fatalf("expected one orchestrator call, got %d", applier.calls)
	}
	if applier.lastEv.Reference != "SHP-20250810120000-ABCDEFGHIJ" {
		t.Fatalf("unexpected event: %+v", applier.lastEv)
	}
}

func TestHandleWebhookDeduplicatesDeliveries(t *testing.T) {
	adapter := &fakeAdapter{
		method:   enums.PaymentMethodPaystack,
		validSig: "good",
		parsedEvent: &providers.WebhookEvent{
			EventType:    "charge.success",
			Reference:    "SHP-20250810120000-ABCDEFGHIJ",
			ProviderTxID: "4411",
			Outcome:      providers.OutcomeSucceeded,
		},
	}
	applier := &fakeApplier{}
	guard, err := NewIdempotencyGuard(newFakeStore(), time.Hour, "paystack-webhook")
	if err != nil {
		t.Fatalf("NewIdempotencyGuard returned error: %v", err)
	}
	service := newIngestor(t, adapter, applier, guard)

	ctx := context.Background()
	if err := service.HandleWebhook(ctx, enums.PaymentMethodPaystack, []byte(`{}`), "good"); err != nil {
		t.Fatalf("first delivery returned error: %v", err)
	}
	if err := service.HandleWebhook(ctx, enums.PaymentMethodPaystack, []byte(`{}`), "good"); err != nil {
		t.Fatalf("duplicate delivery returned error: %v", err)
	}
	if applier.calls != 1 {
		t.Fatalf("duplicate delivery must not reach the orchestrator, got %d calls", applier.calls)
	}
}

func TestHandleWebhookUnmarksOnApplyFailure(t *testing.T) {
	adapter := &fakeAdapter{
		method:   enums.PaymentMethodPaystack,
		validSig: "good",
		parsedEvent: &providers.WebhookEvent{
			EventType: "charge.success",
			Reference: "SHP-20250810120000-ABCDEFGHIJ",
			Outcome:   providers.OutcomeSucceeded,
		},
	}
	applier := &fakeApplier{err: errors.New("database unavailable")}
	guard, err := NewIdempotencyGuard(newFakeStore(), time.Hour, "paystack-webhook")
	if err != nil {
		t.Fatalf("NewIdempotencyGuard returned error: %v", err)
	}
	service := newIngestor(t, adapter, applier, guard)

	ctx := context.Background()
	if err := service.HandleWebhook(ctx, enums.PaymentMethodPaystack, []byte(`{}`), "good"); err == nil {
		t.Fatal("expected apply failure to surface")
	}

	// The retry must get through now that the mark was removed.
	applier.err = nil
	if err := service.HandleWebhook(ctx, enums.PaymentMethodPaystack, []byte(`{}`), "good"); err != nil {
		t.Fatalf("retry after failure returned error: %v", err)
	}
	if applier.calls != 2 {
		t.Fatalf("expected retry to reach the orchestrator, got %d calls", applier.calls)
	}
}
