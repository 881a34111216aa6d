package routes

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	internalpayments "github.com/tobimartins/servicehub-backend/internal/payments"
	"github.com/tobimartins/servicehub-backend/internal/providers"
	internalwebhooks "github.com/tobimartins/servicehub-backend/internal/webhooks"
	pkgauth "github.com/tobimartins/servicehub-backend/pkg/auth"
	"github.com/tobimartins/servicehub-backend/pkg/config"
	"github.com/tobimartins/servicehub-backend/pkg/db/models"
	"github.com/tobimartins/servicehub-backend/pkg/enums"
	"github.com/tobimartins/servicehub-backend/pkg/logger"
)

type stubPinger struct{}

func (stubPinger) Ping(context.Context) error {
	return nil
}

type stubPaymentsService struct{}

func (stubPaymentsService) InitializePayment(context.Context, internalpayments.InitializeInput) (*internalpayments.InitializeOutput, error) {
	return &internalpayments.InitializeOutput{Payment: &models.Payment{}}, nil
}

func (stubPaymentsService) VerifyPayment(context.Context, string, internalpayments.Actor) (*models.Payment, error) {
	return &models.Payment{}, nil
}

func (stubPaymentsService) CancelPayment(context.Context, string, internalpayments.Actor) (*models.Payment, error) {
	return &models.Payment{}, nil
}

func (stubPaymentsService) GetPayment(context.Context, int64, internalpayments.Actor) (*models.Payment, error) {
	return &models.Payment{}, nil
}

func (stubPaymentsService) ListPayments(context.Context, internalpayments.ListQuery, internalpayments.Actor) ([]models.Payment, error) {
	return nil, nil
}

type sigAdapter struct{}

func (sigAdapter) Name() enums.PaymentMethod { return enums.PaymentMethodPaystack }

func (sigAdapter) Initialize(context.Context, providers.InitializeParams) (*providers.InitializeResult, error) {
	return nil, providers.NewRejectedError("paystack", "not used")
}

func (sigAdapter) SupportsVerify() bool { return false }

func (sigAdapter) Verify(context.Context, string) (*providers.VerifyResult, error) {
	return nil, providers.NewRejectedError("paystack", "not used")
}

func (sigAdapter) VerifyWebhookSignature([]byte, string) bool { return false }

func (sigAdapter) ParseWebhookEvent([]byte) (*providers.WebhookEvent, error) {
	return &providers.WebhookEvent{}, nil
}

type noopApplier struct{}

func (noopApplier) ApplyWebhookEvent(context.Context, enums.PaymentMethod, *providers.WebhookEvent) error {
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{Env: "test", Port: "0"},
		JWT: config.JWTConfig{
			Secret:            "secret",
			Issuer:            "issuer",
			ExpirationMinutes: 60,
		},
	}
}

func newTestRouter(t *testing.T, cfg *config.Config) http.Handler {
	t.Helper()
	logg := logger.New(logger.Options{ServiceName: "test-routing", Level: logger.ParseLevel("debug"), Output: io.Discard})
	registry, err := providers.NewRegistry(sigAdapter{})
	if err != nil {
		t.Fatalf("build registry: %v", err)
	}
	webhookSvc, err := internalwebhooks.NewService(internalwebhooks.ServiceParams{
		Registry: registry,
		Payments: noopApplier{},
	})
	if err != nil {
		t.Fatalf("build webhook service: %v", err)
	}
	return NewRouter(
		cfg,
		logg,
		stubPinger{},
		stubPinger{},
		nil, // idempotency store
		nil, // prometheus registry
		stubPaymentsService{},
		webhookSvc,
	)
}

func buildToken(t *testing.T, cfg *config.Config, role enums.UserRole) string {
	t.Helper()
	token, err := pkgauth.MintAccessToken(cfg.JWT, time.Now(), pkgauth.AccessTokenPayload{
		UserID: uuid.New(),
		Email:  "payer@example.com",
		Role:   role,
		JTI:    uuid.NewString(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestPrivateGroupRejectsMissingJWT(t *testing.T) {
	router := newTestRouter(t, testConfig())
	req := httptest.NewRequest(http.MethodGet, "/api/ping", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}
}

func TestPrivateGroupSucceedsWithJWT(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(t, cfg)
	req := httptest.NewRequest(http.MethodGet, "/api/ping", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleClient))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for private ping got %d", resp.Code)
	}
}

func TestPaymentsRoutesRequireAuth(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(t, cfg)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/payments/", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token got %d", resp.Code)
	}

	authed := httptest.NewRequest(http.MethodGet, "/api/v1/payments/", nil)
	authed.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleClient))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, authed)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for authed list got %d", resp.Code)
	}
}

func TestAdminRoutesRequireAdminRole(t *testing.T) {
	cfg := testConfig()
	router := newTestRouter(t, cfg)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/payments", nil)
	req.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleClient))
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for client role got %d", resp.Code)
	}

	admin := httptest.NewRequest(http.MethodGet, "/api/v1/admin/payments", nil)
	admin.Header.Set("Authorization", "Bearer "+buildToken(t, cfg, enums.UserRoleAdmin))
	resp = httptest.NewRecorder()
	router.ServeHTTP(resp, admin)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin role got %d", resp.Code)
	}
}

func TestWebhookRouteSkipsAuth(t *testing.T) {
	router := newTestRouter(t, testConfig())

	// No bearer token: the route must still be reachable and fail only on
	// the payload signature.
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/paystack", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 from signature check got %d", resp.Code)
	}
}

func TestHealthLive(t *testing.T) {
	router := newTestRouter(t, testConfig())
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	resp := httptest.NewRecorder()
	router.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 for liveness got %d", resp.Code)
	}
}
