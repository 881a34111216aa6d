package webhooks

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"github.com/tobimartins/servicehub-backend/internal/providers"
	"github.com/tobimartins/servicehub-backend/pkg/enums"
	apperrors "github.com/tobimartins/servicehub-backend/pkg/errors"
	"github.com/tobimartins/servicehub-backend/pkg/logger"
	"github.com/tobimartins/servicehub-backend/pkg/metrics"
)

// PaymentApplier is the orchestrator surface the ingestor feeds verified
// events into.
type PaymentApplier interface {
	ApplyWebhookEvent(ctx context.Context, method enums.PaymentMethod, event *providers.WebhookEvent) error
}

// ServiceParams groups dependencies for the webhook ingestor.
type ServiceParams struct {
	Registry    *providers.Registry
	Payments    PaymentApplier
	Idempotency *IdempotencyGuard
	Logger      *logger.Logger
	Metrics     *metrics.PaymentMetrics
}

// Service authenticates inbound provider callbacks and feeds them into the
// payment orchestrator. Signature verification happens on the raw body before
// any parsing; only authentication failures surface as errors the transport
// layer turns into a non-2xx response.
type Service struct {
	registry    *providers.Registry
	payments    PaymentApplier
	idempotency *IdempotencyGuard
	logg        *logger.Logger
	metrics     *metrics.PaymentMetrics
}

// NewService builds a webhook ingestor.
func NewService(params ServiceParams) (*Service, error) {
	if params.Registry == nil {
		return nil, errors.New("provider registry is required")
	}
	if params.Payments == nil {
		return nil, errors.New("payment applier is required")
	}
	return &Service{
		registry:    params.Registry,
		payments:    params.Payments,
		idempotency: params.Idempotency,
		logg:        params.Logger,
		metrics:     params.Metrics,
	}, nil
}

// HandleWebhook processes one delivery. A nil return means the transport
// layer should acknowledge with 2xx, even when the business outcome was a
// failed payment or an ignorable event.
func (s *Service) HandleWebhook(ctx context.Context, method enums.PaymentMethod, rawBody []byte, signatureHeader string) error {
	adapter, err := s.registry.Resolve(method)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeNotFound, err, "unknown webhook provider")
	}

	if !adapter.VerifyWebhookSignature(rawBody, signatureHeader) {
		s.metrics.IncWebhook(method.String(), "unauthorized")
		if s.logg != nil {
			s.logg.Warn(s.logg.WithProvider(ctx, method.String()), "webhook signature verification failed")
		}
		return apperrors.New(apperrors.CodeUnauthorized, "webhook signature verification failed")
	}

	event, err := adapter.ParseWebhookEvent(rawBody)
	if err != nil {
		// Authenticated but unreadable; acknowledge so the provider stops
		// retrying a body we will never parse, and log for investigation.
		s.metrics.IncWebhook(method.String(), "malformed")
		if s.logg != nil {
			s.logg.Warn(s.logg.WithProvider(ctx, method.String()), "webhook body could not be parsed")
		}
		return nil
	}

	logCtx := ctx
	if s.logg != nil {
		logCtx = s.logg.WithFields(s.logg.WithReference(ctx, event.Reference), map[string]any{
			"provider":   method.String(),
			"event_type": event.EventType,
		})
	}

	eventID := deliveryID(event)
	if s.idempotency != nil {
		seen, err := s.idempotency.CheckAndMark(ctx, eventID)
		if err != nil {
			return apperrors.Wrap(apperrors.CodeDependency, err, "checking webhook idempotency")
		}
		if seen {
			s.metrics.IncWebhook(method.String(), "duplicate")
			if s.logg != nil {
				s.logg.Info(logCtx, "duplicate webhook delivery ignored")
			}
			return nil
		}
	}

	if err := s.payments.ApplyWebhookEvent(ctx, method, event); err != nil {
		if s.idempotency != nil {
			// Unmark so the provider's retry gets another chance.
			_ = s.idempotency.Delete(ctx, eventID)
		}
		s.metrics.IncWebhook(method.String(), "error")
		return err
	}

	s.metrics.IncWebhook(method.String(), "processed")
	if s.logg != nil {
		s.logg.Info(logCtx, "webhook processed")
	}
	return nil
}

// deliveryID derives a stable identifier for a delivery from its normalized
// content, since not every provider sends an explicit event id.
func deliveryID(event *providers.WebhookEvent) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s|%s|%s|%s",
		event.EventType, event.Reference, event.ProviderTxID, event.ProviderStatus)))
	return hex.EncodeToString(sum[:16])
}
