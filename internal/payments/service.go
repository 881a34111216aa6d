package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/tobimartins/servicehub-backend/internal/providers"
	"github.com/tobimartins/servicehub-backend/internal/quotes"
	"github.com/tobimartins/servicehub-backend/pkg/config"
	"github.com/tobimartins/servicehub-backend/pkg/db/models"
	"github.com/tobimartins/servicehub-backend/pkg/enums"
	apperrors "github.com/tobimartins/servicehub-backend/pkg/errors"
	"github.com/tobimartins/servicehub-backend/pkg/logger"
	"github.com/tobimartins/servicehub-backend/pkg/metrics"
	"github.com/tobimartins/servicehub-backend/pkg/outbox"
)

// Transactor runs a function inside a database transaction.
type Transactor interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ReferenceGenerator issues unique payment references.
type ReferenceGenerator interface {
	Generate(ctx context.Context) (string, error)
}

// OutboxEmitter queues domain events inside the caller's transaction.
type OutboxEmitter interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Actor identifies who is driving an operation, for authorization and audit.
type Actor struct {
	UserID uuid.UUID
	Email  string
	Role   enums.UserRole
}

// IsAdmin reports whether the actor may operate across all payers.
func (a Actor) IsAdmin() bool {
	return a.Role == enums.UserRoleAdmin
}

// ServiceParams groups dependencies for the payment service.
type ServiceParams struct {
	Repo      Repository
	Quotes    quotes.Repository
	Registry  *providers.Registry
	Generator ReferenceGenerator
	Tx        Transactor
	Outbox    OutboxEmitter
	Logger    *logger.Logger
	Metrics   *metrics.PaymentMetrics
	Config    config.PaymentsConfig
}

// Service is the payment orchestrator: it validates preconditions, creates
// ledger rows, dispatches to provider adapters and drives every status
// transition. The ledger is only ever mutated through this service.
type Service struct {
	repo      Repository
	quotes    quotes.Repository
	registry  *providers.Registry
	generator ReferenceGenerator
	tx        Transactor
	outbox    OutboxEmitter
	logg      *logger.Logger
	metrics   *metrics.PaymentMetrics
	cfg       config.PaymentsConfig
}

// NewService builds a payment service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, errors.New("repo is required")
	}
	if params.Quotes == nil {
		return nil, errors.New("quotes repo is required")
	}
	if params.Registry == nil {
		return nil, errors.New("provider registry is required")
	}
	if params.Generator == nil {
		return nil, errors.New("reference generator is required")
	}
	if params.Tx == nil {
		return nil, errors.New("transactor is required")
	}
	return &Service{
		repo:      params.Repo,
		quotes:    params.Quotes,
		registry:  params.Registry,
		generator: params.Generator,
		tx:        params.Tx,
		outbox:    params.Outbox,
		logg:      params.Logger,
		metrics:   params.Metrics,
		cfg:       params.Config,
	}, nil
}

// InitializeInput is the request to open a new payment against a quote.
type InitializeInput struct {
	QuoteID     uuid.UUID
	Method      enums.PaymentMethod
	PaymentType enums.PaymentType
	Amount      decimal.Decimal
	Actor       Actor
}

// InitializeOutput carries the new ledger row plus the adapter's payload:
// a redirect URL for hosted checkout or settlement instructions for manual
// channels.
type InitializeOutput struct {
	Payment      *models.Payment
	RedirectURL  string
	Instructions *providers.Instructions
}

// InitializePayment validates the request, creates a pending ledger row and
// dispatches to the provider adapter. Adapter failures leave the row pending:
// the record exists for audit but no charge was attempted.
func (s *Service) InitializePayment(ctx context.Context, input InitializeInput) (*InitializeOutput, error) {
	if !input.Method.IsValid() {
		return nil, apperrors.New(apperrors.CodeValidation, "unknown payment method").
			WithDetails(map[string]string{"method": input.Method.String()})
	}
	if !input.PaymentType.IsValid() {
		return nil, apperrors.New(apperrors.CodeValidation, "unknown payment type").
			WithDetails(map[string]string{"paymentType": input.PaymentType.String()})
	}
	adapter, err := s.registry.Resolve(input.Method)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeValidation, err, "unsupported payment method")
	}

	quote, err := s.quotes.FindByID(ctx, input.QuoteID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "loading quote")
	}
	if quote == nil {
		return nil, apperrors.New(apperrors.CodeNotFound, "quote not found")
	}
	if quote.OwnerID != input.Actor.UserID {
		return nil, apperrors.New(apperrors.CodeForbidden, "quote does not belong to payer")
	}
	if !quote.Status.IsPayable() {
		return nil, apperrors.New(apperrors.CodeStateConflict, "quote is not payable").
			WithDetails(map[string]string{"quoteStatus": quote.Status.String()})
	}
	if err := s.validateAmount(input.PaymentType, input.Amount, quote.TotalAmount); err != nil {
		return nil, err
	}

	reference, err := s.generator.Generate(ctx)
	if err != nil {
		return nil, err
	}

	currency := quote.Currency
	if currency == "" {
		currency = s.cfg.DefaultCurrency
	}
	metadata, err := json.Marshal(map[string]any{
		"quoteNumber": quote.QuoteNumber,
		"serviceId":   quote.ServiceID,
		"paymentType": input.PaymentType,
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "encoding payment metadata")
	}

	payment := &models.Payment{
		Reference:   reference,
		QuoteID:     quote.ID,
		PayerID:     input.Actor.UserID,
		Amount:      input.Amount,
		Currency:    currency,
		PaymentType: input.PaymentType,
		Method:      input.Method,
		Status:      enums.PaymentStatusPending,
		Metadata:    metadata,
	}
	if err := s.repo.Create(ctx, payment); err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "creating payment")
	}

	logCtx := s.withPaymentFields(ctx, payment)
	if s.logg != nil {
		s.logg.Info(logCtx, "payment initialized")
	}

	callCtx, cancel := context.WithTimeout(ctx, s.providerTimeout())
	defer cancel()
	result, err := adapter.Initialize(callCtx, providers.InitializeParams{
		Reference:   reference,
		Amount:      input.Amount,
		Currency:    currency,
		Email:       input.Actor.Email,
		CallbackURL: s.cfg.CallbackBaseURL,
		Metadata: map[string]any{
			"quoteId":     quote.ID.String(),
			"quoteNumber": quote.QuoteNumber,
		},
	})
	if err != nil {
		s.recordProviderError(input.Method.String(), err)
		if s.logg != nil {
			s.logg.Warn(logCtx, "provider initialization failed, payment left pending")
		}
		return nil, s.mapAdapterError(err)
	}

	return &InitializeOutput{
		Payment:      payment,
		RedirectURL:  result.RedirectURL,
		Instructions: result.Instructions,
	}, nil
}

// VerifyPayment polls the provider for the transaction outcome and applies
// the resulting transition. Completed payments return idempotently without
// touching the provider again.
func (s *Service) VerifyPayment(ctx context.Context, referenceID string, actor Actor) (*models.Payment, error) {
	payment, err := s.repo.FindByReference(ctx, referenceID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "loading payment")
	}
	if payment == nil {
		return nil, apperrors.New(apperrors.CodeNotFound, "payment not found")
	}
	if !actor.IsAdmin() && payment.PayerID != actor.UserID {
		return nil, apperrors.New(apperrors.CodeForbidden, "payment does not belong to caller")
	}
	if payment.Status.IsTerminal() {
		return payment, nil
	}

	adapter, err := s.registry.Resolve(payment.Method)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "resolving adapter")
	}
	if !adapter.SupportsVerify() {
		return nil, apperrors.New(apperrors.CodeValidation, "payment method does not support verification").
			WithDetails(map[string]string{"method": payment.Method.String()})
	}

	callCtx, cancel := context.WithTimeout(ctx, s.providerTimeout())
	defer cancel()
	result, err := adapter.Verify(callCtx, referenceID)
	if err != nil {
		s.recordProviderError(payment.Method.String(), err)
		return nil, s.mapAdapterError(err)
	}

	return s.applyProviderOutcome(ctx, payment, providerOutcome{
		Outcome:        result.Outcome,
		ProviderStatus: result.ProviderStatus,
		ProviderTxID:   result.ProviderTxID,
		FailureReason:  result.FailureReason,
		RawPayload:     result.RawPayload,
	}, SourceManualVerify)
}

// CancelPayment soft-deletes a pending payment. The row stays in the ledger
// for audit.
func (s *Service) CancelPayment(ctx context.Context, referenceID string, actor Actor) (*models.Payment, error) {
	payment, err := s.repo.FindByReference(ctx, referenceID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "loading payment")
	}
	if payment == nil {
		return nil, apperrors.New(apperrors.CodeNotFound, "payment not found")
	}
	if !actor.IsAdmin() && payment.PayerID != actor.UserID {
		return nil, apperrors.New(apperrors.CodeForbidden, "payment does not belong to caller")
	}
	if _, err := Transition(payment.Status, EventCancel); err != nil {
		return nil, apperrors.New(apperrors.CodeStateConflict, "payment cannot be cancelled").
			WithDetails(map[string]string{"status": payment.Status.String()})
	}

	var won bool
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var txErr error
		won, txErr = s.repo.WithTx(tx).TransitionFromPending(ctx, referenceID, TransitionUpdate{
			Status: enums.PaymentStatusCancelled,
		})
		if txErr != nil {
			return txErr
		}
		if won {
			return s.emitEvent(ctx, tx, payment, enums.OutboxEventPaymentCancelled, &actor)
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "cancelling payment")
	}
	if !won {
		return nil, apperrors.New(apperrors.CodeStateConflict, "payment is no longer pending")
	}

	s.metrics.IncTransition(enums.PaymentStatusCancelled.String(), string(SourceClient))
	if s.logg != nil {
		s.logg.Info(s.withTransitionFields(ctx, payment, enums.PaymentStatusCancelled, SourceClient), "payment cancelled")
	}
	return s.reload(ctx, referenceID)
}

// GetPayment returns one ledger row, self-scoped unless the actor is admin.
func (s *Service) GetPayment(ctx context.Context, id int64, actor Actor) (*models.Payment, error) {
	payment, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "loading payment")
	}
	if payment == nil {
		return nil, apperrors.New(apperrors.CodeNotFound, "payment not found")
	}
	if !actor.IsAdmin() && payment.PayerID != actor.UserID {
		return nil, apperrors.New(apperrors.CodeForbidden, "payment does not belong to caller")
	}
	return payment, nil
}

// ListPayments returns ledger rows matching the query. Non-admin callers are
// always scoped to their own payments regardless of the requested filter.
func (s *Service) ListPayments(ctx context.Context, query ListQuery, actor Actor) ([]models.Payment, error) {
	if !actor.IsAdmin() {
		query.PayerID = &actor.UserID
	}
	rows, err := s.repo.List(ctx, query)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "listing payments")
	}
	return rows, nil
}

// ApplyWebhookEvent feeds an authenticated, normalized provider event into
// the state machine. Unknown references and terminal payments are absorbed
// quietly so providers stop retrying.
func (s *Service) ApplyWebhookEvent(ctx context.Context, method enums.PaymentMethod, event *providers.WebhookEvent) error {
	payment, err := s.repo.FindByReference(ctx, event.Reference)
	if err != nil {
		return apperrors.Wrap(apperrors.CodeInternal, err, "loading payment")
	}
	if payment == nil {
		if s.logg != nil {
			logCtx := s.logg.WithFields(ctx, map[string]any{
				"payment_reference": event.Reference,
				"provider":          method.String(),
				"event_type":        event.EventType,
			})
			s.logg.Warn(logCtx, "webhook for unknown payment reference")
		}
		return nil
	}
	if payment.Method != method {
		if s.logg != nil {
			s.logg.Warn(s.withPaymentFields(ctx, payment), "webhook provider does not match payment method")
		}
		return nil
	}
	if payment.Status.IsTerminal() {
		return nil
	}

	_, err = s.applyProviderOutcome(ctx, payment, providerOutcome{
		Outcome:        event.Outcome,
		ProviderStatus: event.ProviderStatus,
		ProviderTxID:   event.ProviderTxID,
		FailureReason:  event.FailureReason,
		RawPayload:     event.RawPayload,
	}, SourceWebhook)
	return err
}

type providerOutcome struct {
	Outcome        providers.Outcome
	ProviderStatus string
	ProviderTxID   string
	FailureReason  string
	RawPayload     json.RawMessage
}

// applyProviderOutcome performs the conditional transition out of pending.
// Non-final provider states leave the row pending; a later webhook or poll
// settles it. The status write, the quote bridge call and the outbox emit
// share one transaction; losing the compare-and-swap race degrades to an
// idempotent re-read.
func (s *Service) applyProviderOutcome(ctx context.Context, payment *models.Payment, outcome providerOutcome, source TransitionSource) (*models.Payment, error) {
	if !outcome.Outcome.IsFinal() {
		if s.logg != nil {
			logCtx := s.logg.WithField(s.withPaymentFields(ctx, payment), "provider_status", outcome.ProviderStatus)
			s.logg.Info(logCtx, "provider reports non-final status")
		}
		return payment, nil
	}

	event := EventProviderFailure
	eventType := enums.OutboxEventPaymentFailed
	if outcome.Outcome == providers.OutcomeSucceeded {
		event = EventProviderSuccess
		eventType = enums.OutboxEventPaymentCompleted
	}
	nextStatus, err := Transition(payment.Status, event)
	if err != nil {
		// Raced by another writer since the read; the row is terminal now.
		return s.reload(ctx, payment.Reference)
	}

	update := TransitionUpdate{
		Status:           nextStatus,
		ProviderResponse: outcome.RawPayload,
	}
	if outcome.ProviderTxID != "" {
		update.ProviderTxID = &outcome.ProviderTxID
	}
	if nextStatus == enums.PaymentStatusCompleted {
		now := time.Now()
		update.PaidAt = &now
	}
	if outcome.FailureReason != "" {
		update.FailureReason = &outcome.FailureReason
	}

	var won bool
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		var txErr error
		won, txErr = s.repo.WithTx(tx).TransitionFromPending(ctx, payment.Reference, update)
		if txErr != nil {
			return txErr
		}
		if !won {
			return nil
		}
		if nextStatus == enums.PaymentStatusCompleted && payment.PaymentType == enums.PaymentTypeFull {
			if txErr := s.quotes.WithTx(tx).MarkPaid(ctx, payment.QuoteID); txErr != nil {
				return fmt.Errorf("marking quote paid: %w", txErr)
			}
		}
		return s.emitEvent(ctx, tx, payment, eventType, nil)
	})
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "applying payment transition")
	}

	if won {
		s.metrics.IncTransition(nextStatus.String(), string(source))
		if s.logg != nil {
			s.logg.Info(s.withTransitionFields(ctx, payment, nextStatus, source), "payment transitioned")
		}
	}
	return s.reload(ctx, payment.Reference)
}

func (s *Service) validateAmount(paymentType enums.PaymentType, amount, total decimal.Decimal) error {
	if amount.Cmp(decimal.Zero) <= 0 {
		return apperrors.New(apperrors.CodeValidation, "amount must be positive")
	}
	switch paymentType {
	case enums.PaymentTypeFull:
		if !amount.Equal(total) {
			return apperrors.New(apperrors.CodeValidation, "full payment must equal the quote total").
				WithDetails(map[string]string{
					"amount":     amount.String(),
					"quoteTotal": total.String(),
				})
		}
	default:
		minimum := total.Mul(decimal.NewFromFloat(s.cfg.MinDepositPercent)).Div(decimal.NewFromInt(100))
		if amount.Cmp(minimum) < 0 {
			return apperrors.New(apperrors.CodeValidation, "amount is below the minimum deposit").
				WithDetails(map[string]string{
					"amount":  amount.String(),
					"minimum": minimum.String(),
				})
		}
		if amount.Cmp(total) > 0 {
			return apperrors.New(apperrors.CodeValidation, "amount exceeds the quote total").
				WithDetails(map[string]string{
					"amount":     amount.String(),
					"quoteTotal": total.String(),
				})
		}
	}
	return nil
}

// PaymentEventData is the payload published for payment lifecycle events.
type PaymentEventData struct {
	PaymentID   int64     `json:"paymentId"`
	Reference   string    `json:"reference"`
	QuoteID     uuid.UUID `json:"quoteId"`
	PayerID     uuid.UUID `json:"payerId"`
	Amount      string    `json:"amount"`
	Currency    string    `json:"currency"`
	PaymentType string    `json:"paymentType"`
	Method      string    `json:"method"`
}

func (s *Service) emitEvent(ctx context.Context, tx *gorm.DB, payment *models.Payment, eventType enums.OutboxEventType, actor *Actor) error {
	if s.outbox == nil {
		return nil
	}
	var actorRef *outbox.ActorRef
	if actor != nil {
		actorRef = &outbox.ActorRef{UserID: actor.UserID, Role: actor.Role.String()}
	}
	return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
		EventType:     eventType,
		AggregateType: enums.OutboxAggregatePayment,
		AggregateID:   payment.Reference,
		Actor:         actorRef,
		Data: PaymentEventData{
			PaymentID:   payment.ID,
			Reference:   payment.Reference,
			QuoteID:     payment.QuoteID,
			PayerID:     payment.PayerID,
			Amount:      payment.Amount.String(),
			Currency:    payment.Currency,
			PaymentType: payment.PaymentType.String(),
			Method:      payment.Method.String(),
		},
		Version: 1,
	})
}

func (s *Service) reload(ctx context.Context, referenceID string) (*models.Payment, error) {
	payment, err := s.repo.FindByReference(ctx, referenceID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeInternal, err, "reloading payment")
	}
	if payment == nil {
		return nil, apperrors.New(apperrors.CodeNotFound, "payment not found")
	}
	return payment, nil
}

func (s *Service) mapAdapterError(err error) error {
	adapterErr := providers.AsAdapterError(err)
	if adapterErr == nil {
		return apperrors.Wrap(apperrors.CodeDependency, err, "provider call failed")
	}
	switch adapterErr.Kind {
	case providers.KindRejected:
		return apperrors.Wrap(apperrors.CodeProviderRejected, err, "provider rejected the transaction").
			WithDetails(map[string]string{"reason": adapterErr.Reason})
	case providers.KindMalformed:
		return apperrors.Wrap(apperrors.CodeInternal, err, "unexpected provider response")
	default:
		return apperrors.Wrap(apperrors.CodeDependency, err, "provider temporarily unavailable")
	}
}

func (s *Service) recordProviderError(provider string, err error) {
	s.metrics.IncProviderError(provider, string(providers.KindOf(err)))
}

func (s *Service) providerTimeout() time.Duration {
	if s.cfg.ProviderTimeout > 0 {
		return s.cfg.ProviderTimeout
	}
	return 15 * time.Second
}

func (s *Service) withPaymentFields(ctx context.Context, payment *models.Payment) context.Context {
	if s.logg == nil {
		return ctx
	}
	return s.logg.WithFields(s.logg.WithReference(ctx, payment.Reference), map[string]any{
		"quote_id": payment.QuoteID,
		"method":   payment.Method,
	})
}

func (s *Service) withTransitionFields(ctx context.Context, payment *models.Payment, next enums.PaymentStatus, source TransitionSource) context.Context {
	if s.logg == nil {
		return ctx
	}
	return s.logg.WithFields(ctx, map[string]any{
		"payment_reference": payment.Reference,
		"status_before":     payment.Status,
		"status_after":      next,
		"source":            source,
	})
}
