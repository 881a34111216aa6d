package payments

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tobimartins/servicehub-backend/api/middleware"
	"github.com/tobimartins/servicehub-backend/api/responses"
	"github.com/tobimartins/servicehub-backend/api/validators"
	internalpayments "github.com/tobimartins/servicehub-backend/internal/payments"
	"github.com/tobimartins/servicehub-backend/pkg/db/models"
	"github.com/tobimartins/servicehub-backend/pkg/enums"
	pkgerrors "github.com/tobimartins/servicehub-backend/pkg/errors"
	"github.com/tobimartins/servicehub-backend/pkg/logger"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// Service is the payment orchestration surface the controllers depend on.
type Service interface {
	InitializePayment(ctx context.Context, input internalpayments.InitializeInput) (*internalpayments.InitializeOutput, error)
	VerifyPayment(ctx context.Context, reference string, actor internalpayments.Actor) (*models.Payment, error)
	CancelPayment(ctx context.Context, reference string, actor internalpayments.Actor) (*models.Payment, error)
	GetPayment(ctx context.Context, id int64, actor internalpayments.Actor) (*models.Payment, error)
	ListPayments(ctx context.Context, query internalpayments.ListQuery, actor internalpayments.Actor) ([]models.Payment, error)
}

// Create initializes a payment for a quote and returns the pending ledger row
// together with the provider's checkout payload.
func Create(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		actor, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload InitializePaymentRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		quoteID, err := uuid.Parse(strings.TrimSpace(payload.QuoteID))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid quote id"))
			return
		}
		method, err := enums.ParsePaymentMethod(payload.Method)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment method"))
			return
		}
		paymentType, err := enums.ParsePaymentType(payload.PaymentType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid payment type"))
			return
		}
		amount, err := decimal.NewFromString(strings.TrimSpace(payload.Amount))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "amount must be a decimal string"))
			return
		}

		output, err := svc.InitializePayment(r.Context(), internalpayments.InitializeInput{
			QuoteID:     quoteID,
			Method:      method,
			PaymentType: paymentType,
			Amount:      amount,
			Actor:       actor,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, InitializePaymentResponse{
			Payment:      newPaymentResponse(output.Payment),
			RedirectURL:  output.RedirectURL,
			Instructions: output.Instructions,
		})
	}
}

// Verify re-queries the provider for the referenced payment and returns the
// (possibly transitioned) ledger row.
func Verify(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		actor, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		reference := strings.TrimSpace(r.URL.Query().Get("reference"))
		if reference == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "reference is required"))
			return
		}

		payment, err := svc.VerifyPayment(r.Context(), reference, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newPaymentResponse(payment))
	}
}

// Cancel voids a pending payment on behalf of its payer.
func Cancel(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		actor, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		reference := strings.TrimSpace(chi.URLParam(r, "reference"))
		if reference == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "reference is required"))
			return
		}

		payment, err := svc.CancelPayment(r.Context(), reference, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newPaymentResponse(payment))
	}
}

// Detail returns a single payment by numeric id, scoped to the actor.
func Detail(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		actor, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rawID := strings.TrimSpace(chi.URLParam(r, "paymentId"))
		id, err := strconv.ParseInt(rawID, 10, 64)
		if err != nil || id <= 0 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "invalid payment id"))
			return
		}

		payment, err := svc.GetPayment(r.Context(), id, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newPaymentResponse(payment))
	}
}

// List returns the actor's payments; admins may filter across all payers.
func List(svc Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "payments service unavailable"))
			return
		}

		actor, err := actorFromContext(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		query, err := buildListQuery(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		rows, err := svc.ListPayments(r.Context(), query, actor)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newPaymentListResponse(rows))
	}
}

func buildListQuery(r *http.Request) (internalpayments.ListQuery, error) {
	var query internalpayments.ListQuery

	limit, err := validators.ParseQueryInt(r, "limit", defaultListLimit, 1, maxListLimit)
	if err != nil {
		return query, err
	}
	query.Limit = limit

	offset, err := validators.ParseQueryInt(r, "offset", 0, 0, 1<<30)
	if err != nil {
		return query, err
	}
	query.Offset = offset

	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		status, err := enums.ParsePaymentStatus(raw)
		if err != nil {
			return query, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status filter")
		}
		query.Status = &status
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("method")); raw != "" {
		method, err := enums.ParsePaymentMethod(raw)
		if err != nil {
			return query, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid method filter")
		}
		query.Method = &method
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("quote_id")); raw != "" {
		quoteID, err := uuid.Parse(raw)
		if err != nil {
			return query, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid quote_id filter")
		}
		query.QuoteID = &quoteID
	}

	return query, nil
}

func actorFromContext(r *http.Request) (internalpayments.Actor, error) {
	rawUserID := middleware.UserIDFromContext(r.Context())
	if rawUserID == "" {
		return internalpayments.Actor{}, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	userID, err := uuid.Parse(rawUserID)
	if err != nil {
		return internalpayments.Actor{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid user id")
	}

	role, err := enums.ParseUserRole(middleware.RoleFromContext(r.Context()))
	if err != nil {
		return internalpayments.Actor{}, pkgerrors.Wrap(pkgerrors.CodeForbidden, err, "invalid role")
	}

	return internalpayments.Actor{
		UserID: userID,
		Email:  middleware.EmailFromContext(r.Context()),
		Role:   role,
	}, nil
}
