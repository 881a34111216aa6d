package payments

import (
	"time"

	"github.com/google/uuid"

	"github.com/tobimartins/servicehub-backend/internal/providers"
	"github.com/tobimartins/servicehub-backend/pkg/db/models"
)

// InitializePaymentRequest is the POST /payments body. Amount travels as a
// decimal string so no client-side float ever touches money.
type InitializePaymentRequest struct {
	QuoteID     string `json:"quoteId" validate:"required,uuid"`
	Method      string `json:"method" validate:"required,oneof=paystack flutterwave bank_transfer cash"`
	PaymentType string `json:"paymentType" validate:"required,oneof=full deposit installment"`
	Amount      string `json:"amount" validate:"required"`
}

// PaymentResponse is the caller-facing view of a ledger row. The raw provider
// payload stays server-side.
type PaymentResponse struct {
	ID            int64      `json:"id"`
	Reference     string     `json:"reference"`
	QuoteID       uuid.UUID  `json:"quoteId"`
	PayerID       uuid.UUID  `json:"payerId"`
	Amount        string     `json:"amount"`
	Currency      string     `json:"currency"`
	PaymentType   string     `json:"paymentType"`
	Method        string     `json:"method"`
	Status        string     `json:"status"`
	ProviderTxID  *string    `json:"providerTxId,omitempty"`
	FailureReason *string    `json:"failureReason,omitempty"`
	CreatedAt     time.Time  `json:"createdAt"`
	PaidAt        *time.Time `json:"paidAt,omitempty"`
}

// InitializePaymentResponse pairs the new ledger row with the adapter payload.
type InitializePaymentResponse struct {
	Payment      PaymentResponse         `json:"payment"`
	RedirectURL  string                  `json:"redirectUrl,omitempty"`
	Instructions *providers.Instructions `json:"instructions,omitempty"`
}

func newPaymentResponse(payment *models.Payment) PaymentResponse {
	return PaymentResponse{
		ID:            payment.ID,
		Reference:     payment.Reference,
		QuoteID:       payment.QuoteID,
		PayerID:       payment.PayerID,
		Amount:        payment.Amount.StringFixed(2),
		Currency:      payment.Currency,
		PaymentType:   payment.PaymentType.String(),
		Method:        payment.Method.String(),
		Status:        payment.Status.String(),
		ProviderTxID:  payment.ProviderTxID,
		FailureReason: payment.FailureReason,
		CreatedAt:     payment.CreatedAt,
		PaidAt:        payment.PaidAt,
	}
}

func newPaymentListResponse(rows []models.Payment) []PaymentResponse {
	out := make([]PaymentResponse, 0, len(rows))
	for i := range rows {
		out = append(out, newPaymentResponse(&rows[i]))
	}
	return out
}
