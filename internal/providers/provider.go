package providers

import (
	"context"
	"encoding/json"

	"github.com/shopspring/decimal"

	"github.com/tobimartins/servicehub-backend/pkg/enums"
)

// InitializeParams carries everything an adapter needs to open a transaction.
type InitializeParams struct {
	Reference   string
	Amount      decimal.Decimal
	Currency    string
	Email       string
	CallbackURL string
	Metadata    map[string]any
}

// InitializeResult is what the caller gets back after initialization: hosted
// gateways return a redirect URL, manual channels return instructions.
type InitializeResult struct {
	Reference    string
	RedirectURL  string
	AccessCode   string
	Instructions *Instructions
}

// Instructions describes how to settle a payment outside a hosted checkout.
type Instructions struct {
	Channel       string `json:"channel"`
	BankName      string `json:"bankName,omitempty"`
	AccountName   string `json:"accountName,omitempty"`
	AccountNumber string `json:"accountNumber,omitempty"`
	OfficeAddress string `json:"officeAddress,omitempty"`
	OfficeHours   string `json:"officeHours,omitempty"`
	Note          string `json:"note"`
}

// Outcome classifies a provider-reported transaction state. Only the two
// final kinds may move a payment out of pending; OutcomePending covers every
// in-progress or informational status and must leave the ledger row alone.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
	OutcomePending   Outcome = "pending"
)

// IsFinal reports whether the outcome settles the transaction.
func (o Outcome) IsFinal() bool {
	return o == OutcomeSucceeded || o == OutcomeFailed
}

// VerifyResult is the normalized outcome of polling a gateway for a
// transaction's state. RawPayload retains the provider response verbatim.
type VerifyResult struct {
	Outcome        Outcome
	ProviderStatus string
	ProviderTxID   string
	FailureReason  string
	RawPayload     json.RawMessage
}

// WebhookEvent is the normalized form of a verified webhook delivery.
type WebhookEvent struct {
	EventType      string
	Reference      string
	ProviderTxID   string
	ProviderStatus string
	Outcome        Outcome
	FailureReason  string
	RawPayload     json.RawMessage
}

// Adapter is the uniform surface over one payment channel. Implementations
// are stateless per call; configuration and secrets are read-only after
// construction, so a single instance is safe for concurrent use.
type Adapter interface {
	// Name returns the method key the adapter serves.
	Name() enums.PaymentMethod

	// Initialize opens a transaction with the provider, or produces static
	// settlement instructions for manual channels.
	Initialize(ctx context.Context, params InitializeParams) (*InitializeResult, error)

	// SupportsVerify reports whether the channel has an automated
	// verification path. Manual channels return false.
	SupportsVerify() bool

	// Verify polls the provider for the transaction outcome by reference.
	Verify(ctx context.Context, reference string) (*VerifyResult, error)

	// VerifyWebhookSignature authenticates a raw webhook body against the
	// provider-supplied signature header. It must not parse the body.
	VerifyWebhookSignature(rawBody []byte, signatureHeader string) bool

	// ParseWebhookEvent decodes an already-authenticated webhook body into
	// a normalized event.
	ParseWebhookEvent(rawBody []byte) (*WebhookEvent, error)
}
