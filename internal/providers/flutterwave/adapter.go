package flutterwave

import (
	"bytes"
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/tobimartins/servicehub-backend/internal/providers"
	"github.com/tobimartins/servicehub-backend/pkg/config"
	"github.com/tobimartins/servicehub-backend/pkg/enums"
	"github.com/tobimartins/servicehub-backend/pkg/logger"
)

const (
	providerName = "flutterwave"

	retryBaseDelay  = 250 * time.Millisecond
	retryMaxRetries = 2
)

// Adapter drives hosted checkout through the Flutterwave v3 REST API.
// Webhook authentication uses the verif-hash header: Flutterwave sends the
// account's configured secret hash verbatim rather than signing the body.
type Adapter struct {
	secretKey   string
	webhookHash string
	baseURL     string
	client      *http.Client
	logg        *logger.Logger
}

// Params groups the adapter's dependencies.
type Params struct {
	Config  config.FlutterwaveConfig
	Timeout time.Duration
	Logger  *logger.Logger
}

// New builds a Flutterwave adapter.
func New(params Params) (*Adapter, error) {
	if params.Config.SecretKey == "" {
		return nil, fmt.Errorf("flutterwave secret key is required")
	}
	if params.Config.WebhookHash == "" {
		return nil, fmt.Errorf("flutterwave webhook hash is required")
	}
	timeout := params.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Adapter{
		secretKey:   params.Config.SecretKey,
		webhookHash: params.Config.WebhookHash,
		baseURL:     strings.TrimRight(params.Config.BaseURL, "/"),
		client:      &http.Client{Timeout: timeout},
		logg:        params.Logger,
	}, nil
}

func (a *Adapter) Name() enums.PaymentMethod {
	return enums.PaymentMethodFlutterwave
}

func (a *Adapter) SupportsVerify() bool {
	return true
}

type initializeRequest struct {
	TxRef       string         `json:"tx_ref"`
	Amount      string         `json:"amount"`
	Currency    string         `json:"currency"`
	RedirectURL string         `json:"redirect_url,omitempty"`
	Customer    customerRef    `json:"customer"`
	Meta        map[string]any `json:"meta,omitempty"`
}

type customerRef struct {
	Email string `json:"email"`
}

type apiEnvelope struct {
	Status  string          `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type initializeData struct {
	Link string `json:"link"`
}

type verifyData struct {
	ID              int64  `json:"id"`
	TxRef           string `json:"tx_ref"`
	Status          string `json:"status"`
	ProcessorReason string `json:"processor_response"`
}

func (a *Adapter) Initialize(ctx context.Context, params providers.InitializeParams) (*providers.InitializeResult, error) {
	payload := initializeRequest{
		TxRef:       params.Reference,
		Amount:      params.Amount.StringFixed(2),
		Currency:    params.Currency,
		RedirectURL: params.CallbackURL,
		Customer:    customerRef{Email: params.Email},
		Meta:        params.Metadata,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, providers.NewMalformedError(providerName, "encoding initialize request", err)
	}

	envelope, err := a.call(ctx, http.MethodPost, "/payments", body)
	if err != nil {
		return nil, err
	}
	if envelope.Status != "success" {
		return nil, providers.NewRejectedError(providerName, envelope.Message)
	}

	var data initializeData
	if err := json.Unmarshal(envelope.Data, &data); err != nil {
		return nil, providers.NewMalformedError(providerName, "decoding initialize response", err)
	}
	if data.Link == "" {
		return nil, providers.NewMalformedError(providerName, "initialize response missing payment link", nil)
	}
	return &providers.InitializeResult{
		Reference:   params.Reference,
		RedirectURL: data.Link,
	}, nil
}

func (a *Adapter) Verify(ctx context.Context, reference string) (*providers.VerifyResult, error) {
	path := "/transactions/verify_by_reference?tx_ref=" + url.QueryEscape(reference)
	envelope, err := a.call(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	if envelope.Status != "success" {
		return nil, providers.NewMalformedError(providerName, envelope.Message, nil)
	}

	var data verifyData
	if err := json.Unmarshal(envelope.Data, &data); err != nil {
		return nil, providers.NewMalformedError(providerName, "decoding verify response", err)
	}
	result := &providers.VerifyResult{
		Outcome:        transactionOutcome(data.Status),
		ProviderStatus: data.Status,
		RawPayload:     append(json.RawMessage(nil), envelope.Data...),
	}
	if data.ID != 0 {
		result.ProviderTxID = fmt.Sprintf("%d", data.ID)
	}
	if result.Outcome == providers.OutcomeFailed {
		result.FailureReason = data.ProcessorReason
	}
	return result, nil
}

// transactionOutcome maps a Flutterwave transaction status. A pending
// transaction is still settling; only successful and failed are final.
func transactionOutcome(status string) providers.Outcome {
	switch status {
	case "successful":
		return providers.OutcomeSucceeded
	case "failed":
		return providers.OutcomeFailed
	default:
		return providers.OutcomePending
	}
}

// VerifyWebhookSignature compares the verif-hash header against the
// configured secret hash in constant time.
func (a *Adapter) VerifyWebhookSignature(rawBody []byte, signatureHeader string) bool {
	if signatureHeader == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(a.webhookHash), []byte(signatureHeader)) == 1
}

type webhookPayload struct {
	Event string `json:"event"`
	Data  struct {
		ID              int64  `json:"id"`
		TxRef           string `json:"tx_ref"`
		Status          string `json:"status"`
		ProcessorReason string `json:"processor_response"`
	} `json:"data"`
}

func (a *Adapter) ParseWebhookEvent(rawBody []byte) (*providers.WebhookEvent, error) {
	var payload webhookPayload
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		return nil, providers.NewMalformedError(providerName, "decoding webhook body", err)
	}
	if payload.Data.TxRef == "" {
		return nil, providers.NewMalformedError(providerName, "webhook body missing tx_ref", nil)
	}
	outcome := providers.OutcomePending
	if payload.Event == "charge.completed" {
		// Other events (transfer.completed, subscription.cancelled, ...) are
		// informational for this ledger and must not move a payment.
		outcome = transactionOutcome(payload.Data.Status)
	}
	event := &providers.WebhookEvent{
		EventType:      payload.Event,
		Reference:      payload.Data.TxRef,
		ProviderStatus: payload.Data.Status,
		Outcome:        outcome,
		RawPayload:     append(json.RawMessage(nil), rawBody...),
	}
	if payload.Data.ID != 0 {
		event.ProviderTxID = fmt.Sprintf("%d", payload.Data.ID)
	}
	if event.Outcome == providers.OutcomeFailed {
		event.FailureReason = payload.Data.ProcessorReason
	}
	return event, nil
}

func (a *Adapter) call(ctx context.Context, method, path string, body []byte) (*apiEnvelope, error) {
	var envelope apiEnvelope

	backoff := retry.WithMaxRetries(retryMaxRetries, retry.NewFibonacci(retryBaseDelay))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, a.baseURL+path, reader)
		if err != nil {
			return err
		}
		req.Header.Set("Authorization", "Bearer "+a.secretKey)
		req.Header.Set("Content-Type", "application/json")

		resp, err := a.client.Do(req)
		if err != nil {
			return retry.RetryableError(providers.NewTransientError(providerName, "request failed", err))
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		if err != nil {
			return retry.RetryableError(providers.NewTransientError(providerName, "reading response", err))
		}
		if resp.StatusCode >= http.StatusInternalServerError {
			return retry.RetryableError(providers.NewTransientError(
				providerName, fmt.Sprintf("provider returned %d", resp.StatusCode), nil))
		}
		if resp.StatusCode >= http.StatusBadRequest {
			var failed apiEnvelope
			if err := json.Unmarshal(respBody, &failed); err == nil && failed.Message != "" {
				return providers.NewRejectedError(providerName, failed.Message)
			}
			return providers.NewRejectedError(providerName, fmt.Sprintf("provider returned %d", resp.StatusCode))
		}
		if err := json.Unmarshal(respBody, &envelope); err != nil {
			return providers.NewMalformedError(providerName, "decoding response envelope", err)
		}
		return nil
	})
	if err != nil {
		if a.logg != nil {
			a.logg.Warn(a.logg.WithProvider(ctx, providerName), "flutterwave call failed")
		}
		return nil, err
	}
	return &envelope, nil
}
