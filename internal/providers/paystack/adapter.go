package paystack

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"github.com/shopspring/decimal"

	"github.com/tobimartins/servicehub-backend/internal/providers"
	"github.com/tobimartins/servicehub-backend/pkg/config"
	"github.com/tobimartins/servicehub-backend/pkg/enums"
	"github.com/tobimartins/servicehub-backend/pkg/logger"
)

const (
	providerName = "paystack"

	retryBaseDelay  = 250 * time.Millisecond
	retryMaxRetries = 2
)

// Adapter drives hosted checkout through the Paystack REST API. Amounts are
// converted to the currency's minor unit (kobo for NGN) on the wire.
type Adapter struct {
	secretKey string
	baseURL   string
	client    *http.Client
	logg      *logger.Logger
}

// Params groups the adapter's dependencies.
type Params struct {
	Config  config.PaystackConfig
	Timeout time.Duration
	Logger  *logger.Logger
}

// New builds a Paystack adapter.
func New(params Params) (*Adapter, error) {
	if params.Config.SecretKey == "" {
		return nil, fmt.Errorf("paystack secret key is required")
	}
	timeout := params.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Adapter{
		secretKey: params.Config.SecretKey,
		baseURL:   strings.TrimRight(params.Config.BaseURL, "/"),
		client:    &http.Client{Timeout: timeout},
		logg:      params.Logger,
	}, nil
}

func (a *Adapter) Name() enums.PaymentMethod {
	return enums.PaymentMethodPaystack
}

func (a *Adapter) SupportsVerify() bool {
	return true
}

type initializeRequest struct {
	Email       string         `json:"email"`
	Amount      string         `json:"amount"`
	Reference   string         `json:"reference"`
	Currency    string         `json:"currency"`
	CallbackURL string         `json:"callback_url,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

type apiEnvelope struct {
	Status  bool            `json:"status"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

type initializeData struct {
	AuthorizationURL string `json:"authorization_url"`
	AccessCode       string `json:"access_code"`
	Reference        string `json:"reference"`
}

type verifyData struct {
	ID              int64  `json:"id"`
	Status          string `json:"status"`
	Reference       string `json:"reference"`
	GatewayResponse string `json:"gateway_response"`
}

func (a *Adapter) Initialize(ctx context.Context, params providers.InitializeParams) (*providers.InitializeResult, error) {
	payload := initializeRequest{
		Email:       params.Email,
		Amount:      toMinorUnit(params.Amount),
		Reference:   params.Reference,
		Currency:    params.Currency,
		CallbackURL: params.CallbackURL,
		Metadata:    params.Metadata,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, providers.NewMalformedError(providerName, "encoding initialize request", err)
	}

	envelope, err := a.call(ctx, http.MethodPost, "/transaction/initialize", body)
	if err != nil {
		return nil, err
	}
	if !envelope.Status {
		return nil, providers.NewRejectedError(providerName, envelope.Message)
	}

	var data initializeData
	if err := json.Unmarshal(envelope.Data, &data); err != nil {
		return nil, providers.NewMalformedError(providerName, "decoding initialize response", err)
	}
	if data.AuthorizationURL == "" {
		return nil, providers.NewMalformedError(providerName, "initialize response missing authorization url", nil)
	}
	return &providers.InitializeResult{
		Reference:   params.Reference,
		RedirectURL: data.AuthorizationURL,
		AccessCode:  data.AccessCode,
	}, nil
}

func (a *Adapter) Verify(ctx context.Context, reference string) (*providers.VerifyResult, error) {
	envelope, err := a.call(ctx, http.MethodGet, "/transaction/verify/"+reference, nil)
	if err != nil {
		return nil, err
	}
	if !envelope.Status {
		return nil, providers.NewMalformedError(providerName, envelope.Message, nil)
	}

	var data verifyData
	if err := json.Unmarshal(envelope.Data, &data); err != nil {
		return nil, providers.NewMalformedError(providerName, "decoding verify response", err)
	}
	result := &providers.VerifyResult{
		Outcome:        verifyOutcome(data.Status),
		ProviderStatus: data.Status,
		RawPayload:     append(json.RawMessage(nil), envelope.Data...),
	}
	if data.ID != 0 {
		result.ProviderTxID = fmt.Sprintf("%d", data.ID)
	}
	if result.Outcome == providers.OutcomeFailed {
		result.FailureReason = data.GatewayResponse
	}
	return result, nil
}

// verifyOutcome maps a transaction status from the verify endpoint. Paystack
// reports ongoing, pending, queued and abandoned for transactions the
// customer may still complete; only success, failed and reversed are final.
func verifyOutcome(status string) providers.Outcome {
	switch status {
	case "success":
		return providers.OutcomeSucceeded
	case "failed", "reversed":
		return providers.OutcomeFailed
	default:
		return providers.OutcomePending
	}
}

// VerifyWebhookSignature checks the hex HMAC-SHA512 of the raw body against
// the X-Paystack-Signature header value.
func (a *Adapter) VerifyWebhookSignature(rawBody []byte, signatureHeader string) bool {
	if signatureHeader == "" {
		return false
	}
	mac := hmac.New(sha512.New, []byte(a.secretKey))
	mac.Write(rawBody)
	expected := hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(signatureHeader)))
}

type webhookPayload struct {
	Event string `json:"event"`
	Data  struct {
		ID              int64  `json:"id"`
		Status          string `json:"status"`
		Reference       string `json:"reference"`
		GatewayResponse string `json:"gateway_response"`
	} `json:"data"`
}

func (a *Adapter) ParseWebhookEvent(rawBody []byte) (*providers.WebhookEvent, error) {
	var payload webhookPayload
	if err := json.Unmarshal(rawBody, &payload); err != nil {
		return nil, providers.NewMalformedError(providerName, "decoding webhook body", err)
	}
	if payload.Data.Reference == "" {
		return nil, providers.NewMalformedError(providerName, "webhook body missing reference", nil)
	}
	event := &providers.WebhookEvent{
		EventType:      payload.Event,
		Reference:      payload.Data.Reference,
		ProviderStatus: payload.Data.Status,
		Outcome:        webhookOutcome(payload.Event, payload.Data.Status),
		RawPayload:     append(json.RawMessage(nil), rawBody...),
	}
	if payload.Data.ID != 0 {
		event.ProviderTxID = fmt.Sprintf("%d", payload.Data.ID)
	}
	if event.Outcome == providers.OutcomeFailed {
		event.FailureReason = payload.Data.GatewayResponse
	}
	return event, nil
}

// webhookOutcome gates transitions on recognized final event types. Paystack
// delivers plenty of informational events (transfer.*, paymentrequest.*,
// invoice.*) that may carry a transaction reference without settling it.
func webhookOutcome(event, status string) providers.Outcome {
	switch {
	case event == "charge.success" && status == "success":
		return providers.OutcomeSucceeded
	case event == "charge.failed":
		return providers.OutcomeFailed
	default:
		return providers.OutcomePending
	}
}

// call performs one authenticated API request, retrying transport-level
// failures and provider 5xx with capped fibonacci backoff.
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
			a.logg.Warn(a.logg.WithProvider(ctx, providerName), "paystack call failed")
		}
		return nil, err
	}
	return &envelope, nil
}

// toMinorUnit renders the decimal amount in the currency's minor unit.
func toMinorUnit(amount decimal.Decimal) string {
	return amount.Mul(decimal.NewFromInt(100)).Truncate(0).String()
}
