package manual

import (
	"context"
	"fmt"

	"github.com/tobimartins/servicehub-backend/internal/providers"
	"github.com/tobimartins/servicehub-backend/pkg/config"
	"github.com/tobimartins/servicehub-backend/pkg/enums"
)

// Adapter serves channels that settle outside any gateway. Initialize returns
// static instructions; there is no automated verification and no webhooks, so
// completion is an administrative action.
type Adapter struct {
	method       enums.PaymentMethod
	instructions providers.Instructions
}

// NewBankTransfer builds the bank transfer adapter from configured account
// details.
func NewBankTransfer(cfg config.BankTransferConfig) (*Adapter, error) {
	if cfg.BankName == "" || cfg.AccountNumber == "" {
		return nil, fmt.Errorf("bank transfer account details are required")
	}
	return &Adapter{
		method: enums.PaymentMethodBankTransfer,
		instructions: providers.Instructions{
			Channel:       enums.PaymentMethodBankTransfer.String(),
			BankName:      cfg.BankName,
			AccountName:   cfg.AccountName,
			AccountNumber: cfg.AccountNumber,
		},
	}, nil
}

// NewCash builds the cash adapter from the configured office details.
func NewCash(cfg config.CashConfig) (*Adapter, error) {
	if cfg.OfficeAddress == "" {
		return nil, fmt.Errorf("cash office address is required")
	}
	return &Adapter{
		method: enums.PaymentMethodCash,
		instructions: providers.Instructions{
			Channel:       enums.PaymentMethodCash.String(),
			OfficeAddress: cfg.OfficeAddress,
			OfficeHours:   cfg.OfficeHours,
		},
	}, nil
}

func (a *Adapter) Name() enums.PaymentMethod {
	return a.method
}

func (a *Adapter) SupportsVerify() bool {
	return false
}

func (a *Adapter) Initialize(_ context.Context, params providers.InitializeParams) (*providers.InitializeResult, error) {
	instructions := a.instructions
	switch a.method {
	case enums.PaymentMethodBankTransfer:
		instructions.Note = fmt.Sprintf(
			"Transfer %s %s and quote reference %s in the transfer narration.",
			params.Currency, params.Amount.StringFixed(2), params.Reference)
	default:
		instructions.Note = fmt.Sprintf(
			"Pay %s %s in person and present reference %s.",
			params.Currency, params.Amount.StringFixed(2), params.Reference)
	}
	return &providers.InitializeResult{
		Reference:    params.Reference,
		Instructions: &instructions,
	}, nil
}

func (a *Adapter) Verify(_ context.Context, reference string) (*providers.VerifyResult, error) {
	return nil, fmt.Errorf("%s payments have no automated verification (reference %s)", a.method, reference)
}

func (a *Adapter) VerifyWebhookSignature(_ []byte, _ string) bool {
	return false
}

func (a *Adapter) ParseWebhookEvent(_ []byte) (*providers.WebhookEvent, error) {
	return nil, fmt.Errorf("%s payments do not receive webhooks", a.method)
}
