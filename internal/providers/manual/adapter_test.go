package manual

import (
	"context"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/tobimartins/servicehub-backend/internal/providers"
	"github.com/tobimartins/servicehub-backend/pkg/config"
	"github.com/tobimartins/servicehub-backend/pkg/enums"
)

func TestBankTransferInitialize(t *testing.T) {
	adapter, err := NewBankTransfer(config.BankTransferConfig{
		BankName:      "First Bank",
		AccountName:   "ServiceHub Ltd",
		AccountNumber: "0123456789",
	})
	if err != nil {
		t.Fatalf("NewBankTransfer returned error: %v", err)
	}
	if adapter.Name() != enums.PaymentMethodBankTransfer {
		t.Fatalf("unexpected method %s", adapter.Name())
	}
	if adapter.SupportsVerify() {
		t.Fatal("bank transfer must not support automated verification")
	}

	result, err := adapter.Initialize(context.Background(), providers.InitializeParams{
		Reference: "SHP-20250810120000-ABCDEFGHIJ",
		Amount:    decimal.NewFromInt(100000),
		Currency:  "NGN",
	})
	if err != nil {
		t.Fatalf("Initialize returned error: %v", err)
	}
	if result.Instructions == nil {
		t.Fatal("expected instructions")
	}
	if result.Instructions.AccountNumber != "0123456789" {
		t.Fatalf("unexpected account number %q", result.Instructions.AccountNumber)
	}
	if !strings.Contains(result.Instructions.Note, "SHP-20250810120000-ABCDEFGHIJ") {
		t.Fatalf("instructions must quote the reference, got %q", result.Instructions.Note)
	}
}

func TestCashInitialize(t *testing.T) {
	adapter, err := NewCash(config.CashConfig{
		OfficeAddress: "14 Broad Street, Lagos",
		OfficeHours:   "Mon-Fri 9:00-17:00",
	})
	if err != nil {
		t.Fatalf("NewCash returned error: %v", err)
	}

	result, err := adapter.Initialize(context.Background(), providers.InitializeParams{
		Reference: "SHP-20250810120000-ABCDEFGHIJ",
		Amount:    decimal.NewFromInt(50000),
		Currency:  "NGN",
	})
	if err != nil {
		t.Fatalf("Initialize returned error: %v", err)
	}
	if result.Instructions == nil || result.Instructions.OfficeAddress != "14 Broad Street, Lagos" {
		t.Fatalf("unexpected instructions: %+v", result.Instructions)
	}
}

func TestManualChannelsRejectGatewayPaths(t *testing.T) {
	adapter, err := NewBankTransfer(config.BankTransferConfig{
		BankName:      "First Bank",
		AccountNumber: "0123456789",
	})
	if err != nil {
		t.Fatalf("NewBankTransfer returned error: %v", err)
	}

	if _, err := adapter.Verify(context.Background(), "SHP-X"); err == nil {
		t.Fatal("expected Verify to be unsupported")
	}
	if adapter.VerifyWebhookSignature([]byte(`{}`), "sig") {
		t.Fatal("manual channels must never accept webhook signatures")
	}
	if _, err := adapter.ParseWebhookEvent([]byte(`{}`)); err == nil {
		t.Fatal("expected ParseWebhookEvent to be unsupported")
	}
}

func TestMissingConfig(t *testing.T) {
	if _, err := NewBankTransfer(config.BankTransferConfig{}); err == nil {
		t.Fatal("expected error for missing bank details")
	}
	if _, err := NewCash(config.CashConfig{}); err == nil {
		t.Fatal("expected error for missing office address")
	}
}
