package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tobimartins/servicehub-backend/pkg/enums"
)

// Payment is the ledger entry for a single payment attempt against a quote.
// Rows are never deleted; cancellation is a status transition so the audit
// trail stays intact.
type Payment struct {
	ID        int64  `gorm:"column:id;primaryKey;autoIncrement"`
	Reference string `gorm:"column:reference;not null;uniqueIndex:ux_payments_reference"`

	QuoteID uuid.UUID `gorm:"column:quote_id;type:uuid;not null;index"`
	PayerID uuid.UUID `gorm:"column:payer_id;type:uuid;not null;index"`

	Amount      decimal.Decimal   `gorm:"column:amount;type:numeric(14,2);not null"`
	Currency    string            `gorm:"column:currency;not null;default:'NGN'"`
	PaymentType enums.PaymentType `gorm:"column:payment_type;type:payment_type;not null;default:'full'"`

	Method enums.PaymentMethod `gorm:"column:method;type:payment_method;not null"`
	Status enums.PaymentStatus `gorm:"column:status;type:payment_status;not null;default:'pending';index"`

	ProviderTxID     *string         `gorm:"column:provider_tx_id"`
	ProviderResponse json.RawMessage `gorm:"column:provider_response;type:jsonb"`
	FailureReason    *string         `gorm:"column:failure_reason"`
	Metadata         json.RawMessage `gorm:"column:metadata;type:jsonb"`

	CreatedAt time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time  `gorm:"column:updated_at;autoUpdateTime"`
	PaidAt    *time.Time `gorm:"column:paid_at"`
}
