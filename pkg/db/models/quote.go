package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/tobimartins/servicehub-backend/pkg/enums"
)

// Quote is owned by the quoting subsystem; the payment core only reads it and
// flips its status to paid through the status bridge.
type Quote struct {
	ID          uuid.UUID         `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	QuoteNumber string            `gorm:"column:quote_number;not null;uniqueIndex"`
	OwnerID     uuid.UUID         `gorm:"column:owner_id;type:uuid;not null;index"`
	ServiceID   uuid.UUID         `gorm:"column:service_id;type:uuid;not null"`
	Status      enums.QuoteStatus `gorm:"column:status;type:quote_status;not null;default:'draft'"`
	TotalAmount decimal.Decimal   `gorm:"column:total_amount;type:numeric(14,2);not null"`
	Currency    string            `gorm:"column:currency;not null;default:'NGN'"`
	CreatedAt   time.Time         `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time         `gorm:"column:updated_at;autoUpdateTime"`
}
