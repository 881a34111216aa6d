package payments

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tobimartins/servicehub-backend/pkg/db/models"
	"github.com/tobimartins/servicehub-backend/pkg/enums"
)

const defaultListLimit = 50

// Repository is the payment ledger's persistence surface.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, payment *models.Payment) error
	FindByID(ctx context.Context, id int64) (*models.Payment, error)
	FindByReference(ctx context.Context, reference string) (*models.Payment, error)
	ReferenceExists(ctx context.Context, reference string) (bool, error)
	List(ctx context.Context, query ListQuery) ([]models.Payment, error)
	TransitionFromPending(ctx context.Context, reference string, update TransitionUpdate) (bool, error)
}

// ListQuery filters ledger reads. A nil field means "any".
type ListQuery struct {
	PayerID *uuid.UUID
	QuoteID *uuid.UUID
	Status  *enums.PaymentStatus
	Method  *enums.PaymentMethod
	Limit   int
	Offset  int
}

// TransitionUpdate carries the field writes applied together with a status
// transition out of pending.
type TransitionUpdate struct {
	Status           enums.PaymentStatus
	ProviderTxID     *string
	ProviderResponse json.RawMessage
	FailureReason    *string
	PaidAt           *time.Time
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a payment repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *repository) FindByID(ctx context.Context, id int64) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&payment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repository) FindByReference(ctx context.Context, reference string) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).Where("reference = ?", reference).First(&payment).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repository) ReferenceExists(ctx context.Context, reference string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("reference = ?", reference).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *repository) List(ctx context.Context, query ListQuery) ([]models.Payment, error) {
	limit := query.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	stmt := r.db.WithContext(ctx).Model(&models.Payment{})
	if query.PayerID != nil {
		stmt = stmt.Where("payer_id = ?", *query.PayerID)
	}
	if query.QuoteID != nil {
		stmt = stmt.Where("quote_id = ?", *query.QuoteID)
	}
	if query.Status != nil {
		stmt = stmt.Where("status = ?", *query.Status)
	}
	if query.Method != nil {
		stmt = stmt.Where("method = ?", *query.Method)
	}
	var rows []models.Payment
	err := stmt.Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Offset(query.Offset).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return rows, nil
}

// TransitionFromPending applies the update only if the row is still pending.
// It reports whether this caller won the write; a false result with no error
// means another writer got there first and the caller should re-read.
func (r *repository) TransitionFromPending(ctx context.Context, reference string, update TransitionUpdate) (bool, error) {
	if !update.Status.IsValid() {
		return false, errors.New("invalid target status")
	}
	values := map[string]any{
		"status":     update.Status,
		"updated_at": time.Now(),
	}
	if update.ProviderTxID != nil {
		values["provider_tx_id"] = *update.ProviderTxID
	}
	if update.ProviderResponse != nil {
		values["provider_response"] = update.ProviderResponse
	}
	if update.FailureReason != nil {
		values["failure_reason"] = *update.FailureReason
	}
	if update.PaidAt != nil {
		values["paid_at"] = *update.PaidAt
	}
	result := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("reference = ? AND status = ?", reference, enums.PaymentStatusPending).
		Updates(values)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
