package quotes

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tobimartins/servicehub-backend/pkg/db/models"
	"github.com/tobimartins/servicehub-backend/pkg/enums"
)

func setupQuotesTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:?cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	quotes := `
CREATE TABLE IF NOT EXISTS quotes (
  id TEXT PRIMARY KEY,
  quote_number TEXT NOT NULL UNIQUE,
  owner_id TEXT NOT NULL,
  service_id TEXT NOT NULL,
  status TEXT NOT NULL DEFAULT 'draft',
  total_amount TEXT NOT NULL,
  currency TEXT NOT NULL DEFAULT 'NGN',
  created_at DATETIME,
  updated_at DATETIME
);`
	require.NoError(t, db.Exec(quotes).Error)
	require.NoError(t, db.Exec(`DELETE FROM quotes`).Error)
	return db
}

func newQuote(t *testing.T, db *gorm.DB, status enums.QuoteStatus) *models.Quote {
	t.Helper()

	quote := &models.Quote{
		ID:          uuid.New(),
		QuoteNumber: "Q-" + uuid.NewString()[:8],
		OwnerID:     uuid.New(),
		ServiceID:   uuid.New(),
		Status:      status,
		TotalAmount: decimal.NewFromInt(100000),
		Currency:    "NGN",
	}
	require.NoError(t, db.Create(quote).Error)
	return quote
}

func TestFindByID(t *testing.T) {
	db := setupQuotesTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	quote := newQuote(t, db, enums.QuoteStatusApproved)

	found, err := repo.FindByID(ctx, quote.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, quote.QuoteNumber, found.QuoteNumber)
	assert.Equal(t, enums.QuoteStatusApproved, found.Status)

	missing, err := repo.FindByID(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestMarkPaid(t *testing.T) {
	db := setupQuotesTestDB(t)
	repo := NewRepository(db)
	ctx := context.Background()

	quote := newQuote(t, db, enums.QuoteStatusPendingPayment)

	require.NoError(t, repo.MarkPaid(ctx, quote.ID))

	found, err := repo.FindByID(ctx, quote.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, enums.QuoteStatusPaid, found.Status)

	// Repeated calls are a no-op, not an error.
	require.NoError(t, repo.MarkPaid(ctx, quote.ID))

	again, err := repo.FindByID(ctx, quote.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.QuoteStatusPaid, again.Status)
}
