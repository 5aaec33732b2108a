package repository

import (
	"context"
	"testing"
	"time"

	"decision-service/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func storedQuote() *models.PremiumQuote {
	return &models.PremiumQuote{
		ID:             uuid.New(),
		ApplicationID:  "app-1",
		BasePremium:    decimal.NewFromInt(10000),
		RiskAdjustment: decimal.NewFromInt(3000),
		TotalPremium:   decimal.NewFromInt(13000),
		Explanation:    models.Explanation{Summary: "quoted"},
		ValidUntil:     time.Now().AddDate(0, 0, 15).Unix(),
		CreatedAt:      time.Now(),
	}
}

func TestQuoteRepository_CreateIfAbsentInserts(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewQuoteRepository(db)
	quote := storedQuote()

	mock.ExpectExec("INSERT INTO premium_quote").
		WillReturnResult(sqlmock.NewResult(0, 1))

	stored, created, err := repo.CreateIfAbsent(context.Background(), quote)
	require.NoError(t, err)

	assert.True(t, created)
	assert.Equal(t, quote.ID, stored.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestQuoteRepository_CreateIfAbsentReturnsExistingOnConflict(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewQuoteRepository(db)
	quote := storedQuote()
	existingID := uuid.New()

	mock.ExpectExec("INSERT INTO premium_quote").
		WillReturnResult(sqlmock.NewResult(0, 0))

	rows := sqlmock.NewRows([]string{
		"id", "application_id", "base_premium", "risk_adjustment", "add_on_premiums",
		"total_premium", "explanation", "valid_until", "created_at",
	}).AddRow(
		existingID.String(), "app-1", "10000", "3000", []byte(`[]`),
		"13000", []byte(`{"summary":"quoted","details":[],"citations":[]}`),
		quote.ValidUntil, time.Now(),
	)
	mock.ExpectQuery("SELECT(.|\n)+FROM premium_quote(.|\n)+WHERE application_id").
		WithArgs("app-1").
		WillReturnRows(rows)

	stored, created, err := repo.CreateIfAbsent(context.Background(), quote)
	require.NoError(t, err)

	assert.False(t, created, "a retried application must not look like a new quote")
	assert.Equal(t, existingID, stored.ID, "the stored quote wins over the recomputation")
	assert.True(t, stored.TotalPremium.Equal(decimal.NewFromInt(13000)))
	assert.NoError(t, mock.ExpectationsWereMet())
}
