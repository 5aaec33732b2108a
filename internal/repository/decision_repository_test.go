package repository

import (
	"context"
	"testing"
	"time"

	"decision-service/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

func storedDecision() *models.ClaimDecision {
	return &models.ClaimDecision{
		ID:                uuid.New(),
		ClaimID:           uuid.New(),
		PolicyID:          uuid.New(),
		Status:            models.ClaimApproved,
		ClaimableAmount:   decimal.NewFromInt(7500),
		DeductibleApplied: decimal.NewFromInt(1000),
		Breakdown: models.PartBreakdown{{
			PartName:        "front bumper",
			TariffCost:      decimal.NewFromInt(4000),
			DepreciatedCost: decimal.NewFromInt(3600),
			Covered:         true,
			ApprovedAmount:  decimal.NewFromInt(3600),
		}},
		Explanation: models.Explanation{Summary: "approved"},
		CreatedAt:   time.Now(),
	}
}

func TestDecisionRepository_CreateTxInserts(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewDecisionRepository(db)
	decision := storedDecision()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO claim_decision").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	tx, err := repo.BeginTransaction()
	require.NoError(t, err)

	inserted, err := repo.CreateTx(tx, decision)
	require.NoError(t, err)
	assert.True(t, inserted)

	require.NoError(t, tx.Commit())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDecisionRepository_CreateTxConflictReportsNotInserted(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewDecisionRepository(db)
	decision := storedDecision()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO claim_decision").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	tx, err := repo.BeginTransaction()
	require.NoError(t, err)

	inserted, err := repo.CreateTx(tx, decision)
	require.NoError(t, err)
	assert.False(t, inserted, "a claim_id conflict must not be treated as an insert")

	require.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDecisionRepository_GetByClaimID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewDecisionRepository(db)
	claimID := uuid.New()

	rows := sqlmock.NewRows([]string{
		"id", "claim_id", "policy_id", "status", "claimable_amount", "amount_withheld",
		"deductible_applied", "breakdown", "explanation", "atr_object_key", "processing_ms", "created_at",
	}).AddRow(
		uuid.New().String(), claimID.String(), uuid.New().String(), "partially_approved",
		"7500", false, "1000",
		[]byte(`[{"part_name":"front bumper","tariff_cost":"4000","depreciation_pct":10,"depreciated_cost":"3600","covered":true,"approved_amount":"3600"}]`),
		[]byte(`{"summary":"partially approved","details":[],"citations":[]}`),
		nil, int64(42), time.Now(),
	)

	mock.ExpectQuery("SELECT(.|\n)+FROM claim_decision WHERE claim_id").
		WithArgs(claimID).
		WillReturnRows(rows)

	decision, err := repo.GetByClaimID(context.Background(), claimID)
	require.NoError(t, err)

	assert.Equal(t, claimID, decision.ClaimID)
	assert.Equal(t, models.ClaimPartiallyApproved, decision.Status)
	assert.True(t, decision.ClaimableAmount.Equal(decimal.NewFromInt(7500)))
	require.Len(t, decision.Breakdown, 1)
	assert.Equal(t, "front bumper", decision.Breakdown[0].PartName)
	assert.Nil(t, decision.ATRObjectKey)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDecisionRepository_UpdateStatusTxRequiresSuspendedState(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewDecisionRepository(db)
	decision := storedDecision()

	mock.ExpectBegin()
	mock.ExpectExec("UPDATE claim_decision").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	tx, err := repo.BeginTransaction()
	require.NoError(t, err)

	err = repo.UpdateStatusTx(tx, decision)
	assert.Error(t, err, "updating a decision that is not awaiting review must fail")

	require.NoError(t, tx.Rollback())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDecisionRepository_SetATRObjectKey(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewDecisionRepository(db)
	claimID := uuid.New()

	mock.ExpectExec("UPDATE claim_decision SET atr_object_key").
		WithArgs(claimID, "atr/pol-1/claim-1.txt").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.SetATRObjectKey(context.Background(), claimID, "atr/pol-1/claim-1.txt")
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
