package repository

import (
	"context"
	"fmt"

	"decision-service/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type DecisionRepository struct {
	db *sqlx.DB
}

func NewDecisionRepository(db *sqlx.DB) *DecisionRepository {
	return &DecisionRepository{db: db}
}

func (r *DecisionRepository) BeginTransaction() (*sqlx.Tx, error) {
	return r.db.Beginx()
}

const decisionColumns = `
	id, claim_id, policy_id, status, claimable_amount, amount_withheld,
	deductible_applied, breakdown, explanation, atr_object_key, processing_ms, created_at
`

// GetByClaimID retrieves the committed decision for a claim, if any.
func (r *DecisionRepository) GetByClaimID(ctx context.Context, claimID uuid.UUID) (*models.ClaimDecision, error) {
	var decision models.ClaimDecision
	query := `SELECT` + decisionColumns + `FROM claim_decision WHERE claim_id = $1`

	err := r.db.GetContext(ctx, &decision, query, claimID)
	if err != nil {
		return nil, fmt.Errorf("failed to get decision by claim id: %w", err)
	}

	return &decision, nil
}

// GetByClaimIDTx is the in-transaction variant of GetByClaimID.
func (r *DecisionRepository) GetByClaimIDTx(tx *sqlx.Tx, claimID uuid.UUID) (*models.ClaimDecision, error) {
	var decision models.ClaimDecision
	query := `SELECT` + decisionColumns + `FROM claim_decision WHERE claim_id = $1`

	err := tx.Get(&decision, query, claimID)
	if err != nil {
		return nil, fmt.Errorf("failed to get decision by claim id in tx: %w", err)
	}

	return &decision, nil
}

// CreateTx inserts a decision keyed by claim ID. The claim_id unique
// constraint makes the first commit win: a concurrent run for the same
// claim sees zero rows affected and must return the stored decision
// unchanged instead of recomputing.
func (r *DecisionRepository) CreateTx(tx *sqlx.Tx, decision *models.ClaimDecision) (bool, error) {
	query := `
		INSERT INTO claim_decision (id, claim_id, policy_id, status, claimable_amount,
		                            amount_withheld, deductible_applied, breakdown,
		                            explanation, atr_object_key, processing_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (claim_id) DO NOTHING
	`

	result, err := tx.Exec(query,
		decision.ID, decision.ClaimID, decision.PolicyID, decision.Status,
		decision.ClaimableAmount, decision.AmountWithheld, decision.DeductibleApplied,
		decision.Breakdown, decision.Explanation, decision.ATRObjectKey,
		decision.ProcessingMS, decision.CreatedAt)
	if err != nil {
		return false, fmt.Errorf("failed to insert claim decision: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

// UpdateStatusTx moves a suspended decision through a guarded transition.
// Used only for the manual-review re-entry path; terminal decisions are
// immutable.
func (r *DecisionRepository) UpdateStatusTx(tx *sqlx.Tx, decision *models.ClaimDecision) error {
	query := `
		UPDATE claim_decision
		SET status = $2, claimable_amount = $3, amount_withheld = $4,
		    deductible_applied = $5, breakdown = $6, explanation = $7, processing_ms = $8
		WHERE claim_id = $1 AND status = 'requires_manual_review'
	`

	result, err := tx.Exec(query,
		decision.ClaimID, decision.Status, decision.ClaimableAmount,
		decision.AmountWithheld, decision.DeductibleApplied, decision.Breakdown,
		decision.Explanation, decision.ProcessingMS)
	if err != nil {
		return fmt.Errorf("failed to update claim decision: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("decision for claim %s is not awaiting manual review", decision.ClaimID)
	}

	return nil
}

// SetATRObjectKey records the generated ATR document reference.
func (r *DecisionRepository) SetATRObjectKey(ctx context.Context, claimID uuid.UUID, objectKey string) error {
	query := `UPDATE claim_decision SET atr_object_key = $2 WHERE claim_id = $1`

	_, err := r.db.ExecContext(ctx, query, claimID, objectKey)
	if err != nil {
		return fmt.Errorf("failed to set ATR object key: %w", err)
	}

	return nil
}

// ListAwaitingReview returns claims suspended in manual review, oldest
// first, for the periodic review sweep.
func (r *DecisionRepository) ListAwaitingReview(ctx context.Context, limit int) ([]models.ClaimDecision, error) {
	var decisions []models.ClaimDecision
	query := `SELECT` + decisionColumns + `
		FROM claim_decision
		WHERE status = 'requires_manual_review'
		ORDER BY created_at ASC
		LIMIT $1
	`

	err := r.db.SelectContext(ctx, &decisions, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list decisions awaiting review: %w", err)
	}

	return decisions, nil
}
