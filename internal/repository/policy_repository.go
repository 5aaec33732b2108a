package repository

import (
	"context"
	"fmt"

	"decision-service/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

type PolicyRepository struct {
	db *sqlx.DB
}

func NewPolicyRepository(db *sqlx.DB) *PolicyRepository {
	return &PolicyRepository{db: db}
}

// GetByID retrieves a policy by its ID.
func (r *PolicyRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Policy, error) {
	var policy models.Policy
	query := `
		SELECT id, policy_number, holder_id, vehicle_id, coverage_type, idv,
		       deductible, per_part_limit, total_claim_limit, annual_claim_limit,
		       add_ons, vehicle_registered_at, policy_year_start, created_at, updated_at
		FROM policy
		WHERE id = $1
	`

	err := r.db.GetContext(ctx, &policy, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get policy by id: %w", err)
	}

	return &policy, nil
}

// GetAnnualClaimsPaid sums the claimable amounts already committed for a
// policy since its policy-year start. Withheld (flagged-fraud) decisions do
// not count toward the annual total.
func (r *PolicyRepository) GetAnnualClaimsPaid(ctx context.Context, policyID uuid.UUID, yearStart int64) (decimal.Decimal, error) {
	var total decimal.Decimal
	query := `
		SELECT COALESCE(SUM(claimable_amount), 0)
		FROM claim_decision
		WHERE policy_id = $1
		  AND amount_withheld = FALSE
		  AND status IN ('approved', 'partially_approved')
		  AND created_at >= to_timestamp($2)
	`

	err := r.db.GetContext(ctx, &total, query, policyID, yearStart)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum annual claims paid: %w", err)
	}

	return total, nil
}

// GetAnnualClaimsPaidTx is the in-transaction variant used for the
// optimistic re-check before a decision commit.
func (r *PolicyRepository) GetAnnualClaimsPaidTx(tx *sqlx.Tx, policyID uuid.UUID, yearStart int64) (decimal.Decimal, error) {
	var total decimal.Decimal
	query := `
		SELECT COALESCE(SUM(claimable_amount), 0)
		FROM claim_decision
		WHERE policy_id = $1
		  AND amount_withheld = FALSE
		  AND status IN ('approved', 'partially_approved')
		  AND created_at >= to_timestamp($2)
	`

	err := tx.Get(&total, query, policyID, yearStart)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum annual claims paid in tx: %w", err)
	}

	return total, nil
}
