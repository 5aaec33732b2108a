package repository

import (
	"context"
	"fmt"

	"decision-service/internal/models"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

// RateRepository reads the external rate tables. Base premium is a lookup,
// never computed by the engines.
type RateRepository struct {
	db *sqlx.DB
}

func NewRateRepository(db *sqlx.DB) *RateRepository {
	return &RateRepository{db: db}
}

// GetBasePremium looks up the base premium for a coverage type and vehicle
// facts: IDV multiplied by the configured rate percentage for the
// registration-year band.
func (r *RateRepository) GetBasePremium(ctx context.Context, coverage models.CoverageType, facts models.VehicleFacts) (decimal.Decimal, error) {
	var ratePct decimal.Decimal
	query := `
		SELECT rate_pct
		FROM premium_rate
		WHERE coverage_type = $1
		  AND min_registration_year <= $2
		  AND max_registration_year >= $2
		ORDER BY rate_pct DESC
		LIMIT 1
	`

	err := r.db.GetContext(ctx, &ratePct, query, coverage, facts.RegistrationYear)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to get base rate for coverage %s: %w", coverage, err)
	}

	return facts.IDV.Mul(ratePct).Div(decimal.NewFromInt(100)).Round(2), nil
}

// GetAddOnPremium looks up the flat premium for an add-on.
func (r *RateRepository) GetAddOnPremium(ctx context.Context, addOn models.AddOnType) (decimal.Decimal, error) {
	var premium decimal.Decimal
	query := `SELECT premium FROM add_on_rate WHERE add_on = $1`

	err := r.db.GetContext(ctx, &premium, query, addOn)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to get add-on rate for %s: %w", addOn, err)
	}

	return premium, nil
}
