package repository

import (
	"context"
	"fmt"

	"decision-service/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

type QuoteRepository struct {
	db *sqlx.DB
}

func NewQuoteRepository(db *sqlx.DB) *QuoteRepository {
	return &QuoteRepository{db: db}
}

// CreateIfAbsent persists a quote keyed by application ID. If a quote for
// the application already exists the stored one is returned unchanged, so
// retried applications stay idempotent.
func (r *QuoteRepository) CreateIfAbsent(ctx context.Context, quote *models.PremiumQuote) (*models.PremiumQuote, bool, error) {
	query := `
		INSERT INTO premium_quote (id, application_id, base_premium, risk_adjustment,
		                           add_on_premiums, total_premium, explanation, valid_until, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (application_id) DO NOTHING
	`

	result, err := r.db.ExecContext(ctx, query,
		quote.ID, quote.ApplicationID, quote.BasePremium, quote.RiskAdjustment,
		quote.AddOnPremiums, quote.TotalPremium, quote.Explanation, quote.ValidUntil, quote.CreatedAt)
	if err != nil {
		return nil, false, fmt.Errorf("failed to insert premium quote: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return nil, false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		existing, err := r.GetByApplicationID(ctx, quote.ApplicationID)
		if err != nil {
			return nil, false, err
		}
		return existing, false, nil
	}

	return quote, true, nil
}

// GetByID retrieves a quote by its ID.
func (r *QuoteRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.PremiumQuote, error) {
	var quote models.PremiumQuote
	query := `
		SELECT id, application_id, base_premium, risk_adjustment, add_on_premiums,
		       total_premium, explanation, valid_until, created_at
		FROM premium_quote
		WHERE id = $1
	`

	err := r.db.GetContext(ctx, &quote, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get quote by id: %w", err)
	}

	return &quote, nil
}

// GetByApplicationID retrieves the quote stored for an application.
func (r *QuoteRepository) GetByApplicationID(ctx context.Context, applicationID string) (*models.PremiumQuote, error) {
	var quote models.PremiumQuote
	query := `
		SELECT id, application_id, base_premium, risk_adjustment, add_on_premiums,
		       total_premium, explanation, valid_until, created_at
		FROM premium_quote
		WHERE application_id = $1
	`

	err := r.db.GetContext(ctx, &quote, query, applicationID)
	if err != nil {
		return nil, fmt.Errorf("failed to get quote by application id: %w", err)
	}

	return &quote, nil
}
