package repository

import (
	"context"
	"fmt"

	"decision-service/internal/models"

	"github.com/jmoiron/sqlx"
)

type ViolationRepository struct {
	db *sqlx.DB
}

func NewViolationRepository(db *sqlx.DB) *ViolationRepository {
	return &ViolationRepository{db: db}
}

// GetByDriverID retrieves a driver's full violation history, most recent
// first. An empty history is a valid result, not an error.
func (r *ViolationRepository) GetByDriverID(ctx context.Context, driverID string) ([]models.ViolationRecord, error) {
	var violations []models.ViolationRecord
	query := `
		SELECT id, driver_id, violation_type, severity, occurred_at, location
		FROM violation_record
		WHERE driver_id = $1
		ORDER BY occurred_at DESC
	`

	err := r.db.SelectContext(ctx, &violations, query, driverID)
	if err != nil {
		return nil, fmt.Errorf("failed to get violations by driver id: %w", err)
	}

	return violations, nil
}
