package models

import (
	"database/sql/driver"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ============================================================================
// UNDERWRITING (RISK ASSESSMENT + PREMIUM QUOTE)
// ============================================================================

// ViolationRecord is a single entry in a driver's violation history. Owned
// by the violation-history store; the risk scorer only reads it.
type ViolationRecord struct {
	ID         uuid.UUID         `json:"id" db:"id"`
	DriverID   string            `json:"driver_id" db:"driver_id"`
	Type       string            `json:"type" db:"violation_type"`
	Severity   ViolationSeverity `json:"severity" db:"severity"`
	OccurredAt int64             `json:"occurred_at" db:"occurred_at"`
	Location   string            `json:"location" db:"location"`
}

// RiskFactor is one contribution to the risk score, kept so reviewers can
// see why an applicant scored the way they did.
type RiskFactor struct {
	Name      string  `json:"name"`
	ImpactPct float64 `json:"impact_pct"` // signed, in score points out of 100
	Rationale string  `json:"rationale"`
}

type RiskFactors []RiskFactor

func (f RiskFactors) Value() (driver.Value, error) { return jsonbValue(f) }
func (f *RiskFactors) Scan(value any) error        { return jsonbScan(f, value) }

// RiskAssessment is created once per underwriting request and never mutated
// after creation. A new application produces a new assessment.
type RiskAssessment struct {
	ID         uuid.UUID   `json:"id" db:"id"`
	DriverID   string      `json:"driver_id" db:"driver_id"`
	Score      float64     `json:"score" db:"score"` // 0-100
	Factors    RiskFactors `json:"factors" db:"factors"`
	Violations []uuid.UUID `json:"violations" db:"-"`
	CreatedAt  time.Time   `json:"created_at" db:"created_at"`
}

// AddOnPremium is the priced contribution of a single active add-on.
type AddOnPremium struct {
	AddOn   AddOnType       `json:"add_on"`
	Premium decimal.Decimal `json:"premium"` // >= 0
}

type AddOnPremiums []AddOnPremium

func (a AddOnPremiums) Value() (driver.Value, error) { return jsonbValue(a) }
func (a *AddOnPremiums) Scan(value any) error        { return jsonbScan(a, value) }

// PremiumQuote is immutable once returned. Total is floored at the
// configured minimum premium and is never negative, no matter how negative
// the risk adjustment goes.
type PremiumQuote struct {
	ID             uuid.UUID       `json:"id" db:"id"`
	ApplicationID  string          `json:"application_id" db:"application_id"`
	BasePremium    decimal.Decimal `json:"base_premium" db:"base_premium"`
	RiskAdjustment decimal.Decimal `json:"risk_adjustment" db:"risk_adjustment"` // signed
	AddOnPremiums  AddOnPremiums   `json:"add_on_premiums" db:"add_on_premiums"`
	TotalPremium   decimal.Decimal `json:"total_premium" db:"total_premium"`
	Explanation    Explanation     `json:"explanation" db:"explanation"`
	ValidUntil     int64           `json:"valid_until" db:"valid_until"`
	CreatedAt      time.Time       `json:"created_at" db:"created_at"`
}
