package models

import (
	"database/sql/driver"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ============================================================================
// POLICY (READ-ONLY TO THE DECISION CORE)
// ============================================================================

type AddOnList []AddOnType

func (a AddOnList) Value() (driver.Value, error) { return jsonbValue(a) }
func (a *AddOnList) Scan(value any) error        { return jsonbScan(a, value) }

func (a AddOnList) Has(addOn AddOnType) bool {
	for _, v := range a {
		if v == addOn {
			return true
		}
	}
	return false
}

// Policy holds the coverage facts and limits the claim pipeline enforces.
// The decision core reads it with a snapshot consistent at decision time and
// never writes it.
type Policy struct {
	ID                  uuid.UUID        `json:"id" db:"id"`
	PolicyNumber        string           `json:"policy_number" db:"policy_number"`
	HolderID            string           `json:"holder_id" db:"holder_id"`
	VehicleID           string           `json:"vehicle_id" db:"vehicle_id"`
	CoverageType        CoverageType     `json:"coverage_type" db:"coverage_type"`
	IDV                 decimal.Decimal  `json:"idv" db:"idv"` // insured declared value, > 0
	Deductible          decimal.Decimal  `json:"deductible" db:"deductible"`
	PerPartLimit        *decimal.Decimal `json:"per_part_limit,omitempty" db:"per_part_limit"`
	TotalClaimLimit     decimal.Decimal  `json:"total_claim_limit" db:"total_claim_limit"`
	AnnualClaimLimit    decimal.Decimal  `json:"annual_claim_limit" db:"annual_claim_limit"`
	AddOns              AddOnList        `json:"add_ons" db:"add_ons"`
	VehicleRegisteredAt int64            `json:"vehicle_registered_at" db:"vehicle_registered_at"`
	PolicyYearStart     int64            `json:"policy_year_start" db:"policy_year_start"`
	CreatedAt           time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time        `json:"updated_at" db:"updated_at"`
}

// VehicleAgeMonths computes the vehicle age in whole months at the given
// time, used to select the depreciation bracket.
func (p *Policy) VehicleAgeMonths(at time.Time) int {
	registered := time.Unix(p.VehicleRegisteredAt, 0).UTC()
	if !registered.Before(at) {
		return 0
	}

	months := (at.Year()-registered.Year())*12 + int(at.Month()) - int(registered.Month())
	if at.Day() < registered.Day() {
		months--
	}
	if months < 0 {
		return 0
	}
	return months
}
