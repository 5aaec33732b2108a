package models

import (
	"database/sql/driver"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ============================================================================
// CLAIM DECISION PIPELINE TYPES
// ============================================================================

// DetectedPart is one damaged part as reported by the external damage
// report provider. The decision core treats it as opaque input and never
// recomputes detection.
type DetectedPart struct {
	Name          string          `json:"name"`
	Category      PartCategory    `json:"category"`
	Severity      DamageSeverity  `json:"severity"`
	EstimatedCost decimal.Decimal `json:"estimated_cost"`
	Confidence    float64         `json:"confidence"` // 0-100
	PhotoRef      string          `json:"photo_ref"`
}

// DamageReport is the full vision assessment for a claim.
type DamageReport struct {
	Parts             []DetectedPart `json:"parts"`
	OverallConfidence float64        `json:"overall_confidence"` // 0-100
	ManualReviewFlag  bool           `json:"manual_review_flag"`
}

// PartAmount is the per-part outcome after tariff lookup, depreciation and
// limit capping. Uncovered parts stay in the breakdown with a zero approved
// amount so the itemization remains auditable.
type PartAmount struct {
	PartName        string          `json:"part_name"`
	TariffCost      decimal.Decimal `json:"tariff_cost"`
	DepreciationPct float64         `json:"depreciation_pct"`
	DepreciatedCost decimal.Decimal `json:"depreciated_cost"`
	Covered         bool            `json:"covered"`
	ApprovedAmount  decimal.Decimal `json:"approved_amount"` // <= depreciated cost
	DenialReason    *DenialReason   `json:"denial_reason,omitempty"`
}

type PartBreakdown []PartAmount

func (b PartBreakdown) Value() (driver.Value, error) { return jsonbValue(b) }
func (b *PartBreakdown) Scan(value any) error        { return jsonbScan(b, value) }

// Citation identifies the source document backing a valuation, reduction or
// exclusion. A denial or partial approval must carry at least one.
type Citation struct {
	DocumentID string `json:"document_id"`
	Section    string `json:"section,omitempty"`
	Page       *int   `json:"page,omitempty"`
}

// Explanation is the machine-checkable justification attached to every
// quote and decision.
type Explanation struct {
	Summary   string     `json:"summary"`
	Details   []string   `json:"details"`
	Citations []Citation `json:"citations"`
}

func (e Explanation) Value() (driver.Value, error) { return jsonbValue(e) }
func (e *Explanation) Scan(value any) error        { return jsonbScan(e, value) }

// ClaimDecision is created once per claim. Recomputations with identical
// inputs must produce an identical decision (ProcessingMS excluded); the
// first committed decision for a claim ID is authoritative.
type ClaimDecision struct {
	ID                uuid.UUID       `json:"id" db:"id"`
	ClaimID           uuid.UUID       `json:"claim_id" db:"claim_id"`
	PolicyID          uuid.UUID       `json:"policy_id" db:"policy_id"`
	Status            ClaimState      `json:"status" db:"status"`
	ClaimableAmount   decimal.Decimal `json:"claimable_amount" db:"claimable_amount"` // >= 0
	AmountWithheld    bool            `json:"amount_withheld" db:"amount_withheld"`   // flagged fraud: amount pending, not zero
	DeductibleApplied decimal.Decimal `json:"deductible_applied" db:"deductible_applied"`
	Breakdown         PartBreakdown   `json:"breakdown" db:"breakdown"`
	Explanation       Explanation     `json:"explanation" db:"explanation"`
	ATRObjectKey      *string         `json:"atr_object_key,omitempty" db:"atr_object_key"`
	ProcessingMS      int64           `json:"processing_ms" db:"processing_ms"`
	CreatedAt         time.Time       `json:"created_at" db:"created_at"`
}
