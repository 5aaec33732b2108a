package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// VehicleFacts are the rate-table inputs for a premium application.
type VehicleFacts struct {
	Make             string          `json:"make"`
	Model            string          `json:"model"`
	RegistrationYear int             `json:"registration_year"`
	IDV              decimal.Decimal `json:"idv"`
}

// PremiumApplication is the caller contract for computePremium. Safe to
// retry; the application ID keys idempotent persistence.
type PremiumApplication struct {
	ApplicationID string       `json:"application_id"`
	DriverID      string       `json:"driver_id"`
	Vehicle       VehicleFacts `json:"vehicle"`
	CoverageType  CoverageType `json:"coverage_type"`
	AddOns        AddOnList    `json:"add_ons"`

	// AppliedAt anchors the violation recency brackets, so a retried
	// application scores identically even across a bracket boundary.
	AppliedAt int64 `json:"applied_at"`
}

// ClaimSubmission is the caller contract for computeClaimDecision. The
// damage report and fraud signals come from their external providers; the
// core never recomputes either.
type ClaimSubmission struct {
	ClaimID     uuid.UUID    `json:"claim_id"`
	PolicyID    uuid.UUID    `json:"policy_id"`
	Report      DamageReport `json:"report"`
	Signals     FraudSignals `json:"signals"`
	SubmittedAt int64        `json:"submitted_at"`
}

// ReviewResolution re-enters a suspended claim into fraud_checked once a
// human reviewer has confirmed or corrected the damage assessment.
type ReviewResolution struct {
	ReviewedBy          string  `json:"reviewed_by"`
	ConfirmedConfidence float64 `json:"confirmed_confidence"` // reviewer-asserted, 0-100
	Notes               string  `json:"notes,omitempty"`
}
