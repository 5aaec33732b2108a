package event

import "decision-service/internal/models"

// ClaimDecisionEvent is published once per committed decision so the
// notification and payout services can react without polling.
type ClaimDecisionEvent struct {
	ClaimID         string            `json:"claim_id"`
	PolicyID        string            `json:"policy_id"`
	Status          models.ClaimState `json:"status"`
	ClaimableAmount string            `json:"claimable_amount"`
	AmountWithheld  bool              `json:"amount_withheld"`
	ATRObjectKey    string            `json:"atr_object_key,omitempty"`
}

// PremiumQuoteEvent is published once per committed quote.
type PremiumQuoteEvent struct {
	QuoteID       string `json:"quote_id"`
	ApplicationID string `json:"application_id"`
	TotalPremium  string `json:"total_premium"`
	ValidUntil    int64  `json:"valid_until"`
}

const (
	ClaimDecisionQueue string = "claim_decision_events"
	PremiumQuoteQueue  string = "premium_quote_events"
)
