package models

type ViolationSeverity string

const (
	ViolationMinor    ViolationSeverity = "minor"
	ViolationModerate ViolationSeverity = "moderate"
	ViolationSevere   ViolationSeverity = "severe"
)

func (s ViolationSeverity) IsValid() bool {
	switch s {
	case ViolationMinor, ViolationModerate, ViolationSevere:
		return true
	default:
		return false
	}
}

type CoverageType string

const (
	CoverageComprehensive CoverageType = "comprehensive"
	CoverageThirdParty    CoverageType = "third_party"
	CoverageZeroDep       CoverageType = "zero_dep"
)

func (c CoverageType) IsValid() bool {
	switch c {
	case CoverageComprehensive, CoverageThirdParty, CoverageZeroDep:
		return true
	default:
		return false
	}
}

type AddOnType string

const (
	AddOnGlassCover      AddOnType = "glass_cover"
	AddOnEngineProtect   AddOnType = "engine_protect"
	AddOnRoadsideAssist  AddOnType = "roadside_assist"
	AddOnReturnToInvoice AddOnType = "return_to_invoice"
)

type PartCategory string

const (
	PartMetal   PartCategory = "metal"
	PartBody    PartCategory = "body"
	PartGlass   PartCategory = "glass"
	PartRubber  PartCategory = "rubber"
	PartPlastic PartCategory = "plastic"
	PartBattery PartCategory = "battery"
)

// UsesElevatedDepreciation reports whether the part category depreciates on
// the stricter rubber/plastic/battery table instead of the standard one.
func (p PartCategory) UsesElevatedDepreciation() bool {
	switch p {
	case PartRubber, PartPlastic, PartBattery:
		return true
	default:
		return false
	}
}

type DamageSeverity string

const (
	DamageMinor    DamageSeverity = "minor"
	DamageModerate DamageSeverity = "moderate"
	DamageSevere   DamageSeverity = "severe"
)

type DenialReason string

const (
	DenialUnmatchedTariff     DenialReason = "UNMATCHED_TARIFF"
	DenialAnnualLimitExceeded DenialReason = "ANNUAL_LIMIT_EXCEEDED"
	DenialNotCovered          DenialReason = "NOT_COVERED"
)

type IndicatorType string

const (
	IndicatorClaimFrequency         IndicatorType = "claim_frequency"
	IndicatorHighClaimAmount        IndicatorType = "high_claim_amount"
	IndicatorLocationMismatch       IndicatorType = "location_mismatch"
	IndicatorTimestampInconsistency IndicatorType = "timestamp_inconsistency"
	IndicatorImageManipulation      IndicatorType = "image_manipulation"
	IndicatorGarageCollusion        IndicatorType = "garage_collusion"
)

type IndicatorSeverity string

const (
	IndicatorLow    IndicatorSeverity = "low"
	IndicatorMedium IndicatorSeverity = "medium"
	IndicatorHigh   IndicatorSeverity = "high"
)

type FraudRecommendation string

const (
	RecommendApprove      FraudRecommendation = "approve"
	RecommendManualReview FraudRecommendation = "manual_review"
	RecommendInvestigate  FraudRecommendation = "investigate"
	RecommendDeny         FraudRecommendation = "deny"
)

// ClaimState is the decision state machine. submitted, assessed and
// fraud_checked are intermediate; requires_manual_review suspends the claim
// awaiting human input and re-enters fraud_checked once resolved; the
// remaining four states are terminal.
type ClaimState string

const (
	ClaimSubmitted            ClaimState = "submitted"
	ClaimAssessed             ClaimState = "assessed"
	ClaimFraudChecked         ClaimState = "fraud_checked"
	ClaimApproved             ClaimState = "approved"
	ClaimPartiallyApproved    ClaimState = "partially_approved"
	ClaimDenied               ClaimState = "denied"
	ClaimRequiresManualReview ClaimState = "requires_manual_review"
	ClaimFlaggedFraud         ClaimState = "flagged_fraud"
)

func (s ClaimState) IsValid() bool {
	switch s {
	case ClaimSubmitted, ClaimAssessed, ClaimFraudChecked, ClaimApproved,
		ClaimPartiallyApproved, ClaimDenied, ClaimRequiresManualReview, ClaimFlaggedFraud:
		return true
	default:
		return false
	}
}

func (s ClaimState) IsTerminal() bool {
	switch s {
	case ClaimApproved, ClaimPartiallyApproved, ClaimDenied, ClaimFlaggedFraud:
		return true
	default:
		return false
	}
}

var claimTransitions = map[ClaimState][]ClaimState{
	ClaimSubmitted: {ClaimAssessed},
	ClaimAssessed:  {ClaimFraudChecked},
	ClaimFraudChecked: {
		ClaimApproved, ClaimPartiallyApproved, ClaimDenied,
		ClaimRequiresManualReview, ClaimFlaggedFraud,
	},
	ClaimRequiresManualReview: {ClaimFraudChecked},
}

// CanTransitionTo checks if a state transition is valid.
func (s ClaimState) CanTransitionTo(next ClaimState) bool {
	for _, allowed := range claimTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}
