package services

import (
	"testing"
	"time"

	"decision-service/internal/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSubmission() models.ClaimSubmission {
	return models.ClaimSubmission{
		ClaimID:     uuid.New(),
		PolicyID:    uuid.New(),
		Signals:     cleanSignals(),
		SubmittedAt: time.Now().Unix(),
	}
}

func valuationFixture(fullTariff int64, breakdown models.PartBreakdown) *ValuationResult {
	citations := make([]models.Citation, 0, len(breakdown))
	for _, part := range breakdown {
		if part.Covered {
			citations = append(citations, models.Citation{DocumentID: "TARIFF-2025", Section: part.PartName})
		}
	}
	return &ValuationResult{
		Breakdown:       breakdown,
		Citations:       citations,
		FullTariffValue: decimal.NewFromInt(fullTariff),
	}
}

func enforcementFixture(breakdown models.PartBreakdown, notes ...string) *EnforcementResult {
	total := decimal.Zero
	for _, part := range breakdown {
		total = total.Add(part.ApprovedAmount)
	}
	return &EnforcementResult{
		Breakdown:     breakdown,
		TotalApproved: total,
		Notes:         notes,
	}
}

func cleanFraud() *models.FraudAnalysis {
	return &models.FraudAnalysis{
		AnomalyScore:   0,
		Recommendation: models.RecommendApprove,
	}
}

func depreciatedPart(name string, tariff, depreciated int64) models.PartAmount {
	return models.PartAmount{
		PartName:        name,
		TariffCost:      decimal.NewFromInt(tariff),
		DepreciatedCost: decimal.NewFromInt(depreciated),
		Covered:         true,
		ApprovedAmount:  decimal.NewFromInt(depreciated),
	}
}

// ============================================================================
// DECISION ASSEMBLY
// ============================================================================

func TestAssembleDecision_FullApproval(t *testing.T) {
	policy := testPolicy()
	policy.Deductible = decimal.Zero

	breakdown := models.PartBreakdown{
		coveredPart("front bumper", 4000),
		coveredPart("left door", 6000),
	}
	valuation := valuationFixture(10000, breakdown)
	enforcement := enforcementFixture(breakdown)

	decision, err := AssembleDecision(testSubmission(), policy, valuation, enforcement, cleanFraud(), nil)

	require.NoError(t, err)
	assert.Equal(t, models.ClaimApproved, decision.Status)
	assert.True(t, decision.ClaimableAmount.Equal(decimal.NewFromInt(10000)))
	assert.False(t, decision.AmountWithheld)
}

func TestAssembleDecision_DepreciationAndDeductibleStayApproved(t *testing.T) {
	policy := testPolicy() // deductible 1000

	// 10000 tariff at 15% depreciation, no limit breached: the payout drops
	// to 7500 but the claim is still approved in full, because depreciation
	// and the deductible apply to every claim alike.
	breakdown := models.PartBreakdown{depreciatedPart("left door", 10000, 8500)}
	valuation := valuationFixture(10000, breakdown)
	enforcement := enforcementFixture(breakdown)

	decision, err := AssembleDecision(testSubmission(), policy, valuation, enforcement, cleanFraud(), nil)

	require.NoError(t, err)
	assert.Equal(t, models.ClaimApproved, decision.Status)
	assert.True(t, decision.ClaimableAmount.Equal(decimal.NewFromInt(7500)),
		"8500 depreciated minus 1000 deductible, got %s", decision.ClaimableAmount)
	assert.True(t, decision.DeductibleApplied.Equal(decimal.NewFromInt(1000)))

	foundDeductibleLine := false
	for _, detail := range decision.Explanation.Details {
		if detail == "deductible 1000 applied after limit caps" {
			foundDeductibleLine = true
		}
	}
	assert.True(t, foundDeductibleLine, "deductible must be itemized in the explanation")
}

func TestAssembleDecision_CapReductionMakesPartialApproval(t *testing.T) {
	policy := testPolicy()

	// Depreciated entitlement 12000, capped at the per-part limit: the cut
	// below the entitlement is what makes the approval partial.
	capped := depreciatedPart("left door", 12000, 12000)
	capped.ApprovedAmount = decimal.NewFromInt(5000)
	breakdown := models.PartBreakdown{capped}
	valuation := valuationFixture(12000, breakdown)
	enforcement := enforcementFixture(breakdown, `part "left door" capped at per-part limit 5000`)
	clauses := []models.Citation{{DocumentID: "POLICY-WORDING-2025", Section: "coverage_limits"}}

	decision, err := AssembleDecision(testSubmission(), policy, valuation, enforcement, cleanFraud(), clauses)

	require.NoError(t, err)
	assert.Equal(t, models.ClaimPartiallyApproved, decision.Status)
	assert.True(t, decision.ClaimableAmount.Equal(decimal.NewFromInt(4000)),
		"5000 capped minus 1000 deductible, got %s", decision.ClaimableAmount)
	require.NotEmpty(t, decision.Explanation.Citations, "every reduction must be citable")
	assert.Contains(t, decision.Explanation.Citations, clauses[0])
	assert.Contains(t, decision.Explanation.Details, enforcement.Notes[0])
}

func TestAssembleDecision_NothingClaimableIsDenied(t *testing.T) {
	policy := testPolicy() // deductible 1000

	breakdown := models.PartBreakdown{coveredPart("wiper blade", 1000)}
	valuation := valuationFixture(1000, breakdown)
	enforcement := enforcementFixture(breakdown)

	decision, err := AssembleDecision(testSubmission(), policy, valuation, enforcement, cleanFraud(), nil)

	require.NoError(t, err)
	assert.Equal(t, models.ClaimDenied, decision.Status)
	assert.True(t, decision.ClaimableAmount.IsZero())
	assert.True(t, decision.DeductibleApplied.Equal(decimal.NewFromInt(1000)))
}

func TestAssembleDecision_DeductibleFlooredAtApprovedTotal(t *testing.T) {
	policy := testPolicy() // deductible 1000

	breakdown := models.PartBreakdown{coveredPart("wiper blade", 400)}
	valuation := valuationFixture(400, breakdown)
	enforcement := enforcementFixture(breakdown)

	decision, err := AssembleDecision(testSubmission(), policy, valuation, enforcement, cleanFraud(), nil)

	require.NoError(t, err)
	assert.Equal(t, models.ClaimDenied, decision.Status)
	assert.True(t, decision.ClaimableAmount.IsZero(), "claimable never goes negative")
	assert.True(t, decision.DeductibleApplied.Equal(decimal.NewFromInt(400)),
		"only the absorbed portion of the deductible counts as applied")
}

func TestAssembleDecision_ProvisionalValuationSuspendsClaim(t *testing.T) {
	policy := testPolicy()

	breakdown := models.PartBreakdown{coveredPart("left door", 4000)}
	valuation := valuationFixture(4000, breakdown)
	valuation.Provisional = true
	valuation.Notes = []string{"damage report confidence 72.0 below threshold 80.0"}
	enforcement := enforcementFixture(breakdown)

	decision, err := AssembleDecision(testSubmission(), policy, valuation, enforcement, cleanFraud(), nil)

	require.NoError(t, err)
	assert.Equal(t, models.ClaimRequiresManualReview, decision.Status)
	assert.Contains(t, decision.Explanation.Details, valuation.Notes[0])
}

func TestAssembleDecision_UnmatchedPartSuspendsClaim(t *testing.T) {
	policy := testPolicy()

	reason := models.DenialUnmatchedTariff
	breakdown := models.PartBreakdown{
		coveredPart("front bumper", 4000),
		{PartName: "spoiler", Covered: false, DenialReason: &reason},
	}
	valuation := valuationFixture(4000, breakdown)
	enforcement := enforcementFixture(breakdown)

	decision, err := AssembleDecision(testSubmission(), policy, valuation, enforcement, cleanFraud(), nil)

	require.NoError(t, err)
	assert.Equal(t, models.ClaimRequiresManualReview, decision.Status)
}

func TestAssembleDecision_FlaggedFraudDominatesEverything(t *testing.T) {
	policy := testPolicy()

	breakdown := models.PartBreakdown{coveredPart("left door", 4000)}
	valuation := valuationFixture(4000, breakdown)
	valuation.Provisional = true // would otherwise suspend for review
	enforcement := enforcementFixture(breakdown)

	fraud := &models.FraudAnalysis{
		AnomalyScore:   85,
		Flagged:        true,
		Recommendation: models.RecommendInvestigate,
		Indicators: models.FraudIndicators{{
			Type:       models.IndicatorImageManipulation,
			Severity:   models.IndicatorHigh,
			Evidence:   "manipulation flag set",
			ScoreDelta: 40,
		}},
	}

	decision, err := AssembleDecision(testSubmission(), policy, valuation, enforcement, fraud, nil)

	require.NoError(t, err)
	assert.Equal(t, models.ClaimFlaggedFraud, decision.Status)
	assert.True(t, decision.AmountWithheld)
	assert.True(t, decision.ClaimableAmount.Equal(decimal.NewFromInt(3000)),
		"the withheld amount stays computed, not zeroed")

	foundIndicator := false
	foundWithheld := false
	for _, detail := range decision.Explanation.Details {
		if detail == "fraud indicator image_manipulation (+40): manipulation flag set" {
			foundIndicator = true
		}
		if detail == "payout of 3000 withheld pending fraud investigation (anomaly score 85)" {
			foundWithheld = true
		}
	}
	assert.True(t, foundIndicator, "fraud indicators must be itemized")
	assert.True(t, foundWithheld, "withholding must be stated explicitly")
}

func TestAssembleDecision_SummaryAndTimestamps(t *testing.T) {
	policy := testPolicy()
	submission := testSubmission()

	breakdown := models.PartBreakdown{coveredPart("front bumper", 4000)}
	valuation := valuationFixture(4000, breakdown)
	enforcement := enforcementFixture(breakdown)

	decision, err := AssembleDecision(submission, policy, valuation, enforcement, cleanFraud(), nil)

	require.NoError(t, err)
	assert.Equal(t, submission.ClaimID, decision.ClaimID)
	assert.Equal(t, policy.ID, decision.PolicyID)
	assert.NotEqual(t, uuid.Nil, decision.ID)
	assert.NotEmpty(t, decision.Explanation.Summary)
	assert.False(t, decision.CreatedAt.IsZero())
}
