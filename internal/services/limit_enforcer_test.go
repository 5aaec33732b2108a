package services

import (
	"testing"

	"decision-service/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func coveredPart(name string, depreciated int64) models.PartAmount {
	return models.PartAmount{
		PartName:        name,
		TariffCost:      decimal.NewFromInt(depreciated),
		DepreciatedCost: decimal.NewFromInt(depreciated),
		Covered:         true,
		ApprovedAmount:  decimal.NewFromInt(depreciated),
	}
}

// ============================================================================
// LIMIT ENFORCEMENT
// ============================================================================

func TestEnforceLimits_PerPartCap(t *testing.T) {
	policy := testPolicy() // per-part limit 5000

	breakdown := models.PartBreakdown{
		coveredPart("engine hood", 8000),
		coveredPart("front bumper", 3000),
	}

	result := EnforceLimits(breakdown, policy, decimal.Zero)

	assert.True(t, result.Breakdown[0].ApprovedAmount.Equal(decimal.NewFromInt(5000)),
		"part above the per-part limit must be capped")
	assert.True(t, result.Breakdown[1].ApprovedAmount.Equal(decimal.NewFromInt(3000)))
	assert.True(t, result.TotalApproved.Equal(decimal.NewFromInt(8000)))
	assert.NotEmpty(t, result.Notes)
}

func TestEnforceLimits_ProRataScalesToLimitExactly(t *testing.T) {
	policy := testPolicy()
	policy.PerPartLimit = nil
	policy.TotalClaimLimit = decimal.NewFromInt(10000)

	breakdown := models.PartBreakdown{
		coveredPart("engine hood", 9000),
		coveredPart("front bumper", 3000),
		coveredPart("left door", 3000),
	}

	result := EnforceLimits(breakdown, policy, decimal.Zero)

	sum := decimal.Zero
	for _, part := range result.Breakdown {
		sum = sum.Add(part.ApprovedAmount)
		assert.True(t, part.ApprovedAmount.LessThanOrEqual(part.DepreciatedCost),
			"approved must never exceed depreciated for %s", part.PartName)
	}
	assert.True(t, sum.Equal(policy.TotalClaimLimit),
		"pro-rata sum must equal the limit exactly, got %s", sum)
	assert.True(t, result.TotalApproved.Equal(policy.TotalClaimLimit))
}

func TestEnforceLimits_ProRataRemainderRespectsPartCaps(t *testing.T) {
	policy := testPolicy()
	policy.PerPartLimit = nil
	policy.TotalClaimLimit = decimal.NewFromInt(1000)

	centPart := func(name, depreciated string) models.PartAmount {
		amount := decimal.RequireFromString(depreciated)
		return models.PartAmount{
			PartName:        name,
			TariffCost:      amount,
			DepreciatedCost: amount,
			Covered:         true,
			ApprovedAmount:  amount,
		}
	}

	// Total 1000.01 against a 1000 limit leaves a two-cent rounding
	// remainder; piling it onto one tiny part would push that part past
	// its depreciated cost.
	breakdown := models.PartBreakdown{
		centPart("engine hood", "600.00"),
		centPart("front bumper", "399.99"),
		centPart("wiper blade", "0.02"),
	}

	result := EnforceLimits(breakdown, policy, decimal.Zero)

	sum := decimal.Zero
	for _, part := range result.Breakdown {
		sum = sum.Add(part.ApprovedAmount)
		assert.True(t, part.ApprovedAmount.LessThanOrEqual(part.DepreciatedCost),
			"rounding remainder must not push %s past its depreciated cost, got %s",
			part.PartName, part.ApprovedAmount)
	}
	assert.True(t, sum.Equal(policy.TotalClaimLimit),
		"sum must still meet the limit exactly, got %s", sum)
	assert.True(t, result.TotalApproved.Equal(policy.TotalClaimLimit))
}

func TestEnforceLimits_ProRataSkipsUncoveredParts(t *testing.T) {
	policy := testPolicy()
	policy.PerPartLimit = nil
	policy.TotalClaimLimit = decimal.NewFromInt(6000)

	reason := models.DenialUnmatchedTariff
	breakdown := models.PartBreakdown{
		coveredPart("engine hood", 8000),
		{
			PartName:     "spoiler",
			Covered:      false,
			DenialReason: &reason,
		},
		coveredPart("front bumper", 4000),
	}

	result := EnforceLimits(breakdown, policy, decimal.Zero)

	assert.True(t, result.Breakdown[1].ApprovedAmount.IsZero(), "uncovered part stays at zero")
	assert.True(t, result.TotalApproved.Equal(decimal.NewFromInt(6000)))
}

func TestEnforceLimits_AnnualCapDeniesExcess(t *testing.T) {
	policy := testPolicy()
	policy.PerPartLimit = nil
	policy.AnnualClaimLimit = decimal.NewFromInt(10000)

	breakdown := models.PartBreakdown{
		coveredPart("engine hood", 4000),
		coveredPart("front bumper", 3000),
	}

	// 8000 already paid this policy year leaves 2000 of headroom.
	result := EnforceLimits(breakdown, policy, decimal.NewFromInt(8000))

	assert.True(t, result.AnnualLimitHit)
	assert.True(t, result.TotalApproved.Equal(decimal.NewFromInt(2000)))

	first := result.Breakdown[0]
	assert.True(t, first.ApprovedAmount.Equal(decimal.NewFromInt(2000)))
	require.NotNil(t, first.DenialReason)
	assert.Equal(t, models.DenialAnnualLimitExceeded, *first.DenialReason)

	second := result.Breakdown[1]
	assert.True(t, second.ApprovedAmount.IsZero())
	require.NotNil(t, second.DenialReason)
	assert.Equal(t, models.DenialAnnualLimitExceeded, *second.DenialReason)
}

func TestEnforceLimits_AnnualAlreadyExhausted(t *testing.T) {
	policy := testPolicy()
	policy.PerPartLimit = nil
	policy.AnnualClaimLimit = decimal.NewFromInt(10000)

	breakdown := models.PartBreakdown{coveredPart("front bumper", 3000)}

	result := EnforceLimits(breakdown, policy, decimal.NewFromInt(12000))

	assert.True(t, result.TotalApproved.IsZero())
	assert.True(t, result.AnnualLimitHit)
}

func TestEnforceLimits_WithinAllLimitsUntouched(t *testing.T) {
	policy := testPolicy()

	breakdown := models.PartBreakdown{
		coveredPart("front bumper", 3000),
		coveredPart("left door", 2000),
	}

	result := EnforceLimits(breakdown, policy, decimal.Zero)

	assert.True(t, result.TotalApproved.Equal(decimal.NewFromInt(5000)))
	assert.Empty(t, result.Notes)
	assert.False(t, result.AnnualLimitHit)
}

func TestEnforceLimits_DoesNotMutateInput(t *testing.T) {
	policy := testPolicy()
	policy.PerPartLimit = nil
	policy.TotalClaimLimit = decimal.NewFromInt(1000)

	breakdown := models.PartBreakdown{coveredPart("front bumper", 3000)}
	_ = EnforceLimits(breakdown, policy, decimal.Zero)

	assert.True(t, breakdown[0].ApprovedAmount.Equal(decimal.NewFromInt(3000)),
		"enforcement must work on a copy")
}
