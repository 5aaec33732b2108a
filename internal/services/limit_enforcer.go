package services

import (
	"context"
	"fmt"

	"decision-service/internal/models"
	"decision-service/internal/repository"

	"github.com/shopspring/decimal"
)

// EnforcementResult is the breakdown after policy limits have been
// applied, with a note per reduction so the explanation can cite them.
type EnforcementResult struct {
	Breakdown      models.PartBreakdown
	TotalApproved  decimal.Decimal
	Notes          []string
	AnnualLimitHit bool

	// AnnualPaidSnapshot is the annual total the caps were computed against.
	// The commit transaction compares it to a fresh in-tx read and recomputes
	// when another claim on the policy landed in between.
	AnnualPaidSnapshot decimal.Decimal
}

// LimitEnforcer applies the policy's per-part, total and annual caps to a
// valuated breakdown.
type LimitEnforcer struct {
	policyRepo *repository.PolicyRepository
}

func NewLimitEnforcer(policyRepo *repository.PolicyRepository) *LimitEnforcer {
	return &LimitEnforcer{policyRepo: policyRepo}
}

// Enforce reads the annual claims already paid this policy year and applies
// all three caps. The annual total is a snapshot; the decision commit
// re-validates it inside the transaction.
func (e *LimitEnforcer) Enforce(ctx context.Context, breakdown models.PartBreakdown, policy *models.Policy) (*EnforcementResult, error) {
	annualPaid, err := e.policyRepo.GetAnnualClaimsPaid(ctx, policy.ID, policy.PolicyYearStart)
	if err != nil {
		return nil, models.NewStageError("limit_enforcer", policy.PolicyNumber,
			fmt.Errorf("%w: annual claims total lookup failed: %v", models.ErrDataUnavailable, err))
	}

	result := EnforceLimits(breakdown, policy, annualPaid)
	return &result, nil
}

// EnforceLimits is the pure capping function. Order matters:
//
//  1. per-part cap, when the policy sets one
//  2. pro-rata scaling of all covered parts so the sum meets the total
//     claim limit exactly, rounding remainder spilled into parts that
//     still have headroom under their capped amount
//  3. annual cap against claims already paid this policy year, walking
//     parts in breakdown order and denying the excess
//
// No approved amount ever exceeds its depreciated cost, and the sum never
// exceeds the total claim limit.
func EnforceLimits(breakdown models.PartBreakdown, policy *models.Policy, annualPaid decimal.Decimal) EnforcementResult {
	result := EnforcementResult{
		Breakdown:          make(models.PartBreakdown, len(breakdown)),
		TotalApproved:      decimal.Zero,
		AnnualPaidSnapshot: annualPaid,
	}
	copy(result.Breakdown, breakdown)

	total := decimal.Zero
	for i := range result.Breakdown {
		part := &result.Breakdown[i]
		if !part.Covered {
			part.ApprovedAmount = decimal.Zero
			continue
		}

		part.ApprovedAmount = part.DepreciatedCost
		if policy.PerPartLimit != nil && part.ApprovedAmount.GreaterThan(*policy.PerPartLimit) {
			part.ApprovedAmount = *policy.PerPartLimit
			result.Notes = append(result.Notes, fmt.Sprintf("part %q capped at per-part limit %s",
				part.PartName, policy.PerPartLimit))
		}
		total = total.Add(part.ApprovedAmount)
	}

	if total.GreaterThan(policy.TotalClaimLimit) {
		scaleCoveredParts(result.Breakdown, total, policy.TotalClaimLimit)
		result.Notes = append(result.Notes, fmt.Sprintf(
			"approved total %s exceeds total claim limit %s, all covered parts scaled pro-rata",
			total, policy.TotalClaimLimit))
		total = policy.TotalClaimLimit
	}

	annualHeadroom := policy.AnnualClaimLimit.Sub(annualPaid)
	if annualHeadroom.IsNegative() {
		annualHeadroom = decimal.Zero
	}
	if total.GreaterThan(annualHeadroom) {
		denied := applyAnnualCap(result.Breakdown, annualHeadroom)
		result.AnnualLimitHit = true
		result.Notes = append(result.Notes, fmt.Sprintf(
			"annual claim limit %s reached (%s already paid this policy year), %s denied",
			policy.AnnualClaimLimit, annualPaid, denied))
		total = annualHeadroom
	}

	result.TotalApproved = total
	return result
}

// scaleCoveredParts reduces every covered part proportionally so the sum
// equals the limit exactly. Amounts round down to cents; the rounding
// remainder spills into covered parts that still have headroom under the
// amount they carried into the scaling, so no part ever ends up above its
// own cap. The combined headroom always covers the remainder because the
// pre-scale total exceeds the limit.
func scaleCoveredParts(breakdown models.PartBreakdown, total, limit decimal.Decimal) {
	caps := make([]decimal.Decimal, len(breakdown))
	scaled := decimal.Zero
	for i := range breakdown {
		part := &breakdown[i]
		if !part.Covered {
			continue
		}
		caps[i] = part.ApprovedAmount
		part.ApprovedAmount = part.ApprovedAmount.Mul(limit).Div(total).RoundDown(2)
		scaled = scaled.Add(part.ApprovedAmount)
	}

	remainder := limit.Sub(scaled)
	for i := range breakdown {
		if !remainder.IsPositive() {
			break
		}
		part := &breakdown[i]
		if !part.Covered {
			continue
		}
		grant := caps[i].Sub(part.ApprovedAmount)
		if grant.GreaterThan(remainder) {
			grant = remainder
		}
		if !grant.IsPositive() {
			continue
		}
		part.ApprovedAmount = part.ApprovedAmount.Add(grant)
		remainder = remainder.Sub(grant)
	}
}

// applyAnnualCap grants approved amounts in breakdown order until the
// annual headroom is exhausted, denying the excess. Returns the total
// amount denied.
func applyAnnualCap(breakdown models.PartBreakdown, headroom decimal.Decimal) decimal.Decimal {
	denied := decimal.Zero
	remaining := headroom
	for i := range breakdown {
		part := &breakdown[i]
		if !part.Covered {
			continue
		}
		if part.ApprovedAmount.LessThanOrEqual(remaining) {
			remaining = remaining.Sub(part.ApprovedAmount)
			continue
		}

		reason := models.DenialAnnualLimitExceeded
		denied = denied.Add(part.ApprovedAmount.Sub(remaining))
		part.ApprovedAmount = remaining
		part.DenialReason = &reason
		remaining = decimal.Zero
	}
	return denied
}
