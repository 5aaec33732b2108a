package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClaimState_HappyPathTransitions(t *testing.T) {
	assert.True(t, ClaimSubmitted.CanTransitionTo(ClaimAssessed))
	assert.True(t, ClaimAssessed.CanTransitionTo(ClaimFraudChecked))

	for _, outcome := range []ClaimState{
		ClaimApproved, ClaimPartiallyApproved, ClaimDenied,
		ClaimRequiresManualReview, ClaimFlaggedFraud,
	} {
		assert.True(t, ClaimFraudChecked.CanTransitionTo(outcome),
			"fraud_checked must allow %s", outcome)
	}
}

func TestClaimState_ManualReviewReentersFraudChecked(t *testing.T) {
	assert.True(t, ClaimRequiresManualReview.CanTransitionTo(ClaimFraudChecked))
	assert.False(t, ClaimRequiresManualReview.CanTransitionTo(ClaimApproved),
		"review must re-enter fraud_checked, never jump straight to an outcome")
}

func TestClaimState_TerminalStatesAreFrozen(t *testing.T) {
	terminals := []ClaimState{ClaimApproved, ClaimPartiallyApproved, ClaimDenied, ClaimFlaggedFraud}
	all := []ClaimState{
		ClaimSubmitted, ClaimAssessed, ClaimFraudChecked, ClaimApproved,
		ClaimPartiallyApproved, ClaimDenied, ClaimRequiresManualReview, ClaimFlaggedFraud,
	}

	for _, terminal := range terminals {
		assert.True(t, terminal.IsTerminal())
		for _, next := range all {
			assert.False(t, terminal.CanTransitionTo(next),
				"%s is terminal and must not transition to %s", terminal, next)
		}
	}
}

func TestClaimState_NoSkippingStages(t *testing.T) {
	assert.False(t, ClaimSubmitted.CanTransitionTo(ClaimFraudChecked))
	assert.False(t, ClaimSubmitted.CanTransitionTo(ClaimApproved))
	assert.False(t, ClaimAssessed.CanTransitionTo(ClaimDenied))
}

func TestPartCategory_ElevatedDepreciation(t *testing.T) {
	assert.True(t, PartRubber.UsesElevatedDepreciation())
	assert.True(t, PartPlastic.UsesElevatedDepreciation())
	assert.True(t, PartBattery.UsesElevatedDepreciation())
	assert.False(t, PartMetal.UsesElevatedDepreciation())
	assert.False(t, PartGlass.UsesElevatedDepreciation())
}

func TestAddOnList_Has(t *testing.T) {
	addOns := AddOnList{AddOnGlassCover, AddOnEngineProtect}

	assert.True(t, addOns.Has(AddOnGlassCover))
	assert.False(t, addOns.Has(AddOnReturnToInvoice))
	assert.False(t, AddOnList(nil).Has(AddOnGlassCover))
}
