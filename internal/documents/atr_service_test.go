package documents

import (
	"testing"

	"decision-service/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestFillTemplate_ReplacesKnownPlaceholders(t *testing.T) {
	template := "Claim ____(claim_id)____ under policy ____(policy_id)____ approved for ____(claimable_amount)____."
	values := map[string]string{
		"claim_id":         "c-1",
		"policy_id":        "p-1",
		"claimable_amount": "7500",
	}

	filled := FillTemplate(template, values)

	assert.Equal(t, "Claim c-1 under policy p-1 approved for 7500.", filled)
}

func TestFillTemplate_UnknownPlaceholdersLeftVisible(t *testing.T) {
	template := "Issued ____(issued_at)____ by ____(adjuster_name)____"
	values := map[string]string{"issued_at": "2026-08-31T00:00:00Z"}

	filled := FillTemplate(template, values)

	assert.Contains(t, filled, "2026-08-31T00:00:00Z")
	assert.Contains(t, filled, "____(adjuster_name)____",
		"a bad template must stay visible in the output")
}

func TestExtractPlaceholders(t *testing.T) {
	template := "____(claim_id)____ / ____(status)____ / plain text"

	placeholders := ExtractPlaceholders(template)

	assert.Equal(t, []string{"claim_id", "status"}, placeholders)
}

func TestExtractPlaceholders_NoneFound(t *testing.T) {
	assert.Empty(t, ExtractPlaceholders("no placeholders here"))
}

func TestPartSummary(t *testing.T) {
	reason := models.DenialUnmatchedTariff
	breakdown := models.PartBreakdown{
		{
			PartName:        "front bumper",
			TariffCost:      decimal.NewFromInt(4000),
			DepreciationPct: 10,
			DepreciatedCost: decimal.NewFromInt(3600),
			Covered:         true,
			ApprovedAmount:  decimal.NewFromInt(3600),
		},
		{PartName: "spoiler", Covered: false, DenialReason: &reason},
	}

	summary := partSummary(breakdown)

	assert.Contains(t, summary, "front bumper: approved 3600 (tariff 4000, depreciation 10%)")
	assert.Contains(t, summary, "spoiler: not covered")
}
