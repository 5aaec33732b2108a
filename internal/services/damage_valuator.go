package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"decision-service/internal/config"
	"decision-service/internal/models"
	"decision-service/internal/retrieval"

	"github.com/shopspring/decimal"
)

// ValuationResult is the itemized, depreciated view of a damage report
// before limits are applied.
type ValuationResult struct {
	Breakdown       models.PartBreakdown
	Provisional     bool
	Citations       []models.Citation
	Notes           []string
	FullTariffValue decimal.Decimal // sum of covered tariff costs, pre-depreciation
}

// DamageValuator prices each detected part from the tariff lookup and the
// age-based depreciation tables. It never recomputes detection; the damage
// report is opaque input.
type DamageValuator struct {
	retriever retrieval.Retriever
	fallback  retrieval.Retriever
	rating    *config.RatingSource
}

func NewDamageValuator(retriever retrieval.Retriever, fallback retrieval.Retriever, rating *config.RatingSource) *DamageValuator {
	return &DamageValuator{
		retriever: retriever,
		fallback:  fallback,
		rating:    rating,
	}
}

// Valuate produces the per-part breakdown. When the retrieval service is
// down it degrades to the static tariff table and marks the result
// provisional, which forces the decision into manual review.
func (v *DamageValuator) Valuate(ctx context.Context, report models.DamageReport, policy models.Policy, vehicleAgeMonths int) (*ValuationResult, error) {
	partNames := make([]string, 0, len(report.Parts))
	for _, part := range report.Parts {
		partNames = append(partNames, part.Name)
	}

	result := &ValuationResult{FullTariffValue: decimal.Zero}

	tariffs, err := v.retriever.LookupTariffs(ctx, partNames, policy.CoverageType)
	if err != nil {
		if !errors.Is(err, models.ErrRetrievalUnavailable) {
			return nil, models.NewStageError("damage_valuator", policy.PolicyNumber, err)
		}

		slog.Warn("Tariff retrieval unavailable, falling back to static table",
			"policy_number", policy.PolicyNumber,
			"error", err)

		tariffs, err = v.fallback.LookupTariffs(ctx, partNames, policy.CoverageType)
		if err != nil {
			return nil, models.NewStageError("damage_valuator", policy.PolicyNumber, err)
		}
		result.Provisional = true
		result.Notes = append(result.Notes, "tariff retrieval unavailable; static tariff table applied")
	}

	depCfg := v.rating.Current().Depreciation
	glassCovered := policy.AddOns.Has(models.AddOnGlassCover)

	for _, part := range report.Parts {
		tariff, matched := tariffs[part.Name]
		if !matched {
			// Unmatched parts stay in the breakdown with a zero contribution
			// so the itemization remains auditable.
			reason := models.DenialUnmatchedTariff
			result.Breakdown = append(result.Breakdown, models.PartAmount{
				PartName:        part.Name,
				TariffCost:      decimal.Zero,
				DepreciationPct: 0,
				DepreciatedCost: decimal.Zero,
				Covered:         false,
				ApprovedAmount:  decimal.Zero,
				DenialReason:    &reason,
			})
			result.Notes = append(result.Notes, fmt.Sprintf("no tariff match for part %q", part.Name))
			continue
		}

		pct := depreciationPctFor(part.Category, vehicleAgeMonths, glassCovered, depCfg)
		depreciated := tariff.Cost.
			Mul(decimal.NewFromFloat(100 - pct)).
			Div(decimal.NewFromInt(100)).
			Round(2)

		result.Breakdown = append(result.Breakdown, models.PartAmount{
			PartName:        part.Name,
			TariffCost:      tariff.Cost,
			DepreciationPct: pct,
			DepreciatedCost: depreciated,
			Covered:         true,
			ApprovedAmount:  depreciated,
		})
		result.Citations = append(result.Citations, tariff.Citation)
		result.FullTariffValue = result.FullTariffValue.Add(tariff.Cost)
	}

	if report.OverallConfidence < depCfg.ConfidenceThreshold {
		result.Provisional = true
		result.Notes = append(result.Notes,
			fmt.Sprintf("damage report confidence %.1f below threshold %.1f",
				report.OverallConfidence, depCfg.ConfidenceThreshold))
	}
	if report.ManualReviewFlag {
		result.Provisional = true
		result.Notes = append(result.Notes, "damage report provider requested manual review")
	}

	return result, nil
}

// depreciationPctFor selects the depreciation percentage for a part: glass
// is exempt while the glass add-on is active, rubber/plastic/battery use
// the stricter elevated table, everything else the standard one.
func depreciationPctFor(category models.PartCategory, ageMonths int, glassCovered bool, cfg config.DepreciationConfig) float64 {
	if category == models.PartGlass && glassCovered {
		return 0
	}
	if category.UsesElevatedDepreciation() {
		return config.PctForAge(cfg.Elevated, ageMonths)
	}
	return config.PctForAge(cfg.Standard, ageMonths)
}
