package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"decision-service/internal/config"
	"decision-service/internal/models"
	"decision-service/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PremiumCalculator turns a risk assessment plus vehicle/coverage facts
// into a premium quote. The base premium is a rate-table lookup, never
// computed here.
type PremiumCalculator struct {
	rateRepo *repository.RateRepository
	rating   *config.RatingSource
}

func NewPremiumCalculator(rateRepo *repository.RateRepository, rating *config.RatingSource) *PremiumCalculator {
	return &PremiumCalculator{
		rateRepo: rateRepo,
		rating:   rating,
	}
}

// Quote prices an application against an assessment. Fails with a
// validation error on non-positive IDV or unknown coverage type.
func (c *PremiumCalculator) Quote(ctx context.Context, app models.PremiumApplication, assessment *models.RiskAssessment) (*models.PremiumQuote, error) {
	if !app.Vehicle.IDV.IsPositive() {
		return nil, models.NewStageError("premium_calculator", app.ApplicationID,
			models.NewFieldError("vehicle.idv", "must be greater than zero"))
	}
	if !app.CoverageType.IsValid() {
		return nil, models.NewStageError("premium_calculator", app.ApplicationID,
			models.NewFieldError("coverage_type", fmt.Sprintf("unknown coverage type %q", app.CoverageType)))
	}

	basePremium, err := c.rateRepo.GetBasePremium(ctx, app.CoverageType, app.Vehicle)
	if err != nil {
		return nil, models.NewStageError("premium_calculator", app.ApplicationID,
			fmt.Errorf("%w: base rate lookup failed: %v", models.ErrDataUnavailable, err))
	}

	var addOnPremiums models.AddOnPremiums
	for _, addOn := range app.AddOns {
		premium, err := c.rateRepo.GetAddOnPremium(ctx, addOn)
		if err != nil {
			return nil, models.NewStageError("premium_calculator", app.ApplicationID,
				fmt.Errorf("%w: add-on rate lookup failed for %s: %v", models.ErrDataUnavailable, addOn, err))
		}
		addOnPremiums = append(addOnPremiums, models.AddOnPremium{AddOn: addOn, Premium: premium})
	}

	premiumCfg := c.rating.Current().Premium
	quote := BuildQuote(app, assessment, basePremium, addOnPremiums, premiumCfg)

	slog.Info("Premium quote computed",
		"application_id", app.ApplicationID,
		"base_premium", quote.BasePremium,
		"risk_adjustment", quote.RiskAdjustment,
		"total_premium", quote.TotalPremium)

	return quote, nil
}

// BuildQuote is the pure pricing function:
//
//	adjustment = base × (riskScore − 50) / 100
//	total      = max(minimum, base + adjustment + Σ add-ons)
//
// so the total can never go negative no matter how favorable the risk
// score, and a higher-risk application never prices below a lower-risk one.
func BuildQuote(app models.PremiumApplication, assessment *models.RiskAssessment,
	basePremium decimal.Decimal, addOnPremiums models.AddOnPremiums, cfg config.PremiumConfig,
) *models.PremiumQuote {
	riskAdjustment := basePremium.
		Mul(decimal.NewFromFloat(assessment.Score - 50)).
		Div(decimal.NewFromInt(100)).
		Round(2)

	total := basePremium.Add(riskAdjustment)
	details := []string{
		fmt.Sprintf("base premium %s for %s coverage", basePremium, app.CoverageType),
		fmt.Sprintf("risk adjustment %s at risk score %.1f", riskAdjustment, assessment.Score),
	}

	// Every nonzero risk factor must show up in the explanation.
	for _, factor := range assessment.Factors {
		if factor.ImpactPct == 0 {
			continue
		}
		details = append(details, fmt.Sprintf("risk factor %s: %+.1f points (%s)",
			factor.Name, factor.ImpactPct, factor.Rationale))
	}

	for _, addOn := range addOnPremiums {
		total = total.Add(addOn.Premium)
		details = append(details, fmt.Sprintf("add-on %s: %s", addOn.AddOn, addOn.Premium))
	}

	minimum := decimal.NewFromFloat(cfg.MinimumPremium)
	if total.LessThan(minimum) {
		details = append(details, fmt.Sprintf("total floored at minimum premium %s", minimum))
		total = minimum
	}

	validDays := cfg.QuoteValidDays
	if validDays <= 0 {
		validDays = 15
	}

	return &models.PremiumQuote{
		ID:             uuid.New(),
		ApplicationID:  app.ApplicationID,
		BasePremium:    basePremium,
		RiskAdjustment: riskAdjustment,
		AddOnPremiums:  addOnPremiums,
		TotalPremium:   total,
		Explanation: models.Explanation{
			Summary: fmt.Sprintf("total premium %s (base %s, risk adjustment %s, %d add-ons)",
				total, basePremium, riskAdjustment, len(addOnPremiums)),
			Details: details,
		},
		ValidUntil: time.Now().Add(time.Duration(validDays) * 24 * time.Hour).Unix(),
		CreatedAt:  time.Now(),
	}
}
