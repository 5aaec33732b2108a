package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"decision-service/internal/config"
	"decision-service/internal/models"
	"decision-service/internal/repository"

	"github.com/google/uuid"
)

// RiskScorer converts a driver's violation history into a bounded risk
// score with a factor trail covering every nonzero contribution.
type RiskScorer struct {
	violationRepo *repository.ViolationRepository
	rating        *config.RatingSource
}

func NewRiskScorer(violationRepo *repository.ViolationRepository, rating *config.RatingSource) *RiskScorer {
	return &RiskScorer{
		violationRepo: violationRepo,
		rating:        rating,
	}
}

// Recency brackets use 30-day months; a violation younger than 6 months
// counts in full, 6-12 months at 0.6, older at 0.3.
const riskMonth = 30 * 24 * time.Hour

// Score fetches the driver's violation history and computes the risk
// assessment as of the given time, which anchors the recency brackets so a
// retried application scores identically. An empty history is valid and
// scores exactly the configured base; only a store failure is an error.
func (s *RiskScorer) Score(ctx context.Context, driverID string, asOf time.Time) (*models.RiskAssessment, error) {
	history, err := s.violationRepo.GetByDriverID(ctx, driverID)
	if err != nil {
		return nil, models.NewStageError("risk_scorer", driverID,
			fmt.Errorf("%w: violation history lookup failed: %v", models.ErrDataUnavailable, err))
	}

	cfg := s.rating.Current().Risk
	score, factors := ComputeRiskScore(history, asOf, cfg)

	assessment := &models.RiskAssessment{
		ID:        uuid.New(),
		DriverID:  driverID,
		Score:     score,
		Factors:   factors,
		CreatedAt: time.Now(),
	}
	for _, v := range history {
		assessment.Violations = append(assessment.Violations, v.ID)
	}

	slog.Info("Risk assessment computed",
		"driver_id", driverID,
		"score", score,
		"violation_count", len(history),
		"factor_count", len(factors))

	return assessment, nil
}

// ComputeRiskScore is the pure scoring function:
//
//	score = base + Σ severityWeight × recencyWeight × frequencyMultiplier
//
// clamped to [0,100]. The frequency multiplier 1+(n−1)×0.2 (capped at 2.0)
// applies per violation-type group, so repeat offenses of the same type
// weigh more than scattered one-offs.
func ComputeRiskScore(history []models.ViolationRecord, now time.Time, cfg config.RiskConfig) (float64, []models.RiskFactor) {
	factors := []models.RiskFactor{
		{
			Name:      "base_score",
			ImpactPct: cfg.BaseScore,
			Rationale: "configured underwriting base score",
		},
	}

	countByType := make(map[string]int)
	for _, v := range history {
		countByType[v.Type]++
	}

	total := cfg.BaseScore
	for _, v := range history {
		severityWeight := cfg.SeverityWeights[string(v.Severity)]
		recencyWeight := recencyWeightFor(now.Sub(time.Unix(v.OccurredAt, 0)))
		frequencyMultiplier := frequencyMultiplierFor(countByType[v.Type])

		contribution := severityWeight * recencyWeight * frequencyMultiplier
		if contribution == 0 {
			continue
		}

		total += contribution
		factors = append(factors, models.RiskFactor{
			Name:      v.Type + "_violation",
			ImpactPct: contribution,
			Rationale: fmt.Sprintf("%s violation at %s (severity %.1f × recency %.1f × frequency %.1f)",
				v.Severity, v.Location, severityWeight, recencyWeight, frequencyMultiplier),
		})
	}

	// Stable factor ordering keeps recomputed assessments byte-identical.
	sort.SliceStable(factors[1:], func(i, j int) bool {
		return factors[i+1].Name < factors[j+1].Name
	})

	return clampScore(total), factors
}

func recencyWeightFor(age time.Duration) float64 {
	switch {
	case age < 6*riskMonth:
		return 1.0
	case age <= 12*riskMonth:
		return 0.6
	default:
		return 0.3
	}
}

func frequencyMultiplierFor(countInGroup int) float64 {
	if countInGroup < 1 {
		return 1.0
	}
	multiplier := 1.0 + float64(countInGroup-1)*0.2
	if multiplier > 2.0 {
		multiplier = 2.0
	}
	return multiplier
}

func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
