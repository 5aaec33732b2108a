package services

import (
	"context"
	"testing"
	"time"

	"decision-service/internal/config"
	"decision-service/internal/models"
	"decision-service/internal/repository"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// TEST HELPERS
// ============================================================================

func testRatingConfig() *config.RatingConfig {
	return &config.RatingConfig{
		Risk: config.RiskConfig{
			BaseScore:       30,
			SeverityWeights: map[string]float64{"minor": 1, "moderate": 2, "severe": 3},
		},
		Premium: config.PremiumConfig{
			MinimumPremium: 2500,
			QuoteValidDays: 15,
		},
		Depreciation: config.DepreciationConfig{
			Standard: []config.DepreciationBracket{
				{MaxAgeMonths: 6, Pct: 0}, {MaxAgeMonths: 12, Pct: 5},
				{MaxAgeMonths: 24, Pct: 10}, {MaxAgeMonths: 36, Pct: 15},
				{MaxAgeMonths: 48, Pct: 25}, {MaxAgeMonths: 60, Pct: 35},
				{MaxAgeMonths: 999, Pct: 50},
			},
			Elevated: []config.DepreciationBracket{
				{MaxAgeMonths: 6, Pct: 5}, {MaxAgeMonths: 12, Pct: 10},
				{MaxAgeMonths: 24, Pct: 20}, {MaxAgeMonths: 36, Pct: 30},
				{MaxAgeMonths: 48, Pct: 40}, {MaxAgeMonths: 60, Pct: 50},
				{MaxAgeMonths: 999, Pct: 60},
			},
			ConfidenceThreshold: 80,
		},
		Fraud: config.FraudConfig{
			FrequentClaimsDelta:   20,
			HighAmountDelta:       15,
			LocationMismatchDelta: 25,
			TimestampDelta:        30,
			ManipulationDelta:     40,
			GarageCollusionDelta:  35,
			FrequentClaimsPerYear: 2,
			HighAmountIDVPct:      50,
			LocationMismatchKM:    50,
			TimestampWindowHours:  24,
			ReviewThreshold:       40,
			FlagThreshold:         70,
		},
		Fallback: config.FallbackConfig{
			Tariffs: []config.FallbackTariff{
				{Part: "front bumper", Cost: 4500, DocumentID: "STATIC-TARIFF-2025", Section: "bumpers"},
				{Part: "windshield", Cost: 6500, DocumentID: "STATIC-TARIFF-2025", Section: "glass"},
			},
		},
	}
}

func testViolation(violationType string, severity models.ViolationSeverity, occurredAt time.Time) models.ViolationRecord {
	return models.ViolationRecord{
		ID:         uuid.New(),
		DriverID:   "driver-1",
		Type:       violationType,
		Severity:   severity,
		OccurredAt: occurredAt.Unix(),
		Location:   "NH48 km 120",
	}
}

// ============================================================================
// RISK SCORING
// ============================================================================

func TestComputeRiskScore_EmptyHistoryScoresBase(t *testing.T) {
	cfg := testRatingConfig().Risk

	score, factors := ComputeRiskScore(nil, time.Now(), cfg)

	assert.Equal(t, 30.0, score, "empty history must score exactly the base")
	assert.Len(t, factors, 1)
	assert.Equal(t, "base_score", factors[0].Name)
}

func TestComputeRiskScore_RecencyWeights(t *testing.T) {
	cfg := testRatingConfig().Risk
	now := time.Now()

	recent := []models.ViolationRecord{testViolation("speeding", models.ViolationModerate, now.AddDate(0, -2, 0))}
	midAge := []models.ViolationRecord{testViolation("speeding", models.ViolationModerate, now.AddDate(0, -9, 0))}
	old := []models.ViolationRecord{testViolation("speeding", models.ViolationModerate, now.AddDate(-2, 0, 0))}

	recentScore, _ := ComputeRiskScore(recent, now, cfg)
	midScore, _ := ComputeRiskScore(midAge, now, cfg)
	oldScore, _ := ComputeRiskScore(old, now, cfg)

	assert.InDelta(t, 32.0, recentScore, 0.001, "full weight inside 6 months")
	assert.InDelta(t, 31.2, midScore, 0.001, "0.6 weight between 6 and 12 months")
	assert.InDelta(t, 30.6, oldScore, 0.001, "0.3 weight beyond 12 months")
}

func TestComputeRiskScore_FrequencyMultiplierPerTypeGroup(t *testing.T) {
	cfg := testRatingConfig().Risk
	now := time.Now()

	// Three recent speeding violations: each weighs 1 × 1.0 × 1.4.
	history := []models.ViolationRecord{
		testViolation("speeding", models.ViolationMinor, now.AddDate(0, -1, 0)),
		testViolation("speeding", models.ViolationMinor, now.AddDate(0, -2, 0)),
		testViolation("speeding", models.ViolationMinor, now.AddDate(0, -3, 0)),
	}

	score, factors := ComputeRiskScore(history, now, cfg)

	assert.InDelta(t, 30+3*1.4, score, 0.001)
	assert.Len(t, factors, 4, "base plus one factor per violation")
}

func TestComputeRiskScore_FrequencyMultiplierCapped(t *testing.T) {
	assert.Equal(t, 1.0, frequencyMultiplierFor(1))
	assert.Equal(t, 1.4, frequencyMultiplierFor(3))
	assert.Equal(t, 2.0, frequencyMultiplierFor(6), "multiplier caps at 2.0")
	assert.Equal(t, 2.0, frequencyMultiplierFor(50))
}

func TestComputeRiskScore_ClampsAtHundred(t *testing.T) {
	cfg := testRatingConfig().Risk
	now := time.Now()

	history := make([]models.ViolationRecord, 0, 40)
	for range 40 {
		history = append(history, testViolation("dui", models.ViolationSevere, now.AddDate(0, -1, 0)))
	}

	score, factors := ComputeRiskScore(history, now, cfg)

	assert.Equal(t, 100.0, score)
	assert.NotEmpty(t, factors)
}

func TestComputeRiskScore_EveryNonzeroContributionHasFactor(t *testing.T) {
	cfg := testRatingConfig().Risk
	now := time.Now()

	history := []models.ViolationRecord{
		testViolation("speeding", models.ViolationMinor, now.AddDate(0, -1, 0)),
		testViolation("red_light", models.ViolationSevere, now.AddDate(0, -8, 0)),
	}

	score, factors := ComputeRiskScore(history, now, cfg)

	sum := 0.0
	for _, f := range factors {
		sum += f.ImpactPct
		assert.NotEmpty(t, f.Rationale)
	}
	assert.InDelta(t, score, sum, 0.001, "factors must account for the whole score")
}

func TestComputeRiskScore_DeterministicFactorOrder(t *testing.T) {
	cfg := testRatingConfig().Risk
	now := time.Now()

	history := []models.ViolationRecord{
		testViolation("speeding", models.ViolationMinor, now.AddDate(0, -1, 0)),
		testViolation("red_light", models.ViolationModerate, now.AddDate(0, -2, 0)),
		testViolation("dui", models.ViolationSevere, now.AddDate(0, -3, 0)),
	}

	_, first := ComputeRiskScore(history, now, cfg)
	_, second := ComputeRiskScore(history, now, cfg)

	assert.Equal(t, first, second, "recomputation must yield identical factors")
}

func TestComputeRiskScore_MoreViolationsNeverLowerScore(t *testing.T) {
	cfg := testRatingConfig().Risk
	now := time.Now()

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	severities := []models.ViolationSeverity{models.ViolationMinor, models.ViolationModerate, models.ViolationSevere}
	types := []string{"speeding", "red_light", "dui", "no_helmet"}

	properties.Property("appending a violation never lowers the score", prop.ForAll(
		func(count int, extraSeverity int, extraType int, ageMonths int) bool {
			history := make([]models.ViolationRecord, 0, count)
			for i := range count {
				history = append(history, testViolation(
					types[i%len(types)],
					severities[i%len(severities)],
					now.AddDate(0, -(i%30+1), 0)))
			}
			before, _ := ComputeRiskScore(history, now, cfg)

			extra := testViolation(
				types[extraType%len(types)],
				severities[extraSeverity%len(severities)],
				now.AddDate(0, -(ageMonths%30+1), 0))
			after, _ := ComputeRiskScore(append(history, extra), now, cfg)

			return after >= before
		},
		gen.IntRange(0, 20),
		gen.IntRange(0, 2),
		gen.IntRange(0, 3),
		gen.IntRange(0, 29),
	))

	properties.Property("score is always within [0,100]", prop.ForAll(
		func(count int) bool {
			history := make([]models.ViolationRecord, 0, count)
			for i := range count {
				history = append(history, testViolation(
					types[i%len(types)],
					severities[i%len(severities)],
					now.AddDate(0, -(i%40), 0)))
			}
			score, _ := ComputeRiskScore(history, now, cfg)
			return score >= 0 && score <= 100
		},
		gen.IntRange(0, 60),
	))

	properties.TestingRun(t)
}

func TestRiskScorer_ScoreAnchorsRecencyToApplicationTime(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	scorer := NewRiskScorer(
		repository.NewViolationRepository(sqlx.NewDb(db, "sqlmock")),
		config.NewStaticRatingSource(testRatingConfig()))

	// The violation sits just past the 6-month recency boundary relative to
	// the application time, where a wall-clock anchor would flip the weight
	// between retries.
	asOf := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	occurred := asOf.Add(-6*riskMonth - time.Hour)

	violationRows := func() *sqlmock.Rows {
		return sqlmock.NewRows([]string{"id", "driver_id", "violation_type", "severity", "occurred_at", "location"}).
			AddRow(uuid.New().String(), "driver-1", "speeding", "moderate", occurred.Unix(), "NH48 km 120")
	}
	mock.ExpectQuery("SELECT id, driver_id, violation_type, severity, occurred_at, location(.|\n)+FROM violation_record").
		WillReturnRows(violationRows())
	mock.ExpectQuery("SELECT id, driver_id, violation_type, severity, occurred_at, location(.|\n)+FROM violation_record").
		WillReturnRows(violationRows())

	first, err := scorer.Score(context.Background(), "driver-1", asOf)
	require.NoError(t, err)
	second, err := scorer.Score(context.Background(), "driver-1", asOf)
	require.NoError(t, err)

	assert.Equal(t, first.Score, second.Score, "a retried application must score identically")
	assert.InDelta(t, 31.2, first.Score, 0.001,
		"the 0.6 recency weight follows the application time, not the wall clock")
	assert.NoError(t, mock.ExpectationsWereMet())
}
