package services

import (
	"fmt"
	"log/slog"
	"time"

	"decision-service/internal/config"
	"decision-service/internal/models"

	"github.com/golang/geo/s2"
	"github.com/shopspring/decimal"
)

const earthRadiusKM = 6371.01

// FraudScorer computes the additive anomaly score from the raw signals the
// fraud metadata provider supplies. Detection itself (manipulation,
// collusion matches) happens upstream; only the scoring lives here.
type FraudScorer struct {
	rating *config.RatingSource
}

func NewFraudScorer(rating *config.RatingSource) *FraudScorer {
	return &FraudScorer{rating: rating}
}

// Score runs the anomaly model against the current fraud table.
func (s *FraudScorer) Score(signals models.FraudSignals, policy *models.Policy) *models.FraudAnalysis {
	analysis := ComputeFraudAnalysis(signals, policy.IDV, s.rating.Current().Fraud)

	slog.Info("Fraud analysis computed",
		"claim_id", signals.ClaimID,
		"anomaly_score", analysis.AnomalyScore,
		"flagged", analysis.Flagged,
		"indicator_count", len(analysis.Indicators),
		"recommendation", analysis.Recommendation)

	return analysis
}

// ComputeFraudAnalysis is the pure scoring function. Each condition
// contributes its delta independently, every nonzero delta surfaces as an
// indicator with evidence, and the final score is clamped to [0,100] no
// matter how many indicators fire.
func ComputeFraudAnalysis(signals models.FraudSignals, idv decimal.Decimal, cfg config.FraudConfig) *models.FraudAnalysis {
	var indicators models.FraudIndicators

	if signals.ClaimsLast12Months > cfg.FrequentClaimsPerYear {
		indicators = append(indicators, models.FraudIndicator{
			Type:        models.IndicatorClaimFrequency,
			Severity:    models.IndicatorMedium,
			Description: "claim frequency above the yearly threshold",
			Evidence: fmt.Sprintf("%d claims in the last 12 months, threshold %d",
				signals.ClaimsLast12Months, cfg.FrequentClaimsPerYear),
			ScoreDelta: cfg.FrequentClaimsDelta,
		})
	}

	amountThreshold := idv.Mul(decimal.NewFromFloat(cfg.HighAmountIDVPct)).Div(decimal.NewFromInt(100))
	if signals.ClaimAmount.GreaterThan(amountThreshold) {
		indicators = append(indicators, models.FraudIndicator{
			Type:        models.IndicatorHighClaimAmount,
			Severity:    models.IndicatorLow,
			Description: "claim amount disproportionate to the insured value",
			Evidence: fmt.Sprintf("claim amount %s exceeds %.0f%% of IDV %s",
				signals.ClaimAmount, cfg.HighAmountIDVPct, idv),
			ScoreDelta: cfg.HighAmountDelta,
		})
	}

	if maxKM, ok := maxPhotoDistanceKM(signals.IncidentLocation, signals.PhotoLocations); ok && maxKM > cfg.LocationMismatchKM {
		indicators = append(indicators, models.FraudIndicator{
			Type:        models.IndicatorLocationMismatch,
			Severity:    models.IndicatorHigh,
			Description: "photo GPS far from the reported incident location",
			Evidence: fmt.Sprintf("farthest photo %.1f km from incident, threshold %.0f km",
				maxKM, cfg.LocationMismatchKM),
			ScoreDelta: cfg.LocationMismatchDelta,
		})
	}

	if spread, ok := timestampSpread(signals.PhotoTimestamps); ok && spread > time.Duration(cfg.TimestampWindowHours)*time.Hour {
		indicators = append(indicators, models.FraudIndicator{
			Type:        models.IndicatorTimestampInconsistency,
			Severity:    models.IndicatorHigh,
			Description: "photo timestamps spread beyond a single incident window",
			Evidence: fmt.Sprintf("photos span %s, window %dh",
				spread.Round(time.Minute), cfg.TimestampWindowHours),
			ScoreDelta: cfg.TimestampDelta,
		})
	}

	if signals.ManipulationDetected {
		indicators = append(indicators, models.FraudIndicator{
			Type:        models.IndicatorImageManipulation,
			Severity:    models.IndicatorHigh,
			Description: "image manipulation detected by the upstream analyzer",
			Evidence:    fmt.Sprintf("manipulation flag set on claim %s", signals.ClaimID),
			ScoreDelta:  cfg.ManipulationDelta,
		})
	}

	if signals.GarageCollusionMatch {
		indicators = append(indicators, models.FraudIndicator{
			Type:        models.IndicatorGarageCollusion,
			Severity:    models.IndicatorHigh,
			Description: "garage matches a known collusion pattern",
			Evidence:    fmt.Sprintf("garage %s flagged by the collusion watchlist", signals.GarageID),
			ScoreDelta:  cfg.GarageCollusionDelta,
		})
	}

	score := 0
	for _, ind := range indicators {
		score += ind.ScoreDelta
	}
	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}

	analysis := &models.FraudAnalysis{
		ClaimID:      signals.ClaimID,
		AnomalyScore: score,
		Indicators:   indicators,
	}

	switch {
	case score > cfg.FlagThreshold:
		analysis.Flagged = true
		analysis.Recommendation = models.RecommendInvestigate
	case score >= cfg.ReviewThreshold:
		analysis.Recommendation = models.RecommendManualReview
	default:
		analysis.Recommendation = models.RecommendApprove
	}

	return analysis
}

// maxPhotoDistanceKM returns the greatest great-circle distance between the
// incident location and any photo fix. Unparseable points are skipped; ok is
// false when no comparison was possible.
func maxPhotoDistanceKM(incident *models.GeoJSONPoint, photos []models.GeoJSONPoint) (float64, bool) {
	if incident == nil || len(photos) == 0 {
		return 0, false
	}

	incidentLat, incidentLng, err := incident.LatLng()
	if err != nil {
		return 0, false
	}
	incidentLL := s2.LatLngFromDegrees(incidentLat, incidentLng)

	maxKM := 0.0
	compared := false
	for i := range photos {
		lat, lng, err := photos[i].LatLng()
		if err != nil {
			continue
		}
		km := incidentLL.Distance(s2.LatLngFromDegrees(lat, lng)).Radians() * earthRadiusKM
		if km > maxKM {
			maxKM = km
		}
		compared = true
	}
	return maxKM, compared
}

// timestampSpread returns the span between the earliest and latest photo
// timestamps. ok is false when fewer than two timestamps exist.
func timestampSpread(timestamps []int64) (time.Duration, bool) {
	if len(timestamps) < 2 {
		return 0, false
	}

	earliest, latest := timestamps[0], timestamps[0]
	for _, ts := range timestamps[1:] {
		if ts < earliest {
			earliest = ts
		}
		if ts > latest {
			latest = ts
		}
	}
	return time.Duration(latest-earliest) * time.Second, true
}
