package models

import (
	"database/sql/driver"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ============================================================================
// FRAUD ANALYSIS
// ============================================================================

// FraudSignals is the raw metadata supplied by the fraud metadata provider.
// The core computes only the score from these signals, never the raw
// detection (manipulation and collusion flags come in pre-computed).
type FraudSignals struct {
	ClaimID              uuid.UUID       `json:"claim_id"`
	IncidentLocation     *GeoJSONPoint   `json:"incident_location,omitempty"`
	PhotoLocations       []GeoJSONPoint  `json:"photo_locations,omitempty"`
	PhotoTimestamps      []int64         `json:"photo_timestamps,omitempty"`
	DeviceIDs            []string        `json:"device_ids,omitempty"`
	ImageHashes          []string        `json:"image_hashes,omitempty"`
	ManipulationDetected bool            `json:"manipulation_detected"`
	GarageID             string          `json:"garage_id,omitempty"`
	GarageCollusionMatch bool            `json:"garage_collusion_match"`
	ClaimsLast12Months   int             `json:"claims_last_12_months"`
	ClaimAmount          decimal.Decimal `json:"claim_amount"`
}

// FraudIndicator is one suspicious pattern that contributed a nonzero delta
// to the anomaly score. Every contribution must surface here with evidence.
type FraudIndicator struct {
	Type        IndicatorType     `json:"type"`
	Severity    IndicatorSeverity `json:"severity"`
	Description string            `json:"description"`
	Evidence    string            `json:"evidence"`
	ScoreDelta  int               `json:"score_delta"`
}

type FraudIndicators []FraudIndicator

func (f FraudIndicators) Value() (driver.Value, error) { return jsonbValue(f) }
func (f *FraudIndicators) Scan(value any) error        { return jsonbScan(f, value) }

// FraudAnalysis is the additive anomaly assessment for a claim. The score
// is an integer in [0,100] even when multiple high-weight indicators would
// otherwise overflow.
type FraudAnalysis struct {
	ClaimID        uuid.UUID           `json:"claim_id"`
	AnomalyScore   int                 `json:"anomaly_score"` // 0-100 inclusive
	Flagged        bool                `json:"flagged"`
	Indicators     FraudIndicators     `json:"indicators"`
	Recommendation FraudRecommendation `json:"recommendation"`
}
