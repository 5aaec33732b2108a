package config

import (
	"fmt"
	"os"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

// RatingConfig holds every tunable table the scoring engines use. It is
// loaded from YAML and injected into each engine, so tests can run fully
// deterministic and a reload never touches shared mutable state.
type RatingConfig struct {
	Risk         RiskConfig         `yaml:"risk"`
	Premium      PremiumConfig      `yaml:"premium"`
	Depreciation DepreciationConfig `yaml:"depreciation"`
	Fraud        FraudConfig        `yaml:"fraud"`
	Fallback     FallbackConfig     `yaml:"fallback"`
}

type RiskConfig struct {
	BaseScore       float64            `yaml:"base_score"`
	SeverityWeights map[string]float64 `yaml:"severity_weights"` // minor/moderate/severe
}

type PremiumConfig struct {
	MinimumPremium float64 `yaml:"minimum_premium"`
	QuoteValidDays int     `yaml:"quote_valid_days"`
}

// DepreciationBracket maps a vehicle-age upper bound (inclusive, months) to
// a depreciation percentage. Brackets must be sorted ascending; the last
// bracket's percentage applies beyond its bound.
type DepreciationBracket struct {
	MaxAgeMonths int     `yaml:"max_age_months"`
	Pct          float64 `yaml:"pct"`
}

type DepreciationConfig struct {
	Standard            []DepreciationBracket `yaml:"standard"`
	Elevated            []DepreciationBracket `yaml:"elevated"` // rubber/plastic/battery
	ConfidenceThreshold float64               `yaml:"confidence_threshold"`
}

type FraudConfig struct {
	FrequentClaimsDelta     int     `yaml:"frequent_claims_delta"`
	HighAmountDelta         int     `yaml:"high_amount_delta"`
	LocationMismatchDelta   int     `yaml:"location_mismatch_delta"`
	TimestampDelta          int     `yaml:"timestamp_delta"`
	ManipulationDelta       int     `yaml:"manipulation_delta"`
	GarageCollusionDelta    int     `yaml:"garage_collusion_delta"`
	FrequentClaimsPerYear   int     `yaml:"frequent_claims_per_year"`
	HighAmountIDVPct        float64 `yaml:"high_amount_idv_pct"`
	LocationMismatchKM      float64 `yaml:"location_mismatch_km"`
	TimestampWindowHours    int     `yaml:"timestamp_window_hours"`
	ReviewThreshold         int     `yaml:"review_threshold"` // >= review, <= flag: manual review
	FlagThreshold           int     `yaml:"flag_threshold"`   // strictly above: flagged
}

// FallbackTariff is one row of the static tariff table used when the
// retrieval service is unavailable.
type FallbackTariff struct {
	Part       string  `yaml:"part"`
	Cost       float64 `yaml:"cost"`
	DocumentID string  `yaml:"document_id"`
	Section    string  `yaml:"section"`
}

type FallbackConfig struct {
	Tariffs []FallbackTariff `yaml:"tariffs"`
}

// LoadRatingConfig reads and validates the rating tables from a YAML file.
func LoadRatingConfig(path string) (*RatingConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rating table %s: %w", path, err)
	}

	var cfg RatingConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse rating table %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid rating table %s: %w", path, err)
	}

	return &cfg, nil
}

// Validate enforces the structural invariants the engines rely on.
func (c *RatingConfig) Validate() error {
	if c.Risk.BaseScore < 0 || c.Risk.BaseScore > 100 {
		return fmt.Errorf("risk.base_score must be in [0,100], got %v", c.Risk.BaseScore)
	}
	for _, sev := range []string{"minor", "moderate", "severe"} {
		if _, ok := c.Risk.SeverityWeights[sev]; !ok {
			return fmt.Errorf("risk.severity_weights missing %q", sev)
		}
	}
	if c.Premium.MinimumPremium < 0 {
		return fmt.Errorf("premium.minimum_premium must be >= 0")
	}

	if err := validateBrackets("standard", c.Depreciation.Standard); err != nil {
		return err
	}
	if err := validateBrackets("elevated", c.Depreciation.Elevated); err != nil {
		return err
	}

	// The elevated table must be stricter than the standard one at every age.
	for _, b := range c.Depreciation.Standard {
		if PctForAge(c.Depreciation.Elevated, b.MaxAgeMonths) < b.Pct {
			return fmt.Errorf("elevated depreciation weaker than standard at %d months", b.MaxAgeMonths)
		}
	}

	if c.Fraud.FlagThreshold < c.Fraud.ReviewThreshold {
		return fmt.Errorf("fraud.flag_threshold must be >= fraud.review_threshold")
	}

	return nil
}

func validateBrackets(name string, brackets []DepreciationBracket) error {
	if len(brackets) == 0 {
		return fmt.Errorf("depreciation.%s must not be empty", name)
	}
	if !sort.SliceIsSorted(brackets, func(i, j int) bool {
		return brackets[i].MaxAgeMonths < brackets[j].MaxAgeMonths
	}) {
		return fmt.Errorf("depreciation.%s brackets must be sorted by max_age_months", name)
	}
	for _, b := range brackets {
		if b.Pct < 0 || b.Pct > 100 {
			return fmt.Errorf("depreciation.%s pct out of range: %v", name, b.Pct)
		}
	}
	return nil
}

// PctForAge picks the depreciation percentage for a vehicle age. Bracket
// bounds are inclusive: age exactly 6 months falls in the 0-6 bracket.
func PctForAge(brackets []DepreciationBracket, ageMonths int) float64 {
	for _, b := range brackets {
		if ageMonths <= b.MaxAgeMonths {
			return b.Pct
		}
	}
	return brackets[len(brackets)-1].Pct
}

// RatingSource hands out the current rating tables. Reloads swap the
// pointer under a lock; engines read a consistent snapshot per computation.
type RatingSource struct {
	mu      sync.RWMutex
	current *RatingConfig
	path    string
}

func NewRatingSource(path string) (*RatingSource, error) {
	cfg, err := LoadRatingConfig(path)
	if err != nil {
		return nil, err
	}
	return &RatingSource{current: cfg, path: path}, nil
}

// NewStaticRatingSource wraps an in-memory config, for deterministic tests
// and callers that manage reloads themselves.
func NewStaticRatingSource(cfg *RatingConfig) *RatingSource {
	return &RatingSource{current: cfg}
}

// Current returns the active rating tables.
func (s *RatingSource) Current() *RatingConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Reload re-reads the rating table file and swaps it in. A file that fails
// validation leaves the previous tables active.
func (s *RatingSource) Reload() error {
	cfg, err := LoadRatingConfig(s.path)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.current = cfg
	s.mu.Unlock()
	return nil
}
