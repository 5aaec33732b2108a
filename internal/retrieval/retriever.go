// Package retrieval adapts the external tariff/clause retrieval service
// behind a capability interface so the decision core never depends on a
// specific retrieval backend.
package retrieval

import (
	"context"

	"decision-service/internal/models"

	"github.com/shopspring/decimal"
)

// TariffResult is one ranked tariff match for a part name.
type TariffResult struct {
	PartName  string          `json:"part_name"`
	Cost      decimal.Decimal `json:"cost"` // standardized labor + part cost
	Relevance float64         `json:"relevance"`
	Citation  models.Citation `json:"citation"`
}

// ClauseResult is one ranked policy clause match for a topic.
type ClauseResult struct {
	Text      string          `json:"text"`
	Relevance float64         `json:"relevance"`
	Citation  models.Citation `json:"citation"`
}

// Retriever is the capability the damage valuator and decision assembler
// need: part names in, ranked tariffs out; topics in, ranked clauses out.
// Implementations fail with models.ErrRetrievalUnavailable when the backend
// is unreachable; callers then fall back to the static table.
type Retriever interface {
	LookupTariffs(ctx context.Context, partNames []string, coverage models.CoverageType) (map[string]TariffResult, error)
	LookupClauses(ctx context.Context, topics []string, coverage models.CoverageType) ([]ClauseResult, error)
}
