package retrieval

import (
	"context"
	"strings"

	"decision-service/internal/config"
	"decision-service/internal/models"

	"github.com/shopspring/decimal"
)

// StaticFallback serves tariffs and clauses from the configured static
// table. It is the degraded path when the retrieval service is down: every
// match carries the static document citation, and the valuator marks the
// resulting breakdown provisional so the claim lands in manual review.
type StaticFallback struct {
	rating *config.RatingSource
}

func NewStaticFallback(rating *config.RatingSource) *StaticFallback {
	return &StaticFallback{rating: rating}
}

func (f *StaticFallback) LookupTariffs(ctx context.Context, partNames []string, coverage models.CoverageType) (map[string]TariffResult, error) {
	table := f.rating.Current().Fallback.Tariffs

	best := make(map[string]TariffResult)
	for _, name := range partNames {
		for _, tariff := range table {
			if strings.EqualFold(tariff.Part, name) {
				best[name] = TariffResult{
					PartName:  name,
					Cost:      decimal.NewFromFloat(tariff.Cost),
					Relevance: 1,
					Citation: models.Citation{
						DocumentID: tariff.DocumentID,
						Section:    tariff.Section,
					},
				}
				break
			}
		}
	}

	return best, nil
}

func (f *StaticFallback) LookupClauses(ctx context.Context, topics []string, coverage models.CoverageType) ([]ClauseResult, error) {
	// The static table carries tariffs only; clause citations degrade to the
	// static tariff document reference.
	results := make([]ClauseResult, 0, len(topics))
	for _, topic := range topics {
		results = append(results, ClauseResult{
			Text:      "static fallback reference for " + topic,
			Relevance: 0.5,
			Citation:  models.Citation{DocumentID: "STATIC-TARIFF-2025", Section: topic},
		})
	}
	return results, nil
}
