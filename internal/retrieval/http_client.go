package retrieval

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"decision-service/internal/config"
	"decision-service/internal/models"
)

// HTTPRetriever talks to the retrieval service over its JSON API.
type HTTPRetriever struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

func NewHTTPRetriever(cfg config.RetrievalConfig) *HTTPRetriever {
	timeoutSeconds, err := strconv.Atoi(cfg.TimeoutSeconds)
	if err != nil || timeoutSeconds <= 0 {
		timeoutSeconds = 10
	}

	return &HTTPRetriever{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: time.Duration(timeoutSeconds) * time.Second},
	}
}

type tariffQuery struct {
	PartNames    []string            `json:"part_names"`
	CoverageType models.CoverageType `json:"coverage_type"`
}

type tariffResponse struct {
	Results []TariffResult `json:"results"`
}

type clauseQuery struct {
	Topics       []string            `json:"topics"`
	CoverageType models.CoverageType `json:"coverage_type"`
}

type clauseResponse struct {
	Results []ClauseResult `json:"results"`
}

// LookupTariffs queries the retrieval service and keeps the highest-ranked
// tariff per part name.
func (r *HTTPRetriever) LookupTariffs(ctx context.Context, partNames []string, coverage models.CoverageType) (map[string]TariffResult, error) {
	var resp tariffResponse
	if err := r.post(ctx, "/v1/tariffs/search", tariffQuery{PartNames: partNames, CoverageType: coverage}, &resp); err != nil {
		return nil, err
	}

	best := make(map[string]TariffResult, len(resp.Results))
	for _, result := range resp.Results {
		existing, ok := best[result.PartName]
		if !ok || result.Relevance > existing.Relevance {
			best[result.PartName] = result
		}
	}

	slog.Info("Tariff lookup completed",
		"requested_parts", len(partNames),
		"matched_parts", len(best))

	return best, nil
}

// LookupClauses queries the retrieval service for ranked policy clauses.
func (r *HTTPRetriever) LookupClauses(ctx context.Context, topics []string, coverage models.CoverageType) ([]ClauseResult, error) {
	var resp clauseResponse
	if err := r.post(ctx, "/v1/clauses/search", clauseQuery{Topics: topics, CoverageType: coverage}, &resp); err != nil {
		return nil, err
	}

	return resp.Results, nil
}

func (r *HTTPRetriever) post(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal retrieval query: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to build retrieval request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if r.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+r.apiKey)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: retrieval request failed: %v", models.ErrRetrievalUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: retrieval service returned status %d", models.ErrRetrievalUnavailable, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: failed to decode retrieval response: %v", models.ErrRetrievalUnavailable, err)
	}

	return nil
}
