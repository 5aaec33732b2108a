package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"decision-service/internal/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// DecisionCache fronts the claim_decision table for the idempotent lookup
// path. Decisions are immutable once terminal, so a long TTL is safe; the
// manual-review path overwrites the entry on resolution.
type DecisionCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewDecisionCache(client *redis.Client, ttl time.Duration) *DecisionCache {
	return &DecisionCache{client: client, ttl: ttl}
}

func decisionCacheKey(claimID uuid.UUID) string {
	return fmt.Sprintf("decision:claim:%s", claimID)
}

// Get returns the cached decision for a claim, or nil on a miss.
func (c *DecisionCache) Get(ctx context.Context, claimID uuid.UUID) (*models.ClaimDecision, error) {
	data, err := c.client.Get(ctx, decisionCacheKey(claimID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read decision cache: %w", err)
	}

	var decision models.ClaimDecision
	if err := json.Unmarshal(data, &decision); err != nil {
		return nil, fmt.Errorf("failed to decode cached decision: %w", err)
	}

	return &decision, nil
}

// Set stores a committed decision. Failures are the caller's to log; the
// database remains authoritative either way.
func (c *DecisionCache) Set(ctx context.Context, decision *models.ClaimDecision) error {
	data, err := json.Marshal(decision)
	if err != nil {
		return fmt.Errorf("failed to encode decision for cache: %w", err)
	}

	if err := c.client.Set(ctx, decisionCacheKey(decision.ClaimID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write decision cache: %w", err)
	}

	return nil
}
