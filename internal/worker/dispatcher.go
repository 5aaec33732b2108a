package worker

import (
	"context"
	"log/slog"
	"time"

	"decision-service/internal/documents"
	"decision-service/internal/event"
	"decision-service/internal/models"
	"decision-service/internal/repository"
)

// Dispatcher turns committed decisions and quotes into background jobs:
// ATR generation for payable claims, then event publication. It satisfies
// the pipeline's notifier contracts, so a full pool never slows a commit.
type Dispatcher struct {
	pool         *WorkingPool
	publisher    *event.NotificationPublisher
	atrService   *documents.ATRService
	decisionRepo *repository.DecisionRepository
}

func NewDispatcher(
	pool *WorkingPool,
	publisher *event.NotificationPublisher,
	atrService *documents.ATRService,
	decisionRepo *repository.DecisionRepository,
) *Dispatcher {
	return &Dispatcher{
		pool:         pool,
		publisher:    publisher,
		atrService:   atrService,
		decisionRepo: decisionRepo,
	}
}

// DecisionCommitted generates the ATR document for payable outcomes and
// publishes the decision event.
func (d *Dispatcher) DecisionCommitted(decision *models.ClaimDecision) {
	d.pool.SubmitJob(func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()

		if decision.Status == models.ClaimApproved || decision.Status == models.ClaimPartiallyApproved {
			objectKey, err := d.atrService.GenerateForDecision(ctx, decision)
			if err != nil {
				slog.Error("ATR generation failed", "claim_id", decision.ClaimID, "error", err)
			} else {
				decision.ATRObjectKey = &objectKey
				if err := d.decisionRepo.SetATRObjectKey(ctx, decision.ClaimID, objectKey); err != nil {
					slog.Error("Failed to record ATR object key", "claim_id", decision.ClaimID, "error", err)
				}
			}
		}

		return d.publisher.PublishClaimDecision(ctx, decision)
	})
}

// QuoteCommitted publishes the quote event.
func (d *Dispatcher) QuoteCommitted(quote *models.PremiumQuote) {
	d.pool.SubmitJob(func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		return d.publisher.PublishPremiumQuote(ctx, quote)
	})
}

// ReviewSweepJob logs claims stuck in manual review so operations can chase
// reviewers. Runs on the scheduler.
func (d *Dispatcher) ReviewSweepJob() Job {
	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
		defer cancel()

		pending, err := d.decisionRepo.ListAwaitingReview(ctx, 50)
		if err != nil {
			return err
		}
		if len(pending) == 0 {
			return nil
		}

		oldest := pending[0]
		slog.Warn("Claims awaiting manual review",
			"count", len(pending),
			"oldest_claim_id", oldest.ClaimID,
			"oldest_age", time.Since(oldest.CreatedAt).Round(time.Minute))
		return nil
	}
}
