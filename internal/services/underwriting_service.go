package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"decision-service/internal/models"
	"decision-service/internal/repository"
)

// QuoteNotifier receives committed premium quotes for post-commit delivery.
type QuoteNotifier interface {
	QuoteCommitted(quote *models.PremiumQuote)
}

// UnderwritingService orchestrates the purchase path: risk scoring followed
// by premium calculation, persisted idempotently per application ID.
type UnderwritingService struct {
	riskScorer *RiskScorer
	calculator *PremiumCalculator
	quoteRepo  *repository.QuoteRepository
	notifier   QuoteNotifier
	timeout    time.Duration
}

func NewUnderwritingService(
	riskScorer *RiskScorer,
	calculator *PremiumCalculator,
	quoteRepo *repository.QuoteRepository,
	notifier QuoteNotifier,
	timeout time.Duration,
) *UnderwritingService {
	return &UnderwritingService{
		riskScorer: riskScorer,
		calculator: calculator,
		quoteRepo:  quoteRepo,
		notifier:   notifier,
		timeout:    timeout,
	}
}

// ComputePremium is the caller contract for the purchase path. Retrying an
// application returns the quote stored for it, never a second one.
func (s *UnderwritingService) ComputePremium(ctx context.Context, app models.PremiumApplication) (*models.PremiumQuote, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if app.ApplicationID == "" {
		return nil, models.NewStageError("premium_calculator", "",
			models.NewFieldError("application_id", "is required"))
	}
	if app.DriverID == "" {
		return nil, models.NewStageError("premium_calculator", app.ApplicationID,
			models.NewFieldError("driver_id", "is required"))
	}

	assessment, err := s.riskScorer.Score(ctx, app.DriverID, time.Unix(app.AppliedAt, 0))
	if err != nil {
		return nil, err
	}

	quote, err := s.calculator.Quote(ctx, app, assessment)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, models.NewStageError("premium_calculator", app.ApplicationID,
			fmt.Errorf("%w: premium computation timed out: %v", models.ErrComputation, err))
	}

	stored, inserted, err := s.quoteRepo.CreateIfAbsent(ctx, quote)
	if err != nil {
		return nil, models.NewStageError("premium_calculator", app.ApplicationID,
			fmt.Errorf("%w: failed to persist quote: %v", models.ErrDataUnavailable, err))
	}
	if !inserted {
		slog.Info("Quote already exists for application, returning stored quote",
			"application_id", app.ApplicationID,
			"quote_id", stored.ID)
		return stored, nil
	}

	if s.notifier != nil {
		s.notifier.QuoteCommitted(stored)
	}

	slog.Info("Premium quote committed",
		"application_id", app.ApplicationID,
		"quote_id", stored.ID,
		"risk_score", assessment.Score,
		"total_premium", stored.TotalPremium)

	return stored, nil
}

// GetQuote returns a stored quote by application ID.
func (s *UnderwritingService) GetQuote(ctx context.Context, applicationID string) (*models.PremiumQuote, error) {
	quote, err := s.quoteRepo.GetByApplicationID(ctx, applicationID)
	if err != nil {
		return nil, models.NewStageError("premium_calculator", applicationID,
			fmt.Errorf("%w: no quote for application", models.ErrNotFound))
	}
	return quote, nil
}
