package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"decision-service/internal/config"
	"decision-service/internal/models"
	"decision-service/internal/repository"
	"decision-service/internal/retrieval"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DecisionNotifier receives committed decisions for post-commit work
// (notifications, ATR generation). Failures there never affect the
// committed decision.
type DecisionNotifier interface {
	DecisionCommitted(decision *models.ClaimDecision)
}

// DecisionService orchestrates the claims pipeline: valuation and limit
// enforcement run concurrently with fraud scoring, then the assembler joins
// both into the final decision and commits it exactly once per claim.
type DecisionService struct {
	valuator     *DamageValuator
	enforcer     *LimitEnforcer
	fraudScorer  *FraudScorer
	retriever    retrieval.Retriever
	fallback     retrieval.Retriever
	policyRepo   *repository.PolicyRepository
	decisionRepo *repository.DecisionRepository
	cache        *repository.DecisionCache
	rating       *config.RatingSource
	notifier     DecisionNotifier
	timeout      time.Duration
}

func NewDecisionService(
	valuator *DamageValuator,
	enforcer *LimitEnforcer,
	fraudScorer *FraudScorer,
	retriever retrieval.Retriever,
	fallback retrieval.Retriever,
	policyRepo *repository.PolicyRepository,
	decisionRepo *repository.DecisionRepository,
	cache *repository.DecisionCache,
	rating *config.RatingSource,
	notifier DecisionNotifier,
	timeout time.Duration,
) *DecisionService {
	return &DecisionService{
		valuator:     valuator,
		enforcer:     enforcer,
		fraudScorer:  fraudScorer,
		retriever:    retriever,
		fallback:     fallback,
		policyRepo:   policyRepo,
		decisionRepo: decisionRepo,
		cache:        cache,
		rating:       rating,
		notifier:     notifier,
		timeout:      timeout,
	}
}

// ComputeClaimDecision is the caller contract for the claims path. It is
// idempotent per claim ID: a claim that already has a committed decision
// gets that decision back unchanged, never a recomputation.
func (s *DecisionService) ComputeClaimDecision(ctx context.Context, submission models.ClaimSubmission) (*models.ClaimDecision, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if existing := s.lookupExisting(ctx, submission.ClaimID); existing != nil {
		return existing, nil
	}

	policy, err := s.policyRepo.GetByID(ctx, submission.PolicyID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.NewStageError("decision_assembler", submission.ClaimID.String(),
				fmt.Errorf("%w: policy %s", models.ErrNotFound, submission.PolicyID))
		}
		return nil, models.NewStageError("decision_assembler", submission.ClaimID.String(),
			fmt.Errorf("%w: policy lookup failed: %v", models.ErrDataUnavailable, err))
	}

	started := time.Now()

	var (
		wg          sync.WaitGroup
		mu          sync.Mutex
		valuation   *ValuationResult
		enforcement *EnforcementResult
		fraud       *models.FraudAnalysis
		stageErrs   []error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		v, err := s.valuator.Valuate(ctx, submission.Report, *policy,
			policy.VehicleAgeMonths(time.Unix(submission.SubmittedAt, 0)))
		if err != nil {
			mu.Lock()
			stageErrs = append(stageErrs, err)
			mu.Unlock()
			return
		}
		e, err := s.enforcer.Enforce(ctx, v.Breakdown, policy)
		if err != nil {
			mu.Lock()
			stageErrs = append(stageErrs, err)
			mu.Unlock()
			return
		}
		mu.Lock()
		valuation, enforcement = v, e
		mu.Unlock()
	}()
	go func() {
		defer wg.Done()
		f := s.fraudScorer.Score(submission.Signals, policy)
		mu.Lock()
		fraud = f
		mu.Unlock()
	}()
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return nil, models.NewStageError("decision_assembler", submission.ClaimID.String(),
			fmt.Errorf("%w: decision computation timed out: %v", models.ErrComputation, err))
	}
	if len(stageErrs) > 0 {
		return nil, stageErrs[0]
	}

	clauseCitations := s.lookupClauseCitations(ctx, policy, enforcement)

	decision, err := AssembleDecision(submission, policy, valuation, enforcement, fraud, clauseCitations)
	if err != nil {
		return nil, models.NewStageError("decision_assembler", submission.ClaimID.String(),
			fmt.Errorf("%w: %v", models.ErrComputation, err))
	}
	decision.ProcessingMS = time.Since(started).Milliseconds()

	committed, inserted, err := s.commitDecision(ctx, submission, policy, valuation, fraud, clauseCitations, decision, enforcement)
	if err != nil {
		return nil, err
	}

	if cacheErr := s.cache.Set(ctx, committed); cacheErr != nil {
		slog.Warn("Failed to cache decision", "claim_id", committed.ClaimID, "error", cacheErr)
	}
	if s.notifier != nil && inserted {
		s.notifier.DecisionCommitted(committed)
	}

	slog.Info("Claim decision committed",
		"claim_id", committed.ClaimID,
		"policy_id", committed.PolicyID,
		"status", committed.Status,
		"claimable_amount", committed.ClaimableAmount,
		"amount_withheld", committed.AmountWithheld,
		"processing_ms", committed.ProcessingMS)

	return committed, nil
}

// lookupExisting checks the cache, then the database, for a decision already
// committed for this claim.
func (s *DecisionService) lookupExisting(ctx context.Context, claimID uuid.UUID) *models.ClaimDecision {
	cached, err := s.cache.Get(ctx, claimID)
	if err != nil {
		slog.Warn("Decision cache read failed", "claim_id", claimID, "error", err)
	}
	if cached != nil {
		return cached
	}

	stored, err := s.decisionRepo.GetByClaimID(ctx, claimID)
	if err != nil {
		return nil
	}
	if cacheErr := s.cache.Set(ctx, stored); cacheErr != nil {
		slog.Warn("Failed to cache decision", "claim_id", claimID, "error", cacheErr)
	}
	return stored
}

// lookupClauseCitations fetches the policy clauses backing each reduction so
// the explanation can cite them. Retrieval failure degrades to the static
// reference; reductions are never left uncited.
func (s *DecisionService) lookupClauseCitations(ctx context.Context, policy *models.Policy, enforcement *EnforcementResult) []models.Citation {
	topics := make([]string, 0, 2)
	if len(enforcement.Notes) > 0 {
		topics = append(topics, "coverage_limits")
	}
	if policy.Deductible.IsPositive() {
		topics = append(topics, "deductible")
	}
	if len(topics) == 0 {
		return nil
	}

	clauses, err := s.retriever.LookupClauses(ctx, topics, policy.CoverageType)
	if err != nil {
		if !errors.Is(err, models.ErrRetrievalUnavailable) {
			slog.Warn("Clause lookup failed", "policy_id", policy.ID, "error", err)
		}
		clauses, err = s.fallback.LookupClauses(ctx, topics, policy.CoverageType)
		if err != nil {
			return nil
		}
	}

	citations := make([]models.Citation, 0, len(clauses))
	for _, clause := range clauses {
		citations = append(citations, clause.Citation)
	}
	return citations
}

// commitDecision persists the decision transactionally with the optimistic
// annual-cap re-check. If another claim on the same policy committed between
// the snapshot read and this transaction, the caps are recomputed against
// the fresh total before insert. First commit wins: on a claim_id conflict
// the stored decision is returned unchanged.
func (s *DecisionService) commitDecision(
	ctx context.Context,
	submission models.ClaimSubmission,
	policy *models.Policy,
	valuation *ValuationResult,
	fraud *models.FraudAnalysis,
	clauseCitations []models.Citation,
	decision *models.ClaimDecision,
	enforcement *EnforcementResult,
) (*models.ClaimDecision, bool, error) {
	tx, err := s.decisionRepo.BeginTransaction()
	if err != nil {
		return nil, false, models.NewStageError("decision_assembler", submission.ClaimID.String(),
			fmt.Errorf("%w: failed to begin transaction: %v", models.ErrDataUnavailable, err))
	}
	defer tx.Rollback()

	latestPaid, err := s.policyRepo.GetAnnualClaimsPaidTx(tx, policy.ID, policy.PolicyYearStart)
	if err != nil {
		return nil, false, models.NewStageError("decision_assembler", submission.ClaimID.String(),
			fmt.Errorf("%w: annual total re-check failed: %v", models.ErrDataUnavailable, err))
	}
	if !latestPaid.Equal(enforcement.AnnualPaidSnapshot) {
		slog.Info("Annual total changed since snapshot, recomputing caps",
			"claim_id", submission.ClaimID,
			"snapshot", enforcement.AnnualPaidSnapshot,
			"latest", latestPaid)

		recomputed := EnforceLimits(valuation.Breakdown, policy, latestPaid)
		processingMS := decision.ProcessingMS
		decision, err = AssembleDecision(submission, policy, valuation, &recomputed, fraud, clauseCitations)
		if err != nil {
			return nil, false, models.NewStageError("decision_assembler", submission.ClaimID.String(),
				fmt.Errorf("%w: %v", models.ErrComputation, err))
		}
		decision.ProcessingMS = processingMS
	}

	inserted, err := s.decisionRepo.CreateTx(tx, decision)
	if err != nil {
		return nil, false, models.NewStageError("decision_assembler", submission.ClaimID.String(),
			fmt.Errorf("%w: failed to persist decision: %v", models.ErrDataUnavailable, err))
	}

	if !inserted {
		existing, err := s.decisionRepo.GetByClaimIDTx(tx, submission.ClaimID)
		if err != nil {
			return nil, false, models.NewStageError("decision_assembler", submission.ClaimID.String(),
				fmt.Errorf("%w: failed to load concurrent decision: %v", models.ErrDataUnavailable, err))
		}
		if err := tx.Commit(); err != nil {
			return nil, false, models.NewStageError("decision_assembler", submission.ClaimID.String(),
				fmt.Errorf("%w: failed to commit: %v", models.ErrDataUnavailable, err))
		}
		return existing, false, nil
	}

	if err := tx.Commit(); err != nil {
		return nil, false, models.NewStageError("decision_assembler", submission.ClaimID.String(),
			fmt.Errorf("%w: failed to commit: %v", models.ErrDataUnavailable, err))
	}
	return decision, true, nil
}

// AssembleDecision is the pure join of the two pipeline branches. The claim
// walks the guarded state machine submitted -> assessed -> fraud_checked and
// then takes exactly one outcome, evaluated in precedence order:
//
//  1. flagged fraud (dominates everything, amount withheld pending)
//  2. manual review (provisional valuation or unmatched part)
//  3. denied (nothing claimable)
//  4. partially approved (limits cut into the depreciated entitlement)
//  5. approved
//
// Claimable = Σ approved − deductible, floored at zero; caps apply before
// the deductible. Depreciation and the deductible are part of every claim,
// so they never make one partial on their own; only cap reductions do.
func AssembleDecision(
	submission models.ClaimSubmission,
	policy *models.Policy,
	valuation *ValuationResult,
	enforcement *EnforcementResult,
	fraud *models.FraudAnalysis,
	clauseCitations []models.Citation,
) (*models.ClaimDecision, error) {
	state := models.ClaimSubmitted
	state, err := advanceState(state, models.ClaimAssessed)
	if err != nil {
		return nil, err
	}
	state, err = advanceState(state, models.ClaimFraudChecked)
	if err != nil {
		return nil, err
	}

	claimable := enforcement.TotalApproved.Sub(policy.Deductible)
	deductibleApplied := policy.Deductible
	if claimable.IsNegative() {
		deductibleApplied = enforcement.TotalApproved
		claimable = decimal.Zero
	}

	unmatched := false
	entitlement := decimal.Zero
	for _, part := range enforcement.Breakdown {
		if !part.Covered {
			unmatched = true
			continue
		}
		entitlement = entitlement.Add(part.DepreciatedCost)
	}

	var final models.ClaimState
	withheld := false
	switch {
	case fraud.Flagged:
		final = models.ClaimFlaggedFraud
		withheld = true
	case valuation.Provisional || unmatched:
		final = models.ClaimRequiresManualReview
	case claimable.IsZero():
		final = models.ClaimDenied
	case enforcement.TotalApproved.LessThan(entitlement):
		final = models.ClaimPartiallyApproved
	default:
		final = models.ClaimApproved
	}

	state, err = advanceState(state, final)
	if err != nil {
		return nil, err
	}

	details := make([]string, 0, len(valuation.Notes)+len(enforcement.Notes)+len(fraud.Indicators)+2)
	details = append(details, valuation.Notes...)
	details = append(details, enforcement.Notes...)
	if deductibleApplied.IsPositive() {
		details = append(details, fmt.Sprintf("deductible %s applied after limit caps", deductibleApplied))
	}
	for _, ind := range fraud.Indicators {
		details = append(details, fmt.Sprintf("fraud indicator %s (+%d): %s", ind.Type, ind.ScoreDelta, ind.Evidence))
	}
	if withheld {
		details = append(details, fmt.Sprintf("payout of %s withheld pending fraud investigation (anomaly score %d)",
			claimable, fraud.AnomalyScore))
	}

	citations := make([]models.Citation, 0, len(valuation.Citations)+len(clauseCitations))
	citations = append(citations, valuation.Citations...)
	citations = append(citations, clauseCitations...)

	return &models.ClaimDecision{
		ID:                uuid.New(),
		ClaimID:           submission.ClaimID,
		PolicyID:          policy.ID,
		Status:            state,
		ClaimableAmount:   claimable,
		AmountWithheld:    withheld,
		DeductibleApplied: deductibleApplied,
		Breakdown:         enforcement.Breakdown,
		Explanation: models.Explanation{
			Summary: fmt.Sprintf("claim %s: %s, claimable %s against full tariff value %s (fraud score %d)",
				submission.ClaimID, state, claimable, valuation.FullTariffValue, fraud.AnomalyScore),
			Details:   details,
			Citations: citations,
		},
		CreatedAt: time.Now(),
	}, nil
}

func advanceState(from, to models.ClaimState) (models.ClaimState, error) {
	if !from.CanTransitionTo(to) {
		return from, fmt.Errorf("illegal claim state transition %s -> %s", from, to)
	}
	return to, nil
}

// ResolveManualReview re-enters a suspended claim once a reviewer has
// confirmed the assessment. The stored breakdown is authoritative; only the
// confidence gate is re-evaluated, so the resolved outcome is the one the
// pipeline would have produced with a trustworthy report.
func (s *DecisionService) ResolveManualReview(ctx context.Context, claimID uuid.UUID, resolution models.ReviewResolution) (*models.ClaimDecision, error) {
	threshold := s.rating.Current().Depreciation.ConfidenceThreshold
	if resolution.ConfirmedConfidence < threshold {
		return nil, models.NewStageError("decision_assembler", claimID.String(),
			models.NewFieldError("confirmed_confidence",
				fmt.Sprintf("must be at least %.0f to release the claim from review", threshold)))
	}

	tx, err := s.decisionRepo.BeginTransaction()
	if err != nil {
		return nil, models.NewStageError("decision_assembler", claimID.String(),
			fmt.Errorf("%w: failed to begin transaction: %v", models.ErrDataUnavailable, err))
	}
	defer tx.Rollback()

	decision, err := s.decisionRepo.GetByClaimIDTx(tx, claimID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, models.NewStageError("decision_assembler", claimID.String(),
				fmt.Errorf("%w: no decision for claim", models.ErrNotFound))
		}
		return nil, models.NewStageError("decision_assembler", claimID.String(),
			fmt.Errorf("%w: decision lookup failed: %v", models.ErrDataUnavailable, err))
	}
	if decision.Status != models.ClaimRequiresManualReview {
		return nil, models.NewStageError("decision_assembler", claimID.String(),
			models.NewFieldError("status",
				fmt.Sprintf("decision is %s, only suspended claims can be resolved", decision.Status)))
	}

	// Re-enter fraud_checked and take the confidence-gated outcome from the
	// stored, already-capped breakdown.
	total := decimal.Zero
	entitlement := decimal.Zero
	for _, part := range decision.Breakdown {
		total = total.Add(part.ApprovedAmount)
		if part.Covered {
			entitlement = entitlement.Add(part.DepreciatedCost)
		}
	}

	claimable := total.Sub(decision.DeductibleApplied)
	if claimable.IsNegative() {
		claimable = decimal.Zero
	}

	var final models.ClaimState
	switch {
	case claimable.IsZero():
		final = models.ClaimDenied
	case total.LessThan(entitlement):
		final = models.ClaimPartiallyApproved
	default:
		final = models.ClaimApproved
	}

	state, err := advanceState(models.ClaimRequiresManualReview, models.ClaimFraudChecked)
	if err != nil {
		return nil, models.NewStageError("decision_assembler", claimID.String(),
			fmt.Errorf("%w: %v", models.ErrComputation, err))
	}
	state, err = advanceState(state, final)
	if err != nil {
		return nil, models.NewStageError("decision_assembler", claimID.String(),
			fmt.Errorf("%w: %v", models.ErrComputation, err))
	}

	decision.Status = state
	decision.ClaimableAmount = claimable
	decision.Explanation.Details = append(decision.Explanation.Details,
		fmt.Sprintf("manual review resolved by %s with confidence %.1f: %s",
			resolution.ReviewedBy, resolution.ConfirmedConfidence, resolution.Notes))

	if err := s.decisionRepo.UpdateStatusTx(tx, decision); err != nil {
		return nil, models.NewStageError("decision_assembler", claimID.String(),
			fmt.Errorf("%w: %v", models.ErrDataUnavailable, err))
	}
	if err := tx.Commit(); err != nil {
		return nil, models.NewStageError("decision_assembler", claimID.String(),
			fmt.Errorf("%w: failed to commit: %v", models.ErrDataUnavailable, err))
	}

	if cacheErr := s.cache.Set(ctx, decision); cacheErr != nil {
		slog.Warn("Failed to cache decision", "claim_id", claimID, "error", cacheErr)
	}
	if s.notifier != nil {
		s.notifier.DecisionCommitted(decision)
	}

	slog.Info("Manual review resolved",
		"claim_id", claimID,
		"status", decision.Status,
		"reviewed_by", resolution.ReviewedBy)

	return decision, nil
}

// GetDecision returns the committed decision for a claim.
func (s *DecisionService) GetDecision(ctx context.Context, claimID uuid.UUID) (*models.ClaimDecision, error) {
	if existing := s.lookupExisting(ctx, claimID); existing != nil {
		return existing, nil
	}
	return nil, models.NewStageError("decision_assembler", claimID.String(),
		fmt.Errorf("%w: no decision for claim", models.ErrNotFound))
}

// ListAwaitingReview exposes the suspended claims for the review sweep.
func (s *DecisionService) ListAwaitingReview(ctx context.Context, limit int) ([]models.ClaimDecision, error) {
	decisions, err := s.decisionRepo.ListAwaitingReview(ctx, limit)
	if err != nil {
		return nil, models.NewStageError("decision_assembler", "",
			fmt.Errorf("%w: %v", models.ErrDataUnavailable, err))
	}
	return decisions, nil
}
