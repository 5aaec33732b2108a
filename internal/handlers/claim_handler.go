package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"decision-service/internal/documents"
	"decision-service/internal/models"
	"decision-service/internal/services"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"
)

type ClaimHandler struct {
	decisionService *services.DecisionService
	atrService      *documents.ATRService
}

func NewClaimHandler(decisionService *services.DecisionService, atrService *documents.ATRService) *ClaimHandler {
	return &ClaimHandler{
		decisionService: decisionService,
		atrService:      atrService,
	}
}

func (ch *ClaimHandler) Register(app *fiber.App) {
	group := app.Group("decision/api/v1/claims")

	group.Post("/decisions", ch.ComputeDecision)              // POST /claims/decisions - compute or return the stored decision
	group.Get("/:claimID/decision", ch.GetDecision)           // GET  /claims/{claimID}/decision
	group.Post("/:claimID/review", ch.ResolveReview)          // POST /claims/{claimID}/review - release a suspended claim
	group.Get("/review/pending", ch.ListAwaitingReview)       // GET  /claims/review/pending
	group.Get("/:claimID/decision/atr-url", ch.GetATRLink)    // GET  /claims/{claimID}/decision/atr-url
}

// ComputeDecision runs the claims pipeline. The first committed decision
// per claim ID is authoritative; retries get it back unchanged.
func (ch *ClaimHandler) ComputeDecision(c fiber.Ctx) error {
	var submission models.ClaimSubmission
	if err := c.Bind().Body(&submission); err != nil {
		slog.Error("error parsing claim submission", "error", err)
		return c.Status(http.StatusBadRequest).JSON(models.CreateErrorResponse("INVALID_REQUEST", "Invalid request body"))
	}
	if submission.ClaimID == uuid.Nil || submission.PolicyID == uuid.Nil {
		return c.Status(http.StatusBadRequest).JSON(models.CreateErrorResponse("VALIDATION_FAILED", "claim_id and policy_id are required"))
	}
	if submission.SubmittedAt == 0 {
		submission.SubmittedAt = time.Now().Unix()
	}

	decision, err := ch.decisionService.ComputeClaimDecision(c.Context(), submission)
	if err != nil {
		slog.Error("claim decision failed", "claim_id", submission.ClaimID, "error", err)
		status, code := statusForError(err)
		return c.Status(status).JSON(models.CreateErrorResponse(code, err.Error()))
	}

	return c.Status(http.StatusOK).JSON(models.CreateSuccessResponse(decision))
}

func (ch *ClaimHandler) GetDecision(c fiber.Ctx) error {
	claimID, err := uuid.Parse(c.Params("claimID"))
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(models.CreateErrorResponse("INVALID_REQUEST", "invalid claim id"))
	}

	decision, err := ch.decisionService.GetDecision(c.Context(), claimID)
	if err != nil {
		status, code := statusForError(err)
		return c.Status(status).JSON(models.CreateErrorResponse(code, err.Error()))
	}

	return c.Status(http.StatusOK).JSON(models.CreateSuccessResponse(decision))
}

// ResolveReview releases a claim suspended in manual review.
func (ch *ClaimHandler) ResolveReview(c fiber.Ctx) error {
	claimID, err := uuid.Parse(c.Params("claimID"))
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(models.CreateErrorResponse("INVALID_REQUEST", "invalid claim id"))
	}

	var resolution models.ReviewResolution
	if err := c.Bind().Body(&resolution); err != nil {
		slog.Error("error parsing review resolution", "error", err)
		return c.Status(http.StatusBadRequest).JSON(models.CreateErrorResponse("INVALID_REQUEST", "Invalid request body"))
	}
	if resolution.ReviewedBy == "" {
		return c.Status(http.StatusBadRequest).JSON(models.CreateErrorResponse("VALIDATION_FAILED", "reviewed_by is required"))
	}

	decision, err := ch.decisionService.ResolveManualReview(c.Context(), claimID, resolution)
	if err != nil {
		slog.Error("review resolution failed", "claim_id", claimID, "error", err)
		status, code := statusForError(err)
		return c.Status(status).JSON(models.CreateErrorResponse(code, err.Error()))
	}

	return c.Status(http.StatusOK).JSON(models.CreateSuccessResponse(decision))
}

func (ch *ClaimHandler) ListAwaitingReview(c fiber.Ctx) error {
	limit := 50
	if limitParam := c.Query("limit"); limitParam != "" {
		if parsed, err := strconv.Atoi(limitParam); err == nil && parsed > 0 && parsed <= 500 {
			limit = parsed
		}
	}

	decisions, err := ch.decisionService.ListAwaitingReview(c.Context(), limit)
	if err != nil {
		status, code := statusForError(err)
		return c.Status(status).JSON(models.CreateErrorResponse(code, err.Error()))
	}

	return c.Status(http.StatusOK).JSON(models.CreateSuccessResponse(decisions))
}

// GetATRLink hands out a temporary download link for the claim's ATR
// document.
func (ch *ClaimHandler) GetATRLink(c fiber.Ctx) error {
	claimID, err := uuid.Parse(c.Params("claimID"))
	if err != nil {
		return c.Status(http.StatusBadRequest).JSON(models.CreateErrorResponse("INVALID_REQUEST", "invalid claim id"))
	}

	decision, err := ch.decisionService.GetDecision(c.Context(), claimID)
	if err != nil {
		status, code := statusForError(err)
		return c.Status(status).JSON(models.CreateErrorResponse(code, err.Error()))
	}
	if decision.ATRObjectKey == nil {
		return c.Status(http.StatusNotFound).JSON(models.CreateErrorResponse("NOT_FOUND", "no ATR document for this claim"))
	}

	url, err := ch.atrService.PresignedURL(c.Context(), *decision.ATRObjectKey, 15*time.Minute)
	if err != nil {
		return c.Status(http.StatusInternalServerError).JSON(models.CreateErrorResponse("INTERNAL_SERVER_ERROR", "failed to generate download link"))
	}

	return c.Status(http.StatusOK).JSON(models.CreateSuccessResponse(fiber.Map{"url": url}))
}
