package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"decision-service/internal/models"
	"decision-service/internal/services"

	"github.com/gofiber/fiber/v3"
)

type UnderwritingHandler struct {
	underwritingService *services.UnderwritingService
}

func NewUnderwritingHandler(underwritingService *services.UnderwritingService) *UnderwritingHandler {
	return &UnderwritingHandler{underwritingService: underwritingService}
}

func (uh *UnderwritingHandler) Register(app *fiber.App) {
	group := app.Group("decision/api/v1/underwriting")

	group.Post("/quotes", uh.ComputePremium)         // POST /underwriting/quotes - compute or return the stored quote
	group.Get("/quotes/:applicationID", uh.GetQuote) // GET  /underwriting/quotes/{applicationID}
}

// ComputePremium runs the purchase path for an application. Retries return
// the quote already stored for the application ID.
func (uh *UnderwritingHandler) ComputePremium(c fiber.Ctx) error {
	var app models.PremiumApplication
	if err := c.Bind().Body(&app); err != nil {
		slog.Error("error parsing premium application", "error", err)
		return c.Status(http.StatusBadRequest).JSON(models.CreateErrorResponse("INVALID_REQUEST", "Invalid request body"))
	}
	if app.AppliedAt == 0 {
		app.AppliedAt = time.Now().Unix()
	}

	quote, err := uh.underwritingService.ComputePremium(c.Context(), app)
	if err != nil {
		slog.Error("premium computation failed", "application_id", app.ApplicationID, "error", err)
		status, code := statusForError(err)
		return c.Status(status).JSON(models.CreateErrorResponse(code, err.Error()))
	}

	return c.Status(http.StatusOK).JSON(models.CreateSuccessResponse(quote))
}

func (uh *UnderwritingHandler) GetQuote(c fiber.Ctx) error {
	applicationID := c.Params("applicationID")
	if applicationID == "" {
		return c.Status(http.StatusBadRequest).JSON(models.CreateErrorResponse("INVALID_REQUEST", "application id is required"))
	}

	quote, err := uh.underwritingService.GetQuote(c.Context(), applicationID)
	if err != nil {
		status, code := statusForError(err)
		return c.Status(status).JSON(models.CreateErrorResponse(code, err.Error()))
	}

	return c.Status(http.StatusOK).JSON(models.CreateSuccessResponse(quote))
}
