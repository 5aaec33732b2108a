package handlers

import (
	"errors"
	"net/http"

	"decision-service/internal/models"
)

// statusForError maps the pipeline's sentinel errors onto HTTP codes and
// stable error codes for the response envelope.
func statusForError(err error) (int, string) {
	switch {
	case errors.Is(err, models.ErrValidation):
		return http.StatusBadRequest, "VALIDATION_FAILED"
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, models.ErrComputation):
		return http.StatusGatewayTimeout, "COMPUTATION_TIMEOUT"
	case errors.Is(err, models.ErrRetrievalUnavailable),
		errors.Is(err, models.ErrDataUnavailable):
		return http.StatusServiceUnavailable, "DATA_UNAVAILABLE"
	default:
		return http.StatusInternalServerError, "INTERNAL_SERVER_ERROR"
	}
}
