package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/damon-houk/georgia-tax-declaration/internal/application/service"
	"github.com/damon-houk/georgia-tax-declaration/internal/domain/entity"
	"github.com/damon-houk/georgia-tax-declaration/internal/infrastructure/logger"
)

// sendErrorResponse sends a standardized error response
func sendErrorResponse(w http.ResponseWriter, log logger.Logger, message, description string, statusCode int, requestID string) {
	writeError(w, log, ErrorResponse{
		Error:       message,
		Status:      statusCode,
		Description: description,
		RequestID:   requestID,
	})
}

func writeError(w http.ResponseWriter, log logger.Logger, resp ErrorResponse) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.Status)

	log.Debug("Sending error response", map[string]interface{}{
		"request_id":  resp.RequestID,
		"status_code": resp.Status,
		"message":     resp.Error,
	})

	json.NewEncoder(w).Encode(resp)
}

// sendServiceError maps a pipeline failure onto an HTTP status.
// Ledger problems are the user's to fix (422); missing rates are retryable (503).
func sendServiceError(w http.ResponseWriter, log logger.Logger, err error, requestID string) {
	var (
		schemaErr      *entity.SchemaError
		validationErr  *entity.ValidationError
		unavailableErr *entity.RateUnavailableError
	)

	switch {
	case errors.As(err, &schemaErr):
		log.Warn("Ledger schema rejected", map[string]interface{}{
			"request_id": requestID,
			"error":      err.Error(),
		})
		sendErrorResponse(w, log, "Invalid ledger schema", err.Error(),
			http.StatusUnprocessableEntity, requestID)
	case errors.As(err, &validationErr):
		log.Warn("Ledger row rejected", map[string]interface{}{
			"request_id": requestID,
			"row":        validationErr.Row,
			"field":      validationErr.Field,
			"error":      err.Error(),
		})
		writeError(w, log, ErrorResponse{
			Error:       "Invalid ledger data",
			Status:      http.StatusUnprocessableEntity,
			Description: err.Error(),
			RequestID:   requestID,
			Row:         validationErr.Row,
			Field:       string(validationErr.Field),
		})
	case errors.As(err, &unavailableErr):
		log.Error("Exchange rate unavailable", map[string]interface{}{
			"request_id": requestID,
			"currency":   unavailableErr.Currency,
			"date":       unavailableErr.Date.String(),
			"error":      err.Error(),
		})
		sendErrorResponse(w, log, "Exchange rate unavailable",
			err.Error()+". Please try again later.", http.StatusServiceUnavailable, requestID)
	case errors.Is(err, service.ErrUnreadableLedger):
		log.Warn("Ledger could not be read", map[string]interface{}{
			"request_id": requestID,
			"error":      err.Error(),
		})
		sendErrorResponse(w, log, "Ledger could not be read", err.Error(),
			http.StatusBadRequest, requestID)
	case errors.Is(err, service.ErrReaderNotConfigured):
		log.Error("Ingest surface not configured", map[string]interface{}{
			"request_id": requestID,
			"error":      err.Error(),
		})
		sendErrorResponse(w, log, "Not available",
			"This server cannot read ledgers from this source", http.StatusNotImplemented, requestID)
	default:
		log.Error("Unexpected error in declaration handler", map[string]interface{}{
			"request_id": requestID,
			"error":      err.Error(),
		})
		sendErrorResponse(w, log, "Internal server error",
			"An unexpected error occurred. Please try again later.",
			http.StatusInternalServerError, requestID)
	}
}
