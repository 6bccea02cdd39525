package handler

import (
	"encoding/json"
	"net/http"

	"github.com/damon-houk/georgia-tax-declaration/internal/application/service"
	"github.com/damon-houk/georgia-tax-declaration/internal/domain/entity"
	"github.com/damon-houk/georgia-tax-declaration/internal/infrastructure/logger"
	"github.com/damon-houk/georgia-tax-declaration/internal/infrastructure/middleware"
	"github.com/gorilla/mux"
)

// RateHandler answers single exchange rate lookups
type RateHandler struct {
	service *service.DeclarationService
	logger  logger.Logger
}

// NewRateHandler creates a new rate handler
func NewRateHandler(service *service.DeclarationService, log logger.Logger) *RateHandler {
	if log == nil {
		log = logger.GetDefaultLogger()
	}

	return &RateHandler{
		service: service,
		logger:  log,
	}
}

// GetRate handles GET /rates/{currency}?date=DD.MM.YYYY
func (h *RateHandler) GetRate(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	code := mux.Vars(r)["currency"]
	rawDate := r.URL.Query().Get("date")

	h.logger.Info("Handling rate request", map[string]interface{}{
		"request_id": requestID,
		"currency":   code,
		"date":       rawDate,
	})

	currency, err := entity.ParseCurrency(code)
	if err != nil {
		h.logger.Warn("Unsupported currency", map[string]interface{}{
			"request_id": requestID,
			"currency":   code,
		})
		sendErrorResponse(w, h.logger, "Unsupported currency", err.Error(), http.StatusBadRequest, requestID)
		return
	}

	if rawDate == "" {
		sendErrorResponse(w, h.logger, "Missing date parameter",
			"The 'date' query parameter is required (DD.MM.YYYY)", http.StatusBadRequest, requestID)
		return
	}
	date, err := service.ParseDate(rawDate)
	if err != nil {
		h.logger.Warn("Invalid date", map[string]interface{}{
			"request_id": requestID,
			"date":       rawDate,
			"error":      err.Error(),
		})
		sendErrorResponse(w, h.logger, "Invalid date", err.Error(), http.StatusBadRequest, requestID)
		return
	}

	rate, err := h.service.Rate(r.Context(), currency, date)
	if err != nil {
		sendServiceError(w, h.logger, err, requestID)
		return
	}

	resp := RateResponse{
		Currency: string(currency),
		Date:     date.String(),
		RateDate: rate.Date.String(),
		Rate:     rate.Rate.String(),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// RegisterRoutes registers the rate handler routes
func (h *RateHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/rates/{currency}", h.GetRate).Methods("GET")

	h.logger.Info("Rate routes registered", map[string]interface{}{
		"routes": []string{
			"GET /rates/{currency}",
		},
	})
}
