// Package handler internal/infrastructure/handler/declaration_handler.go
package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/damon-houk/georgia-tax-declaration/internal/application/service"
	"github.com/damon-houk/georgia-tax-declaration/internal/infrastructure/logger"
	"github.com/damon-houk/georgia-tax-declaration/internal/infrastructure/middleware"
	"github.com/gorilla/mux"
)

// DefaultMaxUploadBytes caps an uploaded ledger when no limit is configured
const DefaultMaxUploadBytes = 5 << 20

// DeclarationHandler handles HTTP requests for declarations
type DeclarationHandler struct {
	service        *service.DeclarationService
	maxUploadBytes int64
	logger         logger.Logger
}

// NewDeclarationHandler creates a new declaration handler
func NewDeclarationHandler(service *service.DeclarationService, maxUploadBytes int64, log logger.Logger) *DeclarationHandler {
	if log == nil {
		log = logger.GetDefaultLogger()
	}
	if maxUploadBytes <= 0 {
		maxUploadBytes = DefaultMaxUploadBytes
	}

	return &DeclarationHandler{
		service:        service,
		maxUploadBytes: maxUploadBytes,
		logger:         log,
	}
}

// DeclareFromFile handles a multipart upload of an .xlsx ledger
func (h *DeclarationHandler) DeclareFromFile(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	h.logger.Info("Handling file declaration request", map[string]interface{}{
		"request_id": requestID,
		"method":     r.Method,
		"path":       r.URL.Path,
	})

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)
	if err := r.ParseMultipartForm(h.maxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			h.logger.Warn("Upload too large", map[string]interface{}{
				"request_id": requestID,
				"limit":      h.maxUploadBytes,
			})
			sendErrorResponse(w, h.logger, "Upload too large",
				"The ledger file exceeds the upload limit", http.StatusRequestEntityTooLarge, requestID)
			return
		}
		h.logger.Warn("Invalid multipart form", map[string]interface{}{
			"request_id": requestID,
			"error":      err.Error(),
		})
		sendErrorResponse(w, h.logger, "Invalid request body",
			"The request must be a multipart form with a 'ledger' file", http.StatusBadRequest, requestID)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("ledger")
	if err != nil {
		h.logger.Warn("Missing ledger file", map[string]interface{}{
			"request_id": requestID,
			"error":      err.Error(),
		})
		sendErrorResponse(w, h.logger, "Missing ledger file",
			"The 'ledger' form field must carry an .xlsx file", http.StatusBadRequest, requestID)
		return
	}
	defer file.Close()

	prior, err := service.ParsePriorAmount(r.FormValue("prior_amount"))
	if err != nil {
		sendServiceError(w, h.logger, err, requestID)
		return
	}

	h.logger.Debug("Upload parsed", map[string]interface{}{
		"request_id": requestID,
		"filename":   header.Filename,
		"size":       header.Size,
		"prior":      prior.StringFixed(2),
	})

	run, err := h.service.ProcessFile(r.Context(), file, prior)
	if err != nil {
		sendServiceError(w, h.logger, err, requestID)
		return
	}

	h.respond(w, run, requestID)
}

// DeclareFromSheet handles a declaration from a shared Google spreadsheet
func (h *DeclarationHandler) DeclareFromSheet(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	h.logger.Info("Handling sheet declaration request", map[string]interface{}{
		"request_id": requestID,
		"method":     r.Method,
		"path":       r.URL.Path,
	})

	var req SheetDeclarationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Invalid request body", map[string]interface{}{
			"request_id": requestID,
			"error":      err.Error(),
		})
		sendErrorResponse(w, h.logger, "Invalid request body",
			"The request body could not be parsed as valid JSON", http.StatusBadRequest, requestID)
		return
	}

	if strings.TrimSpace(req.Link) == "" {
		sendErrorResponse(w, h.logger, "Missing link",
			"The 'link' field must carry a Google Sheets link", http.StatusBadRequest, requestID)
		return
	}

	prior, err := service.ParsePriorAmount(req.PriorAmount)
	if err != nil {
		sendServiceError(w, h.logger, err, requestID)
		return
	}

	run, err := h.service.ProcessSheet(r.Context(), strings.TrimSpace(req.Link), prior)
	if err != nil {
		sendServiceError(w, h.logger, err, requestID)
		return
	}

	h.respond(w, run, requestID)
}

func (h *DeclarationHandler) respond(w http.ResponseWriter, run *service.Run, requestID string) {
	resp := newDeclarationResponse(run)

	h.logger.Info("Declaration calculated successfully", map[string]interface{}{
		"request_id": requestID,
		"run_id":     run.ID,
		"field_15":   resp.Field15,
	})

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

// RegisterRoutes registers the declaration handler routes
func (h *DeclarationHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/declarations/file", h.DeclareFromFile).Methods("POST")
	router.HandleFunc("/declarations/sheet", h.DeclareFromSheet).Methods("POST")

	h.logger.Info("Declaration routes registered", map[string]interface{}{
		"routes": []string{
			"POST /declarations/file",
			"POST /declarations/sheet",
		},
	})
}
