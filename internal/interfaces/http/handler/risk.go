package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"payment-fraud-risk/internal/application/dto"
	riskapp "payment-fraud-risk/internal/application/risk"
	"payment-fraud-risk/internal/domain/risk"
)

// RiskHandler handles risk-related HTTP requests
type RiskHandler struct {
	analyzeUseCase *riskapp.AnalyzePaymentUseCase
	alertService   *risk.AlertService
	validate       *validator.Validate
	maxBatchSize   int
}

// NewRiskHandler creates a new risk handler
func NewRiskHandler(analyzeUseCase *riskapp.AnalyzePaymentUseCase, alertService *risk.AlertService, maxBatchSize int) *RiskHandler {
	return &RiskHandler{
		analyzeUseCase: analyzeUseCase,
		alertService:   alertService,
		validate:       validator.New(),
		maxBatchSize:   maxBatchSize,
	}
}

// AnalyzePayment handles POST /api/v1/risk/analyze
func (h *RiskHandler) AnalyzePayment(w http.ResponseWriter, r *http.Request) {
	var req riskapp.AnalyzePaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if err := h.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	input, err := req.ToInput()
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.analyzeUseCase.Execute(r.Context(), *input)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Risk analysis failed: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// BatchAnalyze handles POST /api/v1/risk/analyze/batch
func (h *RiskHandler) BatchAnalyze(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Payments []riskapp.AnalyzePaymentRequest `json:"payments"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}

	if len(req.Payments) == 0 {
		writeError(w, http.StatusBadRequest, "No payments provided")
		return
	}

	if len(req.Payments) > h.maxBatchSize {
		writeError(w, http.StatusBadRequest, "Batch size exceeds limit")
		return
	}

	inputs := make([]riskapp.AnalyzePaymentInput, 0, len(req.Payments))
	for _, paymentReq := range req.Payments {
		if err := h.validate.Struct(&paymentReq); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid payment: "+err.Error())
			return
		}
		input, err := paymentReq.ToInput()
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid payment: "+err.Error())
			return
		}
		inputs = append(inputs, *input)
	}

	result, err := h.analyzeUseCase.ExecuteBatch(r.Context(), riskapp.BatchAnalyzeInput{
		Payments: inputs,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Batch analysis failed: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// GetAlert handles GET /api/v1/risk/alerts/{id}
func (h *RiskHandler) GetAlert(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "Alert")
	if !ok {
		return
	}

	alert, err := h.alertService.GetAlert(r.Context(), id)
	if err != nil {
		if errors.Is(err, risk.ErrAlertNotFound) {
			writeError(w, http.StatusNotFound, "Alert not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get alert: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.FromAlert(alert))
}

// ListUserAlerts handles GET /api/v1/risk/users/{id}/alerts
func (h *RiskHandler) ListUserAlerts(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "User")
	if !ok {
		return
	}

	limit, err := parsePaginationParam(r, "limit", defaultAlertPageSize, maxAlertPageSize)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid limit parameter")
		return
	}
	offset, err := parsePaginationParam(r, "offset", 0, 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid offset parameter")
		return
	}

	alerts, err := h.alertService.ListUserAlerts(r.Context(), id, limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list alerts: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"alerts": dto.FromAlerts(alerts),
		"count":  len(alerts),
		"limit":  limit,
		"offset": offset,
	})
}

// ResolveAlert handles POST /api/v1/risk/alerts/{id}/resolve
func (h *RiskHandler) ResolveAlert(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "Alert")
	if !ok {
		return
	}

	var req dto.ResolveAlertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return
	}
	if err := h.validate.Struct(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Validation failed: "+err.Error())
		return
	}

	alert, err := h.alertService.ResolveAlert(r.Context(), id, req.Resolution)
	if err != nil {
		switch {
		case errors.Is(err, risk.ErrAlertNotFound):
			writeError(w, http.StatusNotFound, "Alert not found")
		case errors.Is(err, risk.ErrAlertAlreadyResolved):
			writeError(w, http.StatusConflict, "Alert already resolved")
		default:
			writeError(w, http.StatusInternalServerError, "Failed to resolve alert: "+err.Error())
		}
		return
	}

	writeJSON(w, http.StatusOK, dto.FromAlert(alert))
}

// GetUserPattern handles GET /api/v1/risk/users/{id}/pattern
func (h *RiskHandler) GetUserPattern(w http.ResponseWriter, r *http.Request) {
	id, ok := parseIDParam(w, r, "User")
	if !ok {
		return
	}

	pattern, err := h.alertService.GetUserPattern(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to get pattern: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, dto.FromPattern(pattern))
}

// Pagination bounds for alert listings
const (
	defaultAlertPageSize = 50
	maxAlertPageSize     = 200
)

// parsePaginationParam reads a non-negative integer query parameter, applying
// the fallback when absent and the cap when max is positive.
func parsePaginationParam(r *http.Request, name string, fallback, max int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return 0, fmt.Errorf("invalid %s: %q", name, raw)
	}
	if max > 0 && value > max {
		value = max
	}
	return value, nil
}

// Helper functions
func parseIDParam(w http.ResponseWriter, r *http.Request, label string) (uuid.UUID, bool) {
	idStr := r.PathValue("id")
	if idStr == "" {
		writeError(w, http.StatusBadRequest, label+" ID is required")
		return uuid.Nil, false
	}

	id, err := uuid.Parse(idStr)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid "+label+" ID")
		return uuid.Nil, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
