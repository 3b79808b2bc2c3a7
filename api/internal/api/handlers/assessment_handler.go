package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"reportvault/api/internal/core/domain"
	"reportvault/api/internal/core/services"
)

// ==============================================================================
// 1. Request Payloads (Input Validation)
// ==============================================================================

type SaveAssessmentRequest struct {
	// identifier keeps the ID safe to embed into report file names
	AssessmentID string `json:"assessment_id" validate:"required,max=64,identifier"`
	BusinessName string `json:"business_name" validate:"required,max=255"`
	MonthlySpend string `json:"monthly_spend" validate:"omitempty,numeric,max=32"`
}

type AssessmentResponse struct {
	AssessmentID string    `json:"assessment_id"`
	BusinessName string    `json:"business_name"`
	MonthlySpend string    `json:"monthly_spend,omitempty"`
	ReportID     string    `json:"report_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ==============================================================================
// 2. The Handler Struct (Dependency Injection)
// ==============================================================================

type AssessmentHandler struct {
	Service *services.AssessmentService
}

func NewAssessmentHandler(service *services.AssessmentService) *AssessmentHandler {
	return &AssessmentHandler{Service: service}
}

// ==============================================================================
// 3. HTTP Methods
// ==============================================================================

// Save handles POST /api/v1/assessments
func (h *AssessmentHandler) Save(w http.ResponseWriter, r *http.Request) {
	var req SaveAssessmentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:       "Invalid JSON payload",
			Message:     "Invalid data provided",
			ReferenceID: newReferenceID(),
		})
		return
	}

	if err := validate.Struct(req); err != nil {
		HandleError(w, r, err)
		return
	}

	a := &domain.Assessment{
		ID:           req.AssessmentID,
		BusinessName: req.BusinessName,
		MonthlySpend: req.MonthlySpend,
	}
	if err := h.Service.Save(r.Context(), a); err != nil {
		HandleError(w, r, err)
		return
	}

	// 🛡️ The sensitive field is never echoed back on write
	writeJSON(w, http.StatusCreated, AssessmentResponse{
		AssessmentID: a.ID,
		BusinessName: a.BusinessName,
		ReportID:     a.ReportID,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	})
}

// Get handles GET /api/v1/assessments/{assessmentId}
func (h *AssessmentHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "assessmentId")
	if err := validate.Var(id, "required,max=64,identifier"); err != nil {
		HandleError(w, r, err)
		return
	}

	a, err := h.Service.Get(r.Context(), id)
	if err != nil {
		HandleError(w, r, err)
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, AssessmentResponse{
		AssessmentID: a.ID,
		BusinessName: a.BusinessName,
		MonthlySpend: a.MonthlySpend,
		ReportID:     a.ReportID,
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	})
}
