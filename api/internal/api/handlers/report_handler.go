package handlers

import (
	"bytes"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"reportvault/api/internal/api/middleware"
	"reportvault/api/internal/core/domain"
	"reportvault/api/internal/core/services"
	"reportvault/api/internal/infrastructure/ratelimit"
)

var pdfMagic = []byte("%PDF-")

// ==============================================================================
// 1. Responses
// ==============================================================================

type PublishReportResponse struct {
	ReportID      string                   `json:"reportId"`
	CreatedAt     time.Time                `json:"createdAt"`
	DownloadToken domain.DownloadTokenWire `json:"downloadToken"`
	DownloadURL   string                   `json:"downloadUrl"`
}

// ==============================================================================
// 2. The Handler Struct (Dependency Injection)
// ==============================================================================

type ReportHandler struct {
	Service  *services.ReportService
	Tokens   *services.DownloadTokenService
	Throttle *ratelimit.AttemptThrottle
	MaxBytes int64
}

func NewReportHandler(
	service *services.ReportService,
	tokens *services.DownloadTokenService,
	throttle *ratelimit.AttemptThrottle,
	maxBytes int64,
) *ReportHandler {
	return &ReportHandler{
		Service:  service,
		Tokens:   tokens,
		Throttle: throttle,
		MaxBytes: maxBytes,
	}
}

// ==============================================================================
// 3. HTTP Methods
// ==============================================================================

// Publish handles POST /api/v1/assessments/{assessmentId}/report
// The body is the rendered PDF.
func (h *ReportHandler) Publish(w http.ResponseWriter, r *http.Request) {
	assessmentID := chi.URLParam(r, "assessmentId")
	if err := validate.Var(assessmentID, "required,max=64,identifier"); err != nil {
		HandleError(w, r, err)
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.MaxBytes))
	if err != nil {
		HandleError(w, r, err)
		return
	}
	if !bytes.HasPrefix(body, pdfMagic) {
		writeJSON(w, http.StatusUnsupportedMediaType, ErrorResponse{
			Error:       "Unsupported media type",
			Message:     "Report body must be a PDF document",
			ReferenceID: newReferenceID(),
		})
		return
	}

	report, token, err := h.Service.Publish(r.Context(), assessmentID, body)
	if err != nil {
		HandleError(w, r, err)
		return
	}

	wire := h.Tokens.ToWire(token)
	writeJSON(w, http.StatusCreated, PublishReportResponse{
		ReportID:      report.ID,
		CreatedAt:     report.CreatedAt,
		DownloadToken: wire,
		DownloadURL:   downloadURL(report.ID, wire),
	})
}

// Download handles GET /api/v1/reports/{reportId}/download?token=...&expires=...
func (h *ReportHandler) Download(w http.ResponseWriter, r *http.Request) {
	reportID := chi.URLParam(r, "reportId")
	query := r.URL.Query()

	// An unparsable expiry can never match a minted token
	expires, _ := strconv.ParseInt(query.Get("expires"), 10, 64)

	req := services.DownloadRequest{
		ClientIP:  middleware.ClientIP(r),
		UserAgent: r.UserAgent(),
		ReportID:  reportID,
		Token: domain.DownloadTokenWire{
			Token:        query.Get("token"),
			AssessmentID: reportID,
			Expires:      expires,
		},
	}

	file, info, err := h.Service.Download(r.Context(), req)
	if h.Throttle != nil {
		w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(h.Throttle.Remaining(ratelimit.ClientKey(req.ClientIP, req.UserAgent))))
	}
	if err != nil {
		HandleError(w, r, err)
		return
	}
	defer file.Close()

	// 🛡️ Secure download headers
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`inline; filename="%s"`, reportID))
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Cache-Control", "no-store, max-age=0")

	http.ServeContent(w, r, reportID, info.ModTime(), file)
}

// Delete handles DELETE /api/v1/reports/{reportId}
func (h *ReportHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Delete(r.Context(), chi.URLParam(r, "reportId")); err != nil {
		HandleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func downloadURL(reportID string, wire domain.DownloadTokenWire) string {
	q := url.Values{}
	q.Set("token", wire.Token)
	q.Set("expires", strconv.FormatInt(wire.Expires, 10))
	return "/api/v1/reports/" + url.PathEscape(reportID) + "/download?" + q.Encode()
}
