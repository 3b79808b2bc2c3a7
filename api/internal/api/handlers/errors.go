package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"regexp"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"reportvault/api/internal/core/domain"
)

// Use a single instance of Validate, it caches struct info
var validate = newValidator()

var identifierPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

func newValidator() *validator.Validate {
	v := validator.New()
	// identifier: the owner segment allowed inside report identifiers
	v.RegisterValidation("identifier", func(fl validator.FieldLevel) bool {
		return identifierPattern.MatchString(fl.Field().String())
	})
	return v
}

// ErrorResponse is the only error shape clients ever see. ReferenceID lets
// support correlate with server logs without exposing internals.
type ErrorResponse struct {
	Error       string `json:"error"`
	Message     string `json:"message"`
	ReferenceID string `json:"referenceId"`
}

// newReferenceID returns a short non-reversible correlation ID.
func newReferenceID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// HandleError maps domain errors to HTTP semantics and logs the real error
// against a reference ID.
func HandleError(w http.ResponseWriter, r *http.Request, err error) {
	status, resp := classify(err)
	resp.ReferenceID = newReferenceID()

	level := slog.LevelWarn
	if status >= http.StatusInternalServerError {
		level = slog.LevelError
	}
	slog.Default().Log(r.Context(), level, "Request failed",
		slog.String("reference_id", resp.ReferenceID),
		slog.String("request_id", middleware.GetReqID(r.Context())),
		slog.String("path", r.URL.Path),
		slog.Int("status", status),
		slog.Any("error", err))

	writeJSON(w, status, resp)
}

func classify(err error) (int, ErrorResponse) {
	var validationErrs validator.ValidationErrors
	var maxBytesErr *http.MaxBytesError

	switch {
	case errors.As(err, &validationErrs):
		return http.StatusBadRequest, ErrorResponse{Error: "Validation failed", Message: "Invalid data provided"}
	case errors.As(err, &maxBytesErr):
		return http.StatusRequestEntityTooLarge, ErrorResponse{Error: "Payload too large", Message: "The request body exceeds the allowed size"}
	case errors.Is(err, domain.ErrInvalidIdentifier):
		return http.StatusBadRequest, ErrorResponse{Error: "Invalid report ID", Message: "Invalid data provided"}
	case errors.Is(err, domain.ErrInvalidToken):
		return http.StatusForbidden, ErrorResponse{Error: "Invalid download token", Message: "Access denied"}
	case errors.Is(err, domain.ErrExpiredToken):
		return http.StatusForbidden, ErrorResponse{Error: "Download token expired", Message: "Request a new download link"}
	case errors.Is(err, domain.ErrThrottleExceeded):
		return http.StatusTooManyRequests, ErrorResponse{Error: "Download limit exceeded", Message: "Too many downloads. Please try again later."}
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, ErrorResponse{Error: "Not found", Message: "The requested resource does not exist"}
	default:
		// ErrIntegrity, ErrFormat and anything unexpected stay opaque
		return http.StatusInternalServerError, ErrorResponse{Error: "Something went wrong", Message: "Please try again later"}
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
