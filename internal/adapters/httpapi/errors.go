package httpapi

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"

	"github.com/readers-guild/clubhouse-api/internal/app/apperr"
)

type errorBody struct {
	Code      string         `json:"code"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	RequestID string         `json:"requestId,omitempty"`
}

// ErrorResponse is the envelope for every non-2xx response. Page is set only for
// page-size errors and carries the clamped fallback page.
type ErrorResponse struct {
	Error errorBody `json:"error"`
	Page  any       `json:"page,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func errorResponse(r *http.Request, code, message string, details map[string]any) ErrorResponse {
	er := ErrorResponse{Error: errorBody{Code: code, Message: message, Details: details}}
	if rid := middleware.GetReqID(r.Context()); rid != "" {
		er.Error.RequestID = rid
	}
	return er
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code string, message string, details map[string]any) {
	writeJSON(w, status, errorResponse(r, code, message, details))
}

// statusForKind maps application error kinds onto HTTP status codes.
func statusForKind(k apperr.Kind) int {
	switch k {
	case apperr.KindBadAction, apperr.KindPageSizeTooSmall, apperr.KindPageSizeTooLarge:
		return http.StatusBadRequest
	case apperr.KindUnauthorized:
		return http.StatusForbidden
	case apperr.KindUserNotFound, apperr.KindClubNotFound, apperr.KindMembershipNotFound, apperr.KindMembershipRequestNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// writeAppError renders err. Anything that is not an *apperr.Error is logged and
// reported as a 500 without leaking its message.
func writeAppError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	writeAppErrorWithPage(w, r, log, err, nil)
}

func writeAppErrorWithPage(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error, page any) {
	var ae *apperr.Error
	if !errors.As(err, &ae) || ae.Kind == apperr.KindUnknown {
		log.ErrorContext(r.Context(), "request failed",
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", middleware.GetReqID(r.Context()),
			"err", err,
		)
		writeError(w, r, http.StatusInternalServerError, "INTERNAL", "internal error", nil)
		return
	}
	er := errorResponse(r, ae.Code, ae.Message, ae.Details)
	er.Page = page
	writeJSON(w, statusForKind(ae.Kind), er)
}
