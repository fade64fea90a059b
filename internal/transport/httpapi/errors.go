package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/sandevgo/docportal/internal/core"
	"github.com/sandevgo/docportal/internal/service/conversation"
)

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrBusy), errors.Is(err, core.ErrNotReady):
		return http.StatusConflict
	case errors.Is(err, core.ErrEmptyMessage), errors.Is(err, core.ErrConfiguration):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrDocumentTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, core.ErrIngestion):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusBadGateway
	}
}

func errorCode(err error) string {
	switch {
	case errors.Is(err, core.ErrSessionNotFound):
		return "session_not_found"
	case errors.Is(err, core.ErrBusy):
		return "busy"
	case errors.Is(err, core.ErrNotReady):
		return "not_ready"
	case errors.Is(err, core.ErrEmptyMessage):
		return "empty_message"
	case errors.Is(err, core.ErrConfiguration):
		return "configuration"
	case errors.Is(err, core.ErrDocumentTooLarge):
		return "document_too_large"
	case errors.Is(err, core.ErrIngestion):
		return "ingestion"
	default:
		return "completion"
	}
}

func newErrorResponse(err error) errorResponse {
	return errorResponse{Error: conversation.Describe(err), Code: errorCode(err)}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, statusFor(err), newErrorResponse(err))
}

func writeBadRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg, Code: "bad_request"})
}
