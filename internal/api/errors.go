package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/onair-core/internal/ingest"
	"github.com/nerrad567/onair-core/internal/rundown"
	"github.com/nerrad567/onair-core/internal/timeline"
)

// Error represents a structured error response.
type Error struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Common error codes.
const (
	ErrCodeBadRequest   = "bad_request"
	ErrCodeNotFound     = "not_found"
	ErrCodeUnauthorized = "unauthorised"
	ErrCodeInternal     = "internal_error"
)

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, Error{
		Status:  status,
		Code:    code,
		Message: message,
	})
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, ErrCodeBadRequest, message)
}

// writeNotFound writes a 404 error response.
func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, ErrCodeNotFound, message)
}

// writeUnauthorized writes a 401 error response.
func writeUnauthorized(w http.ResponseWriter, message string) {
	writeError(w, http.StatusUnauthorized, ErrCodeUnauthorized, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter, message string) {
	writeError(w, http.StatusInternalServerError, ErrCodeInternal, message)
}

// writeDomainError maps domain errors to HTTP responses.
//
// Operation preconditions surface as 409 with the domain's own error code
// so clients can react ("take.no-next" greys out the take button, it does
// not pop a dialog). Missing entities are 404, everything else 500.
func (s *Server) writeDomainError(w http.ResponseWriter, err error) {
	if ue, ok := rundown.AsUserError(err); ok {
		writeError(w, http.StatusConflict, ue.Code, ue.Message)
		return
	}

	switch {
	case errors.Is(err, rundown.ErrPlaylistNotFound):
		writeNotFound(w, "playlist not found")
	case errors.Is(err, rundown.ErrRundownNotFound):
		writeNotFound(w, "rundown not found")
	case errors.Is(err, ingest.ErrSnapshotNotFound):
		writeNotFound(w, "rundown not found")
	case errors.Is(err, timeline.ErrTimelineNotFound):
		writeNotFound(w, "timeline not found")
	default:
		s.logger.Error("request failed", "error", err)
		writeInternalError(w, "internal server error")
	}
}
