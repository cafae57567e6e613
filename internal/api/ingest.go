package api

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/onair-core/internal/blueprint"
)

// handleIngestPush accepts a full rundown payload from an NRCS connector.
//
// The body is the complete external representation; the ingest service
// diffs it against the stored snapshot and reconciles only what changed.
func (s *Server) handleIngestPush(w http.ResponseWriter, r *http.Request) {
	if s.ingest == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeInternal, "ingest is not configured")
		return
	}

	externalID := chi.URLParam(r, "externalID")

	var payload blueprint.IngestRundown
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeBadRequest(w, "invalid rundown payload")
		return
	}

	err := s.ingest.Apply(r.Context(), externalID, func(*blueprint.IngestRundown) (*blueprint.IngestRundown, error) {
		return &payload, nil
	})
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, map[string]any{
		"external_id": externalID,
		"status":      "reconciled",
	})
}

// handleIngestRemove deletes a rundown from the NRCS's point of view.
// Removal of an on-air rundown is refused and surfaces as a conflict.
func (s *Server) handleIngestRemove(w http.ResponseWriter, r *http.Request) {
	if s.ingest == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeInternal, "ingest is not configured")
		return
	}

	externalID := chi.URLParam(r, "externalID")

	if err := s.ingest.Remove(r.Context(), externalID, true); err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"external_id": externalID,
		"status":      "removed",
	})
}
