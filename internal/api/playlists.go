package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

// defaultEventLimit caps the event log response when no limit is given.
const defaultEventLimit = 100

// handleListPlaylists returns all playlists for this studio.
func (s *Server) handleListPlaylists(w http.ResponseWriter, r *http.Request) {
	playlists, err := s.repo.ListPlaylists(r.Context(), s.studioID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"playlists": playlists,
		"count":     len(playlists),
	})
}

// handleGetPlaylist returns a single playlist with its rundowns.
func (s *Server) handleGetPlaylist(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	pl, err := s.repo.GetPlaylist(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	rundowns, err := s.repo.ListRundownsByPlaylist(r.Context(), id)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"playlist": pl,
		"rundowns": rundowns,
	})
}

// handleListEvents returns the playout event log for a playlist,
// newest first.
func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	limit := defaultEventLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeBadRequest(w, "limit must be a positive integer")
			return
		}
		limit = n
	}

	events, err := s.repo.ListEvents(r.Context(), id, limit)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"events": events,
		"count":  len(events),
	})
}

// activateRequest is the optional body for POST /playlists/{id}/activate.
type activateRequest struct {
	Rehearsal bool `json:"rehearsal"`
}

// handleActivate puts a playlist on air.
func (s *Server) handleActivate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req activateRequest
	if err := decodeOptionalBody(r, &req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := s.playout.Activate(r.Context(), id, req.Rehearsal); err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.operationDone(w, r, id, "playlist.activated")
}

// handleDeactivate takes a playlist off air.
func (s *Server) handleDeactivate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.playout.Deactivate(r.Context(), id); err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.operationDone(w, r, id, "playlist.deactivated")
}

// handleReset clears all playback progress from a playlist.
func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.playout.Reset(r.Context(), id); err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.operationDone(w, r, id, "playlist.reset")
}

// handleTake promotes the next part to current.
func (s *Server) handleTake(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.playout.Take(r.Context(), id); err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.operationDone(w, r, id, "part.taken")
}

// nextRequest is the body for POST /playlists/{id}/next.
//
// Exactly one of part_id and delta is used: part_id pins a specific part,
// delta moves the pointer through the playable order.
type nextRequest struct {
	PartID string `json:"part_id"`
	Delta  *int   `json:"delta"`
}

// handleNext sets or moves the next-part pointer.
func (s *Server) handleNext(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req nextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	switch {
	case req.PartID != "":
		if err := s.playout.SetNext(r.Context(), id, req.PartID); err != nil {
			s.writeDomainError(w, err)
			return
		}
	case req.Delta != nil:
		if err := s.playout.MoveNext(r.Context(), id, *req.Delta); err != nil {
			s.writeDomainError(w, err)
			return
		}
	default:
		writeBadRequest(w, "part_id or delta is required")
		return
	}
	s.operationDone(w, r, id, "part.next-set")
}

// handleHoldActivate arms a hold between current and next.
func (s *Server) handleHoldActivate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.playout.ActivateHold(r.Context(), id); err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.operationDone(w, r, id, "hold.activated")
}

// handleHoldDeactivate disarms a pending hold.
func (s *Server) handleHoldDeactivate(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := s.playout.DeactivateHold(r.Context(), id); err != nil {
		s.writeDomainError(w, err)
		return
	}
	s.operationDone(w, r, id, "hold.deactivated")
}

// operationDone writes the success response for a playlist mutation and
// relays the event to WebSocket subscribers.
func (s *Server) operationDone(w http.ResponseWriter, r *http.Request, playlistID, event string) {
	pl, err := s.repo.GetPlaylist(r.Context(), playlistID)
	if err != nil {
		// The operation itself succeeded; reply with the bare event.
		writeJSON(w, http.StatusOK, map[string]any{"event": event})
		return
	}

	if s.hub != nil {
		s.hub.Broadcast(ChannelPlayoutEvents, map[string]any{
			"event":       event,
			"playlist_id": playlistID,
		})
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"event":    event,
		"playlist": pl,
	})
}

// decodeOptionalBody decodes a JSON body, treating an empty body as the
// zero value.
func decodeOptionalBody(r *http.Request, v any) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}
	return err
}
