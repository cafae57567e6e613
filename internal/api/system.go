package api

import (
	"net/http"
	"time"
)

// gatewayStaleAfter marks a gateway offline when its status publications
// stop, regardless of the last payload.
const gatewayStaleAfter = 30 * time.Second

// handleHealth is the unauthenticated liveness probe.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}

// handleGetTimeline returns the studio's current published timeline.
func (s *Server) handleGetTimeline(w http.ResponseWriter, r *http.Request) {
	if s.timelines == nil {
		writeNotFound(w, "timeline not found")
		return
	}

	tl, err := s.timelines.Get(r.Context(), s.studioID)
	if err != nil {
		s.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tl)
}

// handleSystemHealth reports component health and gateway liveness.
func (s *Server) handleSystemHealth(w http.ResponseWriter, r *http.Request) {
	components := map[string]string{}
	healthy := true

	if s.broker != nil {
		if err := s.broker.HealthCheck(r.Context()); err != nil {
			components["mqtt"] = err.Error()
			healthy = false
		} else {
			components["mqtt"] = "ok"
		}
	}

	resp := map[string]any{
		"status":     "ok",
		"studio_id":  s.studioID,
		"version":    s.version,
		"components": components,
	}

	if s.gateways != nil {
		resp["gateways"] = s.gateways.Snapshot()
		resp["gateways_online"] = s.gateways.OnlineCount(gatewayStaleAfter)
	}

	if !healthy {
		resp["status"] = "degraded"
	}

	writeJSON(w, http.StatusOK, resp)
}
