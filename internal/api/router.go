package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Health check (no auth required)
		r.Get("/health", s.handleHealth)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			// WS ticket requires an authenticated caller
			r.Post("/auth/ws-ticket", s.handleWSTicket)

			r.Route("/playlists", func(r chi.Router) {
				r.Get("/", s.handleListPlaylists)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetPlaylist)
					r.Get("/events", s.handleListEvents)

					r.Post("/activate", s.handleActivate)
					r.Post("/deactivate", s.handleDeactivate)
					r.Post("/reset", s.handleReset)
					r.Post("/take", s.handleTake)
					r.Post("/next", s.handleNext)
					r.Post("/hold", s.handleHoldActivate)
					r.Delete("/hold", s.handleHoldDeactivate)
				})
			})

			r.Route("/ingest/{externalID}", func(r chi.Router) {
				r.Post("/", s.handleIngestPush)
				r.Delete("/", s.handleIngestRemove)
			})

			r.Get("/timeline", s.handleGetTimeline)
			r.Get("/system/health", s.handleSystemHealth)
		})
	})

	// WebSocket endpoint (authenticated via single-use tickets)
	wsPath := s.wsCfg.Path
	if wsPath == "" {
		wsPath = "/ws"
	}
	r.Get(wsPath, s.handleWebSocket)

	return r
}
