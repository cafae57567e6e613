// Package api provides the HTTP REST API and WebSocket server for the
// playout core.
//
// It exposes playlist control operations (activate, take, next, hold),
// NRCS ingest push, timeline reads, and system health to producer UIs and
// automation clients.
//
// The server follows the same lifecycle pattern as other infrastructure
// components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nerrad567/onair-core/internal/gateway"
	"github.com/nerrad567/onair-core/internal/infrastructure/config"
	"github.com/nerrad567/onair-core/internal/infrastructure/logging"
	"github.com/nerrad567/onair-core/internal/ingest"
	"github.com/nerrad567/onair-core/internal/playout"
	"github.com/nerrad567/onair-core/internal/rundown"
	"github.com/nerrad567/onair-core/internal/timeline"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// HealthChecker reports the liveness of an infrastructure component.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   config.APIConfig
	WS       config.WebSocketConfig
	StudioID string
	Version  string

	Logger    *logging.Logger
	Playout   *playout.Service
	Ingest    *ingest.Service
	Repo      rundown.Repository
	Timelines timeline.Repository

	// Gateways may be nil when no gateway status subscription is wired.
	Gateways *gateway.Tracker

	// Broker may be nil; the health endpoint then omits the MQTT component.
	Broker HealthChecker
}

// Server is the HTTP API server for the playout core.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg       config.APIConfig
	wsCfg     config.WebSocketConfig
	studioID  string
	version   string
	logger    *logging.Logger
	playout   *playout.Service
	ingest    *ingest.Service
	repo      rundown.Repository
	timelines timeline.Repository
	gateways  *gateway.Tracker
	broker    HealthChecker

	server  *http.Server
	hub     *Hub
	tickets *ticketStore
	cancel  context.CancelFunc
}

// New creates a new API server with the given dependencies.
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Playout == nil {
		return nil, fmt.Errorf("playout service is required")
	}
	if deps.Repo == nil {
		return nil, fmt.Errorf("rundown repository is required")
	}

	return &Server{
		cfg:       deps.Config,
		wsCfg:     deps.WS,
		studioID:  deps.StudioID,
		version:   deps.Version,
		logger:    deps.Logger,
		playout:   deps.Playout,
		ingest:    deps.Ingest,
		repo:      deps.Repo,
		timelines: deps.Timelines,
		gateways:  deps.Gateways,
		broker:    deps.Broker,
		tickets:   newTicketStore(),
	}, nil
}

// Start begins listening for HTTP connections.
//
// It sets up the router, starts the WebSocket hub, and launches the HTTP
// listener in a background goroutine. The server can be stopped with Close().
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	s.hub = NewHub(s.wsCfg, s.logger)
	go s.hub.Run(srvCtx)

	// Relay gateway transitions to subscribed WebSocket clients.
	if s.gateways != nil {
		s.gateways.SetOnChange(func(st gateway.Status) {
			s.hub.Broadcast(ChannelGatewayStatus, st)
		})
	}

	go s.cleanTicketsLoop(srvCtx)

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		err := s.server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	s.logger.Info("API server started", "address", s.server.Addr)
	return nil
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running and responsive.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}

// EventHub exposes the WebSocket hub for event relays wired outside the server.
// Returns nil before Start().
func (s *Server) EventHub() *Hub {
	return s.hub
}
