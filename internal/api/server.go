// Package api provides the HTTP REST API and WebSocket server for the playback daemon.
//
// The server follows the same lifecycle pattern as other infrastructure components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/nerrad567/playback-core/internal/auth"
	"github.com/nerrad567/playback-core/internal/catalog"
	"github.com/nerrad567/playback-core/internal/driver"
	"github.com/nerrad567/playback-core/internal/infrastructure/config"
	"github.com/nerrad567/playback-core/internal/infrastructure/logging"
	"github.com/nerrad567/playback-core/internal/journal"
	"github.com/nerrad567/playback-core/internal/lifecycle"
	"github.com/nerrad567/playback-core/internal/record"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// SourceAPI tags commands issued over HTTP in the journal.
const SourceAPI = "api"

// Loop is the part of the lifecycle loop the API drives.
type Loop interface {
	Submit(ctx context.Context, req lifecycle.Request) (lifecycle.Result, error)
	Status(ctx context.Context) (lifecycle.Status, error)
	Do(ctx context.Context, fn func(*lifecycle.Coordinator)) error
}

// Selections reads and cycles the persisted backend selection.
type Selections interface {
	Selected(c driver.Category) string
	Persisted(c driver.Category) bool
	Set(ctx context.Context, c driver.Category, name string) error
	Reset(ctx context.Context, c driver.Category) error
	Next(ctx context.Context, c driver.Category) (string, error)
	Previous(ctx context.Context, c driver.Category) (string, error)
}

// BackendLister lists the registered backends of a category in order.
type BackendLister interface {
	Names(c driver.Category) []string
}

// Recordings controls the recording session.
type Recordings interface {
	Current() (record.Session, bool)
	Start(av lifecycle.AVInfo) error
	Stop() error
	Sessions(ctx context.Context, limit int) ([]record.Session, error)
}

// ConnectionChecker reports whether an optional broker connection is up.
type ConnectionChecker interface {
	IsConnected() bool
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config      config.APIConfig
	WS          config.WebSocketConfig
	Security    config.SecurityConfig
	Logger      *logging.Logger
	Loop        Loop
	Selections  Selections
	Backends    BackendLister
	Catalog     *catalog.Catalog
	Journal     journal.Repository
	Recordings  Recordings        // optional
	Operators   *auth.Directory
	DB          *sql.DB           // optional: pool stats for /metrics
	MQTT        ConnectionChecker // optional
	InfluxDB    ConnectionChecker // optional
	ExternalHub *Hub              // If set, the caller runs it and the server does not
	Version     string
}

// Server is the HTTP API server of the playback daemon.
//
// It manages the HTTP listener, routes, middleware, and WebSocket hub.
// The server is created with New() and started with Start().
type Server struct {
	cfg         config.APIConfig
	wsCfg       config.WebSocketConfig
	secCfg      config.SecurityConfig
	logger      *logging.Logger
	loop        Loop
	selections  Selections
	backends    BackendLister
	catalog     *catalog.Catalog
	journal     journal.Repository
	recordings  Recordings
	operators   *auth.Directory
	db          *sql.DB
	mqtt        ConnectionChecker
	influx      ConnectionChecker
	version     string
	startTime   time.Time
	tickets     *ticketStore
	server      *http.Server
	hub         *Hub
	externalHub bool               // true if hub was injected externally
	cancel      context.CancelFunc // cancels background goroutines on Close()
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Loop == nil {
		return nil, fmt.Errorf("lifecycle loop is required")
	}
	if deps.Selections == nil || deps.Backends == nil {
		return nil, fmt.Errorf("driver selections and backends are required")
	}
	if deps.Catalog == nil {
		return nil, fmt.Errorf("core catalog is required")
	}
	if deps.Journal == nil {
		return nil, fmt.Errorf("journal repository is required")
	}
	if deps.Operators == nil {
		return nil, fmt.Errorf("operator directory is required")
	}

	s := &Server{
		cfg:        deps.Config,
		wsCfg:      deps.WS,
		secCfg:     deps.Security,
		logger:     deps.Logger,
		loop:       deps.Loop,
		selections: deps.Selections,
		backends:   deps.Backends,
		catalog:    deps.Catalog,
		journal:    deps.Journal,
		recordings: deps.Recordings,
		operators:  deps.Operators,
		db:         deps.DB,
		mqtt:       deps.MQTT,
		influx:     deps.InfluxDB,
		version:    deps.Version,
		startTime:  time.Now(),
		tickets:    newTicketStore(),
	}

	// The hub is usually created by the caller, because it must be
	// registered as a lifecycle observer before the loop starts.
	if deps.ExternalHub != nil {
		s.hub = deps.ExternalHub
		s.externalHub = true
	}

	return s, nil
}

// Hub returns the WebSocket hub, or nil before Start when none was injected.
func (s *Server) Hub() *Hub {
	return s.hub
}

// Start begins listening for HTTP connections.
//
// It sets up the router, starts the WebSocket hub when the server owns it,
// and launches the HTTP listener in a background goroutine. The server can
// be stopped with Close().
func (s *Server) Start(ctx context.Context) error {
	// Internal context so Close() can stop background goroutines
	// independently of the parent context.
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	if s.hub == nil {
		s.hub = NewHub(s.wsCfg, s.logger)
	}
	if !s.externalHub {
		go s.hub.Run(srvCtx)
	}

	// Periodic ticket cleanup
	go s.cleanTicketsLoop(srvCtx)

	router := s.buildRouter()

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           router,
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", s.server.Addr,
				"cert", s.cfg.TLS.CertFile,
			)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			s.logger.Info("API server starting", "address", s.server.Addr)
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

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

	// Cancel background goroutines (hub, ticket cleanup)
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
