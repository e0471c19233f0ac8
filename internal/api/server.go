package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/nerrad567/gamepad-io/internal/controller"
	"github.com/nerrad567/gamepad-io/internal/infrastructure/config"
	"github.com/nerrad567/gamepad-io/internal/infrastructure/logging"
	"github.com/nerrad567/gamepad-io/internal/relay"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Engine is the relay surface the API drives. *relay.Engine implements it.
type Engine interface {
	Attach(ctx context.Context, sub relay.Subscriber) error
	Detach(ctx context.Context, sub relay.Subscriber) error
	Join(ctx context.Context, sub relay.Subscriber, identifier string) error
	Leave(ctx context.Context, sub relay.Subscriber, identifier string) error
	Haptic(ctx context.Context, identifier, hapticType string, params json.RawMessage) error
	Snapshot(ctx context.Context) ([]controller.Record, error)
	Lookup(ctx context.Context, identifier string) (controller.Record, bool, error)
	Stats(ctx context.Context) (relay.Stats, error)
	Version() string
}

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config config.APIConfig
	WS     config.WebSocketConfig
	Logger *logging.Logger
	Engine Engine
}

// Server is the HTTP API and WebSocket server.
type Server struct {
	cfg      config.APIConfig
	wsCfg    config.WebSocketConfig
	logger   *logging.Logger
	engine   Engine
	server   *http.Server
	listener net.Listener
	hub      *Hub
	cancel   context.CancelFunc
}

// New creates a new API server with the given dependencies.
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Engine == nil {
		return nil, fmt.Errorf("relay engine is required")
	}

	wsCfg := deps.WS
	if wsCfg.Path == "" {
		wsCfg.Path = "/ws"
	}

	return &Server{
		cfg:    deps.Config,
		wsCfg:  wsCfg,
		logger: deps.Logger,
		engine: deps.Engine,
		hub:    NewHub(wsCfg, deps.Logger),
	}, nil
}

// Start binds the listener and serves in a background goroutine.
// The listener is bound synchronously so a port in use fails here.
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)
	s.hub.ctx = srvCtx
	go s.hub.Run(srvCtx)

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	ln, err := net.Listen("tcp", s.server.Addr)
	if err != nil {
		s.cancel()
		return fmt.Errorf("listening on %s: %w", s.server.Addr, err)
	}
	s.listener = ln

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", ln.Addr().String(),
				"cert", s.cfg.TLS.CertFile,
			)
			err = s.server.ServeTLS(ln, s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			s.logger.Info("API server starting", "address", ln.Addr().String())
			err = s.server.Serve(ln)
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Addr returns the bound listener address, or "" before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Close gracefully shuts down the API server, disconnecting all sockets.
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

// HealthCheck verifies the API server is running and the engine answers.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}
	if _, err := s.engine.Stats(ctx); err != nil {
		return fmt.Errorf("api health check: %w", err)
	}
	return nil
}
