package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/nerrad567/homealone/internal/dispatch"
	"github.com/nerrad567/homealone/internal/history"
	"github.com/nerrad567/homealone/internal/infrastructure/config"
	"github.com/nerrad567/homealone/internal/infrastructure/logging"
	"github.com/nerrad567/homealone/internal/relay"
	"github.com/nerrad567/homealone/internal/schedule"
)

// gracefulShutdownTimeout bounds the wait for in-flight requests on Close.
const gracefulShutdownTimeout = 10 * time.Second

// JobLister exposes the scheduled jobs. *schedule.Scheduler implements it.
type JobLister interface {
	Jobs() []schedule.Job
	Job(id string) (schedule.Job, error)
	Next(id string) (time.Time, error)
}

// HistoryLister reads send history. *history.SQLiteRepository implements it.
type HistoryLister interface {
	List(ctx context.Context, filter history.Filter) (*history.ListResult, error)
}

// StatsProvider reports sender counters. *relay.Sender implements it.
type StatsProvider interface {
	Stats() relay.SenderStats
}

// ConnectionChecker reports whether an optional connection is up.
type ConnectionChecker interface {
	IsConnected() bool
}

// Deps holds the dependencies of the API server. Only Logger and Dispatcher
// are required. Hub enables the /ws event stream.
type Deps struct {
	Config     config.APIConfig
	Logger     *logging.Logger
	Dispatcher dispatch.Executor
	Jobs       JobLister
	History    HistoryLister
	Stats      StatsProvider
	MQTT       ConnectionChecker
	Hub        *Hub
	Version    string
}

// Server is the HTTP API server.
type Server struct {
	cfg        config.APIConfig
	logger     *logging.Logger
	dispatcher dispatch.Executor
	jobs       JobLister
	history    HistoryLister
	stats      StatsProvider
	mqtt       ConnectionChecker
	hub        *Hub
	version    string
	startTime  time.Time
	server     *http.Server
	listener   net.Listener
}

// New creates a server. It does not listen until Start is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}

	return &Server{
		cfg:        deps.Config,
		logger:     deps.Logger,
		dispatcher: deps.Dispatcher,
		jobs:       deps.Jobs,
		history:    deps.History,
		stats:      deps.Stats,
		mqtt:       deps.MQTT,
		hub:        deps.Hub,
		version:    deps.Version,
		startTime:  time.Now(),
	}, nil
}

// Start binds the listener and serves in the background. A port that
// cannot be bound is reported here rather than logged later.
func (s *Server) Start(_ context.Context) error {
	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	s.listener = ln

	s.server = &http.Server{
		Handler:           s.buildRouter(),
		ReadTimeout:       time.Duration(s.cfg.Timeouts.Read) * time.Second,
		ReadHeaderTimeout: time.Duration(s.cfg.Timeouts.Read) * time.Second,
		WriteTimeout:      time.Duration(s.cfg.Timeouts.Write) * time.Second,
		IdleTimeout:       time.Duration(s.cfg.Timeouts.Idle) * time.Second,
	}

	s.logger.Info("API server listening",
		"address", ln.Addr().String(),
		"auth", s.cfg.Auth.JWTSecret != "",
	)

	go func() {
		if err := s.server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// Addr returns the bound address, or "" before Start.
func (s *Server) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Close waits up to 10 seconds for in-flight requests, then closes the
// remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck reports whether the server has been started.
func (s *Server) HealthCheck(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("api health check: %w", err)
	}
	if s.server == nil {
		return fmt.Errorf("api server not started")
	}
	return nil
}
