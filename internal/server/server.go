package server

import (
	"context"
	"net/http"

	"github.com/stablehq/stablecast/internal/config"
	"github.com/stablehq/stablecast/internal/events"
	"github.com/stablehq/stablecast/internal/middleware"
	"github.com/stablehq/stablecast/internal/ratelimit"
	"github.com/stablehq/stablecast/internal/realtime"
)

// Server is the HTTP server. It owns the process-lifetime singletons: the
// event broker, the rate limiter and the connection flood guard.
type Server struct {
	cfg         *config.Config
	broker      *realtime.Broker
	publisher   *events.Publisher
	rateLimiter *ratelimit.Limiter
	floodGuard  *middleware.FloodGuard
	server      *http.Server
}

// New creates a Server and its owned components.
func New(cfg *config.Config) *Server {
	broker := realtime.New(realtime.Config{
		HistorySize: cfg.HistorySize,
		SendBuffer:  cfg.SendBuffer,
	})

	guardCfg := middleware.DefaultFloodGuardConfig()
	if cfg.ConnectRatePerSecond > 0 {
		guardCfg.RatePerSecond = cfg.ConnectRatePerSecond
	}
	if cfg.ConnectBurst > 0 {
		guardCfg.Burst = cfg.ConnectBurst
	}

	s := &Server{
		cfg:         cfg,
		broker:      broker,
		publisher:   events.NewPublisher(broker),
		rateLimiter: ratelimit.New(cfg.RateCleanupInterval),
		floodGuard:  middleware.NewFloodGuard(guardCfg),
	}

	s.server = &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: s.routes(),
	}
	return s
}

// Broker exposes the event broker to in-process collaborators.
func (s *Server) Broker() *realtime.Broker {
	return s.broker
}

// Publisher exposes the publishing facade to in-process collaborators.
func (s *Server) Publisher() *events.Publisher {
	return s.publisher
}

// Start runs the HTTP server until Shutdown is called.
func (s *Server) Start() error {
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown drains HTTP, drops live connections and stops background timers.
func (s *Server) Shutdown(ctx context.Context) error {
	s.broker.Close()
	err := s.server.Shutdown(ctx)
	s.rateLimiter.Stop()
	s.floodGuard.Stop()
	return err
}
