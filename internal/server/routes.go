package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/stablehq/stablecast/internal/handler"
	"github.com/stablehq/stablecast/internal/middleware"
	"github.com/stablehq/stablecast/internal/ratelimit"
)

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	// Global middleware. Identity runs before Logger so request lines carry
	// the resolved user id.
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Identity)
	r.Use(middleware.Logger)
	r.Use(chimw.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-User-ID", "Last-Event-ID"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset", "Retry-After"},
		AllowCredentials: true,
	}))

	// Health checks (no identity, no limits)
	healthHandler := handler.NewHealthHandler(s.broker)
	r.Get("/health", healthHandler.Health)
	r.Get("/ready", healthHandler.Ready)

	streamHandler := handler.NewStreamHandler(s.broker, s.cfg.HeartbeatInterval)
	wsHandler := handler.NewWSHandler(s.broker, s.cfg.HeartbeatInterval, s.cfg.CORSOrigins)
	emitHandler := handler.NewEmitHandler(s.publisher)
	historyHandler := handler.NewHistoryHandler(s.broker)
	subHandler := handler.NewSubscriptionHandler(s.broker)
	statsHandler := handler.NewStatsHandler(s.broker)

	// WebSocket endpoint at root (no /api/v1 prefix for WS)
	r.Group(func(r chi.Router) {
		r.Use(s.floodGuard.Guard)
		r.Use(middleware.RequireIdentity)
		r.Get("/ws", wsHandler.Serve)
	})

	r.Route("/api/v1", func(r chi.Router) {
		// Streaming
		r.Group(func(r chi.Router) {
			r.Use(s.floodGuard.Guard)
			r.Use(middleware.RequireIdentity)
			r.Get("/stream", streamHandler.Stream)
		})

		// Events
		r.With(middleware.RateLimit(s.rateLimiter, "emit", ratelimit.Authenticated)).
			Post("/emit", emitHandler.Emit)
		r.With(middleware.RateLimit(s.rateLimiter, "emit", ratelimit.Authenticated)).
			Post("/emit/global", emitHandler.EmitGlobal)

		// Replay
		r.With(middleware.RateLimit(s.rateLimiter, "history", ratelimit.Authenticated)).
			Get("/history/{channel}", historyHandler.Get)

		// Subscriptions
		r.Group(func(r chi.Router) {
			r.Use(middleware.RateLimit(s.rateLimiter, "subscriptions", ratelimit.Authenticated))
			r.Post("/subscriptions", subHandler.Subscribe)
			r.Delete("/subscriptions", subHandler.Unsubscribe)
			r.Delete("/connections/{id}", subHandler.Disconnect)
		})

		// Stats (admin dashboard)
		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireIdentity)
			r.Use(middleware.RateLimit(s.rateLimiter, "stats", ratelimit.Admin))
			r.Get("/stats/realtime", statsHandler.Realtime)
		})
	})

	return r
}
