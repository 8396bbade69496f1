package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/relaywell/cligateway/internal/auth"
	"github.com/relaywell/cligateway/internal/ratelimit"
)

type Server struct {
	Router *chi.Mux
	Port   int
	logger *slog.Logger
}

// New builds the router and mounts every middleware and route. authenticator
// and limiter may be disabled (see their Enabled() methods); their
// middleware is always mounted and becomes a no-op in that case.
func New(port int, logger *slog.Logger, h *Handler, authenticator *auth.Authenticator, limiter *ratelimit.Limiter) *Server {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(logger))
	r.Use(MetricsMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(next, "cligateway")
	})

	// Scraped by infrastructure, not by gateway clients: no API key or
	// rate-limit gate.
	r.Handle("/metrics", MetricsHandler())

	r.Group(func(api chi.Router) {
		api.Use(auth.Middleware(authenticator))
		api.Use(ratelimit.Middleware(limiter))
		api.Use(TimeoutMiddleware(30 * time.Second))
		RegisterRoutes(api, h)
	})

	return &Server{
		Router: r,
		Port:   port,
		logger: logger,
	}
}

func (s *Server) Start() error {
	s.logger.Info("starting server", slog.Int("port", s.Port))
	return http.ListenAndServe(fmt.Sprintf(":%d", s.Port), s.Router)
}
