// Package http serves the report API: login, submission, listing and the
// master report export.
package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"teamreports/internal/auth"
	"teamreports/internal/cache"
	"teamreports/internal/log"
	"teamreports/internal/metrics"
	"teamreports/internal/middleware/ratelimit"
	"teamreports/internal/middleware/security"
	"teamreports/internal/middleware/trace"
	"teamreports/internal/services"
	"teamreports/internal/store"
)

// Deps are the services the handlers call.
type Deps struct {
	Reports *services.ReportService
	Exports *services.ExportService
	Auth    *services.AuthService
	Tokens  *auth.TokenIssuer
	Users   store.UserStore
	// Pinger backs /readyz; nil means always ready.
	Pinger  store.Pinger
	Metrics *metrics.Metrics
	Logger  *log.Logger

	RateLimitPerMinute int
	// UserCacheTTL caches the per-request account lookup; zero disables it.
	UserCacheTTL       time.Duration
}

type Server struct {
	http.Server
	deps     Deps
	limiter  *ratelimit.Limiter
	detector *security.Detector
	events   *log.StructuredLogger
}

func NewServer(addr string, deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = log.New(log.DefaultConfig())
	}
	s := &Server{
		deps:     deps,
		limiter:  ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: deps.RateLimitPerMinute}),
		detector: security.NewDetector(),
		events:   log.NewStructuredLogger(deps.Logger.WithComponent(log.ComponentHTTP)),
	}
	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	tracer := trace.NewMiddleware(s.detector.ExtractClientIP, s.events, s.observe)
	var users auth.UserFinder = s.deps.Users
	if s.deps.UserCacheTTL > 0 {
		users = cache.NewUsers(s.deps.Users, 1024, s.deps.UserCacheTTL)
	}
	authn := auth.NewAuthenticator(s.deps.Tokens, users, writeAuthError)
	throttle := s.limiter.Middleware(s.detector.ExtractClientIP, s.onRateLimited)

	r.Use(tracer.Middleware)
	r.Use(middleware.Recoverer)
	r.Use(log.Middleware(s.deps.Logger, trace.FromRequest))
	r.Use(security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware)
	r.Use(s.detector.Middleware)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, CodeNotFound, "no such route")
	})

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", s.handleReady)
	r.Method(http.MethodGet, "/metrics", s.deps.Metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.With(throttle).Post("/auth/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(authn.Middleware)
			r.Get("/auth/me", s.handleMe)

			r.With(throttle, authn.Require(auth.ReportSubmitters)).Post("/reports", s.handleSubmitReport)

			r.Group(func(r chi.Router) {
				r.Use(authn.Require(auth.ReportViewers))
				r.Get("/reports", s.handleListReports)
				r.Get("/reports/master", s.handleMasterReport)
			})
		})
	})

	return r
}

func (s *Server) observe(r *http.Request, status int, elapsed time.Duration) {
	route := ""
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		route = rctx.RoutePattern()
	}
	s.deps.Metrics.ObserveHTTP(r.Method, route, status, elapsed)
}

func (s *Server) onRateLimited(w http.ResponseWriter, r *http.Request) {
	s.deps.Metrics.RateLimited()
	writeError(w, r, http.StatusTooManyRequests, CodeRateLimited, "rate limit exceeded, please try again later")
}

// Shutdown stops the rate limiter's cleanup loop and then the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	s.limiter.Stop()
	return s.Server.Shutdown(ctx)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	if s.deps.Pinger != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := s.deps.Pinger.Ping(ctx); err != nil {
			s.events.LogError(r.Context(), "Readiness check failed", err, "ready", nil)
			writeError(w, r, http.StatusServiceUnavailable, CodeNotReady, "record store unavailable")
			return
		}
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ready"))
}
