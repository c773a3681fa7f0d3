// Package server exposes sessions, discount claims, analytics ingestion and
// server-hosted play over HTTP.
package server

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jason-s-yu/crazyaces/internal/analytics"
	"github.com/jason-s-yu/crazyaces/internal/auth"
	"github.com/jason-s-yu/crazyaces/internal/claim"
	"github.com/jason-s-yu/crazyaces/internal/ratelimit"
	"github.com/jason-s-yu/crazyaces/internal/session"
	"github.com/sirupsen/logrus"
)

// Limits configures per-IP request limits. A zero limit disables limiting.
type Limits struct {
	Session int
	Claim   int
	Window  time.Duration
}

// GameOptions tunes server-hosted games.
type GameOptions struct {
	HandSize  int
	StepDelay time.Duration
	IdleTTL   time.Duration // how long a disconnected game is kept for a reconnect
}

// Deps wires a Server.
type Deps struct {
	Sessions       *session.Service
	Claims         *claim.Service
	Tickets        *auth.Tickets
	Limiter        ratelimit.Limiter
	Tracker        analytics.Tracker
	AllowedOrigins []string
	Limits         Limits
	Game           GameOptions
	Log            *logrus.Entry
}

// Server holds the HTTP handlers and the registry of hosted games.
type Server struct {
	sessions *session.Service
	claims   *claim.Service
	tickets  *auth.Tickets
	limiter  ratelimit.Limiter
	tracker  analytics.Tracker
	origins  map[string]struct{}
	limits   Limits
	games    *registry
	log      *logrus.Entry
}

// New builds a Server from d.
func New(d Deps) *Server {
	if d.Log == nil {
		d.Log = logrus.NewEntry(logrus.StandardLogger())
	}
	if d.Tracker == nil {
		d.Tracker = analytics.Nop{}
	}
	if d.Limiter == nil {
		d.Limiter = ratelimit.NewMemoryLimiter()
	}
	if d.Limits.Window <= 0 {
		d.Limits.Window = time.Minute
	}
	if d.Game.IdleTTL <= 0 {
		d.Game.IdleTTL = 5 * time.Minute
	}
	origins := make(map[string]struct{}, len(d.AllowedOrigins))
	for _, o := range d.AllowedOrigins {
		origins[o] = struct{}{}
	}
	return &Server{
		sessions: d.Sessions,
		claims:   d.Claims,
		tickets:  d.Tickets,
		limiter:  d.Limiter,
		tracker:  d.Tracker,
		origins:  origins,
		limits:   d.Limits,
		games:    newRegistry(d.Game, d.Tracker, d.Log.WithField("component", "games")),
		log:      d.Log,
	}
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(s.cors)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "time": time.Now().UTC().Format(time.RFC3339)})
	})

	r.With(s.rateLimit("session", s.limits.Session)).Post("/session", s.postSession)
	r.Get("/session", s.getSession)
	r.With(s.rateLimit("claim", s.limits.Claim)).Post("/claim-discount", s.postClaim)
	r.Method(http.MethodPost, "/analytics", analytics.NewHandler(s.tracker))

	r.Route("/game", func(r chi.Router) {
		r.With(s.rateLimit("session", s.limits.Session)).Post("/ticket", s.postTicket)
		r.Get("/ws", s.serveGame)
	})
	return r
}

// Close disconnects every hosted game.
func (s *Server) Close() { s.games.closeAll() }
