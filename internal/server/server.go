// Package server exposes the tracker and account services over HTTP.
package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/lifestats/lifestats/internal/account"
	"github.com/lifestats/lifestats/internal/mcp"
	"github.com/lifestats/lifestats/internal/ratelimit"
	"github.com/lifestats/lifestats/internal/tracker"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Limiters holds the rate limiters applied by the server. A nil limiter
// disables that limit.
type Limiters struct {
	// Signup is shared by every caller under the key "signup".
	Signup *ratelimit.Limiter
	// PerUser is keyed by authenticated user ID.
	PerUser *ratelimit.Limiter
}

// Server holds dependencies for HTTP handlers.
type Server struct {
	accounts *account.Service
	tracker  *tracker.Service
	store    Pinger
	limits   Limiters
	log      *slog.Logger
	router   chi.Router
	mcp      http.Handler
}

// New creates a new Server with all routes configured.
func New(accounts *account.Service, trk *tracker.Service, store Pinger, limits Limiters, log *slog.Logger) *Server {
	s := &Server{
		accounts: accounts,
		tracker:  trk,
		store:    store,
		limits:   limits,
		log:      log,
		router:   chi.NewRouter(),
	}
	s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

// SetMCP serves m over streamable HTTP at /mcp. Tool calls run as the
// authenticated user.
func (s *Server) SetMCP(m *mcpserver.MCPServer) {
	s.mcp = mcpserver.NewStreamableHTTPServer(m,
		mcpserver.WithStateLess(true),
		mcpserver.WithHTTPContextFunc(func(ctx context.Context, r *http.Request) context.Context {
			if u := userFromContext(r.Context()); u != nil {
				return mcp.WithUserID(ctx, u.ID)
			}
			return ctx
		}),
	)
}

func (s *Server) routes() {
	s.router.Use(RequestLogging(s.log))
	s.router.Use(CORS)

	s.router.Get("/", s.handleRoot)
	s.router.Get("/healthz", s.handleHealth)
	s.router.With(RateLimit(s.limits.Signup, signupKey)).Post("/api/signup", s.handleSignup)

	s.router.Group(func(r chi.Router) {
		r.Use(BearerAuth(s.accounts, s.log))
		r.Use(RateLimit(s.limits.PerUser, userKey))

		r.Get("/api/me", s.handleMe)

		r.Route("/api/keys/{username}", func(r chi.Router) {
			r.Use(SameUser)
			r.Get("/", s.handleListKeys)
			r.Post("/", s.handleIssueKey)
			r.Delete("/", s.handleRevokeKey)
			r.Delete("/{id}", s.handleRevokeKeyByID)
		})
		r.With(SameUser).Delete("/api/user/{username}", s.handleDeleteUser)

		r.Get("/api/metrics/config", s.handleMetricsConfig)
		r.Patch("/api/metrics/config/{key}", s.handleUpdateMetricConfig)
		r.Get("/api/metrics", s.handleGetMetrics)
		r.Post("/api/metrics", s.handleRecordEntry)
		r.Get("/api/metrics/entries", s.handleRecentEntries)
		r.Delete("/api/metrics/entries/{id}", s.handleDeleteEntry)

		r.Get("/api/goals", s.handleGetGoals)
		r.Post("/api/goals", s.handleSetGoal)
		r.Get("/api/goals/history", s.handleGoalHistory)

		r.Handle("/mcp", http.HandlerFunc(s.handleMCP))
	})
}

func (s *Server) handleMCP(w http.ResponseWriter, r *http.Request) {
	if s.mcp == nil {
		writeError(w, http.StatusNotFound, "MCP endpoint is not enabled")
		return
	}
	s.mcp.ServeHTTP(w, r)
}
