// Package http exposes a session manager over REST, Server-Sent Events and
// WebSocket sensor ingest.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aretw0/wayfinder"
	"github.com/aretw0/wayfinder/pkg/domain"
	"github.com/aretw0/wayfinder/pkg/ports"
	"github.com/aretw0/wayfinder/pkg/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Sessions is the subset of session.Manager the server uses.
type Sessions interface {
	Open(ctx context.Context, sessionID, routeID string, mode domain.FeedbackMode) (domain.Session, error)
	Resume(ctx context.Context, sessionID string) (domain.Session, error)
	Get(sessionID string) (*wayfinder.Engine, error)
	View(sessionID string) (wayfinder.View, error)
	Subscribe(sessionID string) (*wayfinder.Subscription, error)
	Close(ctx context.Context, sessionID string) error
	Delete(ctx context.Context, sessionID string) error
	List(ctx context.Context) ([]string, error)
	Load(ctx context.Context, sessionID string) (*domain.Session, error)
	Routes() ports.RouteRepository
}

// Server handles the HTTP surface.
type Server struct {
	Sessions Sessions
	Streams  *StreamManager

	gatherer prometheus.Gatherer
	logger   *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithStreams shares a stream manager, typically one whose Hooks are wired
// into the session manager.
func WithStreams(sm *StreamManager) Option {
	return func(s *Server) {
		s.Streams = sm
	}
}

// WithMetrics serves g on /metrics.
func WithMetrics(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewHandler creates the HTTP handler for a session manager.
func NewHandler(sessions Sessions, opts ...Option) http.Handler {
	s := &Server{
		Sessions: sessions,
		logger:   noopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.Streams == nil {
		s.Streams = NewStreamManager(s.logger)
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(enableCORS)

	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/events", s.SubscribeEvents)
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/routes", func(r chi.Router) {
		r.Get("/", s.ListRoutes)
		r.Get("/{routeID}", s.GetRoute)
	})

	r.Route("/sessions", func(r chi.Router) {
		r.Get("/", s.ListSessions)
		r.Post("/", s.OpenSession)
		r.Route("/{sessionID}", func(r chi.Router) {
			r.Get("/", s.GetSession)
			r.Delete("/", s.DeleteSession)
			r.Get("/view", s.GetView)
			r.Post("/resume", s.ResumeSession)
			r.Post("/stop", s.command(func(ctx context.Context, e *wayfinder.Engine) error { return e.Stop(ctx) }))
			r.Post("/advance", s.command(func(ctx context.Context, e *wayfinder.Engine) error { return e.Advance(ctx) }))
			r.Post("/reached", s.command(func(ctx context.Context, e *wayfinder.Engine) error { return e.MarkReached(ctx) }))
			r.Post("/steps", s.command(func(ctx context.Context, e *wayfinder.Engine) error { return e.IncrementStep(ctx) }))
			r.Post("/samples", s.PostSamples)
			r.Get("/ws", s.Ingest)
		})
	})
	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"app":     "wayfinder-http",
		"version": strings.TrimSpace(wayfinder.Version),
	})
}

// ListRoutes handles GET /routes.
func (s *Server) ListRoutes(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Sessions.Routes().ListRoutes(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ids)
}

// GetRoute handles GET /routes/{routeID}.
func (s *Server) GetRoute(w http.ResponseWriter, r *http.Request) {
	route, err := s.Sessions.Routes().GetRoute(r.Context(), chi.URLParam(r, "routeID"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, route)
}

// ListSessions handles GET /sessions.
func (s *Server) ListSessions(w http.ResponseWriter, r *http.Request) {
	ids, err := s.Sessions.List(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ids)
}

// OpenRequest is the body of POST /sessions.
type OpenRequest struct {
	SessionID string `json:"session_id,omitempty"`
	RouteID   string `json:"route_id"`
	Mode      string `json:"mode,omitempty"`
}

// OpenSession handles POST /sessions.
func (s *Server) OpenSession(w http.ResponseWriter, r *http.Request) {
	var body OpenRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		s.badRequest(w, "invalid request body", err)
		return
	}
	mode, err := domain.ParseFeedbackMode(body.Mode)
	if err != nil {
		s.writeError(w, err)
		return
	}

	snap, err := s.Sessions.Open(r.Context(), body.SessionID, body.RouteID, mode)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.broadcastDiff(nil, &snap)
	writeJSON(w, http.StatusCreated, snap)
}

// GetSession handles GET /sessions/{sessionID}.
// Running sessions answer with their live snapshot, others from the store.
func (s *Server) GetSession(w http.ResponseWriter, r *http.Request) {
	snap, err := s.Sessions.Load(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

// GetView handles GET /sessions/{sessionID}/view.
func (s *Server) GetView(w http.ResponseWriter, r *http.Request) {
	view, err := s.Sessions.View(chi.URLParam(r, "sessionID"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// DeleteSession handles DELETE /sessions/{sessionID}.
func (s *Server) DeleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.Sessions.Delete(r.Context(), chi.URLParam(r, "sessionID")); err != nil {
		s.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ResumeSession handles POST /sessions/{sessionID}/resume.
func (s *Server) ResumeSession(w http.ResponseWriter, r *http.Request) {
	snap, err := s.Sessions.Resume(r.Context(), chi.URLParam(r, "sessionID"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.broadcastDiff(nil, &snap)
	writeJSON(w, http.StatusOK, snap)
}

// command runs fn against a running session and answers with its new view.
func (s *Server) command(fn func(context.Context, *wayfinder.Engine) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		eng, err := s.Sessions.Get(chi.URLParam(r, "sessionID"))
		if err != nil {
			s.writeError(w, err)
			return
		}
		before := eng.Session()
		if err := fn(r.Context(), eng); err != nil {
			s.writeError(w, err)
			return
		}
		view := eng.View()
		s.broadcastDiff(&before, &view.Session)
		writeJSON(w, http.StatusOK, view)
	}
}

func (s *Server) broadcastDiff(before, after *domain.Session) {
	diff := domain.Diff(before, after)
	if diff == nil {
		return
	}
	if data, err := json.Marshal(diff); err == nil {
		s.Streams.Broadcast(after.ID, Message{Event: "diff", Data: string(data)})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error string `json:"error"`
}

// StatusFor maps domain errors onto HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrConfiguration):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrRouteNotFound),
		errors.Is(err, domain.ErrSessionNotFound),
		errors.Is(err, domain.ErrWaypointNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrSessionInactive):
		return http.StatusConflict
	case errors.Is(err, session.ErrNoStore):
		return http.StatusNotImplemented
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	if status >= http.StatusInternalServerError {
		s.logger.Error("request failed", "err", err)
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

func (s *Server) badRequest(w http.ResponseWriter, msg string, err error) {
	s.logger.Warn(msg, "err", err)
	writeJSON(w, http.StatusBadRequest, errorBody{Error: fmt.Sprintf("%s: %v", msg, err)})
}
