package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/sandevgo/docportal/internal/config"
	"github.com/sandevgo/docportal/internal/core"
	"github.com/sandevgo/docportal/internal/providers/rag"
	"github.com/sandevgo/docportal/internal/service/session"
	"github.com/sandevgo/docportal/pkg/log"
)

type orchestrator interface {
	Handle(ctx context.Context, s *session.Session, text string, sink core.Sink) error
	Ingest(ctx context.Context, s *session.Session, doc core.Document, sink core.Sink) error
}

type sessionStore interface {
	Create() *session.Session
	Get(id string) (*session.Session, error)
	Delete(ctx context.Context, id string) error
}

// Server exposes sessions over HTTP/JSON with an SSE variant for streaming replies.
type Server struct {
	cfg      *config.HTTPConfig
	orch     orchestrator
	sessions sessionStore
	router   core.CmdRouter
	limits   rag.Limits
	metrics  http.Handler
	limiter  *limiterPool

	srv *http.Server
}

type Option func(*Server)

// WithCommands routes slash commands sent as messages.
func WithCommands(router core.CmdRouter) Option {
	return func(s *Server) {
		s.router = router
	}
}

// WithMetrics serves h on /metrics.
func WithMetrics(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

func NewServer(
	cfg *config.HTTPConfig,
	orch orchestrator,
	sessions sessionStore,
	limits rag.Limits,
	opts ...Option,
) *Server {
	s := &Server{
		cfg:      cfg,
		orch:     orch,
		sessions: sessions,
		limits:   limits,
		limiter:  newLimiterPool(cfg.RateLimitRPS, cfg.RateLimitBurst),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.srv = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
	return s
}

// Handler builds the routing tree. Only /api is rate limited.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", healthz).Methods(http.MethodGet)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics).Methods(http.MethodGet)
	}

	api := r.PathPrefix("/api").Subrouter()
	api.Use(s.limiter.middleware)
	api.HandleFunc("/sessions", s.createSession).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}", s.getSession).Methods(http.MethodGet)
	api.HandleFunc("/sessions/{id}", s.deleteSession).Methods(http.MethodDelete)
	api.HandleFunc("/sessions/{id}/document", s.uploadDocument).Methods(http.MethodPost)
	api.HandleFunc("/sessions/{id}/messages", s.postMessage).Methods(http.MethodPost)

	return withCORS(s.cfg.AllowedOrigins, logRequests(r))
}

func (s *Server) Start(ctx context.Context) error {
	s.srv.BaseContext = func(net.Listener) context.Context { return ctx }

	log.FromCtx(ctx).Info().Str("addr", s.cfg.Addr).Msg("starting http server")
	if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

func healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok", "version": core.PortalVersion})
}
