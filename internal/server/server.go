package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/park285/lootsync/internal/catalog"
	"github.com/park285/lootsync/internal/config"
	"github.com/park285/lootsync/internal/history"
	"github.com/park285/lootsync/internal/hub"
	"github.com/park285/lootsync/internal/lootlog"
	"github.com/park285/lootsync/internal/metrics"
	"github.com/park285/lootsync/internal/msgcat"
	"github.com/park285/lootsync/internal/obslog"
)

// Deps are the collaborators the HTTP surface routes into.
type Deps struct {
	Catalog  *catalog.Catalog
	Parser   *lootlog.Parser
	Hub      *hub.Hub
	History  history.Store
	Messages *msgcat.Catalog
}

type Server struct {
	httpServer *http.Server
	cfg        *config.AppConfig
	deps       Deps
	validate   *validator.Validate
	log        *zap.Logger
}

func New(cfg *config.AppConfig, deps Deps) *Server {
	if deps.History == nil {
		deps.History = history.Nop{}
	}
	if deps.Messages == nil {
		deps.Messages = msgcat.MustDefault()
	}
	s := &Server{
		cfg:      cfg,
		deps:     deps,
		validate: validator.New(),
		log:      obslog.Named("http"),
	}
	s.httpServer = &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware(s.cfg.AllowedOrigins))
	r.Use(metrics.Middleware)
	r.Use(requestLogger(s.log))

	r.Get("/healthz", s.handleHealthz)
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/upload", s.handleUpload)
	r.Get("/ws", s.deps.Hub.ServeWS)

	r.Route("/api", func(r chi.Router) {
		r.Get("/loot", s.handleLoot)
		r.Get("/history", s.handleHistory)
		r.Post("/items/search", s.handleSearch)
	})

	if dir := strings.TrimSpace(s.cfg.StaticDir); dir != "" {
		r.Handle("/*", http.FileServer(http.Dir(dir)))
	}
	return r
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

// Start blocks until the listener fails or Stop is called.
func (s *Server) Start() error {
	s.log.Info("server_listening", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
