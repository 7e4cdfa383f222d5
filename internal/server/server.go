// Package server is the composition root: it opens the database, builds
// the asset store, wires repositories → services → handlers, and mounts
// the routes.
//
//	GET    /health                       public
//	GET    /metrics                      public, Prometheus
//	POST   /api/auth/register            public
//	POST   /api/auth/login               public
//	GET    /api/problems                 public
//	POST   /api/problems                 auth
//	GET    /api/problems/{id}            public
//	PUT    /api/problems/{id}            auth, owner
//	DELETE /api/problems/{id}            auth, owner
//	GET    /api/problems/{id}/solutions  public
//	POST   /api/problems/{id}/solutions  auth
//	POST   /api/solutions/{id}/upvote    auth
//	GET    /api/solutions/{id}/comments  public
//	POST   /api/solutions/{id}/comments  auth
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/sakif/problem-hub/internal/asset"
	"github.com/sakif/problem-hub/internal/auth"
	"github.com/sakif/problem-hub/internal/config"
	"github.com/sakif/problem-hub/internal/handler"
	"github.com/sakif/problem-hub/internal/middleware"
	sqliteRepo "github.com/sakif/problem-hub/internal/repository/sqlite"
	"github.com/sakif/problem-hub/internal/service"
)

// shutdownTimeout is how long in-flight requests get after SIGINT/SIGTERM.
const shutdownTimeout = 30 * time.Second

// Server owns the router and the resources it must release on shutdown.
type Server struct {
	router  *chi.Mux
	config  config.Config
	logger  *slog.Logger
	db      *sqliteRepo.DB
	assets  asset.Store
	metrics *middleware.Metrics
}

// New opens the database, connects the asset store and builds the router.
func New(cfg config.Config, logger *slog.Logger) (*Server, error) {
	db, err := sqliteRepo.New(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	assets, err := newAssetStore(cfg.Asset, logger)
	if err != nil {
		db.Close()
		return nil, err
	}

	s, err := newServer(cfg, logger, db, assets)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// newServer wires an already-open database and asset store. Tests use it
// with an in-memory database and a fake store.
func newServer(cfg config.Config, logger *slog.Logger, db *sqliteRepo.DB, assets asset.Store) (*Server, error) {
	s := &Server{
		router:  chi.NewRouter(),
		config:  cfg,
		logger:  logger,
		db:      db,
		assets:  assets,
		metrics: middleware.NewMetrics(),
	}
	if err := s.setupRoutes(); err != nil {
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

// newAssetStore returns a MinIO store with its bucket ready, or
// asset.Unavailable when no endpoint is configured.
func newAssetStore(cfg config.AssetConfig, logger *slog.Logger) (asset.Store, error) {
	if !cfg.Enabled() {
		logger.Warn("MINIO_ENDPOINT not set, image uploads are disabled")
		return asset.Unavailable{}, nil
	}

	store, err := asset.NewMinIOStore(cfg)
	if err != nil {
		return nil, err
	}
	if err := store.EnsureBucket(context.Background()); err != nil {
		return nil, fmt.Errorf("preparing asset bucket: %w", err)
	}

	logger.Info("asset store ready",
		slog.String("endpoint", cfg.Endpoint),
		slog.String("bucket", cfg.Bucket),
		slog.String("namespace", cfg.Namespace),
	)
	return store, nil
}

// setupRoutes configures middleware and routes. Middleware runs in the
// order it is added; the metrics middleware sits outside the logger so it
// also sees requests that panic and are recovered into a 500.
func (s *Server) setupRoutes() error {
	tokens, err := auth.NewTokenService(s.config.JWTSecret, s.config.TokenTTL)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}

	authService := service.NewAuthService(s.db, tokens, auth.NewPasswordService(), s.logger)
	problemService := service.NewProblemService(s.db, s.assets, s.logger)
	solutionService := service.NewSolutionService(s.db, s.db, s.logger)
	commentService := service.NewCommentService(s.db, s.db, s.logger)

	authHandler := handler.NewAuthHandler(authService, s.logger)
	problemHandler := handler.NewProblemHandler(problemService, s.logger)
	solutionHandler := handler.NewSolutionHandler(solutionService, s.logger)
	commentHandler := handler.NewCommentHandler(commentService, s.logger)
	healthHandler := handler.NewHealthHandler(s.db, s.config.Version, s.logger)

	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(s.metrics.Instrument)
	s.router.Use(middleware.Logger(s.logger))
	s.router.Use(chimiddleware.Recoverer)

	s.router.Get("/metrics", s.metrics.Handler().ServeHTTP)

	s.router.Group(func(r chi.Router) {
		// Store and asset calls inherit this deadline through r.Context().
		r.Use(chimiddleware.Timeout(s.config.RequestTimeout))

		r.Get("/health", healthHandler.HandleHealth)

		r.Route("/api", func(r chi.Router) {
			r.Post("/auth/register", authHandler.HandleRegister)
			r.Post("/auth/login", authHandler.HandleLogin)

			r.Get("/problems", problemHandler.HandleList)
			r.Get("/problems/{id}", problemHandler.HandleGet)
			r.Get("/problems/{id}/solutions", solutionHandler.HandleList)
			r.Get("/solutions/{id}/comments", commentHandler.HandleList)

			r.Group(func(r chi.Router) {
				r.Use(auth.RequireAuth(authService))

				r.Post("/problems", problemHandler.HandleCreate)
				r.Put("/problems/{id}", problemHandler.HandleUpdate)
				r.Delete("/problems/{id}", problemHandler.HandleDelete)
				r.Post("/problems/{id}/solutions", solutionHandler.HandleCreate)
				r.Post("/solutions/{id}/upvote", solutionHandler.HandleUpvote)
				r.Post("/solutions/{id}/comments", commentHandler.HandleCreate)
			})
		})
	})

	return nil
}

// Handler exposes the router, e.g. for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until SIGINT/SIGTERM, then drains in-flight requests and
// closes the database.
func (s *Server) Start() error {
	defer s.db.Close()

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.config.Port),
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       s.config.RequestTimeout,
		WriteTimeout:      s.config.RequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("server starting",
			slog.Int("port", s.config.Port),
			slog.String("database", s.config.DBPath),
			slog.String("version", s.config.Version),
		)
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}

	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}

	return nil
}
