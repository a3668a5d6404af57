package server

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"time"

	"phishing-admin/internal/config"
	"phishing-admin/internal/handler"
	"phishing-admin/internal/middleware"
	"phishing-admin/internal/notify"
	"phishing-admin/internal/repository"
	"phishing-admin/internal/service"
	"phishing-admin/internal/web"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const apiPrefix = "/api/v1/admin"

type Server struct {
	router *gin.Engine
	cfg    *config.Config
	store  repository.Database
	logger *zap.Logger
}

func NewServer(cfg *config.Config, store repository.Database, notifier notify.Notifier, logger *zap.Logger) (*Server, error) {
	gin.SetMode(cfg.Server.Mode)
	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestLogger(logger), middleware.CORS(cfg.Server.CORSOrigin))

	s := &Server{
		router: router,
		cfg:    cfg,
		store:  store,
		logger: logger,
	}

	if err := s.setupRoutes(notifier); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Server) setupRoutes(notifier notify.Notifier) error {
	authService, err := service.NewAuthService(service.AuthOptions{
		Password:         s.cfg.Auth.Password,
		PasswordHash:     s.cfg.Auth.PasswordHash,
		FallbackPassword: s.cfg.Auth.FallbackPassword,
		JWTSecret:        s.cfg.Auth.JWTSecret,
		TokenTTL:         s.cfg.Auth.TokenTTL,
	}, s.logger)
	if err != nil {
		return err
	}
	authHandler := handler.NewAuthHandler(authService, s.logger)

	reviewRepo := s.store.Reviews()
	reviewService := service.NewReviewService(reviewRepo, notifier, service.ReviewOptions{
		PendingLimit:   s.cfg.Review.PendingLimit,
		Timeout:        s.cfg.Database.Timeout,
		StrictNotFound: s.cfg.Review.StrictNotFound,
	}, s.logger)
	reviewHandler := handler.NewReviewHandler(reviewService, s.logger)

	healthHandler := handler.NewHealthHandler(s.store, s.cfg.Database.Timeout, s.logger)

	assets, err := s.assets()
	if err != nil {
		return err
	}
	staticHandler := handler.NewStaticHandler(assets, s.logger)

	// Ping route for health check
	s.router.GET("/ping", healthHandler.Ping)
	s.router.GET("/health", healthHandler.Health)

	api := s.router.Group(apiPrefix)
	api.POST("/login", authHandler.Login)

	reviews := api.Group("")
	if s.cfg.Auth.RequireToken {
		reviews.Use(middleware.AuthMiddleware(authService, s.logger))
	} else {
		s.logger.Warn("Review endpoints are served without token checks (auth.require_token=false)")
	}
	{
		reviews.GET("/reviews", reviewHandler.GetReviews)
		reviews.POST("/review", reviewHandler.SubmitReview)
		reviews.GET("/stats", reviewHandler.GetStats)
	}

	s.router.NoRoute(staticHandler.Serve)
	return nil
}

// assets prefers an on-disk build directory over the embedded UI.
func (s *Server) assets() (fs.FS, error) {
	if dir := s.cfg.Server.StaticDir; dir != "" {
		info, err := os.Stat(dir)
		if err != nil {
			return nil, fmt.Errorf("static dir: %w", err)
		}
		if !info.IsDir() {
			return nil, fmt.Errorf("static dir %s is not a directory", dir)
		}
		s.logger.Info("Serving admin UI from disk", zap.String("dir", dir))
		return os.DirFS(dir), nil
	}
	return web.Assets()
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + s.cfg.Server.Port,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Server starting", zap.String("address", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server failed to start: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	s.logger.Info("Shutting down server...")
	timeout := s.cfg.Server.ShutdownTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	s.logger.Info("Server exited")
	return nil
}
