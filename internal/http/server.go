// Package http provides HTTP server implementation and request handlers.
package http

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/allisson/fieldcrypt/internal/config"
	invitationHTTP "github.com/allisson/fieldcrypt/internal/invitation/http"
	"github.com/allisson/fieldcrypt/internal/metrics"
	rotationHTTP "github.com/allisson/fieldcrypt/internal/rotation/http"
	userHTTP "github.com/allisson/fieldcrypt/internal/user/http"
)

// Server represents the HTTP server
type Server struct {
	db     *sql.DB
	server *http.Server
	router *gin.Engine
	logger *slog.Logger
}

// NewServer creates a new HTTP server
func NewServer(
	db *sql.DB,
	host string,
	port int,
	logger *slog.Logger,
) *Server {
	return &Server{
		db:     db,
		logger: logger,
		server: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", host, port),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
	}
}

// SetupRouter registers the middleware chain and every API route.
//
// CORS applies to the public user and invitation routes only. Admin routes are only
// registered when an admin token is configured.
func (s *Server) SetupRouter(
	cfg *config.Config,
	userHandler *userHTTP.UserHandler,
	invitationHandler *invitationHTTP.InvitationHandler,
	rotationHandler *rotationHTTP.RotationHandler,
	metricsProvider *metrics.Provider,
) {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestid.New(requestid.WithGenerator(func() string {
		return uuid.Must(uuid.NewV7()).String()
	})))
	router.Use(CustomLoggerMiddleware(s.logger))

	if metricsProvider != nil {
		router.Use(metrics.HTTPMetricsMiddleware(metricsProvider.MeterProvider(), cfg.MetricsNamespace))
	}

	router.GET("/health", s.healthHandler)
	router.GET("/ready", s.readinessHandler)

	v1 := router.Group("/v1")
	{
		writeLimit := func(c *gin.Context) { c.Next() }
		if cfg.RateLimitEnabled {
			writeLimit = IPRateLimitMiddleware(cfg.RateLimitRequestsPerSec, cfg.RateLimitBurst, s.logger)
		}

		public := v1.Group("")
		if corsMiddleware := newPublicCORSMiddleware(cfg, s.logger); corsMiddleware != nil {
			public.Use(corsMiddleware)
			registerPreflight(public)
		}

		users := public.Group("/users")
		users.POST("", writeLimit, userHandler.RegisterHandler)
		users.GET("", userHandler.LookupHandler)
		users.GET("/:id", userHandler.GetHandler)
		users.POST("/:id/providers", userHandler.LinkProviderHandler)

		invitations := public.Group("/invitations")
		invitations.POST("", writeLimit, invitationHandler.CreateHandler)
		invitations.GET("", invitationHandler.ListHandler)
		invitations.POST("/accept", writeLimit, invitationHandler.AcceptHandler)

		if cfg.AdminToken != "" {
			admin := v1.Group("/admin")
			admin.Use(rotationHTTP.AdminTokenMiddleware(cfg.AdminToken, s.logger))
			admin.POST("/rotate-keys", rotationHandler.TriggerHandler)
			admin.GET("/rotate-keys/status", rotationHandler.StatusHandler)
		} else {
			s.logger.Warn("ADMIN_TOKEN not set, key rotation endpoints are disabled")
		}
	}

	s.router = router
}

// Start starts the HTTP server
func (s *Server) Start(ctx context.Context) error {
	s.server.Handler = s.router

	s.logger.Info("starting http server", slog.String("addr", s.server.Addr))

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down http server")
	return s.server.Shutdown(ctx)
}

// GetHandler returns the http.Handler for testing purposes.
func (s *Server) GetHandler() http.Handler {
	return s.router
}

func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "healthy"})
}

// readinessHandler reports ready once the database answers a ping.
func (s *Server) readinessHandler(c *gin.Context) {
	dbStatus := "ok"
	if s.db == nil {
		dbStatus = "error"
	} else {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		if err := s.db.PingContext(ctx); err != nil {
			s.logger.Warn("readiness check failed", slog.Any("error", err))
			dbStatus = "error"
		}
	}

	if dbStatus != "ok" {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status":     "not_ready",
			"components": gin.H{"database": dbStatus},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     "ready",
		"components": gin.H{"database": dbStatus},
	})
}
