// Package api exposes the triage engine over HTTP: a turn endpoint, a
// websocket stream, health and admin routes.
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/pre-triage-server/internal/domain"
	"github.com/pre-triage-server/internal/middleware"
	"github.com/pre-triage-server/internal/reference"
	"github.com/pre-triage-server/internal/service"
)

// Server is the HTTP front of the triage engine.
type Server struct {
	cfg          *domain.Config
	orchestrator *service.Orchestrator
	store        domain.SessionStore
	events       domain.EventStore
	rt           *reference.Runtime
	log          *logrus.Logger
	router       *gin.Engine
	server       *http.Server
}

func NewServer(
	cfg *domain.Config,
	orchestrator *service.Orchestrator,
	store domain.SessionStore,
	events domain.EventStore,
	rt *reference.Runtime,
	logger *logrus.Logger,
) *Server {
	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.AuditLogger())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.SecurityHeaders())

	s := &Server{
		cfg:          cfg,
		orchestrator: orchestrator,
		store:        store,
		events:       events,
		rt:           rt,
		log:          logger,
		router:       router,
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	turnTimeout := s.cfg.Server.TurnTimeout
	if turnTimeout <= 0 {
		turnTimeout = 10 * time.Second
	}

	triage := s.router.Group("/triage")
	triage.Use(middleware.RequestDeadline(turnTimeout))
	if s.cfg.RateLimit.Enabled {
		limiter := middleware.NewRateLimiter(s.cfg.RateLimit.RPS, s.cfg.RateLimit.Burst)
		triage.Use(limiter.Handler())
	}
	triage.POST("/turn", s.handleTurn)
	triage.GET("/stream", s.handleStream)

	admin := s.router.Group("/admin")
	admin.Use(middleware.AdminAuth(s.cfg.Admin.APIKey))
	admin.GET("/reference/stats", s.handleReferenceStats)
	admin.GET("/sessions/:id/events", s.handleSessionEvents)
}

// Handler exposes the router for httptest.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start runs the listener until the context is cancelled, then shuts down
// gracefully.
func (s *Server) Start(ctx context.Context) error {
	addr := fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.cfg.Server.ReadTimeout,
		WriteTimeout: s.cfg.Server.WriteTimeout,
		IdleTimeout:  s.cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.WithField("addr", addr).Info("HTTP server listening")
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}
