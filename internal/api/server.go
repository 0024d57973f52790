package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/pharmaguard-client/internal/domain"
	"github.com/pharmaguard-client/internal/history"
	"github.com/pharmaguard-client/internal/middleware"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

// maxRequestBody caps request bodies. It is well above the upload limit so
// oversized files reach the validator and get its message.
const maxRequestBody = 64 << 20

// historyTimeout bounds history store queries.
const historyTimeout = 10 * time.Second

// Dependencies are the services the gateway drives.
type Dependencies struct {
	Analysis domain.AnalysisService
	Reports  domain.ReportService
	History  history.Store
	Logger   *logrus.Logger
}

// Server represents the HTTP server
type Server struct {
	configManager domain.ConfigManager
	router        *gin.Engine
	server        *http.Server
	sessions      *SessionManager
	reports       domain.ReportService
	history       history.Store
	logger        *logrus.Logger
}

// NewServer creates a new HTTP server instance
func NewServer(configManager domain.ConfigManager, deps Dependencies) *Server {
	cfg := configManager.GetConfig()

	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	logger := deps.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.AuditLogger(logger))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CORS(""))
	router.Use(middleware.MaxBodySize(maxRequestBody))

	var recorder domain.HistoryRecorder
	if deps.History != nil {
		recorder = deps.History
	}

	server := &Server{
		configManager: configManager,
		router:        router,
		sessions:      NewSessionManager(deps.Analysis, recorder, logger, 0, 0),
		reports:       deps.Reports,
		history:       deps.History,
		logger:        logger,
	}

	server.setupRoutes()

	return server
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	cfg := s.configManager.GetServerConfig()
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", addr).Info("Gateway listening")
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return s.server.Shutdown(shutdownCtx)
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/sessions", s.handleCreateSession)

		sess := v1.Group("/sessions/:id", s.loadSession)
		{
			sess.GET("", s.handleGetSession)
			sess.DELETE("", s.handleDeleteSession)
			sess.POST("/drugs", s.handleAddDrugs)
			sess.DELETE("/drugs/:drug", s.handleRemoveDrug)
			sess.PUT("/pending", s.handleSetPending)
			sess.POST("/pending/commit", s.handleCommitPending)
			sess.PUT("/file", s.handleStageFile)
			sess.DELETE("/file", s.handleClearFile)
			sess.POST("/submit", s.handleSubmit)
			sess.POST("/results/:index/toggle", s.handleToggle)
			sess.GET("/export", s.handleExport)
			sess.POST("/copy", s.handleCopy)
			sess.GET("/report", s.handleReport)
		}

		hist := v1.Group("/history", middleware.RequestTimeout(historyTimeout))
		{
			hist.GET("", s.handleListHistory)
			hist.GET("/:id", s.handleGetHistory)
		}
	}
}

// handleHealth handles health check requests
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
		"version":   Version,
		"sessions":  s.sessions.Len(),
		"history":   s.history != nil,
	})
}
