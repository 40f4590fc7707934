package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/foundly-app/foundly/internal/ai"
	"github.com/foundly-app/foundly/internal/async"
	"github.com/foundly-app/foundly/internal/common"
	"github.com/foundly-app/foundly/internal/export"
	"github.com/foundly-app/foundly/internal/match"
	"github.com/foundly-app/foundly/internal/repository"
)

// Server is the HTTP surface: report CRUD, match scans, AI utility
// endpoints and exports.
type Server struct {
	cfg      *common.Config
	pool     *pgxpool.Pool
	reports  repository.ReportRepository
	profiles repository.ProfileRepository
	ai       *ai.Client
	scanner  *match.Scanner
	scans    *async.ScanQueue
	exporter *export.Service
	logger   *slog.Logger
	router   *gin.Engine
}

func New(
	cfg *common.Config,
	pool *pgxpool.Pool,
	reports repository.ReportRepository,
	profiles repository.ProfileRepository,
	aiClient *ai.Client,
	scanner *match.Scanner,
	scans *async.ScanQueue,
	exporter *export.Service,
	logger *slog.Logger,
) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		cfg:      cfg,
		pool:     pool,
		reports:  reports,
		profiles: profiles,
		ai:       aiClient,
		scanner:  scanner,
		scans:    scans,
		exporter: exporter,
		logger:   logger,
	}
	s.router = s.buildRouter()
	return s
}

func (s *Server) buildRouter() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), s.requestID(), s.requestLogger())

	r.GET("/healthz", s.handleHealth)

	v1 := r.Group("/v1", s.identity())
	{
		v1.POST("/reports", s.handleCreateReport)
		v1.GET("/reports", s.handleListReports)
		v1.GET("/reports/:id", s.handleGetReport)
		v1.PATCH("/reports/:id", s.handleUpdateReport)
		v1.DELETE("/reports/:id", s.handleDeleteReport)
		v1.POST("/reports/:id/resolve", s.handleResolveReport)

		v1.GET("/reports/:id/matches", s.handleMatchScan)
		v1.POST("/reports/:id/matches/async", s.handleQueueMatchScan)
		v1.GET("/reports/:id/matches/async", s.handleQueuedMatchResult)
		v1.GET("/reports/:id/compare/:other", s.handleCompareReports)
		v1.POST("/search/parse", s.handleParseSearch)

		v1.POST("/images/safety", s.handleImageSafety)
		v1.POST("/images/redactions", s.handleRedactionRegions)
		v1.POST("/images/attributes", s.handleVisualAttributes)
		v1.POST("/descriptions/merge", s.handleMergeDescription)

		v1.GET("/exports/reports.xlsx", s.handleExportReports)

		v1.PUT("/profile", s.handleUpsertProfile)
		v1.GET("/profiles/:id", s.handleGetProfile)
	}
	return r
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.Server.HTTPAddr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server.listen", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.logger.Info("server.shutdown")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	if err := repository.HealthCheck(c.Request.Context(), s.pool, 2*time.Second, s.logger); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// respondError maps application error kinds onto HTTP statuses.
func (s *Server) respondError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, common.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, common.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, common.ErrInvalidInput), errors.Is(err, common.ErrValidation):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed",
			"request_id", common.RequestIDFromContext(c.Request.Context()),
			"path", c.FullPath(),
			"error", err,
		)
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
