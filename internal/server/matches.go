package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/foundly-app/foundly/internal/async"
	"github.com/foundly-app/foundly/internal/common"
	"github.com/foundly-app/foundly/internal/entity"
)

type matchResponse struct {
	Report       *entity.Report `json:"report"`
	Confidence   int            `json:"confidence"`
	FromFallback bool           `json:"from_fallback"`
}

func (s *Server) handleMatchScan(c *gin.Context) {
	ctx := c.Request.Context()
	rep, err := s.ownedReport(c)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if !rep.IsOpen() {
		s.respondError(c, common.NewAppError(common.ErrInvalidInput, "resolved reports are not scanned", nil))
		return
	}

	snapshot, err := s.reports.ListOpen(ctx)
	if err != nil {
		s.respondError(c, err)
		return
	}

	candidates := s.scanner.Scan(ctx, rep, snapshot)
	out := make([]matchResponse, len(candidates))
	for i, m := range candidates {
		out[i] = matchResponse{Report: m.Report, Confidence: m.Confidence, FromFallback: m.FromFallback}
	}
	c.JSON(http.StatusOK, gin.H{"matches": out})
}

func (s *Server) handleQueueMatchScan(c *gin.Context) {
	ctx := c.Request.Context()
	rep, err := s.ownedReport(c)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if !rep.IsOpen() {
		s.respondError(c, common.NewAppError(common.ErrInvalidInput, "resolved reports are not scanned", nil))
		return
	}

	_ = s.scans.Enqueue(ctx, async.Job{
		ReportID:    rep.ID,
		SubmittedAt: time.Now(),
		TraceID:     common.RequestIDFromContext(ctx),
	})
	c.JSON(http.StatusAccepted, gin.H{"state": async.ScanPending})
}

func (s *Server) handleQueuedMatchResult(c *gin.Context) {
	rep, err := s.ownedReport(c)
	if err != nil {
		s.respondError(c, err)
		return
	}
	result, ok := s.scans.Result(rep.ID)
	if !ok {
		s.respondError(c, common.NewAppError(common.ErrNotFound, "no queued scan for this report", nil))
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleCompareReports(c *gin.Context) {
	ctx := c.Request.Context()
	rep, err := s.ownedReport(c)
	if err != nil {
		s.respondError(c, err)
		return
	}

	otherID, err := uuid.Parse(c.Param("other"))
	if err != nil {
		s.respondError(c, common.NewAppError(common.ErrInvalidInput, "other must be a UUID", err))
		return
	}
	other, err := s.reports.GetByID(ctx, otherID)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if other.Type != rep.Type.Opposite() {
		s.respondError(c, common.NewAppError(common.ErrInvalidInput, "reports must have opposite polarity", nil))
		return
	}

	c.JSON(http.StatusOK, s.ai.CompareReports(ctx, rep, other))
}

func (s *Server) handleParseSearch(c *gin.Context) {
	var body struct {
		Query string `json:"query"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || strings.TrimSpace(body.Query) == "" {
		s.respondError(c, common.NewAppError(common.ErrInvalidInput, "query is required", err))
		return
	}
	c.JSON(http.StatusOK, s.ai.ParseSearchQuery(c.Request.Context(), body.Query))
}
