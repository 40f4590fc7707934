package server

import (
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/foundly-app/foundly/constants"
	"github.com/foundly-app/foundly/internal/common"
	"github.com/foundly-app/foundly/internal/entity"
	"github.com/foundly-app/foundly/internal/repository"
)

type reportPayload struct {
	Type        string            `json:"type"`
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Category    string            `json:"category"`
	Specs       map[string]string `json:"specs"`
	Location    string            `json:"location"`
	Date        string            `json:"date"` // YYYY-MM-DD
	TimeOfDay   string            `json:"time_of_day"`
	ImageURLs   []string          `json:"image_urls"`
	Tags        []string          `json:"tags"`
}

func (p *reportPayload) validate() error {
	v := common.NewValidator()
	v.Field("type", p.Type, common.Required, common.OneOf(string(constants.ReportTypeLost), string(constants.ReportTypeFound)))
	v.Field("title", p.Title, common.Required, common.MaxLength(120))
	v.Field("description", p.Description, common.Required, common.MaxLength(4000))
	v.Field("location", p.Location, common.Required, common.MaxLength(200))
	v.Field("date", p.Date, common.Required)
	if v.HasErrors() {
		return common.NewAppError(common.ErrValidation, v.ErrorMessage(), nil)
	}

	if p.Type == string(constants.ReportTypeFound) && len(p.ImageURLs) == 0 {
		return common.NewAppError(common.ErrValidation, "found-item reports need at least one photo", nil)
	}
	if len(p.ImageURLs) > constants.MaxReportImages {
		return common.NewAppError(common.ErrValidation, "too many photos", nil)
	}
	for _, u := range p.ImageURLs {
		if strings.HasPrefix(u, "data:") {
			continue
		}
		ext := constants.NormalizeExt(path.Ext(u))
		if _, ok := constants.AllowedImageExtensions[ext]; !ok {
			return common.NewAppError(common.ErrValidation, "unsupported image type: "+ext, nil)
		}
	}
	return nil
}

func (p *reportPayload) toReport() (*entity.Report, error) {
	date, err := time.Parse("2006-01-02", p.Date)
	if err != nil {
		return nil, common.NewAppError(common.ErrValidation, "date must be YYYY-MM-DD", err)
	}
	category, _ := constants.Canonicalize(p.Category)
	return &entity.Report{
		Type:        constants.ReportType(p.Type),
		Title:       strings.TrimSpace(p.Title),
		Description: strings.TrimSpace(p.Description),
		Category:    category,
		Specs:       p.Specs,
		Location:    strings.TrimSpace(p.Location),
		Date:        date,
		TimeOfDay:   p.TimeOfDay,
		ImageURLs:   p.ImageURLs,
		Tags:        p.Tags,
	}, nil
}

func (s *Server) handleCreateReport(c *gin.Context) {
	ctx := c.Request.Context()

	var payload reportPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		s.respondError(c, common.NewAppError(common.ErrInvalidInput, "malformed request body", err))
		return
	}
	if err := payload.validate(); err != nil {
		s.respondError(c, err)
		return
	}
	rep, err := payload.toReport()
	if err != nil {
		s.respondError(c, err)
		return
	}
	rep.UserID = common.UserIDFromContext(ctx)
	if profile, err := s.profiles.GetByID(ctx, rep.UserID); err == nil {
		rep.UserName = profile.DisplayName
	}

	// Plausibility gate; unreachable checker lets the draft through.
	if verdict := s.ai.ValidateReportDraft(ctx, rep); !verdict.IsValid {
		s.respondError(c, common.NewAppError(common.ErrValidation, verdict.Reason, nil))
		return
	}

	analysis := s.ai.AnalyzeReportContent(ctx, rep.Title, rep.Description, rep.ImageURLs)
	if analysis.IsViolating {
		s.respondError(c, common.NewAppError(common.ErrValidation,
			"report content violates policy: "+string(analysis.Violation), nil))
		return
	}
	rep.Summary = analysis.Summary
	if len(rep.Tags) == 0 {
		rep.Tags = analysis.Tags
	}
	if rep.Category == constants.Other && analysis.Category != "" {
		rep.Category = analysis.Category
	}

	created, err := s.reports.Create(ctx, rep)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, created)
}

func (s *Server) handleListReports(c *gin.Context) {
	filter := repository.ReportFilter{
		Type:     constants.ReportType(c.Query("type")),
		Status:   constants.ReportStatus(c.Query("status")),
		Category: constants.Category(c.Query("category")),
	}
	if c.Query("mine") == "true" {
		filter.UserID = common.UserIDFromContext(c.Request.Context())
	}

	reports, err := s.reports.ListReports(c.Request.Context(), filter)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports": reports})
}

func (s *Server) handleGetReport(c *gin.Context) {
	id, err := parseReportID(c)
	if err != nil {
		s.respondError(c, err)
		return
	}
	rep, err := s.reports.GetByID(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, rep)
}

func (s *Server) handleUpdateReport(c *gin.Context) {
	ctx := c.Request.Context()
	rep, err := s.ownedReport(c)
	if err != nil {
		s.respondError(c, err)
		return
	}

	var payload reportPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		s.respondError(c, common.NewAppError(common.ErrInvalidInput, "malformed request body", err))
		return
	}
	// partial update: absent fields keep their stored values
	if payload.Type == "" {
		payload.Type = string(rep.Type)
	}
	if payload.Title == "" {
		payload.Title = rep.Title
	}
	if payload.Description == "" {
		payload.Description = rep.Description
	}
	if payload.Location == "" {
		payload.Location = rep.Location
	}
	if payload.Date == "" {
		payload.Date = rep.Date.Format("2006-01-02")
	}
	if payload.Category == "" {
		payload.Category = string(rep.Category)
	}
	if payload.ImageURLs == nil {
		payload.ImageURLs = rep.ImageURLs
	}
	if payload.Tags == nil {
		payload.Tags = rep.Tags
	}
	if payload.Specs == nil {
		payload.Specs = rep.Specs
	}
	if payload.TimeOfDay == "" {
		payload.TimeOfDay = rep.TimeOfDay
	}
	if err := payload.validate(); err != nil {
		s.respondError(c, err)
		return
	}

	next, err := payload.toReport()
	if err != nil {
		s.respondError(c, err)
		return
	}
	if next.Type != rep.Type {
		s.respondError(c, common.NewAppError(common.ErrInvalidInput, "report type cannot change", nil))
		return
	}

	next.ID = rep.ID
	next.Status = rep.Status
	next.UserID = rep.UserID
	next.UserName = rep.UserName
	next.CreatedAt = rep.CreatedAt

	analysis := s.ai.AnalyzeReportContent(ctx, next.Title, next.Description, next.ImageURLs)
	if analysis.IsViolating {
		s.respondError(c, common.NewAppError(common.ErrValidation,
			"report content violates policy: "+string(analysis.Violation), nil))
		return
	}
	next.Summary = analysis.Summary

	updated, err := s.reports.Update(ctx, next)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (s *Server) handleDeleteReport(c *gin.Context) {
	rep, err := s.ownedReport(c)
	if err != nil {
		s.respondError(c, err)
		return
	}
	if err := s.reports.Delete(c.Request.Context(), rep.ID); err != nil {
		s.respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleResolveReport(c *gin.Context) {
	rep, err := s.ownedReport(c)
	if err != nil {
		s.respondError(c, err)
		return
	}
	// one-way transition; resolving twice is a no-op
	if rep.Status == constants.ReportStatusResolved {
		c.JSON(http.StatusOK, rep)
		return
	}
	if err := s.reports.UpdateStatus(c.Request.Context(), rep.ID, constants.ReportStatusResolved); err != nil {
		s.respondError(c, err)
		return
	}
	rep.Status = constants.ReportStatusResolved
	c.JSON(http.StatusOK, rep)
}

// ownedReport loads the :id report and checks the caller owns it.
func (s *Server) ownedReport(c *gin.Context) (*entity.Report, error) {
	id, err := parseReportID(c)
	if err != nil {
		return nil, err
	}
	rep, err := s.reports.GetByID(c.Request.Context(), id)
	if err != nil {
		return nil, err
	}
	if rep.UserID != common.UserIDFromContext(c.Request.Context()) {
		return nil, common.NewAppError(common.ErrForbidden, "report belongs to another user", nil)
	}
	return rep, nil
}

func parseReportID(c *gin.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, common.NewAppError(common.ErrInvalidInput, "id must be a UUID", err)
	}
	return id, nil
}
