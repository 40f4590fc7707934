package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/foundly-app/foundly/internal/ai"
	"github.com/foundly-app/foundly/internal/common"
)

// imageBody is the shared request shape of the single-image AI endpoints.
// Image is a data URL or an upload reference.
type imageBody struct {
	Image string `json:"image"`
}

func (s *Server) bindImage(c *gin.Context) (string, bool) {
	var body imageBody
	if err := c.ShouldBindJSON(&body); err != nil || strings.TrimSpace(body.Image) == "" {
		s.respondError(c, common.NewAppError(common.ErrInvalidInput, "image is required", err))
		return "", false
	}
	return body.Image, true
}

func (s *Server) handleImageSafety(c *gin.Context) {
	image, ok := s.bindImage(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, s.ai.CheckImageSafety(c.Request.Context(), image))
}

func (s *Server) handleRedactionRegions(c *gin.Context) {
	image, ok := s.bindImage(c)
	if !ok {
		return
	}
	regions := s.ai.DetectRedactionRegions(c.Request.Context(), image)
	if regions == nil {
		regions = []ai.BoundingBox{}
	}
	c.JSON(http.StatusOK, gin.H{"regions": regions})
}

func (s *Server) handleVisualAttributes(c *gin.Context) {
	image, ok := s.bindImage(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, s.ai.ExtractVisualAttributes(c.Request.Context(), image))
}

func (s *Server) handleMergeDescription(c *gin.Context) {
	var body struct {
		Notes string `json:"notes"`
		Image string `json:"image"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || strings.TrimSpace(body.Image) == "" {
		s.respondError(c, common.NewAppError(common.ErrInvalidInput, "image is required", err))
		return
	}
	attrs := s.ai.ExtractVisualAttributes(c.Request.Context(), body.Image)
	merged := s.ai.MergeDescription(c.Request.Context(), body.Notes, attrs)
	c.JSON(http.StatusOK, gin.H{"description": merged, "attributes": attrs})
}
