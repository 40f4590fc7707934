package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/foundly-app/foundly/internal/common"
	"github.com/foundly-app/foundly/internal/entity"
)

func (s *Server) handleUpsertProfile(c *gin.Context) {
	ctx := c.Request.Context()

	var body struct {
		DisplayName string  `json:"display_name"`
		Email       *string `json:"email"`
		PhotoURL    *string `json:"photo_url"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		s.respondError(c, common.NewAppError(common.ErrInvalidInput, "malformed request body", err))
		return
	}
	if strings.TrimSpace(body.DisplayName) == "" {
		s.respondError(c, common.NewAppError(common.ErrValidation, "display_name is required", nil))
		return
	}

	p, err := s.profiles.Upsert(ctx, &entity.Profile{
		ID:          common.UserIDFromContext(ctx),
		DisplayName: strings.TrimSpace(body.DisplayName),
		Email:       body.Email,
		PhotoURL:    body.PhotoURL,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) handleGetProfile(c *gin.Context) {
	p, err := s.profiles.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}
