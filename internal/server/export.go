package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/foundly-app/foundly/internal/common"
)

func (s *Server) handleExportReports(c *gin.Context) {
	ctx := c.Request.Context()
	userID := common.UserIDFromContext(ctx)

	data, err := s.exporter.ExportReportsXLSX(ctx, userID)
	if err != nil {
		s.respondError(c, err)
		return
	}

	filename := fmt.Sprintf("reports-%s.xlsx", time.Now().UTC().Format("2006-01-02"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}
