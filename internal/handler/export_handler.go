package handler

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/therafiali/internal-app-sub000/internal/dto"
	"github.com/therafiali/internal-app-sub000/internal/models"
	"github.com/therafiali/internal-app-sub000/pkg/export"
	"github.com/therafiali/internal-app-sub000/pkg/response"
)

type exporter interface {
	Export(ctx context.Context, actor *models.JWTClaims, q dto.ExportQuery) (*dto.ExportFile, error)
}

// ExportHandler renders request collections as downloadable files.
type ExportHandler struct {
	service exporter
}

// NewExportHandler constructs the handler.
func NewExportHandler(svc exporter) *ExportHandler {
	return &ExportHandler{service: svc}
}

// Export godoc
// @Summary Export requests
// @Description Audit and Admin download the requests of one collection visible to their teams
// @Tags Exports
// @Produce text/csv
// @Produce application/pdf
// @Param type path string true "Request collection"
// @Param format query string false "csv (default) or pdf"
// @Param status query string false "Comma separated statuses"
// @Param team_code query string false "Team"
// @Success 200 {file} file
// @Failure 403 {object} response.Envelope
// @Router /exports/{type} [get]
func (h *ExportHandler) Export(c *gin.Context) {
	actor, ok := actorOrAbort(c)
	if !ok {
		return
	}
	q, err := parseRequestQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	file, err := h.service.Export(c.Request.Context(), actor, dto.ExportQuery{
		Type:   c.Param("type"),
		Format: export.Format(strings.ToLower(c.Query("format"))),
		Query:  q,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Header("X-Export-Rows", fmt.Sprintf("%d", file.Rows))
	c.Data(http.StatusOK, file.ContentType, file.Payload)
}
