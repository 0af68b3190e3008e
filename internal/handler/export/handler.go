package export

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/discharge-api/internal/model"
	"github.com/jwalitptl/discharge-api/internal/service/export"
	"github.com/jwalitptl/discharge-api/internal/service/patient"
	"github.com/jwalitptl/discharge-api/pkg/errors"
	"github.com/jwalitptl/discharge-api/pkg/httputil"
)

const HeaderArtifactLocation = "X-Artifact-Location"

type Exporter interface {
	Export(ctx context.Context, patientID int64, req export.Request) (*export.Result, error)
}

type Handler struct {
	exporter Exporter
}

func NewHandler(exporter Exporter) *Handler {
	return &Handler{exporter: exporter}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/patients/:id/export", h.ExportSummary)
}

// ExportSummary responds with the PDF itself as an attachment.
func (h *Handler) ExportSummary(c *gin.Context) {
	id, err := patient.ParseID(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	var req model.ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.BadRequest("invalid request body", err))
		return
	}

	result, err := h.exporter.Export(c.Request.Context(), id, export.Request{
		DraftID:     req.DraftID,
		UseApproved: req.UseApproved,
	})
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Name))
	c.Header(HeaderArtifactLocation, result.Location)
	c.Data(http.StatusOK, export.ContentType, result.Content)
}
