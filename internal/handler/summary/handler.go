package summary

import (
	stderrors "errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/discharge-api/internal/model"
	"github.com/jwalitptl/discharge-api/internal/service/patient"
	"github.com/jwalitptl/discharge-api/internal/service/summary"
	"github.com/jwalitptl/discharge-api/pkg/errors"
	"github.com/jwalitptl/discharge-api/pkg/httputil"
)

type Handler struct {
	service summary.SummaryService
}

func NewHandler(service summary.SummaryService) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	summaries := r.Group("/patients/:id/summaries")
	{
		summaries.POST("", h.GenerateSummary)
		summaries.POST("/approve", h.ApproveSummary)
		summaries.GET("/approved", h.GetApprovedSummary)
	}
}

// GenerateSummary accepts an empty body, which drafts a brief summary
// without notes.
func (h *Handler) GenerateSummary(c *gin.Context) {
	id, err := patient.ParseID(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	var req model.GenerateSummaryRequest
	if err := c.ShouldBindJSON(&req); err != nil && !stderrors.Is(err, io.EOF) {
		c.Error(errors.BadRequest("invalid request body", err))
		return
	}

	level, err := model.ParseDetailLevel(req.DetailLevel)
	if err != nil {
		httputil.RespondWithError(c, errors.BadRequest("detail_level must be brief or detailed", err))
		return
	}

	draft, err := h.service.Draft(c.Request.Context(), id, level, req.Notes)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusCreated, draft)
}

func (h *Handler) ApproveSummary(c *gin.Context) {
	id, err := patient.ParseID(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	var req model.ApproveSummaryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(errors.BadRequest("invalid request body", err))
		return
	}

	saved, err := h.service.Approve(c.Request.Context(), id, req.DraftID, req.Approved)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, saved)
}

func (h *Handler) GetApprovedSummary(c *gin.Context) {
	id, err := patient.ParseID(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	saved, err := h.service.Approved(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, saved)
}
