package patient

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jwalitptl/discharge-api/internal/model"
	"github.com/jwalitptl/discharge-api/internal/service/patient"
	"github.com/jwalitptl/discharge-api/pkg/errors"
	"github.com/jwalitptl/discharge-api/pkg/httputil"
)

type Handler struct {
	service patient.PatientService
}

func NewHandler(service patient.PatientService) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	patients := r.Group("/patients")
	{
		patients.GET("", h.ListPatients)
		patients.GET("/search", h.SearchPatients)
		patients.GET("/:id", h.GetPatient)
	}
}

func (h *Handler) ListPatients(c *gin.Context) {
	var p model.Pagination
	if err := c.ShouldBindQuery(&p); err != nil {
		c.Error(errors.BadRequest("invalid pagination parameters", err))
		return
	}

	matches, total, err := h.service.ListPatients(c.Request.Context(), &p)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithPagination(c, matches, p.Page, p.PageSize, total)
}

func (h *Handler) SearchPatients(c *gin.Context) {
	matches, err := h.service.SearchPatients(c.Request.Context(), c.Query("name"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, matches)
}

func (h *Handler) GetPatient(c *gin.Context) {
	id, err := patient.ParseID(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	record, err := h.service.GetPatient(c.Request.Context(), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, record)
}
