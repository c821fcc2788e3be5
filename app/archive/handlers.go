package archive

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/joefazee/settlement/app/api"
	"github.com/joefazee/settlement/models"
)

// Handler handles HTTP requests for the market archive
type Handler struct {
	service Service
}

// NewHandler creates a new archive handler
func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// Archive godoc
// @Summary Archive a settled market (admin)
// @Description One way. Only resolved or cancelled markets can be archived.
// @Tags archive
// @Produce json
// @Security BearerAuth
// @Param id path string true "Market id"
// @Success 201 {object} api.Response{data=models.PublicMarket}
// @Failure 403 {object} api.Response{error=api.ErrorInfo}
// @Failure 409 {object} api.Response{error=api.ErrorInfo}
// @Router /api/v1/archive/{id} [post]
func (h *Handler) Archive(c *gin.Context) {
	m, err := h.service.Archive(c.Request.Context(), c.Param("id"))
	if err != nil {
		api.DomainErrorResponse(c, err)
		return
	}
	api.SuccessResponse(c, http.StatusCreated, "Market archived", m)
}

// ByTimeRange godoc
// @Summary Archived markets that ended in [from, to)
// @Tags archive
// @Produce json
// @Param from query string true "RFC3339 start, inclusive"
// @Param to query string true "RFC3339 end, exclusive"
// @Param cursor query int false "Return entries after this archive sequence"
// @Param limit query int false "Page size, capped"
// @Success 200 {object} api.Response{data=[]models.PublicMarket,meta=api.CursorMeta}
// @Failure 400 {object} api.Response{error=api.ErrorInfo}
// @Router /api/v1/archive [get]
func (h *Handler) ByTimeRange(c *gin.Context) {
	var q RangeQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		api.BadRequestResponse(c, err.Error())
		return
	}
	page, err := h.service.ByTimeRange(c.Request.Context(), q.From, q.To, q.Cursor, q.Limit)
	if err != nil {
		api.DomainErrorResponse(c, err)
		return
	}
	api.PageResponse(c, "Archived markets retrieved", page)
}

// ByStatus godoc
// @Summary Archived markets by final state
// @Tags archive
// @Produce json
// @Param state path string true "resolved or cancelled"
// @Param cursor query int false "Return entries after this archive sequence"
// @Param limit query int false "Page size, capped"
// @Success 200 {object} api.Response{data=[]models.PublicMarket,meta=api.CursorMeta}
// @Router /api/v1/archive/status/{state} [get]
func (h *Handler) ByStatus(c *gin.Context) {
	var q api.CursorQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		api.BadRequestResponse(c, err.Error())
		return
	}
	page, err := h.service.ByStatus(c.Request.Context(), models.MarketState(c.Param("state")), q.Cursor, q.Limit)
	if err != nil {
		api.DomainErrorResponse(c, err)
		return
	}
	api.PageResponse(c, "Archived markets retrieved", page)
}

// ByCategory godoc
// @Summary Archived markets in one category
// @Tags archive
// @Produce json
// @Param category path string true "Category"
// @Param cursor query int false "Return entries after this archive sequence"
// @Param limit query int false "Page size, capped"
// @Success 200 {object} api.Response{data=[]models.PublicMarket,meta=api.CursorMeta}
// @Router /api/v1/archive/category/{category} [get]
func (h *Handler) ByCategory(c *gin.Context) {
	var q api.CursorQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		api.BadRequestResponse(c, err.Error())
		return
	}
	page, err := h.service.ByCategory(c.Request.Context(), c.Param("category"), q.Cursor, q.Limit)
	if err != nil {
		api.DomainErrorResponse(c, err)
		return
	}
	api.PageResponse(c, "Archived markets retrieved", page)
}

// Export godoc
// @Summary Export archived markets as JSON lines (admin)
// @Tags archive
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ExportRequest true "Cut-off"
// @Success 200 {object} api.Response{data=ExportResult}
// @Failure 400 {object} api.Response{error=api.ErrorInfo}
// @Failure 403 {object} api.Response{error=api.ErrorInfo}
// @Router /api/v1/archive/exports [post]
func (h *Handler) Export(c *gin.Context) {
	var req ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BadRequestResponse(c, err.Error())
		return
	}
	res, err := h.service.Export(c.Request.Context(), req.Before)
	if err != nil {
		api.DomainErrorResponse(c, err)
		return
	}
	api.SuccessResponse(c, http.StatusOK, "Archive exported", res)
}
