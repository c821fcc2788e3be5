package reporting

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/joefazee/settlement/app/api"
	"github.com/joefazee/settlement/models"
)

// Handler handles HTTP requests for reports
type Handler struct {
	service Service
}

// NewHandler creates a new reporting handler
func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// ActiveMarkets godoc
// @Summary List markets open for staking
// @Tags reports
// @Produce json
// @Param cursor query int false "Return markets after this sequence number"
// @Param limit query int false "Page size, capped"
// @Success 200 {object} api.Response{data=[]MarketSummary,meta=api.CursorMeta}
// @Failure 400 {object} api.Response{error=api.ErrorInfo}
// @Router /api/v1/reports/markets/active [get]
func (h *Handler) ActiveMarkets(c *gin.Context) {
	var q api.CursorQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		api.BadRequestResponse(c, err.Error())
		return
	}
	page, err := h.service.ActiveMarkets(c.Request.Context(), q.Cursor, q.Limit)
	if err != nil {
		api.DomainErrorResponse(c, err)
		return
	}
	api.PageResponse(c, "Active markets retrieved", page)
}

// MarketsByState godoc
// @Summary List markets in one state
// @Tags reports
// @Produce json
// @Param state query string true "active, closed, resolved or cancelled"
// @Param cursor query int false "Return markets after this sequence number"
// @Param limit query int false "Page size, capped"
// @Success 200 {object} api.Response{data=[]MarketSummary,meta=api.CursorMeta}
// @Failure 400 {object} api.Response{error=api.ErrorInfo}
// @Router /api/v1/reports/markets [get]
func (h *Handler) MarketsByState(c *gin.Context) {
	var q StateQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		api.BadRequestResponse(c, err.Error())
		return
	}
	page, err := h.service.MarketsByState(c.Request.Context(), models.MarketState(q.State), q.Cursor, q.Limit)
	if err != nil {
		api.DomainErrorResponse(c, err)
		return
	}
	api.PageResponse(c, "Markets retrieved", page)
}

// Snapshot godoc
// @Summary Aggregate view of one market
// @Tags reports
// @Produce json
// @Param id path string true "Market id"
// @Success 200 {object} api.Response{data=MarketSnapshot}
// @Failure 404 {object} api.Response{error=api.ErrorInfo}
// @Router /api/v1/reports/markets/{id}/snapshot [get]
func (h *Handler) Snapshot(c *gin.Context) {
	snap, err := h.service.Snapshot(c.Request.Context(), c.Param("id"))
	if err != nil {
		api.DomainErrorResponse(c, err)
		return
	}
	api.SuccessResponse(c, http.StatusOK, "Snapshot retrieved", snap)
}

// PlatformStats godoc
// @Summary Platform wide totals
// @Description Served from cache for a short TTL.
// @Tags reports
// @Produce json
// @Success 200 {object} api.Response{data=PlatformStats}
// @Router /api/v1/reports/stats [get]
func (h *Handler) PlatformStats(c *gin.Context) {
	stats, err := h.service.PlatformStats(c.Request.Context())
	if err != nil {
		api.DomainErrorResponse(c, err)
		return
	}
	api.SuccessResponse(c, http.StatusOK, "Platform stats retrieved", stats)
}
