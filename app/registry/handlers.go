package registry

import (
	"github.com/gin-gonic/gin"

	"github.com/joefazee/settlement/app/api"
)

// Handler handles HTTP requests for the market id registry
type Handler struct {
	service Service
}

// NewHandler creates a new registry handler
func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// GetRegistry godoc
// @Summary List registered market ids
// @Description Cursor paginated, oldest first. Page size is capped.
// @Tags registry
// @Produce json
// @Param cursor query int false "Return entries after this sequence number"
// @Param limit query int false "Page size"
// @Success 200 {object} api.Response{data=[]models.RegistryEntry,meta=api.CursorMeta}
// @Failure 400 {object} api.Response{error=api.ErrorInfo}
// @Router /api/v1/registry [get]
func (h *Handler) GetRegistry(c *gin.Context) {
	var q api.CursorQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		api.BadRequestResponse(c, err.Error())
		return
	}

	page, err := h.service.GetRegistry(c.Request.Context(), q.Cursor, q.Limit)
	if err != nil {
		api.DomainErrorResponse(c, err)
		return
	}
	api.PageResponse(c, "Registry retrieved successfully", page)
}

// GetByCreator godoc
// @Summary List market ids generated for one creator
// @Tags registry
// @Produce json
// @Param creator path string true "Creator id"
// @Param cursor query int false "Return entries after this sequence number"
// @Param limit query int false "Page size"
// @Success 200 {object} api.Response{data=[]models.RegistryEntry,meta=api.CursorMeta}
// @Failure 400 {object} api.Response{error=api.ErrorInfo}
// @Router /api/v1/registry/creators/{creator} [get]
func (h *Handler) GetByCreator(c *gin.Context) {
	var q api.CursorQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		api.BadRequestResponse(c, err.Error())
		return
	}

	page, err := h.service.GetByCreator(c.Request.Context(), c.Param("creator"), q.Cursor, q.Limit)
	if err != nil {
		api.DomainErrorResponse(c, err)
		return
	}
	api.PageResponse(c, "Registry retrieved successfully", page)
}
