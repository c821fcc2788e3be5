package recovery

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/joefazee/settlement/app/api"
	"github.com/joefazee/settlement/internal/validator"
)

// Handler handles HTTP requests for market recovery
type Handler struct {
	service  Service
	maxUsers int
}

// NewHandler creates a new recovery handler
func NewHandler(service Service, maxUsers int) *Handler {
	return &Handler{service: service, maxUsers: maxUsers}
}

// ValidateIntegrity godoc
// @Summary Check the invariants of a market
// @Tags recovery
// @Produce json
// @Param id path string true "Market id"
// @Success 200 {object} api.Response{data=IntegrityReport}
// @Failure 404 {object} api.Response{error=api.ErrorInfo}
// @Router /api/v1/recovery/{id}/integrity [get]
func (h *Handler) ValidateIntegrity(c *gin.Context) {
	report, err := h.service.ValidateIntegrity(c.Request.Context(), c.Param("id"))
	if err != nil {
		api.DomainErrorResponse(c, err)
		return
	}
	api.SuccessResponse(c, http.StatusOK, "Integrity checked", report)
}

// Recover godoc
// @Summary Repair a market whose recorded total drifted (admin)
// @Tags recovery
// @Produce json
// @Security BearerAuth
// @Param id path string true "Market id"
// @Success 200 {object} api.Response{data=RecoverResult}
// @Failure 403 {object} api.Response{error=api.ErrorInfo}
// @Failure 409 {object} api.Response{error=api.ErrorInfo}
// @Router /api/v1/recovery/{id} [post]
func (h *Handler) Recover(c *gin.Context) {
	res, err := h.service.Recover(c.Request.Context(), c.Param("id"))
	if err != nil {
		api.DomainErrorResponse(c, err)
		return
	}
	api.SuccessResponse(c, http.StatusOK, "Recovery complete", res)
}

// PartialRefund godoc
// @Summary Refund the open stakes of selected users (admin)
// @Tags recovery
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Market id"
// @Param request body PartialRefundRequest true "Users to refund"
// @Success 200 {object} api.Response{data=RefundResult}
// @Failure 400 {object} api.Response{error=api.ErrorInfo}
// @Failure 409 {object} api.Response{error=api.ErrorInfo}
// @Router /api/v1/recovery/{id}/refunds [post]
func (h *Handler) PartialRefund(c *gin.Context) {
	var req PartialRefundRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BadRequestResponse(c, err.Error())
		return
	}
	v := validator.New()
	req.Validate(v, h.maxUsers)
	if !v.Valid() {
		api.ValidationErrorResponse(c, validator.NewValidationError("Validation failed", v.Errors))
		return
	}

	res, err := h.service.PartialRefund(c.Request.Context(), c.Param("id"), req.Users)
	if err != nil {
		api.DomainErrorResponse(c, err)
		return
	}
	api.SuccessResponse(c, http.StatusOK, "Stakes refunded", res)
}

// GetRecord godoc
// @Summary Get the recovery audit trail of a market
// @Tags recovery
// @Produce json
// @Param id path string true "Market id"
// @Success 200 {object} api.Response{data=models.RecoveryRecord}
// @Failure 404 {object} api.Response{error=api.ErrorInfo}
// @Router /api/v1/recovery/{id}/record [get]
func (h *Handler) GetRecord(c *gin.Context) {
	rec, err := h.service.GetRecord(c.Request.Context(), c.Param("id"))
	if err != nil {
		api.DomainErrorResponse(c, err)
		return
	}
	api.SuccessResponse(c, http.StatusOK, "Recovery record retrieved", rec)
}
