package markets

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/joefazee/settlement/app/api"
	"github.com/joefazee/settlement/internal/security"
	"github.com/joefazee/settlement/internal/validator"
	"github.com/joefazee/settlement/models"
)

// Handler handles HTTP requests for markets
type Handler struct {
	service Service
}

// NewHandler creates a new market handler
func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// bindJSONRequest binds JSON request body to the provided struct
func (h *Handler) bindJSONRequest(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		api.BadRequestResponse(c, err.Error())
		return false
	}
	return true
}

func (h *Handler) validate(c *gin.Context, check func(v *validator.Validator)) bool {
	v := validator.New()
	check(v)
	if !v.Valid() {
		api.ValidationErrorResponse(c, validator.NewValidationError("Validation failed", v.Errors))
		return false
	}
	return true
}

func caller(c *gin.Context) string {
	p, _ := security.PrincipalFrom(c.Request.Context())
	return p.UserID
}

func (h *Handler) respondMarket(c *gin.Context, m *models.Market, err error, message string) {
	if err != nil {
		api.DomainErrorResponse(c, err)
		return
	}
	api.SuccessResponse(c, http.StatusOK, message, ToMarketResponse(m))
}

// CreateMarket godoc
// @Summary Create a new market (admin)
// @Tags markets
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateMarketRequest true "Market data"
// @Success 201 {object} api.Response{data=MarketResponse}
// @Failure 400 {object} api.Response{error=api.ErrorInfo}
// @Failure 403 {object} api.Response{error=api.ErrorInfo}
// @Router /api/v1/markets [post]
func (h *Handler) CreateMarket(c *gin.Context) {
	var req CreateMarketRequest
	if !h.bindJSONRequest(c, &req) {
		return
	}
	if !h.validate(c, req.Validate) {
		return
	}

	market, err := h.service.Create(c.Request.Context(), &req)
	if err != nil {
		api.DomainErrorResponse(c, err)
		return
	}
	api.CreatedResponse(c, "Market created successfully", ToMarketResponse(market))
}

// GetMarket godoc
// @Summary Get a market
// @Tags markets
// @Produce json
// @Param id path string true "Market id"
// @Success 200 {object} api.Response{data=MarketResponse}
// @Failure 404 {object} api.Response{error=api.ErrorInfo}
// @Router /api/v1/markets/{id} [get]
func (h *Handler) GetMarket(c *gin.Context) {
	market, err := h.service.GetMarket(c.Request.Context(), c.Param("id"))
	h.respondMarket(c, market, err, "Market retrieved successfully")
}

// GetPosition godoc
// @Summary Get a user's position on a market
// @Tags markets
// @Produce json
// @Param id path string true "Market id"
// @Param user path string true "User id"
// @Success 200 {object} api.Response{data=PositionResponse}
// @Failure 404 {object} api.Response{error=api.ErrorInfo}
// @Router /api/v1/markets/{id}/positions/{user} [get]
func (h *Handler) GetPosition(c *gin.Context) {
	pos, err := h.service.GetPosition(c.Request.Context(), c.Param("id"), c.Param("user"))
	if err != nil {
		api.DomainErrorResponse(c, err)
		return
	}
	api.SuccessResponse(c, http.StatusOK, "Position retrieved successfully", ToPositionResponse(pos))
}

// GetMultiplier godoc
// @Summary Get the payout multiplier of an outcome
// @Description Payout per 100 units staked if the outcome wins, before fees
// @Tags markets
// @Produce json
// @Param id path string true "Market id"
// @Param outcome query string true "Outcome label"
// @Success 200 {object} api.Response{data=MultiplierResponse}
// @Router /api/v1/markets/{id}/multiplier [get]
func (h *Handler) GetMultiplier(c *gin.Context) {
	outcome := c.Query("outcome")
	if outcome == "" {
		api.BadRequestResponse(c, "outcome is required")
		return
	}
	mult, err := h.service.PayoutMultiplier(c.Request.Context(), c.Param("id"), outcome)
	if err != nil {
		api.DomainErrorResponse(c, err)
		return
	}
	api.SuccessResponse(c, http.StatusOK, "Multiplier calculated", MultiplierResponse{
		MarketID:   c.Param("id"),
		Outcome:    outcome,
		Multiplier: mult,
	})
}

// Stake godoc
// @Summary Stake on an outcome
// @Tags markets
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Market id"
// @Param request body StakeRequest true "Outcome and amount"
// @Success 200 {object} api.Response{data=PositionResponse}
// @Failure 400 {object} api.Response{error=api.ErrorInfo}
// @Failure 409 {object} api.Response{error=api.ErrorInfo}
// @Router /api/v1/markets/{id}/stake [post]
func (h *Handler) Stake(c *gin.Context) {
	var req StakeRequest
	if !h.bindJSONRequest(c, &req) {
		return
	}
	if !h.validate(c, req.Validate) {
		return
	}
	pos, err := h.service.Stake(c.Request.Context(), caller(c), c.Param("id"), req.Outcome, req.Amount)
	if err != nil {
		api.DomainErrorResponse(c, err)
		return
	}
	api.SuccessResponse(c, http.StatusOK, "Stake placed", ToPositionResponse(pos))
}

// ResolveMarket godoc
// @Summary Resolve a market manually (admin)
// @Tags markets
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Market id"
// @Param request body ResolveMarketRequest true "Winning outcome"
// @Success 200 {object} api.Response{data=MarketResponse}
// @Router /api/v1/markets/{id}/resolve [post]
func (h *Handler) ResolveMarket(c *gin.Context) {
	var req ResolveMarketRequest
	if !h.bindJSONRequest(c, &req) {
		return
	}
	market, err := h.service.ResolveManual(c.Request.Context(), c.Param("id"), req.WinningOutcome)
	h.respondMarket(c, market, err, "Market resolved successfully")
}

// ResolveOracle godoc
// @Summary Resolve a market from its oracle
// @Tags markets
// @Produce json
// @Param id path string true "Market id"
// @Success 200 {object} api.Response{data=MarketResponse}
// @Failure 503 {object} api.Response{error=api.ErrorInfo}
// @Router /api/v1/markets/{id}/resolve/oracle [post]
func (h *Handler) ResolveOracle(c *gin.Context) {
	market, err := h.service.ResolveOracle(c.Request.Context(), c.Param("id"))
	h.respondMarket(c, market, err, "Market resolved successfully")
}

// CloseMarket godoc
// @Summary Close an ended market
// @Tags markets
// @Produce json
// @Param id path string true "Market id"
// @Success 200 {object} api.Response{data=MarketResponse}
// @Router /api/v1/markets/{id}/close [post]
func (h *Handler) CloseMarket(c *gin.Context) {
	market, err := h.service.Close(c.Request.Context(), c.Param("id"))
	h.respondMarket(c, market, err, "Market closed successfully")
}

// CancelMarket godoc
// @Summary Cancel a market (admin)
// @Tags markets
// @Produce json
// @Security BearerAuth
// @Param id path string true "Market id"
// @Success 200 {object} api.Response{data=MarketResponse}
// @Router /api/v1/markets/{id}/cancel [post]
func (h *Handler) CancelMarket(c *gin.Context) {
	market, err := h.service.Cancel(c.Request.Context(), c.Param("id"))
	h.respondMarket(c, market, err, "Market cancelled successfully")
}

// Claim godoc
// @Summary Claim winnings
// @Tags markets
// @Produce json
// @Security BearerAuth
// @Param id path string true "Market id"
// @Success 200 {object} api.Response{data=ClaimResult}
// @Failure 409 {object} api.Response{error=api.ErrorInfo}
// @Failure 409 {object} api.Response{error=api.ErrorInfo}
// @Router /api/v1/markets/{id}/claim [post]
func (h *Handler) Claim(c *gin.Context) {
	res, err := h.service.Claim(c.Request.Context(), caller(c), c.Param("id"))
	if err != nil {
		api.DomainErrorResponse(c, err)
		return
	}
	api.SuccessResponse(c, http.StatusOK, "Winnings claimed", res)
}

// Refund godoc
// @Summary Refund a stake on a cancelled market
// @Tags markets
// @Produce json
// @Security BearerAuth
// @Param id path string true "Market id"
// @Success 200 {object} api.Response{data=PositionResponse}
// @Router /api/v1/markets/{id}/refund [post]
func (h *Handler) Refund(c *gin.Context) {
	pos, err := h.service.Refund(c.Request.Context(), caller(c), c.Param("id"))
	if err != nil {
		api.DomainErrorResponse(c, err)
		return
	}
	api.SuccessResponse(c, http.StatusOK, "Stake refunded", ToPositionResponse(pos))
}

// Sweep godoc
// @Summary Sweep unclaimed winnings to the treasury (admin)
// @Tags markets
// @Produce json
// @Security BearerAuth
// @Param id path string true "Market id"
// @Param include_market_override query bool false "Use the market's own claim window"
// @Success 200 {object} api.Response{data=SweepResult}
// @Failure 400 {object} api.Response{error=api.ErrorInfo}
// @Router /api/v1/markets/{id}/sweep [post]
func (h *Handler) Sweep(c *gin.Context) {
	var q SweepQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		api.BadRequestResponse(c, err.Error())
		return
	}
	res, err := h.service.SweepUnclaimed(c.Request.Context(), c.Param("id"), q.IncludeMarketOverride)
	if err != nil {
		api.DomainErrorResponse(c, err)
		return
	}
	api.SuccessResponse(c, http.StatusOK, "Unclaimed winnings swept", res)
}

// UpdateMetadata godoc
// @Summary Update market category and tags (admin)
// @Tags markets
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Market id"
// @Param request body UpdateMetadataRequest true "Metadata"
// @Success 200 {object} api.Response{data=MarketResponse}
// @Router /api/v1/markets/{id}/metadata [put]
func (h *Handler) UpdateMetadata(c *gin.Context) {
	var req UpdateMetadataRequest
	if !h.bindJSONRequest(c, &req) {
		return
	}
	market, err := h.service.UpdateMetadata(c.Request.Context(), c.Param("id"), req.Category, req.Tags)
	h.respondMarket(c, market, err, "Market updated successfully")
}

// UpdateOracle godoc
// @Summary Replace the oracle configuration (admin)
// @Tags markets
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Market id"
// @Param request body OracleConfigRequest true "Oracle configuration"
// @Success 200 {object} api.Response{data=MarketResponse}
// @Router /api/v1/markets/{id}/oracle [put]
func (h *Handler) UpdateOracle(c *gin.Context) {
	var req OracleConfigRequest
	if !h.bindJSONRequest(c, &req) {
		return
	}
	if !h.validate(c, req.Validate) {
		return
	}
	market, err := h.service.UpdateOracleConfig(c.Request.Context(), c.Param("id"), req.ToModel())
	h.respondMarket(c, market, err, "Oracle configuration updated")
}

// SetMarketClaimPeriod godoc
// @Summary Override the claim window of one market (admin)
// @Tags markets
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Market id"
// @Param request body ClaimPeriodRequest true "Seconds, 0 falls back to the global window"
// @Success 200 {object} api.Response{data=MarketResponse}
// @Router /api/v1/markets/{id}/claim-period [put]
func (h *Handler) SetMarketClaimPeriod(c *gin.Context) {
	var req ClaimPeriodRequest
	if !h.bindJSONRequest(c, &req) {
		return
	}
	period, err := req.Period()
	if err != nil {
		api.DomainErrorResponse(c, err)
		return
	}
	market, err := h.service.SetMarketClaimPeriod(c.Request.Context(), c.Param("id"), period)
	h.respondMarket(c, market, err, "Claim period updated")
}

// GetSettings godoc
// @Summary Get engine settings
// @Tags settings
// @Produce json
// @Success 200 {object} api.Response{data=models.Settings}
// @Router /api/v1/settings [get]
func (h *Handler) GetSettings(c *gin.Context) {
	settings, err := h.service.GetSettings(c.Request.Context())
	if err != nil {
		api.DomainErrorResponse(c, err)
		return
	}
	api.SuccessResponse(c, http.StatusOK, "Settings retrieved successfully", settings)
}

// SetClaimPeriod godoc
// @Summary Set the global claim window (admin)
// @Tags settings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body ClaimPeriodRequest true "Seconds, 0 disables expiry"
// @Success 200 {object} api.Response{data=models.Settings}
// @Router /api/v1/settings/claim-period [put]
func (h *Handler) SetClaimPeriod(c *gin.Context) {
	var req ClaimPeriodRequest
	if !h.bindJSONRequest(c, &req) {
		return
	}
	period, err := req.Period()
	if err != nil {
		api.DomainErrorResponse(c, err)
		return
	}
	settings, err := h.service.SetClaimPeriod(c.Request.Context(), period)
	if err != nil {
		api.DomainErrorResponse(c, err)
		return
	}
	api.SuccessResponse(c, http.StatusOK, "Claim period updated", settings)
}

// SetBudget godoc
// @Summary Set the cost ceiling of an operation (admin)
// @Tags settings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param op path string true "Operation name"
// @Param request body BudgetRequest true "Ceiling, 0 removes it"
// @Success 200 {object} api.Response{data=models.Settings}
// @Router /api/v1/settings/budgets/{op} [put]
func (h *Handler) SetBudget(c *gin.Context) {
	var req BudgetRequest
	if !h.bindJSONRequest(c, &req) {
		return
	}
	settings, err := h.service.SetBudget(c.Request.Context(), c.Param("op"), req.Ceiling)
	if err != nil {
		api.DomainErrorResponse(c, err)
		return
	}
	api.SuccessResponse(c, http.StatusOK, "Budget updated", settings)
}
