package ledger

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/joefazee/settlement/app/api"
	"github.com/joefazee/settlement/internal/security"
	"github.com/joefazee/settlement/internal/validator"
	"github.com/joefazee/settlement/models"
)

// Handler handles HTTP requests for balances
type Handler struct {
	service Service
	asset   string
}

// NewHandler creates a new ledger handler
func NewHandler(service Service, asset string) *Handler {
	return &Handler{service: service, asset: asset}
}

func (h *Handler) bindAmount(c *gin.Context, requireAsset bool) (*AmountRequest, bool) {
	var req AmountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		api.BadRequestResponse(c, err.Error())
		return nil, false
	}
	v := validator.New()
	req.Validate(v, requireAsset)
	if !v.Valid() {
		api.ValidationErrorResponse(c, validator.NewValidationError("Validation failed", v.Errors))
		return nil, false
	}
	return &req, true
}

func toBalanceResponse(b *models.Balance) BalanceResponse {
	return BalanceResponse{UserID: b.UserID, Asset: b.Asset, Amount: b.Amount}
}

func caller(c *gin.Context) string {
	p, _ := security.PrincipalFrom(c.Request.Context())
	return p.UserID
}

// Deposit godoc
// @Summary Deposit into the caller's balance
// @Tags balances
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body AmountRequest true "Asset and amount"
// @Success 200 {object} api.Response{data=BalanceResponse}
// @Failure 400 {object} api.Response{error=api.ErrorInfo}
// @Failure 402 {object} api.Response{error=api.ErrorInfo}
// @Router /api/v1/balances/deposit [post]
func (h *Handler) Deposit(c *gin.Context) {
	req, ok := h.bindAmount(c, true)
	if !ok {
		return
	}
	b, err := h.service.Deposit(c.Request.Context(), caller(c), req.Asset, req.Amount)
	if err != nil {
		api.DomainErrorResponse(c, err)
		return
	}
	api.SuccessResponse(c, http.StatusOK, "Deposit successful", toBalanceResponse(b))
}

// Withdraw godoc
// @Summary Withdraw from the caller's balance
// @Tags balances
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body AmountRequest true "Asset and amount"
// @Success 200 {object} api.Response{data=BalanceResponse}
// @Failure 400 {object} api.Response{error=api.ErrorInfo}
// @Failure 402 {object} api.Response{error=api.ErrorInfo}
// @Router /api/v1/balances/withdraw [post]
func (h *Handler) Withdraw(c *gin.Context) {
	req, ok := h.bindAmount(c, true)
	if !ok {
		return
	}
	b, err := h.service.Withdraw(c.Request.Context(), caller(c), req.Asset, req.Amount)
	if err != nil {
		api.DomainErrorResponse(c, err)
		return
	}
	api.SuccessResponse(c, http.StatusOK, "Withdrawal successful", toBalanceResponse(b))
}

// GetBalance godoc
// @Summary Get a user's available balance
// @Tags balances
// @Produce json
// @Param user path string true "User id"
// @Param asset query string false "Asset, defaults to the engine asset"
// @Success 200 {object} api.Response{data=BalanceResponse}
// @Router /api/v1/balances/{user} [get]
func (h *Handler) GetBalance(c *gin.Context) {
	asset := c.DefaultQuery("asset", h.asset)
	b, err := h.service.GetBalance(c.Request.Context(), c.Param("user"), asset)
	if err != nil {
		api.DomainErrorResponse(c, err)
		return
	}
	api.SuccessResponse(c, http.StatusOK, "Balance retrieved successfully", toBalanceResponse(b))
}

// FundWallet godoc
// @Summary Credit an external wallet (admin)
// @Tags wallets
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Wallet id"
// @Param request body AmountRequest true "Amount"
// @Success 200 {object} api.Response{data=WalletResponse}
// @Router /api/v1/wallets/{id}/fund [post]
func (h *Handler) FundWallet(c *gin.Context) {
	req, ok := h.bindAmount(c, false)
	if !ok {
		return
	}
	acc, err := h.service.FundWallet(c.Request.Context(), c.Param("id"), req.Amount)
	if err != nil {
		api.DomainErrorResponse(c, err)
		return
	}
	api.SuccessResponse(c, http.StatusOK, "Wallet funded", WalletResponse{ID: acc.ID, Amount: acc.Amount})
}

// GetWallet godoc
// @Summary Get an external wallet balance (admin)
// @Tags wallets
// @Produce json
// @Security BearerAuth
// @Param id path string true "Wallet id"
// @Success 200 {object} api.Response{data=WalletResponse}
// @Router /api/v1/wallets/{id} [get]
func (h *Handler) GetWallet(c *gin.Context) {
	amount, err := h.service.WalletBalance(c.Request.Context(), c.Param("id"))
	if err != nil {
		api.DomainErrorResponse(c, err)
		return
	}
	api.SuccessResponse(c, http.StatusOK, "Wallet retrieved successfully", WalletResponse{ID: c.Param("id"), Amount: amount})
}
