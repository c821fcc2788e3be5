package markets

import (
	"github.com/gin-gonic/gin"

	"github.com/joefazee/settlement/app/ledger"
	"github.com/joefazee/settlement/app/registry"
	"github.com/joefazee/settlement/app/store"
	"github.com/joefazee/settlement/internal/budget"
	"github.com/joefazee/settlement/internal/clock"
	"github.com/joefazee/settlement/internal/logger"
	"github.com/joefazee/settlement/internal/metrics"
	"github.com/joefazee/settlement/internal/oracle"
	"github.com/joefazee/settlement/internal/sanitizer"
	"github.com/joefazee/settlement/internal/security"
)

// Dependencies represents the dependencies needed for the markets module
type Dependencies struct {
	Executor   *store.Executor
	Repo       Repository
	Registry   registry.Service
	Funding    ledger.Funding
	Oracles    *oracle.Registry
	Authorizer security.Authorizer
	Budgets    *budget.Registry
	Clock      clock.Clock
	Config     *Config
	Sanitizer  sanitizer.HTMLStripperer
	Metrics    *metrics.Metrics
	Logger     logger.Logger
}

// Init initializes the markets module and mounts routes when r is non-nil
func Init(r *gin.RouterGroup, deps Dependencies) Service {
	// Use default config if none provided
	config := deps.Config
	if config == nil {
		config = GetDefaultConfig()
	}

	if err := config.Validate(); err != nil {
		panic("Invalid markets configuration: " + err.Error())
	}

	pe := NewPayoutEngine(config)
	se := NewSafeguardEngine(config)
	srvs := NewService(deps, config, pe, se)
	if r == nil {
		return srvs
	}

	handler := NewHandler(srvs)

	marketsGroup := r.Group("/markets")
	marketsGroup.POST("", handler.CreateMarket)
	marketsGroup.GET("/:id", handler.GetMarket)
	marketsGroup.GET("/:id/positions/:user", handler.GetPosition)
	marketsGroup.GET("/:id/multiplier", handler.GetMultiplier)

	// Lifecycle
	marketsGroup.POST("/:id/stake", handler.Stake)
	marketsGroup.POST("/:id/resolve", handler.ResolveMarket)
	marketsGroup.POST("/:id/resolve/oracle", handler.ResolveOracle)
	marketsGroup.POST("/:id/close", handler.CloseMarket)
	marketsGroup.POST("/:id/cancel", handler.CancelMarket)
	marketsGroup.POST("/:id/claim", handler.Claim)
	marketsGroup.POST("/:id/refund", handler.Refund)
	marketsGroup.POST("/:id/sweep", handler.Sweep)

	// Admin updates
	marketsGroup.PUT("/:id/metadata", handler.UpdateMetadata)
	marketsGroup.PUT("/:id/oracle", handler.UpdateOracle)
	marketsGroup.PUT("/:id/claim-period", handler.SetMarketClaimPeriod)

	settingsGroup := r.Group("/settings")
	settingsGroup.GET("", handler.GetSettings)
	settingsGroup.PUT("/claim-period", handler.SetClaimPeriod)
	settingsGroup.PUT("/budgets/:op", handler.SetBudget)

	return srvs
}
