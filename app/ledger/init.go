package ledger

import (
	"github.com/gin-gonic/gin"

	"github.com/joefazee/settlement/app/api"
	"github.com/joefazee/settlement/app/store"
	"github.com/joefazee/settlement/internal/clock"
	"github.com/joefazee/settlement/internal/metrics"
	"github.com/joefazee/settlement/internal/security"
	"github.com/joefazee/settlement/internal/transfer"
)

// Dependencies represents the dependencies needed for the ledger module
type Dependencies struct {
	Executor   *store.Executor
	Repo       Repository
	Authorizer security.Authorizer
	Transferer transfer.Transferer
	Funder     WalletFunder
	Clock      clock.Clock
	Config     *Config
	Metrics    *metrics.Metrics
}

// Module is what the ledger exposes to the rest of the engine
type Module struct {
	Service Service
	Funding Funding
}

// Init initializes the ledger module and mounts routes when r is non-nil
func Init(r *gin.RouterGroup, deps Dependencies) Module {
	config := deps.Config
	if config == nil {
		config = GetDefaultConfig()
	}

	if err := config.Validate(); err != nil {
		panic("Invalid ledger configuration: " + err.Error())
	}

	srvs := NewService(deps.Executor, deps.Repo, deps.Authorizer, deps.Transferer, deps.Funder, deps.Clock, config, deps.Metrics)
	module := Module{Service: srvs, Funding: NewFunding(config, srvs, deps.Transferer)}
	if r == nil {
		return module
	}

	handler := NewHandler(srvs, config.Asset)
	balances := r.Group("/balances")
	balances.POST("/deposit", handler.Deposit)
	balances.POST("/withdraw", handler.Withdraw)
	balances.GET("/:user", handler.GetBalance)

	if deps.Funder != nil {
		wallets := r.Group("/wallets", api.RequireAdmin(deps.Authorizer))
		wallets.POST("/:id/fund", handler.FundWallet)
		wallets.GET("/:id", handler.GetWallet)
	}

	return module
}
