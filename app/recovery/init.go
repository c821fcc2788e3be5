package recovery

import (
	"github.com/gin-gonic/gin"

	"github.com/joefazee/settlement/app/ledger"
	"github.com/joefazee/settlement/app/store"
	"github.com/joefazee/settlement/internal/clock"
	"github.com/joefazee/settlement/internal/logger"
	"github.com/joefazee/settlement/internal/security"
)

// Dependencies represents the dependencies needed for the recovery module
type Dependencies struct {
	Executor   *store.Executor
	Repo       Repository
	Funding    ledger.Funding
	Authorizer security.Authorizer
	Clock      clock.Clock
	Config     *Config
	Logger     logger.Logger
}

// Init initializes the recovery module and mounts routes when r is non-nil
func Init(r *gin.RouterGroup, deps Dependencies) Service {
	config := deps.Config
	if config == nil {
		config = GetDefaultConfig()
	}

	if err := config.Validate(); err != nil {
		panic("Invalid recovery configuration: " + err.Error())
	}

	srvs := NewService(deps, config)
	if r == nil {
		return srvs
	}

	handler := NewHandler(srvs, config.MaxRefundUsers)
	group := r.Group("/recovery/:id")
	group.GET("/integrity", handler.ValidateIntegrity)
	group.GET("/record", handler.GetRecord)

	group.POST("", handler.Recover)
	group.POST("/refunds", handler.PartialRefund)

	return srvs
}
