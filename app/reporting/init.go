package reporting

import (
	"github.com/gin-gonic/gin"

	"github.com/joefazee/settlement/internal/cache"
	"github.com/joefazee/settlement/internal/clock"
	"github.com/joefazee/settlement/internal/logger"
)

// Dependencies represents the dependencies needed for the reporting module
type Dependencies struct {
	Repo   Repository
	Cache  cache.Cache[PlatformStats]
	Clock  clock.Clock
	Config *Config
	Logger logger.Logger
}

// Init initializes the reporting module and mounts routes when r is non-nil
func Init(r *gin.RouterGroup, deps Dependencies) Service {
	config := deps.Config
	if config == nil {
		config = GetDefaultConfig()
	}

	if err := config.Validate(); err != nil {
		panic("Invalid reporting configuration: " + err.Error())
	}

	srvs := NewService(deps.Repo, deps.Cache, deps.Clock, config, deps.Logger)
	if r == nil {
		return srvs
	}

	handler := NewHandler(srvs)
	group := r.Group("/reports")
	group.GET("/markets", handler.MarketsByState)
	group.GET("/markets/active", handler.ActiveMarkets)
	group.GET("/markets/:id/snapshot", handler.Snapshot)
	group.GET("/stats", handler.PlatformStats)

	return srvs
}
