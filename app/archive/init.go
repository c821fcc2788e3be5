package archive

import (
	"github.com/gin-gonic/gin"

	"github.com/joefazee/settlement/app/store"
	"github.com/joefazee/settlement/internal/blob"
	"github.com/joefazee/settlement/internal/clock"
	"github.com/joefazee/settlement/internal/logger"
	"github.com/joefazee/settlement/internal/security"
)

// Dependencies represents the dependencies needed for the archive module
type Dependencies struct {
	Executor   *store.Executor
	Repo       Repository
	Writer     blob.Writer
	Authorizer security.Authorizer
	Clock      clock.Clock
	Config     *Config
	Logger     logger.Logger
}

// Init initializes the archive module and mounts routes when r is non-nil
func Init(r *gin.RouterGroup, deps Dependencies) Service {
	config := deps.Config
	if config == nil {
		config = GetDefaultConfig()
	}

	if err := config.Validate(); err != nil {
		panic("Invalid archive configuration: " + err.Error())
	}

	srvs := NewService(deps, config)
	if r == nil {
		return srvs
	}

	handler := NewHandler(srvs)
	group := r.Group("/archive")
	group.GET("", handler.ByTimeRange)
	group.GET("/status/:state", handler.ByStatus)
	group.GET("/category/:category", handler.ByCategory)

	group.POST("/exports", handler.Export)
	group.POST("/:id", handler.Archive)

	return srvs
}
