package registry

import (
	"github.com/gin-gonic/gin"

	"github.com/joefazee/settlement/internal/clock"
)

// Dependencies represents the dependencies needed for the registry module
type Dependencies struct {
	Repo   Repository
	Config *Config
	Clock  clock.Clock
}

// Init builds the identifier generator and, when r is non-nil, mounts its
// read routes.
func Init(r *gin.RouterGroup, deps Dependencies) Service {
	config := deps.Config
	if config == nil {
		config = GetDefaultConfig()
	}

	if err := config.Validate(); err != nil {
		panic("Invalid registry configuration: " + err.Error())
	}

	srvs := NewService(deps.Repo, config, deps.Clock)
	if r == nil {
		return srvs
	}

	handler := NewHandler(srvs)
	group := r.Group("/registry")
	group.GET("", handler.GetRegistry)
	group.GET("/creators/:creator", handler.GetByCreator)

	return srvs
}
