package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/joefazee/settlement/app/api"
	"github.com/joefazee/settlement/app/archive"
	apiDoc "github.com/joefazee/settlement/app/doc"
	"github.com/joefazee/settlement/app/ledger"
	"github.com/joefazee/settlement/app/markets"
	"github.com/joefazee/settlement/app/recovery"
	"github.com/joefazee/settlement/app/registry"
	"github.com/joefazee/settlement/app/reporting"
	"github.com/joefazee/settlement/internal/deps"
	"github.com/joefazee/settlement/internal/logger"
)

// MountFunc mounts the routes of one module and records its service
type MountFunc func(*gin.RouterGroup, *deps.Container)

type Mounter struct {
	container *deps.Container
}

func NewMounter(container *deps.Container) *Mounter {
	return &Mounter{container: container}
}

// Engine builds the gin engine with every route of the settlement engine.
func (m *Mounter) Engine() *gin.Engine {
	c := m.container
	r := gin.New()
	r.Use(gin.Recovery(), api.CorsMiddleware(c.Config.CorsOrigins), api.Instrument(c.Metrics))

	r.GET("/healthz", m.health)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(c.Registry, promhttp.HandlerOpts{})))
	apiDoc.Init(r, c.Config.Env)

	limiter := api.NewRateLimiter(c.Config.RateLimitRPS, c.Config.RateLimitBurst)
	v1 := r.Group("/api/v1", api.Authenticate(c.TokenMaker), limiter.Middleware())

	m.Mount(v1, Registry, Ledger, Markets, Recovery, Reporting, Archive)
	return r
}

// Mount applies mount functions in order. Later modules depend on the
// services recorded by earlier ones.
func (m *Mounter) Mount(group *gin.RouterGroup, fns ...MountFunc) {
	for _, fn := range fns {
		fn(group, m.container)
	}
}

func (m *Mounter) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	status, healthy := m.container.Health(ctx)
	code := http.StatusOK
	if !healthy {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"status":       map[bool]string{true: "healthy", false: "degraded"}[healthy],
		"environment":  m.container.Config.Env,
		"dependencies": status,
	})
}

func Registry(r *gin.RouterGroup, c *deps.Container) {
	c.Services.Registry = registry.Init(r, registry.Dependencies{
		Repo:   c.Store,
		Config: &c.Config.Registry,
		Clock:  c.Clock,
	})
}

func Ledger(r *gin.RouterGroup, c *deps.Container) {
	c.Services.Ledger = ledger.Init(r, ledger.Dependencies{
		Executor:   c.Executor,
		Repo:       c.Store,
		Authorizer: c.Authorizer,
		Transferer: c.Transferer,
		Funder:     c.Accounts,
		Clock:      c.Clock,
		Config:     &c.Config.Ledger,
		Metrics:    c.Metrics,
	})
}

func Markets(r *gin.RouterGroup, c *deps.Container) {
	c.Services.Markets = markets.Init(r, markets.Dependencies{
		Executor:   c.Executor,
		Repo:       c.Store,
		Registry:   c.Services.Registry,
		Funding:    c.Services.Ledger.Funding,
		Oracles:    c.Oracles,
		Authorizer: c.Authorizer,
		Budgets:    c.Budgets,
		Clock:      c.Clock,
		Config:     &c.Config.Markets,
		Sanitizer:  c.Sanitizer,
		Metrics:    c.Metrics,
		Logger:     c.Logger.With(logger.Fields{"module": "markets"}),
	})
}

func Recovery(r *gin.RouterGroup, c *deps.Container) {
	c.Services.Recovery = recovery.Init(r, recovery.Dependencies{
		Executor:   c.Executor,
		Repo:       c.Store,
		Funding:    c.Services.Ledger.Funding,
		Authorizer: c.Authorizer,
		Clock:      c.Clock,
		Config:     &c.Config.Recovery,
		Logger:     c.Logger.With(logger.Fields{"module": "recovery"}),
	})
}

func Reporting(r *gin.RouterGroup, c *deps.Container) {
	c.Services.Reporting = reporting.Init(r, reporting.Dependencies{
		Repo:   c.Store,
		Cache:  c.StatsCache,
		Clock:  c.Clock,
		Config: &c.Config.Reporting,
		Logger: c.Logger.With(logger.Fields{"module": "reporting"}),
	})
}

func Archive(r *gin.RouterGroup, c *deps.Container) {
	c.Services.Archive = archive.Init(r, archive.Dependencies{
		Executor:   c.Executor,
		Repo:       c.Store,
		Writer:     c.Writer,
		Authorizer: c.Authorizer,
		Clock:      c.Clock,
		Config:     &c.Config.Archive,
		Logger:     c.Logger.With(logger.Fields{"module": "archive"}),
	})
}
