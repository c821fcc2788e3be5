package deps

import (
	"context"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"gorm.io/gorm"

	"github.com/joefazee/settlement/app"
	"github.com/joefazee/settlement/app/archive"
	"github.com/joefazee/settlement/app/database"
	"github.com/joefazee/settlement/app/ledger"
	"github.com/joefazee/settlement/app/markets"
	"github.com/joefazee/settlement/app/recovery"
	"github.com/joefazee/settlement/app/registry"
	"github.com/joefazee/settlement/app/reporting"
	"github.com/joefazee/settlement/app/store"
	"github.com/joefazee/settlement/internal/blob"
	"github.com/joefazee/settlement/internal/budget"
	"github.com/joefazee/settlement/internal/cache"
	"github.com/joefazee/settlement/internal/clock"
	"github.com/joefazee/settlement/internal/events"
	"github.com/joefazee/settlement/internal/guard"
	"github.com/joefazee/settlement/internal/logger"
	"github.com/joefazee/settlement/internal/metrics"
	"github.com/joefazee/settlement/internal/oracle"
	"github.com/joefazee/settlement/internal/sanitizer"
	"github.com/joefazee/settlement/internal/security"
	"github.com/joefazee/settlement/internal/transfer"
)

// Container holds all shared dependencies
type Container struct {
	Config     *app.Config
	DB         *gorm.DB
	Store      store.Store
	Executor   *store.Executor
	Guard      *guard.Guard
	Clock      clock.Clock
	Events     events.Sink
	Budgets    *budget.Registry
	Registry   *prometheus.Registry
	Metrics    *metrics.Metrics
	Logger     logger.Logger
	TokenMaker security.Maker
	Authorizer security.Authorizer
	Sanitizer  sanitizer.HTMLStripperer
	Oracles    *oracle.Registry
	StatsCache cache.Cache[reporting.PlatformStats]
	Accounts   *transfer.AccountLedger
	Transferer transfer.Transferer
	Writer     blob.Writer

	Services Services

	nats      *nats.Conn
	natsSink  *events.NATSSink
	closeFunc []func() error
}

// Services are the module services, filled in when routes are mounted.
type Services struct {
	Registry  registry.Service
	Ledger    ledger.Module
	Markets   markets.Service
	Recovery  recovery.Service
	Reporting reporting.Service
	Archive   archive.Service
}

// New builds the shared infrastructure described by cfg.
func New(ctx context.Context, cfg *app.Config, l logger.Logger) (*Container, error) {
	c := &Container{
		Config:    cfg,
		Guard:     guard.New(),
		Clock:     clock.System{},
		Budgets:   budget.NewRegistry(cfg.Budgets),
		Registry:  prometheus.NewRegistry(),
		Logger:    l,
		Sanitizer: sanitizer.NewHTMLStripper(),
	}
	c.Registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	c.Metrics = metrics.New(c.Registry)
	c.Authorizer = security.NewContextAuthorizer(cfg.Admins)

	steps := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"token maker", c.initTokenMaker},
		{"store", c.initStore},
		{"events", c.initEvents},
		{"caches", c.initCaches},
		{"archive writer", c.initWriter},
	}
	for _, step := range steps {
		if err := step.fn(ctx); err != nil {
			_ = c.Close()
			return nil, fmt.Errorf("init %s: %w", step.name, err)
		}
	}

	c.Accounts = transfer.NewAccountLedger(c.Store)
	c.Transferer = transfer.NewGuarded(c.Guard, c.Accounts)
	c.Executor = store.NewExecutor(c.Store, c.Guard, c.Events, c.Budgets, c.Metrics, c.Logger)
	return c, nil
}

func (c *Container) initTokenMaker(context.Context) error {
	maker, err := security.NewPasetoMaker(c.Config.SymmetricKey)
	if err != nil {
		return err
	}
	c.TokenMaker = maker
	return nil
}

func (c *Container) initStore(context.Context) error {
	if c.Config.Store == app.StoreMemory {
		c.Store = store.NewMemoryStore()
		c.Logger.Info("using in-memory store", nil)
		return nil
	}
	db, err := database.New(&c.Config.DB)
	if err != nil {
		return err
	}
	c.DB = db
	c.Store = store.NewGormStore(db)
	c.closeFunc = append(c.closeFunc, func() error {
		sqlDB, err := db.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	})
	return nil
}

func (c *Container) initEvents(ctx context.Context) error {
	sinks := events.MultiSink{events.NewLogSink(c.Logger)}
	if c.Config.NATS.Enabled() {
		nc, js, err := events.Connect(&c.Config.NATS, c.Logger)
		if err != nil {
			return err
		}
		c.nats = nc
		c.closeFunc = append(c.closeFunc, nc.Drain)
		if err := events.EnsureStream(ctx, js, &c.Config.NATS); err != nil {
			return err
		}
		c.natsSink = events.NewNATSSink(js, &c.Config.NATS, c.Logger, c.Metrics)
		sinks = append(sinks, c.natsSink)
	}
	c.Events = sinks
	return nil
}

func (c *Container) initCaches(context.Context) error {
	prices, err := cache.New[string](&c.Config.Cache)
	if err != nil {
		return err
	}
	stats, err := cache.New[reporting.PlatformStats](&c.Config.Cache)
	if err != nil {
		return err
	}
	c.StatsCache = stats
	c.closeFunc = append(c.closeFunc,
		func() error { return cache.Close(prices) },
		func() error { return cache.Close(stats) },
	)
	c.Oracles = oracle.Build(&c.Config.Oracle, prices, c.Events, c.Metrics, c.Logger)
	return nil
}

func (c *Container) initWriter(ctx context.Context) error {
	if !c.Config.Archive.S3.Enabled() {
		c.Logger.Info("archive export disabled, no bucket configured", nil)
		return nil
	}
	w, err := blob.NewS3Writer(ctx, &c.Config.Archive.S3)
	if err != nil {
		return err
	}
	c.Writer = w
	return nil
}

// Background returns the loops that must run for the life of the process.
func (c *Container) Background() []func(context.Context) error {
	var loops []func(context.Context) error
	if c.natsSink != nil {
		loops = append(loops, c.natsSink.Run)
	}
	return loops
}

// Close releases connections in reverse order of acquisition.
func (c *Container) Close() error {
	var errs []error
	for i := len(c.closeFunc) - 1; i >= 0; i-- {
		if err := c.closeFunc[i](); err != nil {
			errs = append(errs, err)
		}
	}
	c.closeFunc = nil
	return errors.Join(errs...)
}

// Health reports the state of each external dependency.
func (c *Container) Health(ctx context.Context) (map[string]string, bool) {
	status := map[string]string{"store": "memory"}
	healthy := true
	if c.DB != nil {
		status["store"] = "ok"
		sqlDB, err := c.DB.DB()
		if err == nil {
			err = sqlDB.PingContext(ctx)
		}
		if err != nil {
			status["store"] = err.Error()
			healthy = false
		}
	}
	if c.nats != nil {
		status["nats"] = c.nats.Status().String()
		if !c.nats.IsConnected() {
			healthy = false
		}
	}
	return status, healthy
}
