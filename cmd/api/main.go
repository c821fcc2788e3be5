package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/joefazee/settlement/app"
	"github.com/joefazee/settlement/internal/deps"
	"github.com/joefazee/settlement/internal/logger"
	"github.com/joefazee/settlement/internal/router"
)

// @title Settlement Engine API
// @version 1.0
// @description Prediction market settlement: market lifecycle, stakes, payouts, refunds, recovery and archival.
// @x-logo {"url": "https://go.dev/images/go-logo-white.svg", "altText": "Go API Logo"}

// @license.name MIT License
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /
// @schemes http https

// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and a PASETO token.
func main() {
	cfg, err := app.LoadConfig()
	if err != nil {
		logger.NewZeroLogger(os.Stderr, logger.LevelError, nil).Fatal(err, map[string]interface{}{"stage": "config"})
	}

	l := logger.New(&cfg.Log, logger.Fields{"service": "settlement", "env": cfg.Env})
	if err := run(cfg, l); err != nil {
		l.Fatal(err, nil)
	}
}

func run(cfg *app.Config, l logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := deps.New(ctx, cfg, l)
	if err != nil {
		return err
	}
	defer func() {
		if err := c.Close(); err != nil {
			l.Error(err, map[string]interface{}{"stage": "close"})
		}
	}()

	engine := router.NewMounter(c).Engine()
	if err := c.Services.Markets.Bootstrap(ctx); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           engine,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		l.Info("http server listening", map[string]interface{}{"addr": srv.Addr, "store": cfg.Store})
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	for _, loop := range c.Background() {
		loop := loop
		g.Go(func() error {
			if err := loop(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return err
			}
			return nil
		})
	}
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		l.Info("shutting down", map[string]interface{}{"timeout": cfg.ShutdownTimeout.String()})
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
