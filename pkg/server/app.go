package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"TradeRelay/internal/usecase"
	"TradeRelay/pkg/config"
	xhttp "TradeRelay/pkg/http"
	"TradeRelay/pkg/kv"
	applogger "TradeRelay/pkg/logger"

	"github.com/robfig/cron/v3"
)

// App encapsulates the application lifecycle: HTTP intake, cron sweeps, and
// graceful shutdown.
type App struct {
	cfg     *config.Config
	logger  *applogger.Logger
	store   kv.Store
	sweeper *usecase.Sweeper
	handler xhttp.Handler

	httpServer *xhttp.Server
	cron       *cron.Cron
}

// New creates the App with all dependencies.
func New(
	cfg *config.Config,
	l *applogger.Logger,
	store kv.Store,
	sweeper *usecase.Sweeper,
	handler xhttp.Handler,
) *App {
	return &App{
		cfg:     cfg,
		logger:  l,
		store:   store,
		sweeper: sweeper,
		handler: handler,
	}
}

// Run starts the HTTP server and the sweep scheduler, then blocks until
// interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.httpServer = xhttp.NewServer(a.handler, a.logger,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(a.cfg.Server.CORS),
		xhttp.WithRequestMetrics(true),
	)

	if err := a.startSweeps(ctx); err != nil {
		return err
	}

	if err := a.httpServer.Start(); err != nil {
		return err
	}
	a.logger.Info("application started", applogger.Int("port", a.cfg.Server.Port))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.logger.Info("shutdown signal received")
	return a.shutdown()
}

// startSweeps registers the three sweep jobs. Cron specs include a seconds
// field and run in the trading timezone, so "0 30 8 * * 1-5" fires at 08:30
// local market time.
func (a *App) startSweeps(ctx context.Context) error {
	loc, err := a.loadLocation()
	if err != nil {
		return err
	}
	a.cron = cron.New(cron.WithSeconds(), cron.WithLocation(loc))

	jobs := []struct {
		name string
		spec string
		run  func(context.Context) error
	}{
		{"retention", a.cfg.Sweeps.RetentionCron, a.sweeper.RunRetention},
		{"settlement", a.cfg.Sweeps.SettlementCron, a.sweeper.RunSettlement},
		{"bias_release", a.cfg.Sweeps.BiasReleaseCron, a.sweeper.RunBiasRelease},
	}
	for _, j := range jobs {
		j := j
		if _, err := a.cron.AddFunc(j.spec, func() {
			if err := j.run(ctx); err != nil {
				a.logger.Error("sweep failed",
					applogger.String("sweep", j.name),
					applogger.Error(err),
				)
			}
		}); err != nil {
			a.logger.Error("sweep registration failed",
				applogger.String("sweep", j.name),
				applogger.String("spec", j.spec),
				applogger.Error(err),
			)
			return err
		}
	}

	a.cron.Start()
	a.logger.Info("sweep scheduler started", applogger.String("timezone", loc.String()))
	return nil
}

func (a *App) loadLocation() (*time.Location, error) {
	return time.LoadLocation(a.cfg.Trading.Timezone)
}

// shutdown stops everything in reverse start order and waits for in-flight
// sweep jobs to finish.
func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if a.cron != nil {
		<-a.cron.Stop().Done()
	}

	if a.httpServer != nil {
		if err := a.httpServer.Stop(ctx); err != nil {
			a.logger.Error("http shutdown error", applogger.Error(err))
		}
	}

	if err := a.store.Close(); err != nil {
		a.logger.Error("store close error", applogger.Error(err))
	}

	a.logger.Info("application stopped")
	return nil
}
