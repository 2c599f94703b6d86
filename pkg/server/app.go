package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/wrenwealth/Archantum/internal/dispatch"
	"github.com/wrenwealth/Archantum/internal/domain/repository"
	"github.com/wrenwealth/Archantum/internal/scheduler"
	"github.com/wrenwealth/Archantum/internal/usecase"
	pkgch "github.com/wrenwealth/Archantum/pkg/clickhouse"
	"github.com/wrenwealth/Archantum/pkg/config"
	xhttp "github.com/wrenwealth/Archantum/pkg/http"
	applogger "github.com/wrenwealth/Archantum/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	sched      *scheduler.Scheduler
	engine     *usecase.Engine
	stream     repository.StreamSource
	dispatcher *dispatch.Dispatcher
	httpServer *xhttp.Server
	archive    repository.SnapshotArchive
	notifier   repository.Notifier
	chClient   *pkgch.Client
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	sched *scheduler.Scheduler,
	engine *usecase.Engine,
	stream repository.StreamSource,
	dispatcher *dispatch.Dispatcher,
	httpServer *xhttp.Server,
	archive repository.SnapshotArchive,
	notifier repository.Notifier,
	chClient *pkgch.Client,
) *App {
	return &App{
		cfg:        cfg,
		log:        log,
		sched:      sched,
		engine:     engine,
		stream:     stream,
		dispatcher: dispatcher,
		httpServer: httpServer,
		archive:    archive,
		notifier:   notifier,
		chClient:   chClient,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// A dead stream is not fatal: the reconciler fails over to the pull
	// source until the stream reconnects.
	if err := a.stream.Connect(ctx); err != nil {
		a.log.Warn("stream connect failed, starting on pull source", applogger.Error(err))
	}

	a.engine.Restore(ctx)
	a.dispatcher.Start(ctx)

	go func() {
		if err := a.sched.Run(ctx); err != nil && ctx.Err() == nil {
			a.log.Error("scheduler stopped", applogger.Error(err))
		}
	}()
	a.log.Info("scheduler started",
		applogger.Duration("interval", a.cfg.Scheduler.PollInterval),
		applogger.Int("tier2_divisor", a.cfg.Scheduler.Tier2Divisor))

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}
	a.log.Info("http server started", applogger.Int("port", a.cfg.Server.Port))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	cancel()
	return a.shutdown()
}

// shutdown gracefully stops all services.
func (a *App) shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}

	// Stop producing before closing the outbound boundary.
	a.dispatcher.Stop()

	if err := a.stream.Close(); err != nil {
		a.log.Warn("stream close error", applogger.Error(err))
	}
	if err := a.notifier.Close(); err != nil {
		a.log.Warn("notifier close error", applogger.Error(err))
	}
	if err := a.archive.Close(); err != nil {
		a.log.Warn("archive close error", applogger.Error(err))
	}
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.log.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return nil
}
