package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"DexPilot/internal/handler/api"
	"DexPilot/internal/usecase"
	pkgcache "DexPilot/pkg/cache"
	pkgch "DexPilot/pkg/clickhouse"
	"DexPilot/pkg/config"
	xhttp "DexPilot/pkg/http"
	pkgkafka "DexPilot/pkg/kafka"
	applogger "DexPilot/pkg/logger"
	"DexPilot/pkg/queue"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg           *config.Config
	log           *applogger.Logger
	collector     *usecase.SnapshotCollector
	consumer      *pkgkafka.Consumer
	fillsHandler  *usecase.FillsHandler
	queueConsumer *queue.RedisQueue
	scheduler     *usecase.Scheduler
	ledger        *usecase.Ledger
	tracker       *usecase.Tracker
	dispatcher    *usecase.Dispatcher
	chClient      *pkgch.Client
	redis         *pkgcache.RedisCache
	router        *api.Router
	httpServer    *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	collector *usecase.SnapshotCollector,
	consumer *pkgkafka.Consumer,
	fillsHandler *usecase.FillsHandler,
	queueConsumer *queue.RedisQueue,
	scheduler *usecase.Scheduler,
	ledger *usecase.Ledger,
	tracker *usecase.Tracker,
	dispatcher *usecase.Dispatcher,
	chClient *pkgch.Client,
	redis *pkgcache.RedisCache,
	router *api.Router,
) *App {
	return &App{
		cfg:           cfg,
		log:           log,
		collector:     collector,
		consumer:      consumer,
		fillsHandler:  fillsHandler,
		queueConsumer: queueConsumer,
		scheduler:     scheduler,
		ledger:        ledger,
		tracker:       tracker,
		dispatcher:    dispatcher,
		chClient:      chClient,
		redis:         redis,
		router:        router,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.httpServer = xhttp.NewServer(a.router, a.log,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)

	// Market data in
	go func() {
		if err := a.collector.Start(ctx); err != nil {
			a.log.Error("collector error", applogger.Error(err))
		}
	}()
	a.log.Info("collector started", applogger.Strings("pairs", a.cfg.Feed.Pairs))

	// Fill reports in
	if a.consumer != nil && a.fillsHandler != nil {
		a.consumer.RegisterHandler(a.fillsHandler)
		go func() {
			if err := a.consumer.Start(); err != nil {
				a.log.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		a.log.Info("kafka consumer started", applogger.String("topic", a.fillsHandler.Topic()))
	}
	if a.queueConsumer != nil {
		if err := a.queueConsumer.Start(); err != nil {
			a.log.Error("reconcile queue start error", applogger.Error(err))
			return err
		}
	}

	// Decision cycles
	a.scheduler.Start(ctx)
	go a.adaptLoop(ctx)

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}
	a.log.Info("http server started", applogger.Int("port", a.cfg.Server.Port))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// adaptLoop re-derives strategy weights from realized performance on a slower
// cadence than the decision cycle.
func (a *App) adaptLoop(ctx context.Context) {
	interval := a.cfg.Engine.AdaptInterval
	if interval <= 0 {
		interval = time.Hour
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			w := a.tracker.Adapt(now)
			a.log.Info("strategy weights adapted", applogger.Any("weights", w))
		}
	}
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	a.scheduler.StopAll()

	if err := a.collector.Shutdown(ctx); err != nil {
		a.log.Warn("collector stop error", applogger.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}

	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.log.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}
	if a.queueConsumer != nil {
		if err := a.queueConsumer.Stop(shutdownCtx); err != nil {
			a.log.Warn("reconcile queue stop error", applogger.Error(err))
		}
	}

	a.dispatcher.Close()
	a.ledger.Close()

	// Flush any aggregated error logs before the queue publisher goes away.
	a.log.RemoveCollector()

	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.log.Warn("clickhouse close error", applogger.Error(err))
		}
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Warn("redis close error", applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return nil
}
