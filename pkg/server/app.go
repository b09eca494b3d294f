package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"MarketAnalyst/internal/domain/repository"
	"MarketAnalyst/internal/handler/ws"
	"MarketAnalyst/internal/usecase"
	"MarketAnalyst/pkg/cache"
	"MarketAnalyst/pkg/config"
	xhttp "MarketAnalyst/pkg/http"
	pkgkafka "MarketAnalyst/pkg/kafka"
	applogger "MarketAnalyst/pkg/logger"
)

// JobQueue is the lifecycle of the local or Redis job queue.
type JobQueue interface {
	Start() error
	Stop(ctx context.Context) error
}

// App owns every long-running component and their shutdown order.
type App struct {
	cfg        *config.Config
	logger     *applogger.Logger
	http       *xhttp.Server
	queue      JobQueue
	consumer   *pkgkafka.Consumer // nil when kafka is disabled
	dispatcher *usecase.Dispatcher
	publisher  repository.ScorePublisher // nil when kafka is disabled
	hub        *ws.Hub
	store      repository.Store
	cache      cache.Service
}

func New(
	cfg *config.Config,
	l *applogger.Logger,
	httpServer *xhttp.Server,
	queue JobQueue,
	consumer *pkgkafka.Consumer,
	dispatcher *usecase.Dispatcher,
	publisher repository.ScorePublisher,
	hub *ws.Hub,
	store repository.Store,
	c cache.Service,
) *App {
	return &App{
		cfg:        cfg,
		logger:     l,
		http:       httpServer,
		queue:      queue,
		consumer:   consumer,
		dispatcher: dispatcher,
		publisher:  publisher,
		hub:        hub,
		store:      store,
		cache:      c,
	}
}

// Run starts the application and blocks until interrupted or ctx ends.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	if err := a.queue.Start(); err != nil {
		return err
	}

	if a.consumer != nil {
		if err := a.consumer.Start(); err != nil {
			a.logger.Error("kafka consumer start", applogger.Error(err))
			a.shutdown()
			return err
		}
		a.logger.Info("kafka consumer started", applogger.String("topic", a.cfg.Kafka.RequestsTopic))
	}

	if a.cfg.Analysis.Interval > 0 {
		go a.dispatcher.RunSchedule(ctx, a.cfg.Analysis.Interval)
		a.logger.Info("analysis schedule enabled", applogger.Duration("interval_ms", a.cfg.Analysis.Interval))
	}

	if err := a.http.Start(); err != nil {
		a.logger.Error("http server start", applogger.Error(err))
		a.shutdown()
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	select {
	case sig := <-sigCh:
		a.logger.Info("shutdown signal received", applogger.String("signal", sig.String()))
	case <-ctx.Done():
	}
	cancel()
	a.shutdown()
	return nil
}

// shutdown stops intake first (HTTP, consumer), then workers, then sinks.
func (a *App) shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout())
	defer cancel()

	if err := a.http.Stop(ctx); err != nil {
		a.logger.Error("http shutdown", applogger.Error(err))
	}
	if a.consumer != nil {
		if err := a.consumer.Stop(ctx); err != nil {
			a.logger.Warn("kafka consumer stop", applogger.Error(err))
		}
	}
	if err := a.queue.Stop(ctx); err != nil {
		a.logger.Warn("job queue stop", applogger.Error(err))
	}
	a.hub.Close()
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.logger.Warn("score publisher close", applogger.Error(err))
		}
	}
	if err := a.store.Close(); err != nil {
		a.logger.Warn("store close", applogger.Error(err))
	}
	if err := a.cache.Close(); err != nil {
		a.logger.Warn("cache close", applogger.Error(err))
	}
	a.logger.Info("shutdown complete")
}

func (a *App) shutdownTimeout() time.Duration {
	if d := a.http.ShutdownTimeout(); d > 0 {
		return d
	}
	return 10 * time.Second
}
