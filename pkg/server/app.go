package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"Quorum/internal/usecase"
	pkgch "Quorum/pkg/clickhouse"
	"Quorum/pkg/config"
	xhttp "Quorum/pkg/http"
	pkgkafka "Quorum/pkg/kafka"
	applogger "Quorum/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	handler    xhttp.Handler
	runner     *usecase.FeedRunner
	consumer   *pkgkafka.Consumer
	kh         *usecase.KafkaContextsHandler
	producer   *pkgkafka.Producer
	chClient   *pkgch.Client
	httpServer *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	handler xhttp.Handler,
	runner *usecase.FeedRunner,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaContextsHandler,
	producer *pkgkafka.Producer,
	chClient *pkgch.Client,
) *App {
	return &App{
		cfg:      cfg,
		log:      log,
		handler:  handler,
		runner:   runner,
		consumer: consumer,
		kh:       kh,
		producer: producer,
		chClient: chClient,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Ship aggregated error logs through Kafka when a topic is configured
	if a.producer != nil && a.cfg.Kafka.LogsTopic != "" {
		a.log.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          a.cfg.Kafka.LogsTopic,
			Publisher:      a.producer,
		})
	}

	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
	)

	// Start the market feed when configured; manual rounds via the API work
	// without it.
	if a.runner != nil {
		if err := a.runner.Start(ctx); err != nil {
			a.log.Error("feed start error", applogger.Error(err))
			return err
		}
		a.log.Info("feed runner started", applogger.Strings("symbols", a.cfg.Feed.Symbols))
	}

	// Start consumer for externally triggered rounds if configured
	if a.consumer != nil && a.kh != nil {
		a.consumer.RegisterHandler(a.kh)
		go func() {
			if err := a.consumer.Start(); err != nil {
				a.log.Error("kafka consumer error", applogger.Error(err))
			}
		}()
		a.log.Info("kafka consumer started", applogger.String("topic", a.kh.Topic()))
	}

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}
	a.log.Info("http server started", applogger.Int("port", a.cfg.Server.Port))

	// Wait for interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	if a.runner != nil {
		if err := a.runner.Shutdown(ctx); err != nil {
			a.log.Warn("feed stop error", applogger.Error(err))
		}
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

	a.log.RemoveCollector()

	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.log.Warn("kafka producer close error", applogger.Error(err))
		}
	}

	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.log.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return nil
}
