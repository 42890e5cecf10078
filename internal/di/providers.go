package di

import (
	"context"
	"fmt"
	"time"

	"Quorum/internal/consensus"
	"Quorum/internal/domain/models"
	"Quorum/internal/domain/repository"
	domsvc "Quorum/internal/domain/service"
	"Quorum/internal/handler/api"
	"Quorum/internal/history"
	mid "Quorum/internal/middleware"
	"Quorum/internal/policy"
	"Quorum/internal/registry"
	internalrepo "Quorum/internal/repository"
	"Quorum/internal/service/marketfeed"
	svcmetrics "Quorum/internal/service/metrics"
	"Quorum/internal/service/providers"
	"Quorum/internal/usecase"
	pkgcache "Quorum/pkg/cache"
	pkgch "Quorum/pkg/clickhouse"
	"Quorum/pkg/config"
	xhttp "Quorum/pkg/http"
	pkgkafka "Quorum/pkg/kafka"
	applogger "Quorum/pkg/logger"
	"Quorum/pkg/metrics"
	"Quorum/pkg/server"
)

// ProvideLogger creates the application logger.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	level := "info"
	format := "console"
	if cfg.Environment == "production" {
		format = "json"
	}
	return applogger.New(&applogger.Config{Level: level, Format: format, Output: "stdout"})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	svcmetrics.Register()
	return metrics.New()
}

// ProvideRegistry builds the provider registry from configuration.
func ProvideRegistry(cfg *config.Config) *registry.Registry {
	ps := make([]models.Provider, 0, len(cfg.Providers))
	for _, pc := range cfg.Providers {
		ps = append(ps, models.Provider{
			ID:          pc.ID,
			Name:        pc.Name,
			Weight:      pc.Weight,
			Specialties: pc.Specialties,
		})
	}
	return registry.New(ps, cfg.Engine.FailureThreshold)
}

// ProvideSources builds one recommendation source per configured provider.
func ProvideSources(cfg *config.Config) map[string]domsvc.RecommendationSource {
	client := xhttp.NewClient(xhttp.WithTimeout(10 * time.Second))
	out := make(map[string]domsvc.RecommendationSource, len(cfg.Providers))
	for _, pc := range cfg.Providers {
		switch pc.Type {
		case "http":
			out[pc.ID] = providers.NewHTTPSource(pc.ID, pc.Endpoint, pc.APIKey, client)
		default:
			out[pc.ID] = providers.NewMockSource(pc.ID, time.Duration(pc.LatencyMS)*time.Millisecond)
		}
	}
	return out
}

// ProvideCollector creates the fan-out collector.
func ProvideCollector(
	reg *registry.Registry,
	sources map[string]domsvc.RecommendationSource,
	m repository.Metrics,
	log *applogger.Logger,
	cfg *config.Config,
) *usecase.Collector {
	return usecase.NewCollector(reg, sources, m, log, cfg.Engine.ProviderRateCap, cfg.Engine.ProviderRatePerSec)
}

// ProvideThresholds maps config to consensus thresholds, defaulting zeroes.
func ProvideThresholds(cfg *config.Config) consensus.Thresholds {
	th := consensus.Thresholds{
		LowDivergence:  cfg.Thresholds.LowDivergence,
		LowStrength:    cfg.Thresholds.LowStrength,
		HighDivergence: cfg.Thresholds.HighDivergence,
		HighStrength:   cfg.Thresholds.HighStrength,
	}
	def := consensus.DefaultThresholds()
	if th.LowDivergence <= 0 {
		th.LowDivergence = def.LowDivergence
	}
	if th.LowStrength <= 0 {
		th.LowStrength = def.LowStrength
	}
	if th.HighDivergence <= 0 {
		th.HighDivergence = def.HighDivergence
	}
	if th.HighStrength <= 0 {
		th.HighStrength = def.HighStrength
	}
	return th
}

// ProvideDeriver creates the execution policy deriver.
func ProvideDeriver(cfg *config.Config) *policy.Deriver {
	return policy.New(policy.Config{
		Posture:             policy.Posture(cfg.Risk.Posture),
		MaxPositionFraction: cfg.Risk.MaxPositionFraction,
		LossBand:            cfg.Risk.LossBand,
		GainBand:            cfg.Risk.GainBand,
	})
}

// ProvideHistory creates the in-process round log.
func ProvideHistory(cfg *config.Config) repository.History {
	return history.New(cfg.Engine.HistorySize, cfg.Engine.MetricsWindow, cfg.Engine.ConsensusThreshold)
}

// ProvideClickHouseClient creates a ClickHouse client, or nil when disabled.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	if !cfg.ClickHouse.Enabled {
		return nil, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithMaxConnections(10, 5),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert, cfg.ClickHouse.WaitForAsync),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout, cfg.ClickHouse.WriteTimeout),
		pkgch.WithMaxExecutionTime(cfg.ClickHouse.MaxExecutionTime),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db := cfg.ClickHouse.Database
	if db == "" {
		db = "quorum"
	}
	if err := client.InitSchema(ctx, []string{
		"CREATE DATABASE IF NOT EXISTS " + db,
		"CREATE TABLE IF NOT EXISTS " + db + ".rounds (round_id String, symbol String, outcome String, action String, strength Float64, latency_ms Float64, ts DateTime, payload String) ENGINE=MergeTree ORDER BY (symbol, ts)",
	}); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}

	return client, nil
}

// ProvideArchive creates the ClickHouse round archive, or nil without a client.
func ProvideArchive(chClient *pkgch.Client, cfg *config.Config) repository.Archive {
	if chClient == nil {
		return nil
	}
	db := cfg.ClickHouse.Database
	if db == "" {
		db = "quorum"
	}
	return internalrepo.NewClickHouseArchive(chClient.DB(), db+".rounds")
}

// ProvideKafkaProducer creates a Kafka producer, or nil when disabled.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithBatchSize(cfg.Kafka.Producer.BatchSize),
		pkgkafka.WithBatchBytes(cfg.Kafka.Producer.BatchBytes),
		pkgkafka.WithBatchTimeout(cfg.Kafka.Producer.Linger),
		pkgkafka.WithTimeouts(cfg.Kafka.Producer.WriteTimeout, cfg.Kafka.Producer.ReadTimeout),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideRoundPublisher creates the Kafka round publisher, or nil without a producer.
func ProvideRoundPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.Publisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaRoundPublisher(producer, cfg.Kafka.RoundsTopic)
}

// ProvideKafkaConsumer creates a Kafka consumer, or nil when disabled.
func ProvideKafkaConsumer(cfg *config.Config) (*pkgkafka.Consumer, error) {
	if !cfg.Kafka.Enabled || cfg.Kafka.ContextsTopic == "" {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.Consumer.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Consumer.Workers),
		pkgkafka.WithConsumerBufferSize(cfg.Kafka.Consumer.BufferSize),
		pkgkafka.WithConsumerRetry(cfg.Kafka.Consumer.RetryMax, cfg.Kafka.Consumer.BackoffMin, cfg.Kafka.Consumer.BackoffMax),
		pkgkafka.WithConsumerDLQ(cfg.Kafka.Consumer.DLQTopic),
		pkgkafka.WithConsumerFetch(cfg.Kafka.Consumer.MinBytes, cfg.Kafka.Consumer.MaxBytes),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideKafkaContextsHandler registers the handler for the round trigger topic.
func ProvideKafkaContextsHandler(engine *usecase.Engine, m repository.Metrics, cfg *config.Config) *usecase.KafkaContextsHandler {
	return usecase.NewKafkaContextsHandler(cfg.Kafka.ContextsTopic, engine, m)
}

// ProvideEngine creates the decision round engine.
func ProvideEngine(
	reg *registry.Registry,
	collector *usecase.Collector,
	th consensus.Thresholds,
	deriver *policy.Deriver,
	hist repository.History,
	archive repository.Archive,
	publisher repository.Publisher,
	m repository.Metrics,
	log *applogger.Logger,
	cfg *config.Config,
) *usecase.Engine {
	return usecase.NewEngine(
		reg, collector, th, deriver, hist, archive, publisher, m, log,
		cfg.Engine.Deadline,
		cfg.Engine.MaxConcurrentRounds,
	)
}

// ProvideFeedRunner creates the market feed runner, or nil when the feed is disabled.
func ProvideFeedRunner(engine *usecase.Engine, m repository.Metrics, cfg *config.Config) *usecase.FeedRunner {
	if !cfg.Feed.Enabled {
		return nil
	}
	stream := marketfeed.New(
		cfg.Feed.APIKey,
		cfg.Feed.WebSocketURL,
		cfg.Feed.Symbols,
		cfg.Feed.ReconnectDelay,
		cfg.Feed.PingInterval,
		cfg.Feed.WindowSize,
	)
	pipe := mid.NewRoundPipeline(usecase.NewRoundTrigger(engine), m,
		mid.WithMinInterval(cfg.Engine.MinRoundInterval),
		mid.WithBufferSize(cfg.Engine.PipelineBuffer),
	)
	return usecase.NewFeedRunner(stream, pipe, m)
}

// ProvideCache creates the cache service used by the HTTP layer.
func ProvideCache(cfg *config.Config) (pkgcache.Service, error) {
	if !cfg.Redis.Enabled {
		return pkgcache.NewMemoryCache(), nil
	}
	rc, err := pkgcache.NewRedisCache(
		pkgcache.WithRedisHost(cfg.Redis.Host),
		pkgcache.WithRedisPort(cfg.Redis.Port),
		pkgcache.WithRedisPassword(cfg.Redis.Password),
		pkgcache.WithRedisDB(cfg.Redis.DB),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return pkgcache.NewLayeredCache(rc), nil
}

// ProvideHTTPHandler creates the Echo API handler.
func ProvideHTTPHandler(
	log *applogger.Logger,
	engine *usecase.Engine,
	reg *registry.Registry,
	hist repository.History,
	archive repository.Archive,
	cache pkgcache.Service,
) xhttp.Handler {
	return api.NewRoundsEchoHandler(log, engine, reg, hist, archive, cache)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	log *applogger.Logger,
	handler xhttp.Handler,
	runner *usecase.FeedRunner,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaContextsHandler,
	producer *pkgkafka.Producer,
	chClient *pkgch.Client,
) *server.App {
	if consumer != nil {
		consumer.WithConsumerHook(pkgkafka.NoopHook{})
	}
	return server.New(cfg, log, handler, runner, consumer, kh, producer, chClient)
}
