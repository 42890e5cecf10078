//go:build wireinject
// +build wireinject

package di

import (
	"Quorum/pkg/config"
	"Quorum/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,
		ProvideCache,

		// Repositories
		ProvideHistory,
		ProvideArchive,
		ProvideRoundPublisher,

		// Domain
		ProvideRegistry,
		ProvideSources,
		ProvideThresholds,
		ProvideDeriver,

		// Use cases
		ProvideCollector,
		ProvideEngine,
		ProvideKafkaContextsHandler,
		ProvideFeedRunner,

		// Transport
		ProvideHTTPHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
