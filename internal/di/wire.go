//go:build wireinject
// +build wireinject

package di

import (
	"MarketAnalyst/pkg/config"
	"MarketAnalyst/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure
		ProvideStore,
		ProvideCache,
		ProvideCacheService,
		ProvideQuoteSource,
		ProvideScorePublisher,
		ProvideHub,

		// Core and use cases
		ProvideEngine,
		ProvideAnalysisUseCase,
		ProvideTickerUseCase,
		ProvideDispatcher,

		// Transports
		ProvideJobQueue,
		ProvideKafkaConsumer,
		ProvideHTTPServer,

		ProvideApp,
	)
	return &server.App{}, nil
}
