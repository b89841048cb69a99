//go:build wireinject
// +build wireinject

package di

import (
	"RiskScreen/pkg/config"
	"RiskScreen/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,

		// Data sources
		ProvideClickHouseClient,
		ProvidePanelSource,
		ProvideCatalogueSource,
		ProvideVolumeSource,
		ProvideSnapshotStore,

		// Cache
		ProvideRedisCache,
		ProvideResponseCache,

		// Messaging
		ProvideKafkaProducer,
		ProvideAlertPublisher,
		ProvideKafkaConsumer,

		// Use cases
		ProvideScreener,
		ProvideRefresher,
		ProvideRefreshHandler,

		// HTTP
		ProvideScreeningHandler,
		ProvideRateLimiter,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
