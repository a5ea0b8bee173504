//go:build wireinject
// +build wireinject

package di

import (
	"DexPilot/pkg/config"
	"DexPilot/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Observability
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure clients
		ProvideClickHouseClient,
		ProvideKafkaProducer,
		ProvideKafkaConsumer,
		ProvideRedis,

		// Repositories
		ProvideFillLedger,
		ProvideActionPublisher,
		ProvideAlertSink,
		ProvideFeedStream,

		// Fill reconciliation
		ProvideQueuePublisher,
		ProvideFillsHandler,
		ProvideFillReconciler,
		ProvideQueueConsumer,

		// Market data
		ProvideWindowRegistry,
		ProvideCollector,

		// Decision engine
		ProvideLedger,
		ProvideTracker,
		ProvideAnalyzers,
		ProvideAggregator,
		ProvideGenerator,
		ProvideEvaluator,
		ProvideRiskGate,
		ProvideDispatcher,
		ProvideDecisionCycle,
		ProvideScheduler,

		// HTTP API
		ProvideRouter,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
