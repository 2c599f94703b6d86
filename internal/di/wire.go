//go:build wireinject
// +build wireinject

package di

import (
	"github.com/wrenwealth/Archantum/pkg/config"
	"github.com/wrenwealth/Archantum/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		ProvideLogger,
		ProvideMetrics,

		// Infrastructure
		ProvideCache,
		ProvideStateStore,
		ProvideClickHouseClient,
		ProvideArchive,
		ProvideNotifier,

		// Sources and reconciliation
		ProvideStreamSource,
		ProvidePullSource,
		ProvideCatalog,
		ProvideHealthTracker,
		ProvideSnapshotCache,
		ProvideReconciler,

		// Analysis pipeline
		ProvideTracker,
		ProvideRegistry,
		ProvideScorer,
		ProvideGate,
		ProvideDispatcher,
		ProvideEngine,
		ProvideScheduler,

		// Surfaces
		ProvideHTTPServer,
		ProvideApp,
	)
	return &server.App{}, nil
}
