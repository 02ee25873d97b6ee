//go:build wireinject
// +build wireinject

package di

import (
	"TradeRelay/pkg/config"
	"TradeRelay/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Ambient
		ProvideLogger,
		ProvideMetrics,
		ProvideLocation,

		// Infrastructure
		ProvideStore,
		ProvideChannels,
		ProvideDispatcher,
		ProvideRateLimiter,

		// Use cases
		ProvideSuppressor,
		ProvideTracker,
		ProvideBias,
		ProvideSweeper,
		ProvideProcessor,

		// Transport
		ProvideHandler,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
