//go:build wireinject
// +build wireinject

package app

import (
	"github.com/google/wire"
)

var CoreInfraSet = wire.NewSet(
	NewLogging,
	NewLogger,
	NewMetricsRegistry,
	NewMetrics,
	NewStore,
	NewFetcher,
	NewObserverRegistry,
	NewKeyGenerator,
)

var StreamSet = wire.NewSet(
	NewStreamHub,
	NewStreamServer,
	NewPublisher,
)

var GatewaySet = wire.NewSet(
	NewQuoteService,
	NewToolRegistry,
	NewCatalog,
	NewFacade,
	NewMCPServer,
)

var AppSet = wire.NewSet(
	CoreInfraSet,
	StreamSet,
	GatewaySet,
	wire.Struct(new(ApplicationOptions), "*"),
	NewApplication,
)
