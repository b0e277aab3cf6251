//go:build wireinject
// +build wireinject

package app

import (
	"context"

	"github.com/google/wire"

	"github.com/stevemurr/circular-table-server/config"
)

var ProviderSet = wire.NewSet(
	ProvideLogger,
	ProvideMetrics,
	ProvideStore,
	ProvideService,
	ProvideGeocoder,
	ProvideHandler,
	wire.Struct(new(App), "*"),
)

// Initialize builds an App. The returned cleanup closes the store and
// flushes the logger.
func Initialize(ctx context.Context, cfg *config.Config) (*App, func(), error) {
	wire.Build(ProviderSet)
	return nil, nil, nil
}
