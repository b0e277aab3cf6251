// Package app assembles the server from configuration.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/stevemurr/circular-table-server/config"
	"github.com/stevemurr/circular-table-server/geocode"
	"github.com/stevemurr/circular-table-server/handler"
	"github.com/stevemurr/circular-table-server/logging"
	"github.com/stevemurr/circular-table-server/metrics"
	"github.com/stevemurr/circular-table-server/restaurant"
	"github.com/stevemurr/circular-table-server/store"
)

const metricsNamespace = "circulartable"

// App is everything an entrypoint needs to serve requests.
type App struct {
	Config  *config.Config
	Logger  *zap.Logger
	Handler *handler.Handler
}

func ProvideLogger(cfg *config.Config) (*zap.Logger, func(), error) {
	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, nil, err
	}
	return logger, func() { _ = logger.Sync() }, nil
}

// ProvideMetrics returns nil when metrics are disabled; every consumer
// treats a nil *metrics.Metrics as a no-op.
func ProvideMetrics(cfg *config.Config) *metrics.Metrics {
	if !cfg.Metrics.Enabled {
		return nil
	}
	return metrics.New(metricsNamespace)
}

func ProvideStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (store.Store, func(), error) {
	s, err := store.New(ctx, cfg.Store)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s store: %w", cfg.Store.Backend, err)
	}
	logger.Info("store opened",
		zap.String("backend", cfg.Store.Backend),
		zap.String("key", cfg.Store.Key))
	cleanup := func() {
		if err := s.Close(); err != nil {
			logger.Warn("closing store", zap.Error(err))
		}
	}
	return s, cleanup, nil
}

func ProvideService(s store.Store, cfg *config.Config, logger *zap.Logger, m *metrics.Metrics) *restaurant.Service {
	return restaurant.NewService(s, restaurant.Options{
		Key:        cfg.Store.Key,
		Mode:       restaurant.ConsistencyMode(cfg.Consistency.Mode),
		MaxRetries: cfg.Consistency.MaxRetries,
		Logger:     logger.Named("restaurant"),
		Metrics:    m,
	})
}

func ProvideGeocoder(cfg *config.Config, logger *zap.Logger) geocode.Gateway {
	client := geocode.NewGoogleClient(geocode.GoogleConfig{
		APIKey:  cfg.Geocode.APIKey,
		BaseURL: cfg.Geocode.BaseURL,
		Timeout: cfg.Geocode.Timeout,
	})
	return geocode.NewBreaker(client, geocode.DefaultBreakerConfig(), logger.Named("geocode"))
}

func ProvideHandler(svc *restaurant.Service, geo geocode.Gateway, m *metrics.Metrics, logger *zap.Logger, cfg *config.Config) *handler.Handler {
	return handler.New(svc, geo, m, logger.Named("http"), handler.Options{
		MapsAPIKey:     cfg.Geocode.APIKey,
		AllowedOrigins: cfg.Server.AllowedOrigins,
		StaticDir:      cfg.Server.StaticDir,
		MetricsPath:    cfg.Metrics.Path,
	})
}
