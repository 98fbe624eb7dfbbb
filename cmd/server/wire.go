package main

import (
	"context"

	"github.com/allergenai/backend/config"
	"github.com/allergenai/backend/internal/domain"
	"github.com/allergenai/backend/internal/infrastructure/cache"
	"github.com/allergenai/backend/internal/infrastructure/llm"
	"github.com/allergenai/backend/internal/infrastructure/metrics"
	"github.com/allergenai/backend/internal/infrastructure/openfoodfacts"
	"github.com/allergenai/backend/internal/infrastructure/rawstore"
	"github.com/allergenai/backend/internal/usecase"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// appEnv holds the wired collaborators shared by serve and resolve.
type appEnv struct {
	Resolver *usecase.ProductResolver
	Metrics  *metrics.Registry
	closers  []func() error
}

// Close releases store connections in reverse order of creation.
func (e *appEnv) Close() {
	for i := len(e.closers) - 1; i >= 0; i-- {
		if err := e.closers[i](); err != nil {
			zap.L().Warn("close failed", zap.Error(err))
		}
	}
}

func buildApp(ctx context.Context, cfg *config.Config) (*appEnv, error) {
	env := &appEnv{Metrics: metrics.NewRegistry()}

	products, closeProducts, err := newProductStore(ctx, cfg.Cache)
	if err != nil {
		return nil, err
	}
	env.closers = append(env.closers, closeProducts)

	raw, closeRaw, err := newRawStore(ctx, cfg.RawStore)
	if err != nil {
		env.Close()
		return nil, err
	}
	if closeRaw != nil {
		env.closers = append(env.closers, closeRaw)
	}

	source := openfoodfacts.NewClient(openfoodfacts.Config{
		BaseURL:       cfg.OpenFoodFacts.BaseURL,
		Timeout:       cfg.OpenFoodFacts.Timeout,
		MaxRetries:    cfg.OpenFoodFacts.MaxRetries,
		RatePerMinute: cfg.OpenFoodFacts.RatePerMinute,
		UserAgent:     cfg.OpenFoodFacts.UserAgent,
	})

	generator := llm.NewAnthropicGenerator(llm.Config{
		APIKey:     cfg.Anthropic.APIKey,
		Model:      cfg.Anthropic.Model,
		BaseURL:    cfg.Anthropic.BaseURL,
		MaxRetries: cfg.Anthropic.MaxRetries,
	})

	descriptions := usecase.NewDescriptionService(generator, usecase.DescriptionConfig{
		MaxTokens: cfg.Anthropic.MaxTokens,
	})

	env.Resolver = usecase.NewProductResolver(products, raw, source, descriptions, usecase.ResolverConfig{
		Recorder: env.Metrics,
	})

	zap.L().Info("application wired",
		zap.String("cache", cfg.Cache.Type),
		zap.String("rawstore", cfg.RawStore.Driver),
		zap.String("model", generator.Model()),
		zap.String("openfoodfacts", cfg.OpenFoodFacts.BaseURL))

	return env, nil
}

func newProductStore(ctx context.Context, cfg config.CacheConfig) (domain.ProductStore, func() error, error) {
	switch cfg.Type {
	case "redis":
		store, err := cache.NewRedisStore(cfg.RedisURL, cfg.TTL)
		if err != nil {
			return nil, nil, err
		}
		if err := store.Ping(ctx); err != nil {
			_ = store.Close()
			return nil, nil, eris.Wrap(err, "redis product store")
		}
		return store, store.Close, nil
	default:
		store := cache.NewMemoryStore(cfg.TTL)
		return store, store.Close, nil
	}
}

// newRawStore returns a nil store when no local dataset is configured.
func newRawStore(ctx context.Context, cfg config.RawStoreConfig) (domain.RawProductStore, func() error, error) {
	switch cfg.Driver {
	case "postgres":
		store, err := rawstore.NewPostgres(ctx, cfg.DatabaseURL, cfg.Table, rawstore.PoolConfig{MaxConns: cfg.MaxConns})
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	case "pebble":
		store, err := rawstore.NewPebbleStore(cfg.PebbleDir)
		if err != nil {
			return nil, nil, err
		}
		return store, store.Close, nil
	default:
		return nil, nil, nil
	}
}
