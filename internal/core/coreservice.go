package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jo-hoe/recipe-app/internal/backend/cache"
	"github.com/jo-hoe/recipe-app/internal/backend/database"
)

type CoreService struct {
	config          *ServiceConfig
	databaseService database.DatabaseService
	tokenCache      cache.TokenCache
}

// NewCoreService wires an already opened database and token cache. A nil cache
// disables token caching.
func NewCoreService(config *ServiceConfig, databaseService database.DatabaseService, tokenCache cache.TokenCache) *CoreService {
	if tokenCache == nil {
		tokenCache = cache.NewNoopTokenCache()
	}
	return &CoreService{
		config:          config,
		databaseService: databaseService,
		tokenCache:      tokenCache,
	}
}

// OpenCoreService opens the configured database and, when an address is set, the
// redis token cache.
func OpenCoreService(ctx context.Context, config *ServiceConfig) (*CoreService, error) {
	databaseService, err := getDatabaseService(ctx, config)
	if err != nil {
		return nil, err
	}

	var tokenCache cache.TokenCache = cache.NewNoopTokenCache()
	if config.Redis.Address != "" {
		redisCache, err := cache.NewRedisTokenCache(ctx, config.Redis.Address, config.Redis.TokenTTL)
		if err != nil {
			_ = databaseService.Close()
			return nil, fmt.Errorf("failed to initialize token cache: %w", err)
		}
		slog.Info("token cache initialized", "address", config.Redis.Address, "ttl", config.Redis.TokenTTL)
		tokenCache = redisCache
	}

	return NewCoreService(config, databaseService, tokenCache), nil
}

func (service *CoreService) Config() *ServiceConfig {
	return service.config
}

func (service *CoreService) Ping(ctx context.Context) error {
	return service.databaseService.Ping(ctx)
}

func (service *CoreService) Close() error {
	return errors.Join(service.tokenCache.Close(), service.databaseService.Close())
}

func getDatabaseService(ctx context.Context, config *ServiceConfig) (database.DatabaseService, error) {
	databaseService, err := database.NewDatabase(ctx, config.Database.Type, config.Database.DSN(), config.Database.MaxOpenConns)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}
	slog.Info("database initialized successfully", "type", config.Database.Type)
	return databaseService, nil
}
