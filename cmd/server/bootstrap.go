package main

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.opentelemetry.io/contrib/instrumentation/go.mongodb.org/mongo-driver/mongo/otelmongo"

	"titlevault/internal/app"
	"titlevault/internal/cache"
	"titlevault/internal/enrich"
	"titlevault/internal/registry"
	mongoregistry "titlevault/internal/registry/mongo"
	"titlevault/internal/suggestions"
)

// registryStore is what both the enrichment pipeline and suggestion
// moderation persist through.
type registryStore interface {
	enrich.RegistryStore
	suggestions.Store
}

// buildCache selects the configured medium. cache.Open falls back to the
// in-process map when the medium is missing or fails its probe.
func buildCache(ctx context.Context, cfg app.Config, logger *slog.Logger) (*cache.Store, func()) {
	var (
		backend cache.Backend
		closer  = func() {}
	)
	switch cfg.CacheBackend {
	case "redis":
		redisURL := strings.TrimSpace(cfg.RedisURL)
		if redisURL == "" {
			logger.Warn("redis cache selected without REDIS_URL")
			break
		}
		redisOpts, err := redis.ParseURL(redisURL)
		if err != nil {
			logger.Warn("invalid redis url", slog.String("error", err.Error()))
			break
		}
		client := redis.NewClient(redisOpts)
		backend = cache.NewRedisBackend(client)
		closer = func() { _ = client.Close() }
	case "sqlite":
		sqlite, err := cache.OpenSQLite(ctx, cfg.CacheSQLitePath)
		if err != nil {
			logger.Warn("sqlite cache unavailable",
				slog.String("path", cfg.CacheSQLitePath),
				slog.String("error", err.Error()),
			)
			break
		}
		backend = sqlite
		closer = func() { _ = sqlite.Close() }
	case "", "memory":
	default:
		logger.Warn("unknown cache backend", slog.String("backend", cfg.CacheBackend))
	}

	store := cache.Open(ctx, backend,
		cache.WithTTL(cfg.CacheTTL),
		cache.WithMaxEntries(cfg.CacheMaxEntries),
		cache.WithLogger(logger),
	)
	return store, closer
}

// buildRegistry connects to Mongo when configured. Without it registry
// entries and suggestions live in memory for the life of the process.
func buildRegistry(ctx context.Context, cfg app.Config, logger *slog.Logger) (registryStore, func()) {
	uri := strings.TrimSpace(cfg.MongoURI)
	if uri == "" {
		logger.Info("mongo not configured, registry kept in memory")
		return registry.NewMemoryStore(), func() {}
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongoregistry.Connect(connectCtx, uri, options.Client().SetMonitor(otelmongo.NewMonitor()))
	if err != nil {
		logger.Warn("mongo connect failed, registry kept in memory", slog.String("error", err.Error()))
		return registry.NewMemoryStore(), func() {}
	}
	disconnect := func() {
		if err := client.Disconnect(context.Background()); err != nil {
			logger.Warn("mongo disconnect failed", slog.String("error", err.Error()))
		}
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		logger.Warn("mongo ping failed, registry kept in memory", slog.String("error", err.Error()))
		disconnect()
		return registry.NewMemoryStore(), func() {}
	}

	store := mongoregistry.NewStore(client, cfg.MongoDatabase)
	if err := store.EnsureIndexes(connectCtx); err != nil {
		logger.Warn("mongo ensure indexes failed", slog.String("error", err.Error()))
	}
	logger.Info("mongo registry connected", slog.String("database", cfg.MongoDatabase))
	return store, disconnect
}
