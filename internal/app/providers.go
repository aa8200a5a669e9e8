package app

import (
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/trubax/trubax-core/internal/config"
	"github.com/trubax/trubax-core/internal/domain"
	"github.com/trubax/trubax-core/internal/observability"
	"github.com/trubax/trubax-core/internal/repository"
	"github.com/trubax/trubax-core/internal/service"
	"github.com/trubax/trubax-core/internal/store"
)

const followLookupTTL = time.Minute

func provideLogger(rt *observability.Runtime) *slog.Logger {
	return rt.Logger
}

// provideRedisClient returns a client only when the redis backend is
// selected; other backends share no connection.
func provideRedisClient(cfg *config.Config) redis.UniversalClient {
	if cfg.StoreBackend != "redis" {
		return nil
	}
	return redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
}

func provideStore(cfg *config.Config, client redis.UniversalClient) (store.Store, error) {
	switch cfg.StoreBackend {
	case "memory":
		return store.NewMemoryStore(), nil
	case "redis":
		return store.NewRedisStore(client, cfg.RedisKeyPrefix), nil
	case "sql":
		if cfg.DatabaseDriver == "postgres" {
			return store.OpenPostgres(cfg.DatabaseDSN)
		}
		return store.OpenSQLite(cfg.DatabaseDSN)
	default:
		return nil, domain.Configurationf("unknown store backend %q", cfg.StoreBackend)
	}
}

// provideLookupCache keeps the follow-lookup cache next to the data: shared
// in redis when the store is redis, per-process otherwise.
func provideLookupCache(cfg *config.Config, client redis.UniversalClient, logger *slog.Logger) service.FollowLookupCache {
	if cfg.StoreBackend == "redis" && client != nil {
		return service.NewRedisFollowLookupCache(client, cfg.RedisKeyPrefix+":flc", followLookupTTL, logger)
	}
	return service.NewInMemoryFollowLookupCache(followLookupTTL)
}

func provideFollowService(follows *repository.FollowRepository, cache service.FollowLookupCache, cfg *config.Config, logger *slog.Logger) *service.FollowService {
	return service.NewFollowService(follows, cache, cfg.FollowRetryAttempts, logger)
}

func provideScheduler(sessions *repository.SessionRepository, accounts *repository.AccountRepository, cfg *config.Config, logger *slog.Logger) *service.CleanupScheduler {
	return service.NewCleanupScheduler(sessions, accounts, cfg.SweepInterval, cfg.SweepChunkSize, logger)
}
