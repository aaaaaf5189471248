package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/ternarybob/tickerlens/internal/common"
	"github.com/ternarybob/tickerlens/internal/interfaces"
	"github.com/ternarybob/tickerlens/internal/storage/badger"
	"github.com/ternarybob/tickerlens/internal/storage/memory"
	"github.com/ternarybob/tickerlens/internal/storage/postgres"
	"github.com/ternarybob/tickerlens/internal/storage/redis"
	"github.com/ternarybob/tickerlens/internal/storage/sqlite"
)

// NewCacheStorage opens the cache backend selected by config
func NewCacheStorage(ctx context.Context, logger arbor.ILogger, config *common.Config) (interfaces.CacheStorage, error) {
	switch config.Cache.Backend {
	case "", "badger":
		db, err := badger.NewBadgerDB(logger, &config.Storage.Badger)
		if err != nil {
			return nil, err
		}
		return badger.NewCacheStorage(db, logger), nil
	case "redis":
		maxAge := common.ParseDuration(config.Cache.MaxAge, 30*24*time.Hour)
		return redis.NewCacheStorage(ctx, logger, &config.Storage.Redis, maxAge)
	case "memory":
		return memory.NewCacheStorage(), nil
	default:
		return nil, fmt.Errorf("unsupported cache backend: %s", config.Cache.Backend)
	}
}

// NewResultStorage opens the durable result store selected by config
func NewResultStorage(ctx context.Context, logger arbor.ILogger, config *common.Config) (interfaces.ResultStorage, error) {
	switch config.Results.Backend {
	case "", "sqlite":
		db, err := sqlite.NewSQLiteDB(logger, &config.Storage.SQLite)
		if err != nil {
			return nil, err
		}
		return sqlite.NewResultStorage(db, logger), nil
	case "postgres":
		return postgres.NewResultStorage(ctx, logger, &config.Storage.Postgres)
	default:
		return nil, fmt.Errorf("unsupported results backend: %s", config.Results.Backend)
	}
}
