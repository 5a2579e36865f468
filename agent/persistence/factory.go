package persistence

import (
	"context"
	"fmt"

	"github.com/BaSui01/roundtable/config"
	"github.com/BaSui01/roundtable/internal/database"
	"go.uber.org/zap"
)

// NewStore builds the archive backend selected by cfg.Archive.Backend.
// It returns (nil, nil) when archiving is disabled. Closing the store
// releases every resource it opened.
func NewStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (TranscriptStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch StoreType(cfg.Archive.Backend) {
	case "", StoreTypeNone:
		return nil, nil

	case StoreTypeMemory:
		return NewMemoryStore(), nil

	case StoreTypeRedis:
		opts := RedisOptions{
			Addr:         cfg.Redis.Addr,
			Password:     cfg.Redis.Password,
			DB:           cfg.Redis.DB,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			TLS:          cfg.Redis.TLS,
			KeyPrefix:    cfg.Archive.KeyPrefix,
			TTL:          cfg.Archive.TTL,
		}
		client, err := NewRedisClient(ctx, opts)
		if err != nil {
			return nil, err
		}
		logger.Info("transcript archive using redis", zap.String("addr", cfg.Redis.Addr))
		return NewRedisStore(client, opts), nil

	case StoreTypeDatabase:
		pool, err := database.Open(cfg.Database.Driver, cfg.Database.DSN(), database.PoolConfig{
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		}, logger)
		if err != nil {
			return nil, err
		}
		store := &pooledGormStore{GormStore: NewGormStore(pool.DB()), pool: pool}
		if err := store.Migrate(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		return store, nil

	default:
		return nil, fmt.Errorf("unknown archive backend %q", cfg.Archive.Backend)
	}
}

// pooledGormStore owns its connection pool.
type pooledGormStore struct {
	*GormStore
	pool *database.PoolManager
}

func (s *pooledGormStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *pooledGormStore) Close() error {
	return s.pool.Close()
}
