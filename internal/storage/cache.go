package storage

import (
	"context"
	"errors"
	"log/slog"

	"gorm.io/gorm"

	"docent_bot/internal/cache"
	"docent_bot/internal/config"
)

// OpenCache returns the configured cache backend. For postgres the store
// also prunes itself and is returned as pruner; redis entries expire on
// their own and pruner is nil. db is only needed for postgres.
func OpenCache(ctx context.Context, cfg config.Config, db *gorm.DB, log *slog.Logger) (store cache.Store, pruner *cache.GormStore, closeFn func(), err error) {
	switch cfg.Cache.Backend {
	case config.CachePostgres:
		if db == nil {
			return nil, nil, nil, errors.New("storage: postgres cache needs a database")
		}
		gs := cache.NewGormStore(db, log)
		return gs, gs, func() {}, nil
	default:
		rdb, err := NewRedis(ctx, cfg.Redis)
		if err != nil {
			return nil, nil, nil, err
		}
		log.Info("redis connected", slog.String("addr", cfg.Redis.Addr))
		ttl := cfg.Cache.TTL
		if ttl == 0 {
			ttl = cache.DefaultTTL
		}
		return cache.NewRedisStore(rdb, cfg.Cache.Prefix, ttl, log), nil, func() { _ = rdb.Close() }, nil
	}
}
