package persistence

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/stksupply/ticket-bot/internal/config"
)

// Backend is an opened snapshot backend plus its release hook.
type Backend struct {
	Store SnapshotStore
	Close func()
}

// Open builds the backend selected by cfg.Store.Backend.
func Open(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Backend, error) {
	switch cfg.Store.Backend {
	case config.StoreBackendRedis:
		r := NewRedis(cfg.Redis, logger)
		return &Backend{Store: NewRedisStore(r, cfg.Redis.SnapshotKey), Close: r.Close}, nil
	case config.StoreBackendPostgres:
		pg, err := NewPostgres(ctx, cfg.Postgres, logger)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if cfg.Postgres.RunMigrations {
			if err := RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
				pg.Close()
				return nil, err
			}
		}
		return &Backend{Store: NewPostgresStore(pg, cfg.Store.Name), Close: pg.Close}, nil
	default:
		logger.Info("using file snapshot store", zap.String("path", cfg.Store.Path))
		return &Backend{Store: NewFileStore(cfg.Store.Path), Close: func() {}}, nil
	}
}
