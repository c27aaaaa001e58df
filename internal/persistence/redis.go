package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/stksupply/ticket-bot/internal/config"
	"github.com/stksupply/ticket-bot/internal/domain"
)

// Redis wraps the go-redis client.
type Redis struct {
	Client *redis.Client
}

// NewRedis connects to Redis using the provided configuration.
func NewRedis(cfg config.RedisConfig, logger *zap.Logger) *Redis {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		logger.Warn("unable to reach redis", zap.Error(err))
	} else {
		logger.Info("connected to redis")
	}

	return &Redis{Client: client}
}

// Close closes the client.
func (r *Redis) Close() {
	if r != nil && r.Client != nil {
		_ = r.Client.Close()
	}
}

// Ping verifies Redis connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	if r == nil || r.Client == nil {
		return errors.New("redis client not configured")
	}
	return r.Client.Ping(ctx).Err()
}

// RedisStore keeps the snapshot document under a single key.
type RedisStore struct {
	redis *Redis
	key   string
}

// NewRedisStore returns a store writing to key.
func NewRedisStore(r *Redis, key string) *RedisStore {
	return &RedisStore{redis: r, key: key}
}

func (s *RedisStore) Load(ctx context.Context) (*domain.Snapshot, error) {
	data, err := s.redis.Client.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNoSnapshot
		}
		return nil, fmt.Errorf("get snapshot: %w", err)
	}
	return domain.DecodeSnapshot(data)
}

func (s *RedisStore) Save(ctx context.Context, snap *domain.Snapshot) error {
	data, err := snap.Encode()
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := s.redis.Client.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("set snapshot: %w", err)
	}
	return nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.redis.Ping(ctx)
}
