package store

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"optymap/internal/tile"
)

// RedisStore keeps tiles in Redis with a TTL. Lets several map instances on
// one host share a warm tier.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(cfg RedisConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	ttl := cfg.TTL
	if ttl == 0 {
		ttl = 24 * time.Hour // default TTL
	}

	return &RedisStore{
		client: client,
		ttl:    ttl,
	}, nil
}

var _ TileStore = (*RedisStore)(nil)

func (s *RedisStore) keyFor(a tile.Address) string {
	return fmt.Sprintf("tile:%d:%d:%d", a.Zoom, a.Col, a.Row)
}

func (s *RedisStore) Get(a tile.Address) ([]byte, bool, error) {
	ctx := context.Background()

	data, err := s.client.Get(ctx, s.keyFor(a)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("redis get error: %w", err)
	}

	return data, true, nil
}

func (s *RedisStore) Set(a tile.Address, data []byte) error {
	ctx := context.Background()

	if err := s.client.Set(ctx, s.keyFor(a), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set error: %w", err)
	}

	return nil
}

func (s *RedisStore) Exists(a tile.Address) (bool, error) {
	ctx := context.Background()

	n, err := s.client.Exists(ctx, s.keyFor(a)).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists error: %w", err)
	}
	return n > 0, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
