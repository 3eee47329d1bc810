package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

type RedisSlot struct {
	rdb *redis.Client
}

// NewRedisSlot accepts a redis:// URL or a bare host:port address.
func NewRedisSlot(ctx context.Context, url string) (*RedisSlot, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		opt = &redis.Options{Addr: url}
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return NewRedisSlotFromClient(rdb), nil
}

func NewRedisSlotFromClient(rdb *redis.Client) *RedisSlot {
	return &RedisSlot{rdb: rdb}
}

func (s *RedisSlot) Get(ctx context.Context, key string) ([]byte, error) {
	payload, err := s.rdb.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSlotEmpty
		}
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	return payload, nil
}

func (s *RedisSlot) Put(ctx context.Context, key string, payload []byte) error {
	if err := s.rdb.Set(ctx, key, payload, 0).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

func (s *RedisSlot) Close() error {
	return s.rdb.Close()
}
