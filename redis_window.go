package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisWindowStore is a WindowStore backed by Redis, for deployments running
// more than one server instance. INCR and EXPIRE run in one transaction so
// the count stays atomic across instances.
type RedisWindowStore struct {
	client *redis.Client
	prefix string
}

func NewRedisWindowStore(addr, password string, db int, prefix string) (*RedisWindowStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &RedisWindowStore{client: client, prefix: prefix}, nil
}

func (s *RedisWindowStore) Close() error {
	return s.client.Close()
}

// Check increments the window counter for the identifier and reports whether
// it is still within maxRequests. A Redis failure fails open: an unreachable
// limiter backend must not take the public site down. The failure is logged.
func (s *RedisWindowStore) Check(identifier string, maxRequests int, window time.Duration) bool {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	key := s.prefix + ":" + identifier

	pipe := s.client.TxPipeline()
	count := pipe.Incr(ctx, key)
	// ExpireNX so the window anchors on the first request, not the latest.
	pipe.ExpireNX(ctx, key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Printf("redis window check failed for %s: %v", identifier, err)
		return true
	}

	return count.Val() <= int64(maxRequests)
}
