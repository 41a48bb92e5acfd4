package repository

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"spotbook/internal/config"

	"github.com/redis/go-redis/v9"
)

// RedisCacheRepository shares resource-owner lookups and actor rate limits
// across service instances.
type RedisCacheRepository struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisClient creates a Redis client from configuration.
func NewRedisClient(cfg config.RedisConfig) *redis.Client {
	options := &redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	}

	return redis.NewClient(options)
}

func NewRedisCacheRepository(client *redis.Client, ttl time.Duration) *RedisCacheRepository {
	return &RedisCacheRepository{
		client: client,
		ttl:    ttl,
	}
}

func ownerKey(resourceID int64) string {
	return fmt.Sprintf("resource_owner:%d", resourceID)
}

func (r *RedisCacheRepository) GetOwner(ctx context.Context, resourceID int64) (int64, bool, error) {
	if r.client == nil {
		return 0, false, fmt.Errorf("redis client is nil")
	}
	val, err := r.client.Get(ctx, ownerKey(resourceID)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("failed to get owner from redis: %w", err)
	}

	ownerID, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		return 0, false, fmt.Errorf("failed to parse cached owner %q: %w", val, err)
	}
	return ownerID, true, nil
}

func (r *RedisCacheRepository) SetOwner(ctx context.Context, resourceID, ownerID int64) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if err := r.client.Set(ctx, ownerKey(resourceID), strconv.FormatInt(ownerID, 10), r.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set owner in redis: %w", err)
	}
	return nil
}

func (r *RedisCacheRepository) InvalidateOwner(ctx context.Context, resourceID int64) error {
	if r.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if err := r.client.Del(ctx, ownerKey(resourceID)).Err(); err != nil {
		return fmt.Errorf("failed to delete owner from redis: %w", err)
	}
	return nil
}

func (r *RedisCacheRepository) CheckRateLimit(ctx context.Context, actorID int64, limit int, window time.Duration) (bool, error) {
	if r.client == nil {
		return false, fmt.Errorf("redis client is nil")
	}
	key := fmt.Sprintf("rate_limit:%d", actorID)
	count, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to increment rate limit: %w", err)
	}

	if count == 1 {
		r.client.Expire(ctx, key, window)
	}

	return count <= int64(limit), nil
}

// Ping verifies the Redis connection.
func Ping(ctx context.Context, client *redis.Client) error {
	_, err := client.Ping(ctx).Result()
	if err != nil {
		return fmt.Errorf("failed to ping Redis: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func Close(client *redis.Client) error {
	if client != nil {
		return client.Close()
	}
	return nil
}
