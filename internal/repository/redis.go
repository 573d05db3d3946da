package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jack/shortlink-analytics/internal/config"
	"github.com/jack/shortlink-analytics/internal/model"
	"github.com/redis/go-redis/v9"
)

const (
	urlCachePrefix = "url:"
	geoCachePrefix = "geo:"
	urlCacheTTL    = 1 * time.Hour
)

// RedisRepository caches mapping headers and geo lookups. Click logs are
// never cached; they always come from the MappingStore.
type RedisRepository struct {
	client *redis.Client
}

func NewRedisRepository(cfg *config.RedisConfig) (*RedisRepository, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	return &RedisRepository{client: client}, nil
}

// NewRedisRepositoryWithClient wraps an existing client.
func NewRedisRepositoryWithClient(client *redis.Client) *RedisRepository {
	return &RedisRepository{client: client}
}

func (r *RedisRepository) Close() error {
	return r.client.Close()
}

// GetShortURL returns the cached mapping header, or nil on a cache miss.
func (r *RedisRepository) GetShortURL(ctx context.Context, shortCode string) (*model.ShortURL, error) {
	key := urlCachePrefix + shortCode

	// GETEX refreshes the TTL on read so hot keys do not all expire together.
	// The refreshed TTL may outlive the mapping; callers compare ExpiresAt anyway.
	data, err := r.client.GetEx(ctx, key, urlCacheTTL).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil // Cache miss
		}
		return nil, fmt.Errorf("failed to get url from cache: %w", err)
	}

	var url model.ShortURL
	if err := json.Unmarshal(data, &url); err != nil {
		return nil, fmt.Errorf("failed to unmarshal url: %w", err)
	}

	return &url, nil
}

// SetShortURL caches the mapping header. Expired mappings are not cached.
func (r *RedisRepository) SetShortURL(ctx context.Context, url *model.ShortURL) error {
	ttl := urlCacheTTL
	remaining := time.Until(url.ExpiresAt)
	if remaining <= 0 {
		return nil
	}
	if remaining < ttl {
		ttl = remaining
	}

	data, err := json.Marshal(url.Header())
	if err != nil {
		return fmt.Errorf("failed to marshal url: %w", err)
	}

	if err := r.client.Set(ctx, urlCachePrefix+url.ShortCode, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set url in cache: %w", err)
	}

	return nil
}

// GetGeo returns a cached location for ip. The bool is false on a cache miss.
func (r *RedisRepository) GetGeo(ctx context.Context, ip string) (model.Geo, bool, error) {
	data, err := r.client.Get(ctx, geoCachePrefix+ip).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return model.Geo{}, false, nil
		}
		return model.Geo{}, false, fmt.Errorf("failed to get geo from cache: %w", err)
	}

	var g model.Geo
	if err := json.Unmarshal(data, &g); err != nil {
		return model.Geo{}, false, fmt.Errorf("failed to unmarshal geo: %w", err)
	}
	return g, true, nil
}

func (r *RedisRepository) SetGeo(ctx context.Context, ip string, g model.Geo, ttl time.Duration) error {
	data, err := json.Marshal(g)
	if err != nil {
		return fmt.Errorf("failed to marshal geo: %w", err)
	}
	if err := r.client.Set(ctx, geoCachePrefix+ip, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set geo in cache: %w", err)
	}
	return nil
}

func (r *RedisRepository) Health(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}
