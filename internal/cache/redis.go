package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	redis "github.com/redis/go-redis/v9"

	"fraudgraph/pkg/models"
)

// Config configures Redis access for the case-file cache.
type Config struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
	TTL       time.Duration
}

// RedisCache holds assembled case files for a bounded time so repeated
// views of the same case skip the upstream fan-out.
type RedisCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisCache constructs a Redis-backed case-file cache.
func NewRedisCache(cfg Config) (*RedisCache, error) {
	if strings.TrimSpace(cfg.Addr) == "" {
		cfg.Addr = "127.0.0.1:6379"
	}
	if strings.TrimSpace(cfg.KeyPrefix) == "" {
		cfg.KeyPrefix = "fraudgraph:casefile"
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 5 * time.Minute
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("ping redis case-file cache: %w", err)
	}

	return &RedisCache{client: client, prefix: strings.TrimSpace(cfg.KeyPrefix), ttl: cfg.TTL}, nil
}

// Get returns the cached case file, or nil on a miss.
func (c *RedisCache) Get(ctx context.Context, caseID string) (*models.CaseFile, error) {
	data, err := c.client.Get(ctx, c.key(caseID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get case file %s: %w", caseID, err)
	}

	var cf models.CaseFile
	if err := json.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("decode cached case file %s: %w", caseID, err)
	}
	return &cf, nil
}

// Set stores the case file with the configured TTL.
func (c *RedisCache) Set(ctx context.Context, caseID string, cf *models.CaseFile) error {
	data, err := json.Marshal(cf)
	if err != nil {
		return fmt.Errorf("encode case file %s: %w", caseID, err)
	}
	if err := c.client.Set(ctx, c.key(caseID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("set case file %s: %w", caseID, err)
	}
	return nil
}

// Invalidate drops the cached case file, if any.
func (c *RedisCache) Invalidate(ctx context.Context, caseID string) error {
	if err := c.client.Del(ctx, c.key(caseID)).Err(); err != nil {
		return fmt.Errorf("invalidate case file %s: %w", caseID, err)
	}
	return nil
}

// Close releases the Redis client.
func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) key(caseID string) string {
	return c.prefix + ":" + caseID
}
