package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/siteledger/siteledger/internal/domain"
)

// RedisSnapshotCache implements the secondary cache adapter: a durable
// citation snapshot keyed by project id, consulted only when the primary
// read returns an empty set or fails.
type RedisSnapshotCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisSnapshotCache connects the cache adapter
func NewRedisSnapshotCache(redisURL string, ttl time.Duration) (*RedisSnapshotCache, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis URL: %w", err)
	}
	client := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return &RedisSnapshotCache{client: client, ttl: ttl}, nil
}

// ReadCitations retrieves the cached citation set for a project
func (c *RedisSnapshotCache) ReadCitations(ctx context.Context, projectID string) ([]*domain.Citation, error) {
	data, err := c.client.Get(ctx, key(projectID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cached snapshot: %w", err)
	}
	var citations []*domain.Citation
	if err := json.Unmarshal(data, &citations); err != nil {
		return nil, fmt.Errorf("failed to decode cached snapshot: %w", err)
	}
	return citations, nil
}

// WriteCitations stores the citation set for a project
func (c *RedisSnapshotCache) WriteCitations(ctx context.Context, projectID string, citations []*domain.Citation) error {
	data, err := json.Marshal(citations)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := c.client.Set(ctx, key(projectID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write cached snapshot: %w", err)
	}
	return nil
}

func key(projectID string) string {
	return "snapshot:" + projectID
}
