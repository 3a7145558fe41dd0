package persistence

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/tickhelp/helpdesk-service/internal/domain"
)

const (
	userDirectoryKey = "users:directory"
	userDirectoryTTL = 30 * time.Second
)

// UserDirectoryCache keeps a short-lived snapshot of the user directory in
// Redis so the assignee picker does not hit Postgres on every page load.
// All methods tolerate a nil receiver or an unreachable Redis; callers fall
// through to the repository on any miss.
type UserDirectoryCache struct {
	client *redis.Client
	logger *zap.Logger
}

// NewUserDirectoryCache builds the cache over an existing Redis connection.
func NewUserDirectoryCache(r *Redis, logger *zap.Logger) *UserDirectoryCache {
	if r == nil || r.Client == nil {
		return nil
	}
	return &UserDirectoryCache{client: r.Client, logger: logger}
}

// Get returns the cached directory, or (nil, false) on miss.
func (c *UserDirectoryCache) Get(ctx context.Context) ([]domain.User, bool) {
	if c == nil {
		return nil, false
	}
	payload, err := c.client.Get(ctx, userDirectoryKey).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn("user directory cache read failed", zap.Error(err))
		}
		return nil, false
	}
	var users []domain.User
	if err := json.Unmarshal(payload, &users); err != nil {
		c.logger.Warn("user directory cache corrupt; dropping", zap.Error(err))
		_ = c.client.Del(ctx, userDirectoryKey).Err()
		return nil, false
	}
	return users, true
}

// Set stores a fresh directory snapshot.
func (c *UserDirectoryCache) Set(ctx context.Context, users []domain.User) {
	if c == nil {
		return
	}
	payload, err := json.Marshal(users)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, userDirectoryKey, payload, userDirectoryTTL).Err(); err != nil {
		c.logger.Warn("user directory cache write failed", zap.Error(err))
	}
}

// Invalidate drops the snapshot after any user mutation.
func (c *UserDirectoryCache) Invalidate(ctx context.Context) {
	if c == nil {
		return
	}
	if err := c.client.Del(ctx, userDirectoryKey).Err(); err != nil {
		c.logger.Warn("user directory cache invalidate failed", zap.Error(err))
	}
}
