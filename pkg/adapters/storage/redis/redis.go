package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/aescanero/usersapi/pkg/domain"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	usersListKey  = "usersapi:users:list"
	generationKey = "usersapi:users:gen"
)

// UserCache implements UserCache using Redis
type UserCache struct {
	client *redis.Client
	logger *zap.Logger
	ttl    time.Duration
}

// NewUserCache creates a new Redis users list cache
func NewUserCache(client *redis.Client, ttl time.Duration, logger *zap.Logger) *UserCache {
	return &UserCache{
		client: client,
		logger: logger,
		ttl:    ttl,
	}
}

// Get returns the cached users list; ok is false on a miss
func (c *UserCache) Get(ctx context.Context) ([]domain.User, bool, error) {
	data, err := c.client.Get(ctx, usersListKey).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to get users list: %w", err)
	}

	var users []domain.User
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal users list: %w", err)
	}

	return users, true, nil
}

// Generation returns the invalidation counter; a missing key reads as 0
func (c *UserCache) Generation(ctx context.Context) (int64, error) {
	gen, err := c.client.Get(ctx, generationKey).Int64()
	if err != nil {
		if err == redis.Nil {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get users list generation: %w", err)
	}

	return gen, nil
}

// Set stores the users list with the configured TTL. The write is skipped when
// the generation is no longer gen, and aborted when it changes mid-write.
func (c *UserCache) Set(ctx context.Context, users []domain.User, gen int64) (bool, error) {
	data, err := json.Marshal(users)
	if err != nil {
		return false, fmt.Errorf("failed to marshal users list: %w", err)
	}

	stored := false
	err = c.client.Watch(ctx, func(tx *redis.Tx) error {
		current, err := tx.Get(ctx, generationKey).Int64()
		if err != nil && err != redis.Nil {
			return err
		}
		if current != gen {
			return nil
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, usersListKey, data, c.ttl)
			return nil
		})
		if err == nil {
			stored = true
		}
		return err
	}, generationKey)
	if errors.Is(err, redis.TxFailedErr) {
		err = nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to save users list: %w", err)
	}

	if stored {
		c.logger.Debug("users list cached", zap.Int("count", len(users)), zap.Int64("generation", gen))
	} else {
		c.logger.Debug("stale users list not cached", zap.Int64("generation", gen))
	}
	return stored, nil
}

// Invalidate drops the cached users list and advances the generation
func (c *UserCache) Invalidate(ctx context.Context) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, generationKey)
		pipe.Del(ctx, usersListKey)
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to invalidate users list: %w", err)
	}

	return nil
}
