package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"todo-api/internal/models"

	"github.com/go-redis/redis/v8"
)

// ProfileCache holds the public view of a user for GET /me. Entries only
// carry JSON-visible fields, never credentials or codes.
type ProfileCache interface {
	// Get returns nil, nil on a miss.
	Get(ctx context.Context, id string) (*models.User, error)
	Set(ctx context.Context, user *models.User) error
	// SetIfAbsent stores user only when no entry exists, so a slow reader
	// never replaces a newer entry written after a mutation.
	SetIfAbsent(ctx context.Context, user *models.User) error
	Invalidate(ctx context.Context, id string) error
}

const profileTTL = time.Hour

type RedisProfileCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisProfileCache(client *redis.Client) *RedisProfileCache {
	return &RedisProfileCache{client: client, ttl: profileTTL}
}

func profileKey(id string) string { return fmt.Sprintf("user:%s", id) }

func (c *RedisProfileCache) Get(ctx context.Context, id string) (*models.User, error) {
	cached, err := c.client.Get(ctx, profileKey(id)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	var u models.User
	if err := json.Unmarshal([]byte(cached), &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *RedisProfileCache) Set(ctx context.Context, user *models.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return err
	}
	return c.client.SetEX(ctx, profileKey(user.ID.Hex()), data, c.ttl).Err()
}

func (c *RedisProfileCache) SetIfAbsent(ctx context.Context, user *models.User) error {
	data, err := json.Marshal(user)
	if err != nil {
		return err
	}
	return c.client.SetNX(ctx, profileKey(user.ID.Hex()), data, c.ttl).Err()
}

func (c *RedisProfileCache) Invalidate(ctx context.Context, id string) error {
	return c.client.Del(ctx, profileKey(id)).Err()
}

// NopProfileCache always misses.
type NopProfileCache struct{}

func (NopProfileCache) Get(context.Context, string) (*models.User, error) { return nil, nil }
func (NopProfileCache) Set(context.Context, *models.User) error           { return nil }
func (NopProfileCache) SetIfAbsent(context.Context, *models.User) error   { return nil }
func (NopProfileCache) Invalidate(context.Context, string) error          { return nil }
