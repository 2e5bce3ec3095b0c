// Package tokencache provides the single key-value slot holding the encrypted
// access-token blob. Writes are idempotent overwrites; two concurrent
// refreshes resolve last-writer-wins.
package tokencache

import (
	"context"
	"errors"
	"sync"

	redis "github.com/redis/go-redis/v9"
)

// Slot is the external config collaborator narrowed to one named key.
type Slot interface {
	// Get returns the stored blob, or "" when the slot is empty.
	Get(ctx context.Context) (string, error)
	// Set overwrites the stored blob.
	Set(ctx context.Context, blob string) error
}

// Memory is the in-process slot used when no Redis is configured.
type Memory struct {
	mu   sync.Mutex
	blob string
}

func NewMemory() *Memory { return &Memory{} }

func (m *Memory) Get(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.blob, nil
}

func (m *Memory) Set(ctx context.Context, blob string) error {
	m.mu.Lock()
	m.blob = blob
	m.mu.Unlock()
	return nil
}

// Redis stores the blob under a single Redis key.
type Redis struct {
	rdb *redis.Client
	key string
}

func NewRedis(url, key string) (*Redis, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return &Redis{rdb: redis.NewClient(opt), key: key}, nil
}

func (r *Redis) Get(ctx context.Context) (string, error) {
	v, err := r.rdb.Get(ctx, r.key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return v, nil
}

func (r *Redis) Set(ctx context.Context, blob string) error {
	return r.rdb.Set(ctx, r.key, blob, 0).Err()
}
