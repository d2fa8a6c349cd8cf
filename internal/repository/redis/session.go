// Package redis backs the registration session store with Redis so
// sessions survive process restarts and are shared across replicas.
package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/ynakagi/homerelay/internal/config"
)

const sessionPrefix = "regsession:"

// SessionStore implements domain.SessionStore on Redis with a per-key TTL.
type SessionStore struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewSessionStore connects to Redis and verifies the connection.
func NewSessionStore(cfg config.RedisConfig, ttl time.Duration) (*SessionStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &SessionStore{rdb: rdb, ttl: ttl}, nil
}

// NewSessionStoreFromClient wraps an existing client; used by tests.
func NewSessionStoreFromClient(rdb *redis.Client, ttl time.Duration) *SessionStore {
	return &SessionStore{rdb: rdb, ttl: ttl}
}

// Close closes the Redis connection
func (s *SessionStore) Close() error {
	return s.rdb.Close()
}

// Start marks userID as awaiting a credential
func (s *SessionStore) Start(ctx context.Context, userID string) error {
	return s.rdb.Set(ctx, sessionPrefix+userID, 1, s.ttl).Err()
}

// Active reports whether userID has a live registration session
func (s *SessionStore) Active(ctx context.Context, userID string) (bool, error) {
	n, err := s.rdb.Exists(ctx, sessionPrefix+userID).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check session: %w", err)
	}
	return n > 0, nil
}

// Clear removes the session for userID, if any
func (s *SessionStore) Clear(ctx context.Context, userID string) error {
	return s.rdb.Del(ctx, sessionPrefix+userID).Err()
}
