package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// StateTTL bounds how long an OAuth handshake may take between the redirect
// and the provider callback.
const StateTTL = 10 * time.Minute

// NewRedisClient creates and pings a Redis client with optional password auth.
func NewRedisClient(ctx context.Context, addr, password string) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, err
	}
	return rdb, nil
}

// StateStore issues and consumes single-use OAuth state nonces in Redis.
type StateStore struct {
	rdb *redis.Client
}

func NewStateStore(rdb *redis.Client) *StateStore {
	return &StateStore{rdb: rdb}
}

// Issue mints a nonce the provider must echo back on the callback.
func (s *StateStore) Issue(ctx context.Context) (string, error) {
	state := uuid.New().String()
	err := s.rdb.Set(ctx, "oauth_state:"+state, "1", StateTTL).Err()
	return state, err
}

// Consume validates and deletes a nonce; it can only succeed once.
func (s *StateStore) Consume(ctx context.Context, state string) (bool, error) {
	n, err := s.rdb.Del(ctx, "oauth_state:"+state).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}
