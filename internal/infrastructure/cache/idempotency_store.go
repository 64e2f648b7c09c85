package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix = "office-orders:idempotency:"

	// DefaultLockTTL bounds how long an in-flight marker survives a crashed handler
	DefaultLockTTL = 60 * time.Second

	// DefaultReplayTTL is how long completed responses are replayed
	DefaultReplayTTL = 24 * time.Hour
)

type entry struct {
	InProgress bool      `json:"in_progress"`
	Status     int       `json:"status"`
	Body       []byte    `json:"body"`
	CreatedAt  time.Time `json:"created_at"`
}

// IdempotencyStore keeps request markers and final responses in redis
type IdempotencyStore struct {
	rdb       redis.UniversalClient
	lockTTL   time.Duration
	replayTTL time.Duration
}

// NewIdempotencyStore creates a store. Zero TTLs take the defaults.
func NewIdempotencyStore(rdb redis.UniversalClient, lockTTL, replayTTL time.Duration) *IdempotencyStore {
	if lockTTL <= 0 {
		lockTTL = DefaultLockTTL
	}
	if replayTTL <= 0 {
		replayTTL = DefaultReplayTTL
	}
	return &IdempotencyStore{rdb: rdb, lockTTL: lockTTL, replayTTL: replayTTL}
}

// Acquire sets the provisional in-flight marker with SETNX
func (s *IdempotencyStore) Acquire(ctx context.Context, key string) (bool, error) {
	raw, err := json.Marshal(entry{InProgress: true, CreatedAt: time.Now().UTC()})
	if err != nil {
		return false, err
	}
	ok, err := s.rdb.SetNX(ctx, keyPrefix+key, raw, s.lockTTL).Result()
	if err != nil {
		return false, fmt.Errorf("failed to acquire idempotency key: %w", err)
	}
	return ok, nil
}

// Complete replaces the marker with the final response
func (s *IdempotencyStore) Complete(ctx context.Context, key string, status int, body []byte) error {
	raw, err := json.Marshal(entry{Status: status, Body: body, CreatedAt: time.Now().UTC()})
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, keyPrefix+key, raw, s.replayTTL).Err(); err != nil {
		return fmt.Errorf("failed to store idempotent response: %w", err)
	}
	return nil
}

// Lookup returns the stored response. A missing or in-flight key reports done=false.
func (s *IdempotencyStore) Lookup(ctx context.Context, key string) (int, []byte, bool, error) {
	raw, err := s.rdb.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return 0, nil, false, nil
	}
	if err != nil {
		return 0, nil, false, fmt.Errorf("failed to load idempotency key: %w", err)
	}

	var e entry
	if err := json.Unmarshal(raw, &e); err != nil {
		return 0, nil, false, fmt.Errorf("corrupt idempotency entry: %w", err)
	}
	if e.InProgress {
		return 0, nil, false, nil
	}
	return e.Status, e.Body, true, nil
}

// Release drops the marker so the request may be sent again
func (s *IdempotencyStore) Release(ctx context.Context, key string) error {
	return s.rdb.Del(ctx, keyPrefix+key).Err()
}
