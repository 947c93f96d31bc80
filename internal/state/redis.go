package state

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"quakewatch/internal/types"
)

// RedisStore keeps the seen set in a Redis SET and last_check in a plain
// key. Unlike the FileStore it can persist incrementally, but for parity
// with the file backend Save writes the full delta of unseen ids.
type RedisStore struct {
	client   *redis.Client
	seenKey  string
	checkKey string
}

// Connect creates and validates a Redis connection.
func Connect(ctx context.Context, addr string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("connecting to redis at %s: %w", addr, err)
	}
	return client, nil
}

// NewRedisStore creates a RedisStore with keys derived from the prefix.
func NewRedisStore(client *redis.Client, keyPrefix string) *RedisStore {
	return &RedisStore{
		client:   client,
		seenKey:  keyPrefix + ":seen_ids",
		checkKey: keyPrefix + ":last_check",
	}
}

// Load reads the full seen set and last_check.
func (r *RedisStore) Load(ctx context.Context) (*types.MonitorState, error) {
	ids, err := r.client.SMembers(ctx, r.seenKey).Result()
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalState, "reading seen set from redis", err)
	}

	s := types.NewMonitorState()
	for _, id := range ids {
		s.MarkSeen(id)
	}

	raw, err := r.client.Get(ctx, r.checkKey).Result()
	switch {
	case errors.Is(err, redis.Nil):
		// No prior check recorded.
	case err != nil:
		return nil, types.NewAppError(types.ErrCodeInternalState, "reading last_check from redis", err)
	default:
		t, perr := time.Parse(time.RFC3339, raw)
		if perr != nil {
			return nil, types.NewAppError(types.ErrCodeInternalState, "parsing last_check from redis", perr)
		}
		s.LastCheck = &t
	}
	return s, nil
}

// Save adds all ids to the seen set and updates last_check. SADD is
// idempotent, so re-saving already-present ids is harmless.
func (r *RedisStore) Save(ctx context.Context, s *types.MonitorState) error {
	if len(s.SeenIDs) > 0 {
		members := make([]interface{}, 0, len(s.SeenIDs))
		for id := range s.SeenIDs {
			members = append(members, id)
		}
		if err := r.client.SAdd(ctx, r.seenKey, members...).Err(); err != nil {
			return types.NewAppError(types.ErrCodeInternalState, "writing seen set to redis", err)
		}
	}
	if s.LastCheck != nil {
		val := s.LastCheck.UTC().Format(time.RFC3339)
		if err := r.client.Set(ctx, r.checkKey, val, 0).Err(); err != nil {
			return types.NewAppError(types.ErrCodeInternalState, "writing last_check to redis", err)
		}
	}
	return nil
}
