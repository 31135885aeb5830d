package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	redisPrefix   = "salonbook:cache:"
	scanBatchSize = 200
)

// RedisStore keeps entries as JSON strings under salonbook:cache:<scope>:<key>.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func redisKey(scope, key string) string {
	return redisPrefix + scope + ":" + key
}

// splitRedisKey is the inverse of redisKey; scopes never contain ':'.
func splitRedisKey(full string) (scope, key string, ok bool) {
	rest := strings.TrimPrefix(full, redisPrefix)
	if rest == full {
		return "", "", false
	}
	idx := strings.IndexByte(rest, ':')
	if idx < 0 {
		return "", "", false
	}
	return rest[:idx], rest[idx+1:], true
}

func (s *RedisStore) Get(ctx context.Context, scope, key string, out interface{}) (bool, error) {
	if s.client == nil {
		return false, fmt.Errorf("redis client is nil")
	}
	val, err := s.client.Get(ctx, redisKey(scope, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get %s from redis: %w", key, err)
	}
	if err := json.Unmarshal(val, out); err != nil {
		return false, fmt.Errorf("failed to decode cached %s: %w", key, err)
	}
	return true, nil
}

func (s *RedisStore) Set(ctx context.Context, scope, key string, val interface{}) error {
	if s.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	data, err := json.Marshal(val)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	if err := s.client.Set(ctx, redisKey(scope, key), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set %s in redis: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Invalidate(ctx context.Context, keys ...string) error {
	if s.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	if len(keys) == 0 {
		return nil
	}
	return s.deleteMatching(ctx, redisPrefix+"*", func(full string) bool {
		_, key, ok := splitRedisKey(full)
		return ok && covered(key, keys)
	})
}

func (s *RedisStore) DropScope(ctx context.Context, scope string) error {
	if s.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	return s.deleteMatching(ctx, redisPrefix+scope+":*", func(string) bool { return true })
}

func (s *RedisStore) deleteMatching(ctx context.Context, pattern string, keep func(string) bool) error {
	var cursor uint64
	for {
		found, next, err := s.client.Scan(ctx, cursor, pattern, scanBatchSize).Result()
		if err != nil {
			return fmt.Errorf("failed to scan cache keys: %w", err)
		}

		var doomed []string
		for _, k := range found {
			if keep(k) {
				doomed = append(doomed, k)
			}
		}
		if len(doomed) > 0 {
			if err := s.client.Del(ctx, doomed...).Err(); err != nil {
				return fmt.Errorf("failed to delete cache keys: %w", err)
			}
		}

		cursor = next
		if cursor == 0 {
			return nil
		}
	}
}
