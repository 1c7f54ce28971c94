package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/technoKC/fraud-shield/internal/domain"
)

const redisStorePrefix = "fraudshield:monitor:"

// RedisStore is a PatternStore backed by Redis lists. Each key's history is
// an LPUSH'd list trimmed to the retention limit, so the newest entry is
// always at the head. Known keys per kind are tracked in a set so the
// dashboard can enumerate them.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a Redis-backed pattern store.
func NewRedisStore(cfg domain.CacheConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisStore{client: client}, nil
}

func (s *RedisStore) Append(ctx context.Context, kind, key string, entry PatternEntry, limit int) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal pattern entry: %w", err)
	}

	listKey := s.listKey(kind, key)

	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, listKey, data)
	if limit > 0 {
		pipe.LTrim(ctx, listKey, 0, int64(limit)-1)
	}
	pipe.SAdd(ctx, s.keysKey(kind), key)

	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisStore) Recent(ctx context.Context, kind, key string, limit int) ([]PatternEntry, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}

	raw, err := s.client.LRange(ctx, s.listKey(kind, key), 0, stop).Result()
	if err != nil {
		return nil, err
	}

	entries := make([]PatternEntry, 0, len(raw))
	for _, item := range raw {
		var entry PatternEntry
		if err := json.Unmarshal([]byte(item), &entry); err != nil {
			continue // skip corrupt entries
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func (s *RedisStore) Keys(ctx context.Context, kind string) ([]string, error) {
	return s.client.SMembers(ctx, s.keysKey(kind)).Result()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) listKey(kind, key string) string {
	return redisStorePrefix + kind + ":" + key
}

func (s *RedisStore) keysKey(kind string) string {
	return redisStorePrefix + kind + ":keys"
}
