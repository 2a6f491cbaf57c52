package history

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"crossquery/internal/models"
)

const redisKeyPrefix = "crossquery:runs:"

// RedisStore keeps one capped list per template, newest run first.
type RedisStore struct {
	client  redis.Cmdable
	ttl     time.Duration
	maxRuns int
}

func NewRedisStore(client redis.Cmdable, ttl time.Duration, maxRuns int) *RedisStore {
	if maxRuns <= 0 {
		maxRuns = 50
	}
	return &RedisStore{client: client, ttl: ttl, maxRuns: maxRuns}
}

func redisKey(template string) string {
	return redisKeyPrefix + template
}

func (s *RedisStore) Record(ctx context.Context, run *models.ResultSet) error {
	data, err := encode(run)
	if err != nil {
		return err
	}

	key := redisKey(run.TemplateName)
	if err := s.client.LPush(ctx, key, data).Err(); err != nil {
		return fmt.Errorf("failed to record run: %w", err)
	}
	if err := s.client.LTrim(ctx, key, 0, int64(s.maxRuns-1)).Err(); err != nil {
		return fmt.Errorf("failed to trim run history: %w", err)
	}
	if s.ttl > 0 {
		if err := s.client.Expire(ctx, key, s.ttl).Err(); err != nil {
			return fmt.Errorf("failed to set run history ttl: %w", err)
		}
	}
	return nil
}

func (s *RedisStore) Recent(ctx context.Context, template string, limit int) ([]models.ResultSet, error) {
	if limit <= 0 || limit > s.maxRuns {
		limit = s.maxRuns
	}

	raw, err := s.client.LRange(ctx, redisKey(template), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read run history: %w", err)
	}

	runs := make([]models.ResultSet, 0, len(raw))
	for _, item := range raw {
		var run models.ResultSet
		if err := json.Unmarshal([]byte(item), &run); err != nil {
			return nil, fmt.Errorf("failed to decode run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, nil
}
