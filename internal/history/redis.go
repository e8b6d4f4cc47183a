package history

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	ttlHistory    = 30 * 24 * time.Hour
	maxPerUser    = 200
	redisKeySpace = "c4:history"
)

// RedisStore keeps a capped JSON list per user, newest at the head.
type RedisStore struct {
	rdb   *redis.Client
	owned bool
}

// NewRedisStore wraps an existing client; Close leaves it open.
func NewRedisStore(rdb *redis.Client) *RedisStore { return &RedisStore{rdb: rdb} }

// OpenRedis dials url (redis://host:port/db) and pings it.
func OpenRedis(ctx context.Context, url string) (*RedisStore, error) {
	opt, err := redis.ParseURL(strings.TrimSpace(url))
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisStore{rdb: rdb, owned: true}, nil
}

func (s *RedisStore) keyUser(username string) string {
	return redisKeySpace + ":user:" + strings.TrimSpace(username)
}

func (s *RedisStore) keyMatch(username, matchID string) string {
	return redisKeySpace + ":seen:" + strings.TrimSpace(username) + ":" + matchID
}

func (s *RedisStore) Save(ctx context.Context, rec MatchRecord) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	fresh, err := s.rdb.SetNX(ctx, s.keyMatch(rec.Username, rec.MatchID), 1, ttlHistory).Result()
	if err != nil {
		return err
	}
	if !fresh {
		return ErrDuplicateMatch
	}

	key := s.keyUser(rec.Username)
	pipe := s.rdb.TxPipeline()
	pipe.LPush(ctx, key, raw)
	pipe.LTrim(ctx, key, 0, maxPerUser-1)
	pipe.Expire(ctx, key, ttlHistory)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *RedisStore) Recent(ctx context.Context, username string, limit int) ([]MatchRecord, error) {
	if limit <= 0 || limit > maxPerUser {
		limit = maxPerUser
	}
	items, err := s.rdb.LRange(ctx, s.keyUser(username), 0, int64(limit-1)).Result()
	if err == redis.Nil {
		return []MatchRecord{}, nil
	}
	if err != nil {
		return nil, err
	}
	out := make([]MatchRecord, 0, len(items))
	for _, raw := range items {
		var rec MatchRecord
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, fmt.Errorf("decode history entry: %w", err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *RedisStore) Close() error {
	if !s.owned {
		return nil
	}
	return s.rdb.Close()
}
