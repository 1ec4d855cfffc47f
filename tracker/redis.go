package tracker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"floordesign/config"
	"floordesign/logger"
)

// RedisTracker stores each session as a JSON string under keyPrefix+id,
// so several server instances can answer progress polls.
type RedisTracker struct {
	redisClient *redis.Client
	keyPrefix   string
}

// NewRedisTracker connects and pings Redis.
func NewRedisTracker(ctx context.Context, cfg config.RedisConfig) (*RedisTracker, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.Database,
	})

	if _, err := rdb.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	logger.Info("Connected to Redis at %s:%d", cfg.Host, cfg.Port)

	prefix := cfg.KeyPrefix
	if prefix == "" {
		prefix = "floordesign:upload:"
	}
	return &RedisTracker{redisClient: rdb, keyPrefix: prefix}, nil
}

func (r *RedisTracker) Save(ctx context.Context, session Session) error {
	payload, err := json.Marshal(session)
	if err != nil {
		return fmt.Errorf("failed to encode session %s: %w", session.ID, err)
	}
	if err := r.redisClient.Set(ctx, r.keyPrefix+session.ID, payload, 0).Err(); err != nil {
		return fmt.Errorf("failed to save session %s: %w", session.ID, err)
	}
	return nil
}

func (r *RedisTracker) Load(ctx context.Context, id string) (Session, error) {
	val, err := r.redisClient.Get(ctx, r.keyPrefix+id).Result()
	if err != nil {
		if err == redis.Nil {
			return Session{}, ErrSessionNotFound
		}
		return Session{}, fmt.Errorf("failed to load session %s: %w", id, err)
	}

	var session Session
	if err := json.Unmarshal([]byte(val), &session); err != nil {
		return Session{}, fmt.Errorf("failed to decode session %s: %w", id, err)
	}
	return session, nil
}

func (r *RedisTracker) Prune(ctx context.Context, cutoff time.Time) (int, error) {
	pruned := 0
	iter := r.redisClient.Scan(ctx, 0, r.keyPrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		key := iter.Val()
		val, err := r.redisClient.Get(ctx, key).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return pruned, fmt.Errorf("failed to read %s: %w", key, err)
		}

		var session Session
		if err := json.Unmarshal([]byte(val), &session); err != nil {
			logger.Warn("Dropping unreadable upload session %s: %v", key, err)
		} else if !session.State.Phase.Finished() || !session.UpdatedAt.Before(cutoff) {
			continue
		}

		if err := r.redisClient.Del(ctx, key).Err(); err != nil {
			return pruned, fmt.Errorf("failed to delete %s: %w", key, err)
		}
		pruned++
	}
	return pruned, iter.Err()
}

// Close releases the connection pool.
func (r *RedisTracker) Close() error {
	return r.redisClient.Close()
}
