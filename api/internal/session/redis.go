package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"docgpt/api/internal/diagnose"
)

const keyPrefix = "session:"

// Redis stores workflows as JSON values with a sliding TTL.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedis(addr, password string, db int, ttl time.Duration) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}
	return &Redis{client: client, ttl: ttl}, nil
}

func (s *Redis) Load(ctx context.Context, id string) (*diagnose.Workflow, error) {
	val, err := s.client.Get(ctx, keyPrefix+id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var w diagnose.Workflow
	if err := json.Unmarshal(val, &w); err != nil {
		return nil, err
	}
	return &w, nil
}

func (s *Redis) Save(ctx context.Context, id string, w *diagnose.Workflow) error {
	b, err := json.Marshal(w)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, keyPrefix+id, b, s.ttl).Err()
}

func (s *Redis) Delete(ctx context.Context, id string) error {
	return s.client.Del(ctx, keyPrefix+id).Err()
}

func (s *Redis) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *Redis) Close() error {
	return s.client.Close()
}
