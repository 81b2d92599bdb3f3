package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cparena/internal/common"
	"cparena/internal/domain/model"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ContestBuilder accumulates a contest interactively before it is
// persisted. It lives in Redis under an opaque token with a TTL, so
// abandoned builders are evicted deterministically instead of
// lingering in process memory.
type ContestBuilder struct {
	Token           string                 `json:"token"`
	CreatedBy       string                 `json:"created_by"`
	Name            string                 `json:"name"`
	DurationMinutes int                    `json:"duration_minutes"`
	StartTime       *time.Time             `json:"start_time,omitempty"`
	Problems        []model.ContestProblem `json:"problems"`
	CreatedAt       time.Time              `json:"created_at"`
}

// Complete reports whether every required field has been set.
func (b *ContestBuilder) Complete() bool {
	return b.Name != "" && b.DurationMinutes > 0 && b.StartTime != nil && len(b.Problems) > 0
}

type redisBuilderSessions struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewBuilderSessionStore(rdb *redis.Client, ttl time.Duration) BuilderSessions {
	return &redisBuilderSessions{rdb: rdb, ttl: ttl}
}

func builderKey(token string) string {
	return "contest:builder:" + token
}

func (s *redisBuilderSessions) Create(ctx context.Context, memberID string) (*ContestBuilder, error) {
	builder := &ContestBuilder{
		Token:     uuid.NewString(),
		CreatedBy: memberID,
		CreatedAt: time.Now(),
	}
	if err := s.Save(ctx, builder); err != nil {
		return nil, err
	}
	return builder, nil
}

func (s *redisBuilderSessions) Get(ctx context.Context, token string) (*ContestBuilder, error) {
	raw, err := s.rdb.Get(ctx, builderKey(token)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("builder session expired or unknown: %w", common.ErrNotFound)
		}
		return nil, fmt.Errorf("builder session load: %w", err)
	}
	var builder ContestBuilder
	if err := json.Unmarshal([]byte(raw), &builder); err != nil {
		return nil, fmt.Errorf("builder session decode: %w", err)
	}
	return &builder, nil
}

// Save refreshes the TTL: active editing keeps the session alive.
func (s *redisBuilderSessions) Save(ctx context.Context, builder *ContestBuilder) error {
	raw, err := json.Marshal(builder)
	if err != nil {
		return fmt.Errorf("builder session encode: %w", err)
	}
	if err := s.rdb.Set(ctx, builderKey(builder.Token), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("builder session store: %w", err)
	}
	return nil
}

func (s *redisBuilderSessions) Delete(ctx context.Context, token string) error {
	if err := s.rdb.Del(ctx, builderKey(token)).Err(); err != nil {
		return fmt.Errorf("builder session delete: %w", err)
	}
	return nil
}
