package service

import (
	"context"
)

// ScoreKeeper is the window-counter side of scoring, backed by Redis
// in production. Contest/challenge scores persisted in Postgres are a
// separate subsystem; this one only feeds the rolling leaderboards.
type ScoreKeeper interface {
	// AddScore adds points to every window counter at once. Windows
	// are reset wholesale by the reset worker, never computed from
	// timestamps, so an award always hits all four identically.
	AddScore(ctx context.Context, memberID string, points float64) error
	IncrSolved(ctx context.Context, memberID string) error
}

// HandleResolver resolves a member to their linked judge handle.
type HandleResolver interface {
	ResolveHandle(ctx context.Context, memberID string) (string, error)
}

// BuilderSessions stores in-flight contest builders keyed by an
// opaque token, evicted on TTL expiry.
type BuilderSessions interface {
	Create(ctx context.Context, memberID string) (*ContestBuilder, error)
	Get(ctx context.Context, token string) (*ContestBuilder, error)
	Save(ctx context.Context, builder *ContestBuilder) error
	Delete(ctx context.Context, token string) error
}
