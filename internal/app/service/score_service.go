package service

import (
	"context"
	"fmt"

	"cparena/internal/domain/model"
	"cparena/internal/domain/repository"

	"github.com/redis/go-redis/v9"
)

const solvedTotalKey = "solved:total"

func windowKey(w model.Window) string {
	return "lb:" + string(w)
}

// ScoreService keeps the rolling leaderboard counters in Redis sorted
// sets, one per window. ZINCRBY makes the read-modify-write atomic,
// so two handlers awarding at once cannot lose an increment.
type ScoreService struct {
	rdb        *redis.Client
	memberRepo repository.MemberRepository
	maxLimit   int
}

func NewScoreService(rdb *redis.Client, memberRepo repository.MemberRepository, maxLimit int) *ScoreService {
	if maxLimit <= 0 {
		maxLimit = 100
	}
	return &ScoreService{rdb: rdb, memberRepo: memberRepo, maxLimit: maxLimit}
}

// AddScore credits all four windows identically; windows diverge only
// when the reset worker wipes them.
func (s *ScoreService) AddScore(ctx context.Context, memberID string, points float64) error {
	pipe := s.rdb.Pipeline()
	for _, w := range model.AllWindows {
		pipe.ZIncrBy(ctx, windowKey(w), points, memberID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("ScoreService.AddScore: %w", err)
	}
	return nil
}

func (s *ScoreService) IncrSolved(ctx context.Context, memberID string) error {
	if err := s.rdb.ZIncrBy(ctx, solvedTotalKey, 1, memberID).Err(); err != nil {
		return fmt.Errorf("ScoreService.IncrSolved: %w", err)
	}
	return nil
}

// Leaderboard returns the top members of one window, descending.
func (s *ScoreService) Leaderboard(ctx context.Context, window model.Window, limit int) ([]model.LeaderboardEntry, error) {
	limit = clampLimit(limit, s.maxLimit)

	scores, err := s.rdb.ZRevRangeWithScores(ctx, windowKey(window), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("ScoreService.Leaderboard: %w", err)
	}

	ids := make([]string, 0, len(scores))
	for _, z := range scores {
		if id, ok := z.Member.(string); ok {
			ids = append(ids, id)
		}
	}
	names, err := s.memberRepo.UsernamesByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("ScoreService.Leaderboard usernames: %w", err)
	}

	entries := make([]model.LeaderboardEntry, 0, len(scores))
	for i, z := range scores {
		id, _ := z.Member.(string)
		entries = append(entries, model.LeaderboardEntry{
			Rank:     i + 1,
			MemberID: id,
			Username: names[id],
			Points:   z.Score,
		})
	}
	return entries, nil
}

// ResetWindow wipes one rolling window. The overall counter is the
// all-time total and is never reset.
func (s *ScoreService) ResetWindow(ctx context.Context, window model.Window) error {
	if window == model.WindowOverall {
		return fmt.Errorf("ScoreService.ResetWindow: overall window is not resettable")
	}
	if err := s.rdb.Del(ctx, windowKey(window)).Err(); err != nil {
		return fmt.Errorf("ScoreService.ResetWindow %s: %w", window, err)
	}
	return nil
}

func clampLimit(limit, max int) int {
	if limit <= 0 {
		return 10
	}
	if limit > max {
		return max
	}
	return limit
}
