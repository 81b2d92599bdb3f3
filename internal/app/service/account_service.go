package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"cparena/internal/common"
	"cparena/internal/domain/model"
	"cparena/internal/domain/repository"
	"cparena/internal/platform/judge"

	"github.com/redis/go-redis/v9"
)

// handleFallbackKey is the legacy member->handle hash kept alongside
// the relational table.
const handleFallbackKey = "account:handles"

type AccountService struct {
	linkRepo repository.AccountLinkRepository
	judge    judge.API
	rdb      *redis.Client
}

func NewAccountService(linkRepo repository.AccountLinkRepository, judgeAPI judge.API, rdb *redis.Client) *AccountService {
	return &AccountService{linkRepo: linkRepo, judge: judgeAPI, rdb: rdb}
}

type LinkRequest struct {
	Handle string `json:"handle"`
}

// Link connects a member to a judge handle. The handle must exist on
// the judge, and a handle belongs to at most one member; relinking
// replaces the member's previous handle.
func (s *AccountService) Link(ctx context.Context, memberID string, req LinkRequest) (*model.AccountLink, error) {
	handle := strings.TrimSpace(req.Handle)
	if handle == "" {
		return nil, fmt.Errorf("judge handle is required: %w", common.ErrValidation)
	}

	exists, err := s.judge.UserExists(ctx, handle)
	if err != nil {
		return nil, fmt.Errorf("failed to verify handle: %w", err)
	}
	if !exists {
		return nil, fmt.Errorf("handle %q does not exist on the judge: %w", handle, common.ErrValidation)
	}

	if other, err := s.linkRepo.FindByHandle(ctx, handle); err == nil && other.MemberID != memberID {
		return nil, fmt.Errorf("handle %q is already linked to another member: %w", handle, common.ErrConflict)
	}

	link := &model.AccountLink{MemberID: memberID, JudgeHandle: handle, LinkedAt: time.Now()}
	if err := s.linkRepo.Upsert(ctx, link); err != nil {
		return nil, fmt.Errorf("failed to store account link: %w", err)
	}

	// Mirror into the legacy fallback store; best effort.
	if err := s.rdb.HSet(ctx, handleFallbackKey, memberID, handle).Err(); err != nil {
		log.Printf("WARN: Failed to mirror handle for member %s into fallback store: %v", memberID, err)
	}
	return link, nil
}

func (s *AccountService) Unlink(ctx context.Context, memberID string) error {
	if err := s.linkRepo.Delete(ctx, memberID); err != nil {
		return err
	}
	if err := s.rdb.HDel(ctx, handleFallbackKey, memberID).Err(); err != nil {
		log.Printf("WARN: Failed to remove fallback handle for member %s: %v", memberID, err)
	}
	return nil
}

func (s *AccountService) Get(ctx context.Context, memberID string) (*model.AccountLink, error) {
	return s.linkRepo.FindByMemberID(ctx, memberID)
}

// ResolveHandle returns the member's judge handle, consulting the
// legacy fallback store when the relational row is missing.
func (s *AccountService) ResolveHandle(ctx context.Context, memberID string) (string, error) {
	link, err := s.linkRepo.FindByMemberID(ctx, memberID)
	if err == nil {
		return link.JudgeHandle, nil
	}
	if !errors.Is(err, common.ErrNotFound) {
		return "", err
	}

	handle, rerr := s.rdb.HGet(ctx, handleFallbackKey, memberID).Result()
	if rerr != nil {
		if errors.Is(rerr, redis.Nil) {
			return "", common.ErrNotFound
		}
		return "", fmt.Errorf("fallback handle lookup: %w", rerr)
	}
	return handle, nil
}
