package service

import (
	"context"
	"errors"
	"fmt"

	"cparena/internal/common"
	"cparena/internal/domain/model"
	"cparena/internal/domain/repository"
)

// Capability names one gated action. Every command entry point asks
// the policy service for an explicit allow/deny with a reason instead
// of running its own inline role predicate.
type Capability string

const (
	CapChallengePlay Capability = "challenge.play"
	CapContestJoin   Capability = "contest.join"
	CapContestManage Capability = "contest.manage"
	CapRoleAdmin     Capability = "role.admin"
)

type Decision struct {
	Allow  bool   `json:"allow"`
	Reason string `json:"reason,omitempty"`
}

type PolicyService struct {
	linkRepo repository.AccountLinkRepository
}

func NewPolicyService(linkRepo repository.AccountLinkRepository) *PolicyService {
	return &PolicyService{linkRepo: linkRepo}
}

// Check evaluates one capability for one member. Playing requires a
// linked judge account; managing requires the organizer role.
func (s *PolicyService) Check(ctx context.Context, memberID, role string, cap Capability) (Decision, error) {
	switch cap {
	case CapChallengePlay, CapContestJoin:
		_, err := s.linkRepo.FindByMemberID(ctx, memberID)
		if err != nil {
			if errors.Is(err, common.ErrNotFound) {
				return Decision{Allow: false, Reason: "no judge account linked"}, nil
			}
			return Decision{}, fmt.Errorf("policy check %s: %w", cap, err)
		}
		return Decision{Allow: true}, nil

	case CapContestManage, CapRoleAdmin:
		if role != model.RoleOrganizer {
			return Decision{Allow: false, Reason: "organizer role required"}, nil
		}
		return Decision{Allow: true}, nil
	}
	return Decision{Allow: false, Reason: "unknown capability"}, nil
}

// Require is Check collapsed into an error: a denial becomes
// common.ErrForbidden carrying the reason.
func (s *PolicyService) Require(ctx context.Context, memberID, role string, cap Capability) error {
	decision, err := s.Check(ctx, memberID, role, cap)
	if err != nil {
		return err
	}
	if !decision.Allow {
		return fmt.Errorf("%s: %w", decision.Reason, common.ErrForbidden)
	}
	return nil
}
