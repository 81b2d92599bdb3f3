package service

import (
	"context"
	"fmt"
	"log"
	"time"

	"cparena/internal/app/notify"
	"cparena/internal/common"
	"cparena/internal/domain/model"
	"cparena/internal/domain/repository"
	"cparena/internal/platform/judge"

	"github.com/google/uuid"
)

// ChallengeService drives the head-to-head challenge state machine:
// Proposed -> Active (someone accepted, all responded)
// Proposed -> Cancelled (everyone rejected)
// Active   -> Complete (every accepted participant solved or surrendered)
type ChallengeService struct {
	challengeRepo repository.ChallengeRepository
	policy        *PolicyService
	handles       HandleResolver
	judge         judge.API
	selector      *ProblemSelector
	scores        ScoreKeeper
	announcer     notify.Announcer
	now           func() time.Time
}

func NewChallengeService(
	challengeRepo repository.ChallengeRepository,
	policy *PolicyService,
	handles HandleResolver,
	judgeAPI judge.API,
	selector *ProblemSelector,
	scores ScoreKeeper,
	announcer notify.Announcer,
) *ChallengeService {
	return &ChallengeService{
		challengeRepo: challengeRepo,
		policy:        policy,
		handles:       handles,
		judge:         judgeAPI,
		selector:      selector,
		scores:        scores,
		announcer:     announcer,
		now:           time.Now,
	}
}

type ProposeChallengeRequest struct {
	Opponents []string    `json:"opponents"`
	Problem   ProblemSpec `json:"problem"`
}

type SkippedInvite struct {
	MemberID string `json:"member_id"`
	Reason   string `json:"reason"`
}

type ProposeChallengeResult struct {
	Challenge    *model.Challenge             `json:"challenge"`
	Participants []model.ChallengeParticipant `json:"participants"`
	Skipped      []SkippedInvite              `json:"skipped,omitempty"`
}

// Propose creates a challenge. Opponents without a linked judge
// account are skipped with a notice; the proposal goes ahead only if
// at least one opponent qualifies. The proposer joins pre-accepted.
func (s *ChallengeService) Propose(ctx context.Context, proposerID, proposerRole string, req ProposeChallengeRequest) (*ProposeChallengeResult, error) {
	if err := s.policy.Require(ctx, proposerID, proposerRole, CapChallengePlay); err != nil {
		return nil, err
	}
	if len(req.Opponents) == 0 {
		return nil, fmt.Errorf("at least one opponent is required: %w", common.ErrValidation)
	}

	participants := []model.ChallengeParticipant{
		{MemberID: proposerID, State: model.ParticipantAccepted},
	}
	var skipped []SkippedInvite
	for _, opponentID := range req.Opponents {
		if opponentID == proposerID {
			continue
		}
		decision, err := s.policy.Check(ctx, opponentID, model.RoleMember, CapChallengePlay)
		if err != nil {
			return nil, err
		}
		if !decision.Allow {
			skipped = append(skipped, SkippedInvite{MemberID: opponentID, Reason: decision.Reason})
			continue
		}
		participants = append(participants, model.ChallengeParticipant{
			MemberID: opponentID,
			State:    model.ParticipantInvited,
		})
	}
	if len(participants) < 2 {
		return nil, fmt.Errorf("no eligible opponents: %w", common.ErrValidation)
	}

	problem, err := s.selector.Select(ctx, req.Problem)
	if err != nil {
		return nil, err
	}

	challenge := &model.Challenge{
		ID:             uuid.NewString(),
		JudgeContestID: problem.ContestID,
		ProblemIndex:   problem.Index,
		ProblemName:    problem.Name,
		ProblemRating:  problem.Rating,
		Status:         model.ChallengeProposed,
		ProposedBy:     proposerID,
	}
	if err := s.challengeRepo.Create(ctx, challenge, participants); err != nil {
		return nil, fmt.Errorf("failed to create challenge: %w", err)
	}

	s.announcer.Announce(ctx, notify.Announcement{
		Kind:        notify.KindChallengeProposed,
		ChallengeID: challenge.ID,
		Payload:     map[string]interface{}{"problem": problem.Ref(), "rating": problem.Rating},
	})
	return &ProposeChallengeResult{Challenge: challenge, Participants: participants, Skipped: skipped}, nil
}

// Respond records an accept or reject. Responses are idempotent
// toggles while the challenge is still Proposed; once everyone has
// responded the challenge activates (someone accepted) or is
// cancelled (all rejected).
func (s *ChallengeService) Respond(ctx context.Context, challengeID, memberID string, accept bool) (*model.Challenge, error) {
	challenge, err := s.challengeRepo.FindByID(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	if challenge.Status != model.ChallengeProposed {
		return nil, fmt.Errorf("challenge is no longer awaiting responses: %w", common.ErrConflict)
	}

	participant, err := s.challengeRepo.FindParticipant(ctx, challengeID, memberID)
	if err != nil {
		return nil, fmt.Errorf("you were not invited to this challenge: %w", common.ErrForbidden)
	}

	state := model.ParticipantRejected
	if accept {
		state = model.ParticipantAccepted
	}
	if participant.State != state {
		if err := s.challengeRepo.SetParticipantState(ctx, challengeID, memberID, state); err != nil {
			return nil, fmt.Errorf("failed to record response: %w", err)
		}
	}

	participants, err := s.challengeRepo.ListParticipants(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	allResponded := true
	anyAccepted := false
	for _, p := range participants {
		if !p.Responded() {
			allResponded = false
		}
		if p.State == model.ParticipantAccepted {
			anyAccepted = true
		}
	}
	if !allResponded {
		return challenge, nil
	}

	if anyAccepted {
		startedAt := s.now()
		moved, err := s.challengeRepo.AdvanceStatus(ctx, challengeID, model.ChallengeProposed, model.ChallengeActive, &startedAt)
		if err != nil {
			return nil, err
		}
		if moved {
			challenge.Status = model.ChallengeActive
			challenge.StartedAt = &startedAt
			s.announcer.Announce(ctx, notify.Announcement{
				Kind:        notify.KindChallengeStarted,
				ChallengeID: challengeID,
			})
		}
	} else {
		moved, err := s.challengeRepo.AdvanceStatus(ctx, challengeID, model.ChallengeProposed, model.ChallengeCancelled, nil)
		if err != nil {
			return nil, err
		}
		if moved {
			challenge.Status = model.ChallengeCancelled
			s.announcer.Announce(ctx, notify.Announcement{
				Kind:        notify.KindChallengeCancelled,
				ChallengeID: challengeID,
			})
		}
	}
	return challenge, nil
}

type SolveCheckResult struct {
	Solved    bool    `json:"solved"`
	IsWinner  bool    `json:"is_winner"`
	Rank      int     `json:"rank"`
	Score     float64 `json:"score"`
	Completed bool    `json:"completed"`
}

// CheckSolve verifies a claimed solve against the judge. Only
// submissions at or after the activation timestamp count. The first
// verified solver is the winner; score is rating/100, credited to
// every rolling window.
func (s *ChallengeService) CheckSolve(ctx context.Context, challengeID, memberID string) (*SolveCheckResult, error) {
	challenge, err := s.challengeRepo.FindByID(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	if challenge.Status != model.ChallengeActive || challenge.StartedAt == nil {
		return nil, fmt.Errorf("challenge is not active: %w", common.ErrConflict)
	}

	participant, err := s.challengeRepo.FindParticipant(ctx, challengeID, memberID)
	if err != nil {
		return nil, fmt.Errorf("you are not part of this challenge: %w", common.ErrForbidden)
	}
	if !participant.Playing() {
		return nil, fmt.Errorf("you have already finished or surrendered: %w", common.ErrConflict)
	}

	handle, err := s.handles.ResolveHandle(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("no judge account linked: %w", common.ErrForbidden)
	}

	subs, err := s.judge.UserSubmissions(ctx, handle, *challenge.StartedAt)
	if err != nil {
		return nil, err
	}
	if !judge.HasAccepted(subs, challenge.JudgeContestID, challenge.ProblemIndex, *challenge.StartedAt) {
		return &SolveCheckResult{Solved: false}, nil
	}

	score := float64(challenge.ProblemRating) / 100.0
	winner, rank, err := s.challengeRepo.RecordSolve(ctx, challengeID, memberID, score, s.now())
	if err != nil {
		return nil, err
	}

	if err := s.scores.AddScore(ctx, memberID, score); err != nil {
		log.Printf("ERROR: Failed to add challenge score for member %s: %v", memberID, err)
	}
	if err := s.scores.IncrSolved(ctx, memberID); err != nil {
		log.Printf("ERROR: Failed to bump solved counter for member %s: %v", memberID, err)
	}

	completed, err := s.completeIfDone(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	return &SolveCheckResult{Solved: true, IsWinner: winner, Rank: rank, Score: score, Completed: completed}, nil
}

// Surrender removes the member from the race without scoring.
func (s *ChallengeService) Surrender(ctx context.Context, challengeID, memberID string) (bool, error) {
	challenge, err := s.challengeRepo.FindByID(ctx, challengeID)
	if err != nil {
		return false, err
	}
	if challenge.Status != model.ChallengeActive {
		return false, fmt.Errorf("challenge is not active: %w", common.ErrConflict)
	}

	participant, err := s.challengeRepo.FindParticipant(ctx, challengeID, memberID)
	if err != nil {
		return false, fmt.Errorf("you are not part of this challenge: %w", common.ErrForbidden)
	}
	if !participant.Playing() {
		return false, fmt.Errorf("you have already finished or surrendered: %w", common.ErrConflict)
	}

	if err := s.challengeRepo.SetParticipantState(ctx, challengeID, memberID, model.ParticipantSurrendered); err != nil {
		return false, fmt.Errorf("failed to record surrender: %w", err)
	}
	return s.completeIfDone(ctx, challengeID)
}

// completeIfDone finishes the challenge once no accepted participant
// is still playing, emitting the winners/losers summary.
func (s *ChallengeService) completeIfDone(ctx context.Context, challengeID string) (bool, error) {
	participants, err := s.challengeRepo.ListParticipants(ctx, challengeID)
	if err != nil {
		return false, err
	}
	for _, p := range participants {
		if p.Playing() {
			return false, nil
		}
	}

	moved, err := s.challengeRepo.AdvanceStatus(ctx, challengeID, model.ChallengeActive, model.ChallengeComplete, nil)
	if err != nil {
		return false, err
	}
	if !moved {
		return false, nil // someone else completed it first
	}

	var winners, losers []string
	for _, p := range participants {
		switch {
		case p.IsWinner:
			winners = append(winners, p.MemberID)
		case p.State == model.ParticipantSolved || p.State == model.ParticipantSurrendered:
			losers = append(losers, p.MemberID)
		}
	}
	s.announcer.Announce(ctx, notify.Announcement{
		Kind:        notify.KindChallengeComplete,
		ChallengeID: challengeID,
		Payload:     map[string]interface{}{"winners": winners, "losers": losers},
	})
	return true, nil
}

type ChallengeView struct {
	Challenge    *model.Challenge             `json:"challenge"`
	Participants []model.ChallengeParticipant `json:"participants"`
}

func (s *ChallengeService) Get(ctx context.Context, challengeID string) (*ChallengeView, error) {
	challenge, err := s.challengeRepo.FindByID(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	participants, err := s.challengeRepo.ListParticipants(ctx, challengeID)
	if err != nil {
		return nil, err
	}
	return &ChallengeView{Challenge: challenge, Participants: participants}, nil
}
