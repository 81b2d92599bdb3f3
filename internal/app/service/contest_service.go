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
	"github.com/gosimple/slug"
)

// Points awarded in contests: floor(rating/100) with a floor of
// minContestPoints when the rating is unknown, plus a first-solve
// bonus for the first member verified on each problem.
const (
	minContestPoints = 10
	firstSolveBonus  = 3
)

// ContestService drives the contest state machine:
// Pending -> Active -> Ended, advanced by the poll tick while "now"
// moves through the contest window, or by organizer override. Status
// never regresses; every transition is conditional in storage.
type ContestService struct {
	contestRepo repository.ContestRepository
	policy      *PolicyService
	handles     HandleResolver
	judge       judge.API
	selector    *ProblemSelector
	scores      ScoreKeeper
	sessions    BuilderSessions
	announcer   notify.Announcer
	now         func() time.Time
}

func NewContestService(
	contestRepo repository.ContestRepository,
	policy *PolicyService,
	handles HandleResolver,
	judgeAPI judge.API,
	selector *ProblemSelector,
	scores ScoreKeeper,
	sessions BuilderSessions,
	announcer notify.Announcer,
) *ContestService {
	return &ContestService{
		contestRepo: contestRepo,
		policy:      policy,
		handles:     handles,
		judge:       judgeAPI,
		selector:    selector,
		scores:      scores,
		sessions:    sessions,
		announcer:   announcer,
		now:         time.Now,
	}
}

// --- Builder ---

func (s *ContestService) StartBuilder(ctx context.Context, memberID, role string) (*ContestBuilder, error) {
	if err := s.policy.Require(ctx, memberID, role, CapContestManage); err != nil {
		return nil, err
	}
	return s.sessions.Create(ctx, memberID)
}

type UpdateBuilderRequest struct {
	Name               *string `json:"name,omitempty"`
	DurationMinutes    *int    `json:"duration_minutes,omitempty"`
	StartOffsetMinutes *int    `json:"start_offset_minutes,omitempty"`
}

func (s *ContestService) UpdateBuilder(ctx context.Context, token, memberID string, req UpdateBuilderRequest) (*ContestBuilder, error) {
	builder, err := s.ownedBuilder(ctx, token, memberID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		if *req.Name == "" {
			return nil, fmt.Errorf("contest name must not be empty: %w", common.ErrValidation)
		}
		builder.Name = *req.Name
	}
	if req.DurationMinutes != nil {
		if *req.DurationMinutes <= 0 {
			return nil, fmt.Errorf("duration must be a positive number of minutes: %w", common.ErrValidation)
		}
		builder.DurationMinutes = *req.DurationMinutes
	}
	if req.StartOffsetMinutes != nil {
		if *req.StartOffsetMinutes <= 0 {
			return nil, fmt.Errorf("start offset must be a positive number of minutes: %w", common.ErrValidation)
		}
		start := s.now().Add(time.Duration(*req.StartOffsetMinutes) * time.Minute)
		builder.StartTime = &start
	}

	if err := s.sessions.Save(ctx, builder); err != nil {
		return nil, err
	}
	return builder, nil
}

func (s *ContestService) AddBuilderProblem(ctx context.Context, token, memberID string, spec ProblemSpec) (*ContestBuilder, error) {
	builder, err := s.ownedBuilder(ctx, token, memberID)
	if err != nil {
		return nil, err
	}

	problem, err := s.selector.Select(ctx, spec)
	if err != nil {
		return nil, err
	}
	builder.Problems = append(builder.Problems, model.ContestProblem{
		Position:       len(builder.Problems),
		JudgeContestID: problem.ContestID,
		ProblemIndex:   problem.Index,
		ProblemName:    problem.Name,
		ProblemRating:  problem.Rating,
	})

	if err := s.sessions.Save(ctx, builder); err != nil {
		return nil, err
	}
	return builder, nil
}

// FinalizeBuilder persists the contest. Name, duration, start time
// and at least one problem must all be set.
func (s *ContestService) FinalizeBuilder(ctx context.Context, token, memberID string) (*model.Contest, error) {
	builder, err := s.ownedBuilder(ctx, token, memberID)
	if err != nil {
		return nil, err
	}
	if !builder.Complete() {
		return nil, fmt.Errorf("contest needs a name, duration, start time and at least one problem: %w", common.ErrValidation)
	}

	contest := &model.Contest{
		ID:              uuid.NewString(),
		Name:            builder.Name,
		Slug:            slug.Make(builder.Name),
		Status:          model.ContestPending,
		StartTime:       *builder.StartTime,
		DurationMinutes: builder.DurationMinutes,
		CreatedBy:       memberID,
	}
	for i := range builder.Problems {
		builder.Problems[i].ContestID = contest.ID
		builder.Problems[i].Position = i
	}
	if err := s.contestRepo.Create(ctx, contest, builder.Problems); err != nil {
		return nil, fmt.Errorf("failed to create contest: %w", err)
	}

	if err := s.sessions.Delete(ctx, token); err != nil {
		log.Printf("WARN: Failed to delete builder session %s: %v", token, err)
	}
	s.announcer.Announce(ctx, notify.Announcement{
		Kind:      notify.KindContestScheduled,
		ContestID: contest.ID,
		Payload: map[string]interface{}{
			"name":       contest.Name,
			"start_time": contest.StartTime,
			"duration":   contest.DurationMinutes,
		},
	})
	return contest, nil
}

func (s *ContestService) ownedBuilder(ctx context.Context, token, memberID string) (*ContestBuilder, error) {
	builder, err := s.sessions.Get(ctx, token)
	if err != nil {
		return nil, err
	}
	if builder.CreatedBy != memberID {
		return nil, fmt.Errorf("builder session belongs to another member: %w", common.ErrForbidden)
	}
	return builder, nil
}

// --- Lifecycle ---

type JoinResult struct {
	AlreadyJoined bool `json:"already_joined"`
}

// Join adds a member to a contest. Joining requires a linked judge
// account, fails once the contest has ended, and is idempotent.
func (s *ContestService) Join(ctx context.Context, contestID, memberID, role string) (*JoinResult, error) {
	if err := s.policy.Require(ctx, memberID, role, CapContestJoin); err != nil {
		return nil, err
	}

	contest, err := s.contestRepo.FindByID(ctx, contestID)
	if err != nil {
		return nil, err
	}
	if contest.Status == model.ContestEnded {
		return nil, fmt.Errorf("contest has already ended: %w", common.ErrConflict)
	}

	added, err := s.contestRepo.AddParticipant(ctx, contestID, memberID)
	if err != nil {
		return nil, fmt.Errorf("failed to join contest: %w", err)
	}
	return &JoinResult{AlreadyJoined: !added}, nil
}

type ContestSolveResult struct {
	Solved     bool `json:"solved"`
	Points     int  `json:"points"`
	FirstSolve bool `json:"first_solve"`
}

// CheckSolved verifies a claimed solve of one contest problem against
// the judge and awards points. Duplicate claims for an
// already-awarded problem are rejected; the first verified solver of
// each problem earns the bonus exactly once.
func (s *ContestService) CheckSolved(ctx context.Context, contestID, memberID string, position int) (*ContestSolveResult, error) {
	contest, err := s.contestRepo.FindByID(ctx, contestID)
	if err != nil {
		return nil, err
	}
	if contest.Status != model.ContestActive {
		return nil, fmt.Errorf("contest is not active: %w", common.ErrConflict)
	}

	participant, err := s.contestRepo.FindParticipant(ctx, contestID, memberID)
	if err != nil {
		return nil, fmt.Errorf("join the contest before checking solves: %w", common.ErrForbidden)
	}
	for _, solved := range participant.SolvedPositions {
		if solved == position {
			return nil, fmt.Errorf("points for this problem were already awarded: %w", common.ErrConflict)
		}
	}

	problems, err := s.contestRepo.Problems(ctx, contestID)
	if err != nil {
		return nil, err
	}
	var problem *model.ContestProblem
	for i := range problems {
		if problems[i].Position == position {
			problem = &problems[i]
			break
		}
	}
	if problem == nil {
		return nil, fmt.Errorf("contest has no problem at position %d: %w", position, common.ErrNotFound)
	}

	handle, err := s.handles.ResolveHandle(ctx, memberID)
	if err != nil {
		return nil, fmt.Errorf("no judge account linked: %w", common.ErrForbidden)
	}

	subs, err := s.judge.ContestSubmissions(ctx, problem.JudgeContestID, handle)
	if err != nil {
		return nil, err
	}
	if !judge.HasAccepted(subs, problem.JudgeContestID, problem.ProblemIndex, contest.StartTime) {
		return &ContestSolveResult{Solved: false}, nil
	}

	points := problem.ProblemRating / 100
	if points <= 0 {
		points = minContestPoints
	}
	awarded, first, total, err := s.contestRepo.AwardSolve(ctx, contestID, memberID, position, points, firstSolveBonus)
	if err != nil {
		return nil, err
	}
	if !awarded {
		// Lost a race with another check for the same member.
		return nil, fmt.Errorf("points for this problem were already awarded: %w", common.ErrConflict)
	}

	if err := s.scores.AddScore(ctx, memberID, float64(total)); err != nil {
		log.Printf("ERROR: Failed to add contest points for member %s: %v", memberID, err)
	}
	if err := s.scores.IncrSolved(ctx, memberID); err != nil {
		log.Printf("ERROR: Failed to bump solved counter for member %s: %v", memberID, err)
	}
	return &ContestSolveResult{Solved: true, Points: total, FirstSolve: first}, nil
}

// Start activates a Pending contest ahead of the timer (organizer).
func (s *ContestService) Start(ctx context.Context, contestID, memberID, role string) error {
	if err := s.policy.Require(ctx, memberID, role, CapContestManage); err != nil {
		return err
	}
	contest, err := s.contestRepo.FindByID(ctx, contestID)
	if err != nil {
		return err
	}
	return s.activate(ctx, contest)
}

// End finishes a contest ahead of the timer (organizer). An Active
// contest ends with its leaderboard; a Pending contest that never ran
// may be scrapped straight to Ended.
func (s *ContestService) End(ctx context.Context, contestID, memberID, role string) error {
	if err := s.policy.Require(ctx, memberID, role, CapContestManage); err != nil {
		return err
	}
	contest, err := s.contestRepo.FindByID(ctx, contestID)
	if err != nil {
		return err
	}

	switch contest.Status {
	case model.ContestActive:
		return s.finish(ctx, contest)
	case model.ContestPending:
		moved, err := s.contestRepo.AdvanceStatus(ctx, contestID, model.ContestPending, model.ContestEnded)
		if err != nil {
			return err
		}
		if !moved {
			return fmt.Errorf("contest is not pending: %w", common.ErrConflict)
		}
		s.announcer.Announce(ctx, notify.Announcement{Kind: notify.KindContestEnded, ContestID: contestID})
		return nil
	}
	return fmt.Errorf("contest has already ended: %w", common.ErrConflict)
}

// PollOnce is one tick of the global contest timer: every Pending
// contest whose window now contains "now" activates, every Active
// contest whose window has elapsed ends. Per-contest failures are
// logged and skipped so one bad row cannot stall the loop.
func (s *ContestService) PollOnce(ctx context.Context) error {
	now := s.now()

	pending, err := s.contestRepo.ListByStatus(ctx, model.ContestPending)
	if err != nil {
		return fmt.Errorf("poll pending contests: %w", err)
	}
	for i := range pending {
		if !pending[i].InWindow(now) {
			continue
		}
		if err := s.activate(ctx, &pending[i]); err != nil {
			log.Printf("ERROR: Failed to activate contest %s: %v", pending[i].ID, err)
		}
	}

	active, err := s.contestRepo.ListByStatus(ctx, model.ContestActive)
	if err != nil {
		return fmt.Errorf("poll active contests: %w", err)
	}
	for i := range active {
		if !active[i].Elapsed(now) {
			continue
		}
		if err := s.finish(ctx, &active[i]); err != nil {
			log.Printf("ERROR: Failed to end contest %s: %v", active[i].ID, err)
		}
	}
	return nil
}

// activate moves Pending -> Active and announces the problem set.
// Shared by the poll tick and the manual start command, so both
// enforce the same precondition.
func (s *ContestService) activate(ctx context.Context, contest *model.Contest) error {
	moved, err := s.contestRepo.AdvanceStatus(ctx, contest.ID, model.ContestPending, model.ContestActive)
	if err != nil {
		return err
	}
	if !moved {
		return fmt.Errorf("contest is not pending: %w", common.ErrConflict)
	}
	contest.Status = model.ContestActive

	problems, err := s.contestRepo.Problems(ctx, contest.ID)
	if err != nil {
		log.Printf("ERROR: Failed to load problems for contest %s announcement: %v", contest.ID, err)
		problems = nil
	}
	s.announcer.Announce(ctx, notify.Announcement{
		Kind:      notify.KindContestStarted,
		ContestID: contest.ID,
		Payload:   map[string]interface{}{"name": contest.Name, "problems": problems},
	})
	return nil
}

// finish moves Active -> Ended and announces the final leaderboard.
func (s *ContestService) finish(ctx context.Context, contest *model.Contest) error {
	moved, err := s.contestRepo.AdvanceStatus(ctx, contest.ID, model.ContestActive, model.ContestEnded)
	if err != nil {
		return err
	}
	if !moved {
		return fmt.Errorf("contest is not active: %w", common.ErrConflict)
	}
	contest.Status = model.ContestEnded

	standings, err := s.contestRepo.Standings(ctx, contest.ID)
	if err != nil {
		log.Printf("ERROR: Failed to load standings for contest %s announcement: %v", contest.ID, err)
		standings = nil
	}
	s.announcer.Announce(ctx, notify.Announcement{
		Kind:      notify.KindContestEnded,
		ContestID: contest.ID,
		Payload:   map[string]interface{}{"name": contest.Name, "standings": standings},
	})
	return nil
}

// --- Reads ---

type ContestView struct {
	Contest  *model.Contest         `json:"contest"`
	Problems []model.ContestProblem `json:"problems"`
	// FirstSolves maps problem position to the first solver.
	FirstSolves map[int]string `json:"first_solves"`
}

func (s *ContestService) Get(ctx context.Context, contestID string) (*ContestView, error) {
	contest, err := s.contestRepo.FindByID(ctx, contestID)
	if err != nil {
		return nil, err
	}
	problems, err := s.contestRepo.Problems(ctx, contestID)
	if err != nil {
		return nil, err
	}
	firstSolves, err := s.contestRepo.FirstSolves(ctx, contestID)
	if err != nil {
		return nil, err
	}
	return &ContestView{Contest: contest, Problems: problems, FirstSolves: firstSolves}, nil
}

func (s *ContestService) List(ctx context.Context, limit, offset int) ([]model.Contest, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.contestRepo.List(ctx, limit, offset)
}

func (s *ContestService) Standings(ctx context.Context, contestID string) ([]model.ContestStanding, error) {
	if _, err := s.contestRepo.FindByID(ctx, contestID); err != nil {
		return nil, err
	}
	return s.contestRepo.Standings(ctx, contestID)
}
