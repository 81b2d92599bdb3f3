package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"cparena/internal/app/notify"
	"cparena/internal/common"
	"cparena/internal/domain/model"
	"cparena/internal/platform/judge"
)

// In-memory fakes mirroring the Postgres repositories' observable
// semantics: conditional status advances, idempotent inserts, and the
// first-writer-wins solve claims.

// --- account links ---

type fakeLinkRepo struct {
	handles map[string]string // memberID -> handle
}

func newFakeLinkRepo() *fakeLinkRepo {
	return &fakeLinkRepo{handles: make(map[string]string)}
}

func (r *fakeLinkRepo) Upsert(_ context.Context, link *model.AccountLink) error {
	for member, handle := range r.handles {
		if handle == link.JudgeHandle && member != link.MemberID {
			return common.ErrConflict
		}
	}
	r.handles[link.MemberID] = link.JudgeHandle
	return nil
}

func (r *fakeLinkRepo) FindByMemberID(_ context.Context, memberID string) (*model.AccountLink, error) {
	handle, ok := r.handles[memberID]
	if !ok {
		return nil, common.ErrNotFound
	}
	return &model.AccountLink{MemberID: memberID, JudgeHandle: handle}, nil
}

func (r *fakeLinkRepo) FindByHandle(_ context.Context, handle string) (*model.AccountLink, error) {
	for member, h := range r.handles {
		if h == handle {
			return &model.AccountLink{MemberID: member, JudgeHandle: h}, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *fakeLinkRepo) Delete(_ context.Context, memberID string) error {
	if _, ok := r.handles[memberID]; !ok {
		return common.ErrNotFound
	}
	delete(r.handles, memberID)
	return nil
}

func (r *fakeLinkRepo) ResolveHandle(ctx context.Context, memberID string) (string, error) {
	link, err := r.FindByMemberID(ctx, memberID)
	if err != nil {
		return "", err
	}
	return link.JudgeHandle, nil
}

// --- members ---

type fakeMemberRepo struct {
	members map[string]*model.Member // by ID
}

func newFakeMemberRepo() *fakeMemberRepo {
	return &fakeMemberRepo{members: make(map[string]*model.Member)}
}

func (r *fakeMemberRepo) Create(_ context.Context, member *model.Member) error {
	for _, m := range r.members {
		if m.Username == member.Username || m.Email == member.Email {
			return common.ErrConflict
		}
	}
	stored := *member
	r.members[member.ID] = &stored
	return nil
}

func (r *fakeMemberRepo) FindByEmail(_ context.Context, email string) (*model.Member, error) {
	for _, m := range r.members {
		if m.Email == email {
			cp := *m
			return &cp, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *fakeMemberRepo) FindByUsername(_ context.Context, username string) (*model.Member, error) {
	for _, m := range r.members {
		if m.Username == username {
			cp := *m
			return &cp, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *fakeMemberRepo) FindByID(_ context.Context, id string) (*model.Member, error) {
	m, ok := r.members[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (r *fakeMemberRepo) UpdateRole(_ context.Context, id, role string) error {
	m, ok := r.members[id]
	if !ok {
		return common.ErrNotFound
	}
	m.Role = role
	return nil
}

func (r *fakeMemberRepo) UsernamesByIDs(_ context.Context, ids []string) (map[string]string, error) {
	out := make(map[string]string)
	for _, id := range ids {
		if m, ok := r.members[id]; ok {
			out[id] = m.Username
		}
	}
	return out, nil
}

// --- challenges ---

type fakeChallengeRepo struct {
	challenges   map[string]*model.Challenge
	participants map[string][]*model.ChallengeParticipant
}

func newFakeChallengeRepo() *fakeChallengeRepo {
	return &fakeChallengeRepo{
		challenges:   make(map[string]*model.Challenge),
		participants: make(map[string][]*model.ChallengeParticipant),
	}
}

func (r *fakeChallengeRepo) Create(_ context.Context, c *model.Challenge, participants []model.ChallengeParticipant) error {
	stored := *c
	r.challenges[c.ID] = &stored
	for i := range participants {
		p := participants[i]
		p.ChallengeID = c.ID
		r.participants[c.ID] = append(r.participants[c.ID], &p)
	}
	return nil
}

func (r *fakeChallengeRepo) FindByID(_ context.Context, id string) (*model.Challenge, error) {
	c, ok := r.challenges[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *fakeChallengeRepo) ListParticipants(_ context.Context, challengeID string) ([]model.ChallengeParticipant, error) {
	var out []model.ChallengeParticipant
	for _, p := range r.participants[challengeID] {
		out = append(out, *p)
	}
	return out, nil
}

func (r *fakeChallengeRepo) FindParticipant(_ context.Context, challengeID, memberID string) (*model.ChallengeParticipant, error) {
	for _, p := range r.participants[challengeID] {
		if p.MemberID == memberID {
			cp := *p
			return &cp, nil
		}
	}
	return nil, common.ErrNotFound
}

func (r *fakeChallengeRepo) AdvanceStatus(_ context.Context, id string, from, to model.ChallengeStatus, startedAt *time.Time) (bool, error) {
	c, ok := r.challenges[id]
	if !ok || c.Status != from {
		return false, nil
	}
	c.Status = to
	if startedAt != nil {
		c.StartedAt = startedAt
	}
	return true, nil
}

func (r *fakeChallengeRepo) SetParticipantState(_ context.Context, challengeID, memberID string, state model.ParticipantState) error {
	for _, p := range r.participants[challengeID] {
		if p.MemberID == memberID {
			p.State = state
			return nil
		}
	}
	return common.ErrNotFound
}

func (r *fakeChallengeRepo) RecordSolve(_ context.Context, challengeID, memberID string, score float64, finish time.Time) (bool, int, error) {
	var target *model.ChallengeParticipant
	hasWinner := false
	solved := 0
	for _, p := range r.participants[challengeID] {
		if p.IsWinner {
			hasWinner = true
		}
		if p.State == model.ParticipantSolved {
			solved++
		}
		if p.MemberID == memberID {
			target = p
		}
	}
	if target == nil || target.State != model.ParticipantAccepted {
		return false, 0, common.ErrConflict
	}
	target.State = model.ParticipantSolved
	target.ScoreAwarded = score
	target.FinishTime = &finish
	target.Rank = solved + 1
	target.IsWinner = !hasWinner
	return target.IsWinner, target.Rank, nil
}

// --- contests ---

type fakeContestRepo struct {
	contests     map[string]*model.Contest
	problems     map[string][]model.ContestProblem
	participants map[string]*model.ContestParticipant // contestID|memberID
	solves       map[string]bool                      // contestID|memberID|position
	firstSolves  map[string]string                    // contestID|position -> memberID
	awardErr     error                                // injected AwardSolve failure
}

func newFakeContestRepo() *fakeContestRepo {
	return &fakeContestRepo{
		contests:     make(map[string]*model.Contest),
		problems:     make(map[string][]model.ContestProblem),
		participants: make(map[string]*model.ContestParticipant),
		solves:       make(map[string]bool),
		firstSolves:  make(map[string]string),
	}
}

func pkey(parts ...interface{}) string {
	return fmt.Sprint(parts...)
}

func (r *fakeContestRepo) Create(_ context.Context, c *model.Contest, problems []model.ContestProblem) error {
	stored := *c
	r.contests[c.ID] = &stored
	r.problems[c.ID] = append([]model.ContestProblem(nil), problems...)
	return nil
}

func (r *fakeContestRepo) FindByID(_ context.Context, id string) (*model.Contest, error) {
	c, ok := r.contests[id]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (r *fakeContestRepo) List(_ context.Context, limit, offset int) ([]model.Contest, error) {
	var out []model.Contest
	for _, c := range r.contests {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.After(out[j].StartTime) })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *fakeContestRepo) ListByStatus(_ context.Context, status model.ContestStatus) ([]model.Contest, error) {
	var out []model.Contest
	for _, c := range r.contests {
		if c.Status == status {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].StartTime.Before(out[j].StartTime) })
	return out, nil
}

func (r *fakeContestRepo) AdvanceStatus(_ context.Context, id string, from, to model.ContestStatus) (bool, error) {
	c, ok := r.contests[id]
	if !ok || c.Status != from {
		return false, nil
	}
	c.Status = to
	return true, nil
}

func (r *fakeContestRepo) Problems(_ context.Context, contestID string) ([]model.ContestProblem, error) {
	return append([]model.ContestProblem(nil), r.problems[contestID]...), nil
}

func (r *fakeContestRepo) AddParticipant(_ context.Context, contestID, memberID string) (bool, error) {
	key := pkey(contestID, "|", memberID)
	if _, ok := r.participants[key]; ok {
		return false, nil
	}
	r.participants[key] = &model.ContestParticipant{ContestID: contestID, MemberID: memberID, JoinedAt: time.Now()}
	return true, nil
}

func (r *fakeContestRepo) FindParticipant(_ context.Context, contestID, memberID string) (*model.ContestParticipant, error) {
	p, ok := r.participants[pkey(contestID, "|", memberID)]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *p
	cp.SolvedPositions = nil
	for key := range r.solves {
		for _, problem := range r.problems[contestID] {
			if key == pkey(contestID, "|", memberID, "|", problem.Position) {
				cp.SolvedPositions = append(cp.SolvedPositions, problem.Position)
			}
		}
	}
	return &cp, nil
}

// AwardSolve matches the transactional repository: when awardErr is
// set the award fails whole, leaving no solve row behind.
func (r *fakeContestRepo) AwardSolve(_ context.Context, contestID, memberID string, position, points, bonus int) (bool, bool, int, error) {
	if r.awardErr != nil {
		return false, false, 0, r.awardErr
	}
	key := pkey(contestID, "|", memberID, "|", position)
	if r.solves[key] {
		return false, false, 0, nil
	}
	p, ok := r.participants[pkey(contestID, "|", memberID)]
	if !ok {
		return false, false, 0, common.ErrNotFound
	}
	r.solves[key] = true

	fkey := pkey(contestID, "|", position)
	_, claimed := r.firstSolves[fkey]
	if !claimed {
		r.firstSolves[fkey] = memberID
	}

	total := points
	if !claimed {
		total += bonus
	}
	p.Score += total
	return true, !claimed, total, nil
}

func (r *fakeContestRepo) FirstSolves(_ context.Context, contestID string) (map[int]string, error) {
	out := make(map[int]string)
	for _, problem := range r.problems[contestID] {
		if member, ok := r.firstSolves[pkey(contestID, "|", problem.Position)]; ok {
			out[problem.Position] = member
		}
	}
	return out, nil
}

func (r *fakeContestRepo) Standings(_ context.Context, contestID string) ([]model.ContestStanding, error) {
	var out []model.ContestStanding
	for _, p := range r.participants {
		if p.ContestID != contestID {
			continue
		}
		out = append(out, model.ContestStanding{MemberID: p.MemberID, Score: p.Score})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	for i := range out {
		out[i].Rank = i + 1
	}
	return out, nil
}

// --- judge ---

type fakeJudge struct {
	problems    []judge.Problem
	submissions map[string][]judge.Submission // handle -> submissions
	users       map[string]bool
	down        bool
}

func newFakeJudge() *fakeJudge {
	return &fakeJudge{
		submissions: make(map[string][]judge.Submission),
		users:       make(map[string]bool),
	}
}

func (j *fakeJudge) ProblemSet(context.Context) ([]judge.Problem, error) {
	if j.down {
		return nil, common.ErrServiceUnavailable
	}
	return j.problems, nil
}

func (j *fakeJudge) UserSubmissions(_ context.Context, handle string, since time.Time) ([]judge.Submission, error) {
	if j.down {
		return nil, common.ErrServiceUnavailable
	}
	var out []judge.Submission
	for _, s := range j.submissions[handle] {
		if since.IsZero() || s.CreationTimeSeconds >= since.Unix() {
			out = append(out, s)
		}
	}
	return out, nil
}

func (j *fakeJudge) ContestSubmissions(_ context.Context, contestID int, handle string) ([]judge.Submission, error) {
	if j.down {
		return nil, common.ErrServiceUnavailable
	}
	var out []judge.Submission
	for _, s := range j.submissions[handle] {
		if s.Problem.ContestID == contestID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (j *fakeJudge) UserExists(_ context.Context, handle string) (bool, error) {
	if j.down {
		return false, common.ErrServiceUnavailable
	}
	return j.users[handle], nil
}

// --- scoring / announcements / sessions ---

type fakeScores struct {
	points map[string]float64
	solved map[string]int
}

func newFakeScores() *fakeScores {
	return &fakeScores{points: make(map[string]float64), solved: make(map[string]int)}
}

func (s *fakeScores) AddScore(_ context.Context, memberID string, points float64) error {
	s.points[memberID] += points
	return nil
}

func (s *fakeScores) IncrSolved(_ context.Context, memberID string) error {
	s.solved[memberID]++
	return nil
}

type fakeAnnouncer struct {
	announcements []notify.Announcement
}

func (a *fakeAnnouncer) Announce(_ context.Context, ann notify.Announcement) {
	a.announcements = append(a.announcements, ann)
}

func (a *fakeAnnouncer) lastKind() notify.Kind {
	if len(a.announcements) == 0 {
		return ""
	}
	return a.announcements[len(a.announcements)-1].Kind
}

// lastPayload returns the most recent announcement's payload as the
// key/value map the services publish.
func (a *fakeAnnouncer) lastPayload() map[string]interface{} {
	if len(a.announcements) == 0 {
		return nil
	}
	payload, _ := a.announcements[len(a.announcements)-1].Payload.(map[string]interface{})
	return payload
}

type fakeSessions struct {
	builders map[string]*ContestBuilder
	next     int
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{builders: make(map[string]*ContestBuilder)}
}

func (s *fakeSessions) Create(_ context.Context, memberID string) (*ContestBuilder, error) {
	s.next++
	b := &ContestBuilder{Token: fmt.Sprintf("token-%d", s.next), CreatedBy: memberID, CreatedAt: time.Now()}
	stored := *b
	s.builders[b.Token] = &stored
	return b, nil
}

func (s *fakeSessions) Get(_ context.Context, token string) (*ContestBuilder, error) {
	b, ok := s.builders[token]
	if !ok {
		return nil, common.ErrNotFound
	}
	cp := *b
	cp.Problems = append([]model.ContestProblem(nil), b.Problems...)
	return &cp, nil
}

func (s *fakeSessions) Save(_ context.Context, builder *ContestBuilder) error {
	stored := *builder
	stored.Problems = append([]model.ContestProblem(nil), builder.Problems...)
	s.builders[builder.Token] = &stored
	return nil
}

func (s *fakeSessions) Delete(_ context.Context, token string) error {
	delete(s.builders, token)
	return nil
}
