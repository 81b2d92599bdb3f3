package model

import "time"

type ChallengeStatus string
type ParticipantState string

const (
	ChallengeProposed  ChallengeStatus = "Proposed"
	ChallengeActive    ChallengeStatus = "Active"
	ChallengeCancelled ChallengeStatus = "Cancelled"
	ChallengeComplete  ChallengeStatus = "Complete"

	ParticipantInvited     ParticipantState = "invited"
	ParticipantAccepted    ParticipantState = "accepted"
	ParticipantRejected    ParticipantState = "rejected"
	ParticipantSolved      ParticipantState = "solved"
	ParticipantSurrendered ParticipantState = "surrendered"
)

// Challenge is a head-to-head race to solve one judge problem.
// The problem rating is snapshotted at creation so scoring does not
// depend on later catalog changes.
type Challenge struct {
	ID             string          `json:"id"`
	JudgeContestID int             `json:"judge_contest_id"`
	ProblemIndex   string          `json:"problem_index"`
	ProblemName    string          `json:"problem_name"`
	ProblemRating  int             `json:"problem_rating"`
	Status         ChallengeStatus `json:"status"`
	ProposedBy     string          `json:"proposed_by"`
	StartedAt      *time.Time      `json:"started_at,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

type ChallengeParticipant struct {
	ChallengeID  string           `json:"challenge_id"`
	MemberID     string           `json:"member_id"`
	State        ParticipantState `json:"state"`
	IsWinner     bool             `json:"is_winner"`
	ScoreAwarded float64          `json:"score_awarded"`
	FinishTime   *time.Time       `json:"finish_time,omitempty"`
	Rank         int              `json:"rank"`
	JoinedAt     time.Time        `json:"joined_at"`
}

// Responded reports whether the participant has answered the proposal.
func (p *ChallengeParticipant) Responded() bool {
	return p.State != ParticipantInvited
}

// Playing reports whether the participant is still racing: accepted
// but neither solved nor surrendered.
func (p *ChallengeParticipant) Playing() bool {
	return p.State == ParticipantAccepted
}
