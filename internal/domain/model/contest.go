package model

import "time"

type ContestStatus string

const (
	ContestPending ContestStatus = "Pending"
	ContestActive  ContestStatus = "Active"
	ContestEnded   ContestStatus = "Ended"
)

type Contest struct {
	ID              string        `json:"id"`
	Name            string        `json:"name"`
	Slug            string        `json:"slug"`
	Status          ContestStatus `json:"status"`
	StartTime       time.Time     `json:"start_time"`
	DurationMinutes int           `json:"duration_minutes"`
	CreatedBy       string        `json:"created_by"`
	CreatedAt       time.Time     `json:"created_at"`
}

// EndTime is the exclusive upper bound of the contest window.
func (c *Contest) EndTime() time.Time {
	return c.StartTime.Add(time.Duration(c.DurationMinutes) * time.Minute)
}

// InWindow reports whether now falls inside [start, start+duration).
func (c *Contest) InWindow(now time.Time) bool {
	return !now.Before(c.StartTime) && now.Before(c.EndTime())
}

// Elapsed reports whether the contest window is fully in the past.
func (c *Contest) Elapsed(now time.Time) bool {
	return !now.Before(c.EndTime())
}

// ContestProblem is one problem slot of a contest, referencing a
// problem on the remote judge by (contest id, index letter).
type ContestProblem struct {
	ContestID      string `json:"contest_id"`
	Position       int    `json:"position"`
	JudgeContestID int    `json:"judge_contest_id"`
	ProblemIndex   string `json:"problem_index"`
	ProblemName    string `json:"problem_name"`
	ProblemRating  int    `json:"problem_rating"`
}

type ContestParticipant struct {
	ContestID string    `json:"contest_id"`
	MemberID  string    `json:"member_id"`
	Score     int       `json:"score"`
	JoinedAt  time.Time `json:"joined_at"`
	// Positions of problems this member has been awarded for.
	SolvedPositions []int `json:"solved_positions"`
}

type ContestStanding struct {
	Rank     int    `json:"rank"`
	MemberID string `json:"member_id"`
	Username string `json:"username"`
	Score    int    `json:"score"`
	Solved   int    `json:"solved"`
}
