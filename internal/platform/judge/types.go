package judge

import "strconv"

// Types mirroring the judge's public API. All fields come straight
// from the JSON envelope; SolvedCount is merged in from the
// problem-statistics half of the problemset response.

type Problem struct {
	ContestID   int      `json:"contestId"`
	Index       string   `json:"index"`
	Name        string   `json:"name"`
	Rating      int      `json:"rating"`
	Tags        []string `json:"tags"`
	SolvedCount int      `json:"-"`
}

// Ref returns the canonical "contestId/index" reference.
func (p *Problem) Ref() string {
	if p == nil {
		return ""
	}
	return strconv.Itoa(p.ContestID) + "/" + p.Index
}

type Submission struct {
	ID                  int64   `json:"id"`
	ContestID           int     `json:"contestId"`
	CreationTimeSeconds int64   `json:"creationTimeSeconds"`
	Problem             Problem `json:"problem"`
	Verdict             string  `json:"verdict"`
}

// VerdictAccepted is the only verdict that counts as a solve.
const VerdictAccepted = "OK"

type User struct {
	Handle string `json:"handle"`
	Rating int    `json:"rating"`
	Rank   string `json:"rank"`
}
