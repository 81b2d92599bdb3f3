package judge

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"cparena/internal/common"
)

// API is the read-only surface the lifecycle services consume.
// Implemented by Client; faked in tests.
type API interface {
	ProblemSet(ctx context.Context) ([]Problem, error)
	UserSubmissions(ctx context.Context, handle string, since time.Time) ([]Submission, error)
	ContestSubmissions(ctx context.Context, contestID int, handle string) ([]Submission, error)
	UserExists(ctx context.Context, handle string) (bool, error)
}

// Client talks to the judge's public HTTP API. Every response is a
// JSON envelope with a top-level "status"; anything other than "OK"
// (or a non-200) is surfaced as common.ErrServiceUnavailable so
// callers treat the judge as temporarily down, never as fatal.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

type envelope struct {
	Status  string          `json:"status"`
	Comment string          `json:"comment"`
	Result  json.RawMessage `json:"result"`
}

func (c *Client) call(ctx context.Context, method string, params url.Values) (*envelope, error) {
	endpoint := c.baseURL + "/" + method
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("judge: build request for %s: %w", method, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("judge: %s: %v: %w", method, err, common.ErrServiceUnavailable)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("judge: %s: decode response: %v: %w", method, err, common.ErrServiceUnavailable)
	}

	// The judge reports errors via status=FAILED, usually with a 400.
	// The envelope is still returned so callers can inspect Comment.
	if resp.StatusCode != http.StatusOK && env.Status == "" {
		return nil, fmt.Errorf("judge: %s: unexpected status %d: %w", method, resp.StatusCode, common.ErrServiceUnavailable)
	}
	return &env, nil
}

func (c *Client) result(ctx context.Context, method string, params url.Values, out interface{}) error {
	env, err := c.call(ctx, method, params)
	if err != nil {
		return err
	}
	if env.Status != "OK" {
		return fmt.Errorf("judge: %s: status %q (%s): %w", method, env.Status, env.Comment, common.ErrServiceUnavailable)
	}
	if err := json.Unmarshal(env.Result, out); err != nil {
		return fmt.Errorf("judge: %s: decode result: %v: %w", method, err, common.ErrServiceUnavailable)
	}
	return nil
}

// ProblemSet fetches the full catalog with per-problem solved counts
// merged in from the statistics half of the response.
func (c *Client) ProblemSet(ctx context.Context) ([]Problem, error) {
	var result struct {
		Problems          []Problem `json:"problems"`
		ProblemStatistics []struct {
			ContestID   int    `json:"contestId"`
			Index       string `json:"index"`
			SolvedCount int    `json:"solvedCount"`
		} `json:"problemStatistics"`
	}
	if err := c.result(ctx, "problemset.problems", nil, &result); err != nil {
		return nil, err
	}

	solved := make(map[string]int, len(result.ProblemStatistics))
	for _, st := range result.ProblemStatistics {
		solved[strconv.Itoa(st.ContestID)+"/"+st.Index] = st.SolvedCount
	}
	for i := range result.Problems {
		result.Problems[i].SolvedCount = solved[result.Problems[i].Ref()]
	}
	return result.Problems, nil
}

// UserSubmissions returns the member's submission history, newest
// first, filtered to creation time >= since when since is non-zero.
func (c *Client) UserSubmissions(ctx context.Context, handle string, since time.Time) ([]Submission, error) {
	params := url.Values{"handle": {handle}}
	var subs []Submission
	if err := c.result(ctx, "user.status", params, &subs); err != nil {
		return nil, err
	}
	if since.IsZero() {
		return subs, nil
	}
	filtered := subs[:0]
	for _, s := range subs {
		if s.CreationTimeSeconds >= since.Unix() {
			filtered = append(filtered, s)
		}
	}
	return filtered, nil
}

// ContestSubmissions returns the member's submissions within a single
// judge contest.
func (c *Client) ContestSubmissions(ctx context.Context, contestID int, handle string) ([]Submission, error) {
	params := url.Values{
		"contestId": {strconv.Itoa(contestID)},
		"handle":    {handle},
	}
	var subs []Submission
	if err := c.result(ctx, "contest.status", params, &subs); err != nil {
		return nil, err
	}
	return subs, nil
}

// UserExists checks a handle against the judge. A FAILED status on
// user.info means the handle is unknown, not that the judge is down.
func (c *Client) UserExists(ctx context.Context, handle string) (bool, error) {
	env, err := c.call(ctx, "user.info", url.Values{"handles": {handle}})
	if err != nil {
		return false, err
	}
	if env.Status != "OK" {
		return false, nil
	}
	var users []User
	if err := json.Unmarshal(env.Result, &users); err != nil {
		return false, fmt.Errorf("judge: user.info: decode result: %v: %w", err, common.ErrServiceUnavailable)
	}
	return len(users) > 0, nil
}

// HasAccepted scans submissions for an accepted verdict on the exact
// (contestID, index) problem at or after since. Submissions before
// since never count.
func HasAccepted(subs []Submission, contestID int, index string, since time.Time) bool {
	for _, s := range subs {
		if s.Problem.ContestID != contestID || !strings.EqualFold(s.Problem.Index, index) {
			continue
		}
		if s.Verdict != VerdictAccepted {
			continue
		}
		if !since.IsZero() && s.CreationTimeSeconds < since.Unix() {
			continue
		}
		return true
	}
	return false
}
