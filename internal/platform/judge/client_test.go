package judge

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"cparena/internal/common"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, 5*time.Second)
}

func TestProblemSetMergesSolvedCounts(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/problemset.problems", r.URL.Path)
		w.Write([]byte(`{
			"status": "OK",
			"result": {
				"problems": [
					{"contestId": 1000, "index": "A", "name": "Theatre Square", "rating": 800, "tags": ["math"]},
					{"contestId": 1000, "index": "B", "name": "Watermelon", "tags": ["greedy"]}
				],
				"problemStatistics": [
					{"contestId": 1000, "index": "A", "solvedCount": 52341},
					{"contestId": 1000, "index": "B", "solvedCount": 97}
				]
			}
		}`))
	})

	problems, err := client.ProblemSet(context.Background())
	require.NoError(t, err)
	require.Len(t, problems, 2)
	assert.Equal(t, "1000/A", problems[0].Ref())
	assert.Equal(t, 52341, problems[0].SolvedCount)
	assert.Equal(t, 800, problems[0].Rating)
	assert.Equal(t, 97, problems[1].SolvedCount)
	assert.Equal(t, 0, problems[1].Rating) // unrated problems stay zero
}

func TestFailedStatusIsServiceUnavailable(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"status": "FAILED", "comment": "problemset.problems: something broke"}`))
	})

	_, err := client.ProblemSet(context.Background())
	assert.ErrorIs(t, err, common.ErrServiceUnavailable)
}

func TestUserSubmissionsFiltersBySince(t *testing.T) {
	since := time.Unix(1_700_000_000, 0)
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/user.status", r.URL.Path)
		assert.Equal(t, "tourist", r.URL.Query().Get("handle"))
		w.Write([]byte(`{
			"status": "OK",
			"result": [
				{"id": 2, "contestId": 1000, "creationTimeSeconds": 1700000100,
				 "problem": {"contestId": 1000, "index": "A"}, "verdict": "OK"},
				{"id": 1, "contestId": 1000, "creationTimeSeconds": 1600000000,
				 "problem": {"contestId": 1000, "index": "A"}, "verdict": "OK"}
			]
		}`))
	})

	subs, err := client.UserSubmissions(context.Background(), "tourist", since)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, int64(2), subs[0].ID)
}

func TestUserExists(t *testing.T) {
	t.Run("known handle", func(t *testing.T) {
		client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/user.info", r.URL.Path)
			w.Write([]byte(`{"status": "OK", "result": [{"handle": "tourist", "rating": 3800}]}`))
		})
		ok, err := client.UserExists(context.Background(), "tourist")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("unknown handle is not an outage", func(t *testing.T) {
		client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"status": "FAILED", "comment": "handles: User with handle nobody not found"}`))
		})
		ok, err := client.UserExists(context.Background(), "nobody")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestHasAccepted(t *testing.T) {
	start := time.Unix(1_700_000_000, 0)
	subs := []Submission{
		{CreationTimeSeconds: start.Unix() + 60, Problem: Problem{ContestID: 1000, Index: "A"}, Verdict: "WRONG_ANSWER"},
		{CreationTimeSeconds: start.Unix() + 120, Problem: Problem{ContestID: 1000, Index: "B"}, Verdict: VerdictAccepted},
		{CreationTimeSeconds: start.Unix() - 60, Problem: Problem{ContestID: 1000, Index: "A"}, Verdict: VerdictAccepted},
		{CreationTimeSeconds: start.Unix() + 180, Problem: Problem{ContestID: 1000, Index: "a"}, Verdict: VerdictAccepted},
	}

	assert.True(t, HasAccepted(subs, 1000, "A", start), "index match is case-insensitive")
	assert.True(t, HasAccepted(subs, 1000, "B", start))
	assert.False(t, HasAccepted(subs, 1000, "C", start))
	assert.False(t, HasAccepted(subs, 2000, "A", start), "other judge contests never count")
	assert.False(t, HasAccepted(subs[:3], 1000, "A", start), "pre-start accepts and wrong answers never count")
	assert.True(t, HasAccepted(subs[2:3], 1000, "A", time.Time{}), "zero since disables the cutoff")
}
