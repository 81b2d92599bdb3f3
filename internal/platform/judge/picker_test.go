package judge

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCatalog() []Problem {
	return []Problem{
		{ContestID: 1, Index: "A", Name: "p1", Rating: 800, Tags: []string{"math"}, SolvedCount: 5000},
		{ContestID: 1, Index: "B", Name: "p2", Rating: 1200, Tags: []string{"math", "greedy"}, SolvedCount: 3000},
		{ContestID: 2, Index: "A", Name: "p3", Rating: 800, Tags: []string{"greedy"}, SolvedCount: 40},
		{ContestID: 2, Index: "B", Name: "p4", Rating: 1600, Tags: []string{"dp"}, SolvedCount: 900},
	}
}

// fixedPicker always draws the first element, making selection
// deterministic.
func fixedPicker(minTagCount int) *Picker {
	p := NewPicker(minTagCount, 3)
	p.intn = func(n int) int { return 0 }
	return p
}

func TestPickRandomByTags(t *testing.T) {
	t.Run("all given tags must match", func(t *testing.T) {
		p := fixedPicker(1)
		picked, err := p.PickRandom(testCatalog(), []string{"math", "greedy"}, "", 0)
		require.NoError(t, err)
		assert.Equal(t, "p2", picked.Name)
	})

	t.Run("tag matching is case-insensitive", func(t *testing.T) {
		p := fixedPicker(1)
		picked, err := p.PickRandom(testCatalog(), []string{"DP"}, "", 0)
		require.NoError(t, err)
		assert.Equal(t, "p4", picked.Name)
	})

	t.Run("no problem carries all tags", func(t *testing.T) {
		p := fixedPicker(1)
		_, err := p.PickRandom(testCatalog(), []string{"math", "dp"}, "", 0)
		assert.ErrorIs(t, err, ErrNoProblemFound)
	})

	t.Run("random tag draws only common tags", func(t *testing.T) {
		// "math" and "greedy" occur twice, "dp" once; with
		// minTagCount=2 the drawn tag is never "dp".
		p := NewPicker(2, 3)
		for seed := 0; seed < 10; seed++ {
			offset := seed
			p.intn = func(n int) int { return offset % n }
			picked, err := p.PickRandom(testCatalog(), nil, "", 0)
			require.NoError(t, err)
			assert.NotContains(t, picked.Tags, "dp")
		}
	})

	t.Run("explicit random keyword behaves like no tag filter", func(t *testing.T) {
		p := fixedPicker(1)
		picked, err := p.PickRandom(testCatalog(), []string{"RANDOM"}, "", 0)
		require.NoError(t, err)
		assert.NotNil(t, picked)
	})
}

func TestPickRandomByRating(t *testing.T) {
	t.Run("exact rating filter", func(t *testing.T) {
		p := fixedPicker(1)
		picked, err := p.PickRandom(testCatalog(), []string{"greedy"}, "800", 0)
		require.NoError(t, err)
		assert.Equal(t, "p3", picked.Name)
	})

	t.Run("random rating draws from ratings present", func(t *testing.T) {
		p := fixedPicker(1)
		picked, err := p.PickRandom(testCatalog(), []string{"math"}, "random", 0)
		require.NoError(t, err)
		assert.Contains(t, []int{800, 1200}, picked.Rating)
	})

	t.Run("unparseable rating matches nothing", func(t *testing.T) {
		p := fixedPicker(1)
		_, err := p.PickRandom(testCatalog(), []string{"math"}, "hard", 0)
		assert.ErrorIs(t, err, ErrNoProblemFound)
	})
}

func TestPickRandomMinSolved(t *testing.T) {
	p := fixedPicker(1)
	picked, err := p.PickRandom(testCatalog(), []string{"greedy"}, "", 1000)
	require.NoError(t, err)
	assert.Equal(t, "p2", picked.Name) // p3 has too few solvers

	_, err = p.PickRandom(testCatalog(), []string{"dp"}, "", 100000)
	assert.ErrorIs(t, err, ErrNoProblemFound)
}

func TestPickRandomEmptyCatalog(t *testing.T) {
	p := fixedPicker(1)
	_, err := p.PickRandom(nil, nil, "", 0)
	assert.ErrorIs(t, err, ErrNoProblemFound)
}

func TestPickRandomStaysInCatalog(t *testing.T) {
	catalog := testCatalog()
	names := make(map[string]bool)
	for _, pr := range catalog {
		names[pr.Name] = true
	}

	p := NewPicker(1, 3)
	for i := 0; i < 50; i++ {
		picked, err := p.PickRandom(catalog, nil, "random", 0)
		require.NoError(t, err)
		assert.True(t, names[picked.Name], "picked %q not in catalog", picked.Name)
	}
}

func TestProblemRef(t *testing.T) {
	p := &Problem{ContestID: 1730, Index: "C"}
	assert.Equal(t, "1730/C", p.Ref())
	assert.Equal(t, "", (*Problem)(nil).Ref())
	assert.True(t, strings.HasPrefix(p.Ref(), "1730/"))
}
