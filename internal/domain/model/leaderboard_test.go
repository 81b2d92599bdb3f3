package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWindow(t *testing.T) {
	cases := map[string]Window{
		"daily":   WindowDaily,
		"Weekly":  WindowWeekly,
		"MONTHLY": WindowMonthly,
		"overall": WindowOverall,
		"":        WindowOverall, // default window
	}
	for in, want := range cases {
		got, err := ParseWindow(in)
		require.NoError(t, err, "input %q", in)
		assert.Equal(t, want, got, "input %q", in)
	}

	_, err := ParseWindow("fortnightly")
	assert.Error(t, err)
}
