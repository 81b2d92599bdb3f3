package worker

import (
	"testing"
	"time"

	"cparena/internal/domain/model"

	"github.com/stretchr/testify/assert"
)

func TestWindowResetDue(t *testing.T) {
	// Daily at 00:00, weekly on Mondays, monthly on the 1st.
	newWorker := func() *WindowResetWorker {
		return NewWindowResetWorker(nil, 0, time.Monday, 1)
	}

	t.Run("nothing due outside the reset minute", func(t *testing.T) {
		w := newWorker()
		assert.Empty(t, w.due(time.Date(2026, 8, 4, 13, 30, 0, 0, time.UTC)))
		assert.Empty(t, w.due(time.Date(2026, 8, 4, 0, 1, 0, 0, time.UTC)))
	})

	t.Run("daily fires every midnight, once per day", func(t *testing.T) {
		w := newWorker()
		tick := time.Date(2026, 8, 4, 0, 0, 0, 0, time.UTC) // a Tuesday
		assert.Equal(t, []model.Window{model.WindowDaily}, w.due(tick))
		assert.Empty(t, w.due(tick.Add(30*time.Second)), "second tick in the same minute")
		assert.Equal(t, []model.Window{model.WindowDaily}, w.due(tick.Add(24*time.Hour)))
	})

	t.Run("weekly joins on the configured weekday", func(t *testing.T) {
		w := newWorker()
		monday := time.Date(2026, 8, 3, 0, 0, 0, 0, time.UTC)
		assert.Equal(t, time.Monday, monday.Weekday())
		assert.Equal(t, []model.Window{model.WindowDaily, model.WindowWeekly}, w.due(monday))
	})

	t.Run("monthly joins on the configured day", func(t *testing.T) {
		w := newWorker()
		first := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC) // a Saturday
		assert.Equal(t, []model.Window{model.WindowDaily, model.WindowMonthly}, w.due(first))
	})

	t.Run("overall is never reset", func(t *testing.T) {
		w := newWorker()
		// 2026-06-01 is a Monday: every resettable window fires at once.
		all := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
		assert.Equal(t, time.Monday, all.Weekday())
		windows := w.due(all)
		assert.Len(t, windows, 3)
		assert.NotContains(t, windows, model.WindowOverall)
	})
}
