package worker

import (
	"context"
	"log"
	"time"

	"cparena/internal/app/service"
	"cparena/internal/domain/model"
)

// WindowResetWorker wipes the rolling leaderboard windows on a fixed
// schedule: daily at a configured hour, weekly on a configured
// weekday, monthly on a configured day of month. Windows are running
// counters, so a reset is a wholesale wipe rather than a recompute.
type WindowResetWorker struct {
	scores *service.ScoreService

	dailyHour  int
	weeklyDay  time.Weekday
	monthlyDay int

	now func() time.Time

	// Dates (YYYY-MM-DD) of the last fired reset per window, so a
	// tick landing twice inside the reset minute fires once.
	lastDaily   string
	lastWeekly  string
	lastMonthly string
}

func NewWindowResetWorker(scores *service.ScoreService, dailyHour int, weeklyDay time.Weekday, monthlyDay int) *WindowResetWorker {
	return &WindowResetWorker{
		scores:     scores,
		dailyHour:  dailyHour,
		weeklyDay:  weeklyDay,
		monthlyDay: monthlyDay,
		now:        time.Now,
	}
}

func (w *WindowResetWorker) Start(ctx context.Context) {
	log.Printf("Window reset worker started (daily %02d:00, weekly %s, monthly day %d)",
		w.dailyHour, w.weeklyDay, w.monthlyDay)
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Window reset worker stopping...")
			return
		case <-ticker.C:
			w.tick(ctx)
		}
	}
}

func (w *WindowResetWorker) tick(ctx context.Context) {
	now := w.now()
	for _, window := range w.due(now) {
		if err := w.scores.ResetWindow(ctx, window); err != nil {
			log.Printf("ERROR: Failed to reset %s window: %v", window, err)
			continue
		}
		log.Printf("Reset %s leaderboard window", window)
	}
}

// due returns the windows whose reset moment is "now", at minute
// granularity, and records them as fired for today.
func (w *WindowResetWorker) due(now time.Time) []model.Window {
	if now.Hour() != w.dailyHour || now.Minute() != 0 {
		return nil
	}
	today := now.Format("2006-01-02")

	var windows []model.Window
	if w.lastDaily != today {
		w.lastDaily = today
		windows = append(windows, model.WindowDaily)
	}
	if now.Weekday() == w.weeklyDay && w.lastWeekly != today {
		w.lastWeekly = today
		windows = append(windows, model.WindowWeekly)
	}
	if now.Day() == w.monthlyDay && w.lastMonthly != today {
		w.lastMonthly = today
		windows = append(windows, model.WindowMonthly)
	}
	return windows
}
