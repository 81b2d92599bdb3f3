package model

import (
	"fmt"
	"strings"
)

// Window identifies one rolling scoring window. Each window is a
// running counter reset wholesale by a periodic job; Overall is
// never reset.
type Window string

const (
	WindowDaily   Window = "daily"
	WindowWeekly  Window = "weekly"
	WindowMonthly Window = "monthly"
	WindowOverall Window = "overall"
)

var AllWindows = []Window{WindowDaily, WindowWeekly, WindowMonthly, WindowOverall}

func ParseWindow(s string) (Window, error) {
	switch Window(strings.ToLower(s)) {
	case WindowDaily:
		return WindowDaily, nil
	case WindowWeekly:
		return WindowWeekly, nil
	case WindowMonthly:
		return WindowMonthly, nil
	case WindowOverall, Window(""):
		return WindowOverall, nil
	}
	return "", fmt.Errorf("unknown leaderboard window %q", s)
}

type LeaderboardEntry struct {
	Rank     int     `json:"rank"`
	MemberID string  `json:"member_id"`
	Username string  `json:"username"`
	Points   float64 `json:"points"`
}
