package model

import "time"

// AccountLink maps a community member to their handle on the remote judge.
// A judge handle belongs to at most one member at a time.
type AccountLink struct {
	MemberID    string    `json:"member_id"`
	JudgeHandle string    `json:"judge_handle"`
	LinkedAt    time.Time `json:"linked_at"`
}
