package notify

import (
	"context"
	"encoding/json"
	"log"

	"github.com/redis/go-redis/v9"
)

type Kind string

const (
	KindContestScheduled   Kind = "contest_scheduled"
	KindContestStarted     Kind = "contest_started"
	KindContestEnded       Kind = "contest_ended"
	KindChallengeProposed  Kind = "challenge_proposed"
	KindChallengeStarted   Kind = "challenge_started"
	KindChallengeCancelled Kind = "challenge_cancelled"
	KindChallengeComplete  Kind = "challenge_complete"
)

// Announcement is what a presentation process renders into a chat
// message. Payload is kind-specific (problem lists, leaderboards,
// winner/loser partitions).
type Announcement struct {
	Kind        Kind        `json:"kind"`
	ContestID   string      `json:"contest_id,omitempty"`
	ChallengeID string      `json:"challenge_id,omitempty"`
	Payload     interface{} `json:"payload,omitempty"`
}

// Announcer is the side of the publisher lifecycle services see.
type Announcer interface {
	Announce(ctx context.Context, a Announcement)
}

// Publisher fans announcements out on a Redis channel. Publish
// failures are logged and swallowed: losing a message must never
// fail the lifecycle write that produced it.
type Publisher struct {
	rdb     *redis.Client
	channel string
}

func NewPublisher(rdb *redis.Client, channel string) *Publisher {
	return &Publisher{rdb: rdb, channel: channel}
}

func (p *Publisher) Announce(ctx context.Context, a Announcement) {
	payload, err := json.Marshal(a)
	if err != nil {
		log.Printf("ERROR: Failed to marshal announcement %s: %v", a.Kind, err)
		return
	}
	if err := p.rdb.Publish(ctx, p.channel, payload).Err(); err != nil {
		log.Printf("ERROR: Failed to publish announcement %s: %v", a.Kind, err)
	}
}
