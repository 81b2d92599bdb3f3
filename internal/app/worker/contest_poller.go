package worker

import (
	"context"
	"log"
	"time"

	"cparena/internal/app/service"
)

// ContestPoller drives the contest timer: a single global ticker, not
// one per contest. Each tick promotes due Pending contests to Active
// and elapsed Active contests to Ended.
type ContestPoller struct {
	contests *service.ContestService
	interval time.Duration
}

func NewContestPoller(contests *service.ContestService, interval time.Duration) *ContestPoller {
	if interval <= 0 {
		interval = time.Minute
	}
	return &ContestPoller{contests: contests, interval: interval}
}

func (p *ContestPoller) Start(ctx context.Context) {
	log.Printf("Contest poller started (interval %s)", p.interval)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("Contest poller stopping...")
			return
		case <-ticker.C:
			if err := p.contests.PollOnce(ctx); err != nil {
				log.Printf("ERROR: Contest poll tick failed: %v", err)
			}
		}
	}
}
