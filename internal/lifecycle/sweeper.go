package lifecycle

import (
	"context"
	"log"
	"time"

	"github.com/homefix-app/platform_be_homefix/internal/models"
	"github.com/homefix-app/platform_be_homefix/internal/realtime"
)

// StartUnmatchedSweeper retries matching for flagged jobs on a ticker until
// ctx is cancelled. A job that gains candidates is unflagged and its
// candidates notified, exactly as on creation.
func (c *Controller) StartUnmatchedSweeper(ctx context.Context, every time.Duration) {
	if every <= 0 {
		every = time.Hour
	}
	go func() {
		ticker := time.NewTicker(every)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				log.Println("[UnmatchedSweeper] Rematching flagged jobs...")
				c.sweepUnmatched(ctx)
			}
		}
	}()
}

func (c *Controller) sweepUnmatched(ctx context.Context) {
	jobs, err := c.store.FlaggedJobs(ctx)
	if err != nil {
		log.Printf("[UnmatchedSweeper] Error fetching flagged jobs: %v", err)
		return
	}

	for i := range jobs {
		job := &jobs[i]
		matches, err := c.matcher.FindMatchingContractors(ctx, job)
		if err != nil {
			log.Printf("[UnmatchedSweeper] Matching failed for job %s: %v", job.ID, err)
			continue
		}
		if len(matches) == 0 {
			continue
		}

		// CAS keeps a concurrent accept or cancel from being clobbered.
		unflagged, err := c.store.UpdateJobStatus(ctx, job.ID, models.JobStatusPending, models.JobStatusPending, func(j *models.Job) {
			j.FlaggedAt = nil
		})
		if err != nil {
			log.Printf("[UnmatchedSweeper] Skipping job %s: %v", job.ID, err)
			continue
		}

		event := realtime.NewJobMatch{JobID: unflagged.ID, Title: unflagged.Title, TradeID: unflagged.TradeID}
		for _, m := range matches {
			c.notifier.Notify(ctx, m.ContractorID, event)
		}
		log.Printf("[UnmatchedSweeper] Job %s rematched to %d contractors", unflagged.ID, len(matches))
	}
}
