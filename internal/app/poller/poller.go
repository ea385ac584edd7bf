// Package poller implements the client-side verdict wait loop: read the
// submission status, sleep, retry, until a terminal verdict is observed or
// the retry budget runs out. It is a bounded loop with an explicit context,
// not a self-scheduling timer chain.
package poller

import (
	"context"
	"log"
	"time"

	"codecourt/internal/common"
	"codecourt/internal/domain/model"
)

const (
	DefaultInterval = 2500 * time.Millisecond
	DefaultBudget   = 10
)

// StatusReader reads (and, server-side, reconciles) the current status of a
// submission.
type StatusReader interface {
	Status(ctx context.Context, submissionID string) (model.SubmissionStatus, error)
}

type Poller struct {
	reader   StatusReader
	interval time.Duration
	budget   int
}

func New(reader StatusReader, interval time.Duration, budget int) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if budget <= 0 {
		budget = DefaultBudget
	}
	return &Poller{reader: reader, interval: interval, budget: budget}
}

// Wait polls until the submission reaches a terminal status. When the budget
// is exhausted while the submission is still pending it returns
// common.ErrVerdictUnknown — an explicit "status unknown" outcome, never a
// coerced verdict. Read errors are transient: they consume an attempt and
// the loop carries on. Cancelling the context stops the loop between
// attempts with ctx.Err().
func (p *Poller) Wait(ctx context.Context, submissionID string) (model.SubmissionStatus, error) {
	for attempt := 0; attempt < p.budget; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(p.interval)
			select {
			case <-ctx.Done():
				timer.Stop()
				return model.SubmissionPending, ctx.Err()
			case <-timer.C:
			}
		}

		status, err := p.reader.Status(ctx, submissionID)
		if err != nil {
			if ctx.Err() != nil {
				return model.SubmissionPending, ctx.Err()
			}
			log.Printf("poller: status read for %s failed (attempt %d/%d): %v", submissionID, attempt+1, p.budget, err)
			continue
		}
		if status.Terminal() {
			return status, nil
		}
	}
	return model.SubmissionPending, common.ErrVerdictUnknown
}
