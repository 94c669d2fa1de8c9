package followup

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/model"
)

// Poller works due follow-ups from the store on a fixed interval.
type Poller struct {
	store     FollowUpStore
	exec      Executor
	interval  time.Duration
	batchSize int
	now       func() time.Time
}

// NewPoller creates a poller. batchSize caps follow-ups per tick.
func NewPoller(s FollowUpStore, exec Executor, interval time.Duration, batchSize int) *Poller {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Poller{
		store:     s,
		exec:      exec,
		interval:  interval,
		batchSize: batchSize,
		now:       time.Now,
	}
}

// Run polls until ctx is done.
func (p *Poller) Run(ctx context.Context) error {
	log := zap.L().With(zap.String("component", "followup.poller"))
	log.Info("poller started", zap.Duration("interval", p.interval))

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		n, err := p.RunOnce(ctx)
		if err != nil {
			log.Error("poll failed", zap.Error(err))
		} else if n > 0 {
			log.Info("follow-ups processed", zap.Int("count", n))
		}

		select {
		case <-ctx.Done():
			log.Info("poller stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// RunOnce executes every follow-up due now, up to the batch size, and
// returns how many succeeded. A failed execution marks its row failed and
// does not stop the batch.
func (p *Poller) RunOnce(ctx context.Context) (int, error) {
	due, err := p.store.DueFollowUps(ctx, p.now().UTC(), p.batchSize)
	if err != nil {
		return 0, eris.Wrap(err, "followup: load due")
	}

	done := 0
	for _, f := range due {
		if ctx.Err() != nil {
			return done, ctx.Err()
		}

		status := model.FollowUpDone
		if err := p.exec.Execute(ctx, f); err != nil {
			zap.L().Warn("followup: execute failed",
				zap.String("id", f.ID),
				zap.String("email", f.LeadEmail),
				zap.Error(err),
			)
			status = model.FollowUpFailed
		} else {
			done++
		}

		if err := p.store.SetFollowUpStatus(ctx, f.ID, status); err != nil {
			return done, eris.Wrapf(err, "followup: set status %s", f.ID)
		}
	}
	return done, nil
}
