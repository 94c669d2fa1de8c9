// Package followup turns a qualification's follow-up schedule into timed
// actions, either as store rows worked by a poller or as Temporal workflows.
package followup

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/events"
	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/qualify"
)

const day = 24 * time.Hour

// Scheduler enqueues a lead's follow-up steps. Scheduling again for the same
// email replaces any pending steps.
type Scheduler interface {
	Schedule(ctx context.Context, leadID, email string, base time.Time, steps []qualify.FollowUp) error
	Cancel(ctx context.Context, email string) (int, error)
}

// Executor carries out one due follow-up.
type Executor interface {
	Execute(ctx context.Context, f model.FollowUp) error
}

// BuildFollowUps expands schedule steps into dated follow-ups relative to base.
func BuildFollowUps(email string, base time.Time, steps []qualify.FollowUp) []model.FollowUp {
	out := make([]model.FollowUp, 0, len(steps))
	for _, s := range steps {
		out = append(out, model.FollowUp{
			LeadEmail: email,
			DayOffset: s.DayOffset,
			Action:    s.Action,
			Channel:   s.Channel,
			DueAt:     base.UTC().Add(time.Duration(s.DayOffset) * day),
			Status:    model.FollowUpPending,
		})
	}
	return out
}

// FollowUpStore is the subset of store.Store the store-backed scheduler and
// poller need.
type FollowUpStore interface {
	CreateFollowUps(ctx context.Context, followUps []model.FollowUp) error
	DueFollowUps(ctx context.Context, before time.Time, limit int) ([]model.FollowUp, error)
	SetFollowUpStatus(ctx context.Context, id string, status model.FollowUpStatus) error
	CancelFollowUps(ctx context.Context, email string) (int, error)
}

// StoreScheduler persists follow-ups as store rows for the Poller.
type StoreScheduler struct {
	store FollowUpStore
}

// NewStoreScheduler creates a scheduler on s.
func NewStoreScheduler(s FollowUpStore) *StoreScheduler {
	return &StoreScheduler{store: s}
}

func (s *StoreScheduler) Schedule(ctx context.Context, leadID, email string, base time.Time, steps []qualify.FollowUp) error {
	replaced, err := s.store.CancelFollowUps(ctx, email)
	if err != nil {
		return eris.Wrapf(err, "followup: cancel previous for %s", email)
	}
	if err := s.store.CreateFollowUps(ctx, BuildFollowUps(email, base, steps)); err != nil {
		return eris.Wrapf(err, "followup: schedule %s", email)
	}
	zap.L().Debug("followup: scheduled",
		zap.String("lead_id", leadID),
		zap.String("email", email),
		zap.Int("steps", len(steps)),
		zap.Int("replaced", replaced),
	)
	return nil
}

func (s *StoreScheduler) Cancel(ctx context.Context, email string) (int, error) {
	n, err := s.store.CancelFollowUps(ctx, email)
	return n, eris.Wrapf(err, "followup: cancel %s", email)
}

// EventExecutor announces due follow-ups on the event stream, where sales
// tooling picks them up.
type EventExecutor struct {
	publisher events.Publisher
}

// NewEventExecutor creates an executor publishing to p.
func NewEventExecutor(p events.Publisher) *EventExecutor {
	return &EventExecutor{publisher: p}
}

func (e *EventExecutor) Execute(ctx context.Context, f model.FollowUp) error {
	ev := events.NewFollowUpDue(events.FollowUpDue{
		FollowUpID: f.ID,
		Email:      f.LeadEmail,
		DayOffset:  f.DayOffset,
		Action:     f.Action,
		Channel:    f.Channel,
		DueAt:      f.DueAt,
	})
	if err := e.publisher.Publish(ctx, f.LeadEmail, ev); err != nil {
		return eris.Wrapf(err, "followup: publish %s", f.ID)
	}
	zap.L().Info("followup: due",
		zap.String("email", f.LeadEmail),
		zap.Int("day", f.DayOffset),
		zap.String("action", f.Action),
		zap.String("channel", string(f.Channel)),
	)
	return nil
}
