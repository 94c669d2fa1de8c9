package pipeline

import (
	"context"
	"math"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/resilience"
	"github.com/sells-group/outreach-cli/internal/store"
)

// RetryStats summarizes one dead-letter retry pass.
type RetryStats struct {
	Attempted int `json:"attempted"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
}

// RetryDeadLetters re-runs due dead-lettered stages. Successful entries are
// removed; failed ones are rescheduled with exponential backoff until their
// retries run out.
func (p *Pipeline) RetryDeadLetters(ctx context.Context, filter resilience.DLQFilter) (RetryStats, error) {
	var stats RetryStats

	entries, err := p.store.DequeueDLQ(ctx, filter)
	if err != nil {
		return stats, eris.Wrap(err, "pipeline: dequeue dlq")
	}

	for _, e := range entries {
		if ctx.Err() != nil {
			return stats, ctx.Err()
		}
		stats.Attempted++

		log := zap.L().With(
			zap.String("dlq_id", e.ID),
			zap.String("stage", e.Stage),
			zap.String("email", e.Message.SenderEmail),
		)

		ref, runErr := p.retryEntry(ctx, e)
		if runErr == nil {
			stats.Succeeded++
			if err := p.store.RemoveDLQ(ctx, e.ID); err != nil {
				return stats, eris.Wrapf(err, "pipeline: remove dlq %s", e.ID)
			}
			log.Info("pipeline: dead letter retried")
			continue
		}

		stats.Failed++
		next := p.now().UTC().Add(retryBackoff(p.retryDelay, e.RetryCount+1))
		if err := p.reschedule(ctx, e, ref, next, runErr); err != nil {
			return stats, err
		}
		log.Warn("pipeline: dead letter retry failed",
			zap.Int("retry", e.RetryCount+1),
			zap.Int("max_retries", e.MaxRetries),
			zap.Error(runErr),
		)
	}
	return stats, nil
}

// reschedule records a failed retry. An entry whose ref changed during the
// attempt is rewritten so the next attempt does not repeat that work.
func (p *Pipeline) reschedule(ctx context.Context, e resilience.DLQEntry, ref string, next time.Time, cause error) error {
	if ref == e.Ref {
		return eris.Wrapf(p.store.IncrementDLQRetry(ctx, e.ID, next, cause.Error()), "pipeline: reschedule dlq %s", e.ID)
	}
	e.Ref = ref
	e.RetryCount++
	e.NextRetryAt = next
	e.Error = cause.Error()
	e.ErrorType = resilience.ClassifyError(cause)
	e.LastFailedAt = p.now().UTC()
	return eris.Wrapf(p.store.EnqueueDLQ(ctx, e), "pipeline: reschedule dlq %s", e.ID)
}

// retryEntry rebuilds the run for a dead-lettered message from the store and
// re-runs its failed stage. It returns the ref the run ended with.
func (p *Pipeline) retryEntry(ctx context.Context, e resilience.DLQEntry) (string, error) {
	msg := Normalize(e.Message)

	lead, err := p.store.GetLead(ctx, msg.SenderEmail)
	if err != nil {
		return e.Ref, eris.Wrap(err, "pipeline: load lead")
	}
	if lead == nil {
		return e.Ref, eris.Errorf("pipeline: lead %s not found", msg.SenderEmail)
	}

	reply, err := p.findReply(ctx, msg)
	if err != nil {
		return e.Ref, err
	}

	r := &run{msg: msg, reply: reply, lead: lead, providerID: e.Ref}
	_, err = p.runStage(ctx, e.Stage, r)
	return r.ref(e.Stage), err
}

// findReply returns the stored reply for msg, or a freshly classified one
// when it is no longer listed.
func (p *Pipeline) findReply(ctx context.Context, msg model.IncomingMessage) (*model.Reply, error) {
	key := msg.Key()
	replies, err := p.store.ListReplies(ctx, store.ReplyFilter{Email: msg.SenderEmail, Limit: 500})
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: list replies")
	}
	for i := range replies {
		if replies[i].MessageKey == key {
			return &replies[i], nil
		}
	}
	return &model.Reply{
		MessageKey:     key,
		Message:        msg,
		Classification: p.classifier.Classify(msg.Body),
	}, nil
}

// retryBackoff doubles base per attempt, capped at a day.
func retryBackoff(base time.Duration, attempt int) time.Duration {
	d := time.Duration(float64(base) * math.Pow(2, float64(attempt-1)))
	if d <= 0 || d > 24*time.Hour {
		return 24 * time.Hour
	}
	return d
}
