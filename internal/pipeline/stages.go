package pipeline

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/classify"
	"github.com/sells-group/outreach-cli/internal/crm"
	"github.com/sells-group/outreach-cli/internal/events"
	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/resilience"
	"github.com/sells-group/outreach-cli/internal/responder"
)

// stages run in order after a reply is persisted.
var stages = []string{
	resilience.StageRespond,
	resilience.StageSchedule,
	resilience.StagePublish,
	resilience.StageCRM,
}

func (p *Pipeline) runStage(ctx context.Context, stage string, r *run) (StageStatus, error) {
	var err error
	switch stage {
	case resilience.StageRespond:
		err = p.respond(ctx, r)
	case resilience.StageSchedule:
		err = p.schedule(ctx, r)
	case resilience.StagePublish:
		err = p.publish(ctx, r)
	case resilience.StageCRM:
		err = p.pushCRM(ctx, r)
	default:
		return StageSkipped, eris.Errorf("pipeline: unknown stage %q", stage)
	}
	if err != nil {
		return StageFailed, err
	}
	return StageOK, nil
}

// respond sends the autoresponse, or records it as suppressed, and logs the
// decision. Mail already sent for this run is not sent again.
func (p *Pipeline) respond(ctx context.Context, r *run) error {
	cls := r.reply.Classification
	draft := p.composer.Compose(cls, responder.RecipientFrom(r.msg), responder.CampaignFrom(r.msg), r.msg.Body)

	ar := &model.Autoresponse{
		ReplyID:      r.reply.ID,
		Email:        r.msg.SenderEmail,
		ResponseType: cls.ResponseType,
		TemplateID:   draft.TemplateID,
		Subject:      draft.Subject,
	}

	if !responder.ShouldSend(cls) {
		ar.Suppressed = true
		zap.L().Info("pipeline: autoresponse suppressed",
			zap.String("email", r.msg.SenderEmail),
			zap.Float64("confidence", cls.Confidence),
		)
	} else {
		if r.providerID == "" {
			id, err := p.mailer.Send(ctx, draft.Mail(p.from, p.replyTo))
			if err != nil {
				return eris.Wrap(err, "pipeline: send autoresponse")
			}
			r.providerID = id
		}
		ar.ProviderID = r.providerID
	}

	if err := p.store.LogAutoresponse(ctx, ar); err != nil {
		return eris.Wrap(err, "pipeline: log autoresponse")
	}
	r.autoresponse = ar

	if !ar.Suppressed {
		if err := p.store.MarkContacted(ctx, r.msg.SenderEmail); err != nil {
			return eris.Wrap(err, "pipeline: mark contacted")
		}
		r.lead.Contacted = true
	}
	return nil
}

// schedule replaces the lead's follow-ups with its tier's cadence. An
// opt-out cancels them instead.
func (p *Pipeline) schedule(ctx context.Context, r *run) error {
	if r.reply.Classification.ResponseType == classify.NotInterested {
		n, err := p.scheduler.Cancel(ctx, r.lead.Email)
		if err != nil {
			return eris.Wrap(err, "pipeline: cancel follow-ups")
		}
		zap.L().Info("pipeline: follow-ups cancelled", zap.String("email", r.lead.Email), zap.Int("count", n))
		return nil
	}

	base := r.msg.ReceivedAt
	if base.IsZero() {
		base = p.now()
	}
	err := p.scheduler.Schedule(ctx, r.lead.ID, r.lead.Email, base, r.lead.Qualification.FollowUpSchedule)
	return eris.Wrap(err, "pipeline: schedule follow-ups")
}

func (p *Pipeline) publish(ctx context.Context, r *run) error {
	cls := r.reply.Classification
	q := r.lead.Qualification
	ev := events.NewReplyProcessed(events.ReplyProcessed{
		ReplyID:          r.reply.ID,
		MessageKey:       r.reply.MessageKey,
		Email:            r.lead.Email,
		CampaignID:       r.msg.CampaignID,
		ResponseType:     cls.ResponseType,
		Confidence:       cls.Confidence,
		Tier:             q.Tier,
		TotalScore:       q.TotalScore,
		Priority:         q.Priority.Level,
		EstimatedValue:   q.EstimatedValue.Amount,
		AutoresponseSent: r.autoresponse != nil && !r.autoresponse.Suppressed,
		NextAction:       nextAction(cls),
	})
	return eris.Wrap(p.publisher.Publish(ctx, r.lead.Email, ev), "pipeline: publish event")
}

func (p *Pipeline) pushCRM(ctx context.Context, r *run) error {
	rec := crm.RecordFrom(*r.lead, r.reply.Classification.ResponseType)
	return eris.Wrap(p.crm.Push(ctx, rec), "pipeline: push to crm")
}

func (p *Pipeline) deadLetter(ctx context.Context, msg model.IncomingMessage, stage, ref string, cause error) {
	entry := resilience.NewDLQEntry(msg, stage, cause, p.maxRetries, p.retryDelay)
	entry.Ref = ref
	if err := p.store.EnqueueDLQ(ctx, entry); err != nil {
		zap.L().Error("pipeline: enqueue dlq",
			zap.String("stage", stage),
			zap.String("email", msg.SenderEmail),
			zap.Error(err),
		)
	}
}
