// Package pipeline processes one campaign reply end to end: classify,
// qualify, persist, respond, schedule follow-ups, publish and sync to CRM.
package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/alert"
	"github.com/sells-group/outreach-cli/internal/classify"
	"github.com/sells-group/outreach-cli/internal/config"
	"github.com/sells-group/outreach-cli/internal/crm"
	"github.com/sells-group/outreach-cli/internal/dedup"
	"github.com/sells-group/outreach-cli/internal/events"
	"github.com/sells-group/outreach-cli/internal/followup"
	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/qualify"
	"github.com/sells-group/outreach-cli/internal/resilience"
	"github.com/sells-group/outreach-cli/internal/responder"
	"github.com/sells-group/outreach-cli/internal/store"
)

const (
	defaultMaxRetries = 5
	defaultRetryDelay = time.Minute
)

// Deps are the collaborators a Pipeline runs against. Store, Classifier and
// Qualifier are required; the rest fall back to no-op or local defaults.
type Deps struct {
	Store      store.Store
	Classifier *classify.Classifier
	Qualifier  *qualify.Qualifier
	Composer   *responder.Composer
	Mailer     responder.Mailer
	Guard      dedup.Guard
	Scheduler  followup.Scheduler
	Publisher  events.Publisher
	CRM        crm.Sink
	Alerter    alert.Notifier
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithSender sets the From and Reply-To addresses of autoresponses.
func WithSender(from, replyTo string) Option {
	return func(p *Pipeline) {
		p.from = from
		p.replyTo = replyTo
	}
}

// WithDLQ sets how often and how soon failed stages are retried.
func WithDLQ(maxRetries int, delay time.Duration) Option {
	return func(p *Pipeline) {
		if maxRetries > 0 {
			p.maxRetries = maxRetries
		}
		if delay > 0 {
			p.retryDelay = delay
		}
	}
}

// Pipeline orchestrates reply processing.
type Pipeline struct {
	store      store.Store
	classifier *classify.Classifier
	qualifier  *qualify.Qualifier
	composer   *responder.Composer
	mailer     responder.Mailer
	guard      dedup.Guard
	scheduler  followup.Scheduler
	publisher  events.Publisher
	crm        crm.Sink
	alerter    alert.Notifier

	from       string
	replyTo    string
	maxRetries int
	retryDelay time.Duration
	now        func() time.Time
}

// New creates a Pipeline.
func New(d Deps, opts ...Option) (*Pipeline, error) {
	if d.Store == nil || d.Classifier == nil || d.Qualifier == nil {
		return nil, eris.New("pipeline: store, classifier and qualifier are required")
	}

	p := &Pipeline{
		store:      d.Store,
		classifier: d.Classifier,
		qualifier:  d.Qualifier,
		composer:   d.Composer,
		mailer:     d.Mailer,
		guard:      d.Guard,
		scheduler:  d.Scheduler,
		publisher:  d.Publisher,
		crm:        d.CRM,
		alerter:    d.Alerter,
		maxRetries: defaultMaxRetries,
		retryDelay: defaultRetryDelay,
		now:        time.Now,
	}
	if p.composer == nil {
		p.composer = responder.NewComposer(config.ResponderConfig{})
	}
	if p.mailer == nil {
		p.mailer = responder.LogMailer{}
	}
	if p.guard == nil {
		p.guard = dedup.NewStoreGuard(d.Store)
	}
	if p.scheduler == nil {
		p.scheduler = followup.NewStoreScheduler(d.Store)
	}
	if p.publisher == nil {
		p.publisher = events.NopPublisher{}
	}
	if p.crm == nil {
		p.crm = crm.NopSink{}
	}
	if p.alerter == nil {
		p.alerter = alert.NopNotifier{}
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Outcome reports what processing one reply did.
type Outcome struct {
	ReplyID        string                 `json:"reply_id,omitempty"`
	MessageKey     string                 `json:"message_key"`
	Duplicate      bool                   `json:"duplicate"`
	Classification classify.Result        `json:"classification"`
	Qualification  qualify.Result         `json:"qualification"`
	Lead           *model.Lead            `json:"lead,omitempty"`
	Autoresponse   *model.Autoresponse    `json:"autoresponse,omitempty"`
	NextAction     string                 `json:"next_action,omitempty"`
	FailedStages   []string               `json:"failed_stages,omitempty"`
	Stages         map[string]StageStatus `json:"stages"`
}

// StageStatus is the result of one side-effect stage.
type StageStatus string

// Stage statuses.
const (
	StageOK      StageStatus = "ok"
	StageFailed  StageStatus = "failed"
	StageSkipped StageStatus = "skipped"
)

// Process runs one reply through the pipeline. Invalid input returns an
// error wrapping ErrInvalidMessage. A reply already processed returns an
// Outcome with Duplicate set and no error. Once the reply is persisted,
// side-effect failures are dead-lettered and listed in FailedStages rather
// than returned. A new lead at high priority raises an alert.
func (p *Pipeline) Process(ctx context.Context, msg model.IncomingMessage) (*Outcome, error) {
	msg = Normalize(msg)
	if err := Validate(msg); err != nil {
		return nil, err
	}
	if msg.ReceivedAt.IsZero() {
		msg.ReceivedAt = p.now().UTC()
	}

	key := msg.Key()
	log := zap.L().With(zap.String("email", msg.SenderEmail), zap.String("key", key))
	out := &Outcome{MessageKey: key, Stages: make(map[string]StageStatus)}

	claimed, err := p.guard.Claim(ctx, key)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: claim")
	}
	if !claimed {
		log.Info("pipeline: duplicate reply skipped")
		out.Duplicate = true
		return out, nil
	}

	r, err := p.persist(ctx, msg, key)
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			log.Info("pipeline: duplicate reply skipped")
			out.Duplicate = true
			return out, nil
		}
		if relErr := p.guard.Release(ctx, key); relErr != nil {
			log.Warn("pipeline: release claim", zap.Error(relErr))
		}
		return nil, err
	}

	out.ReplyID = r.reply.ID
	out.Classification = r.reply.Classification
	out.Qualification = r.lead.Qualification
	out.Lead = r.lead
	out.NextAction = nextAction(r.reply.Classification)

	if r.created && r.lead.Priority == qualify.PriorityHigh {
		if err := p.alerter.Notify(ctx, alert.NewLead(r.lead, p.now())); err != nil {
			log.Warn("pipeline: new lead alert", zap.Error(err))
		}
	}

	for _, st := range stages {
		status, err := p.runStage(ctx, st, r)
		out.Stages[st] = status
		if err == nil {
			continue
		}
		out.FailedStages = append(out.FailedStages, st)
		log.Error("pipeline: stage failed", zap.String("stage", st), zap.Error(err))
		p.deadLetter(ctx, msg, st, r.ref(st), err)
	}
	out.Autoresponse = r.autoresponse

	log.Info("pipeline: reply processed",
		zap.String("response_type", string(out.Classification.ResponseType)),
		zap.String("tier", string(out.Lead.Tier)),
		zap.Int("score", out.Lead.TotalScore),
		zap.Strings("failed_stages", out.FailedStages),
	)
	return out, nil
}

// run carries one persisted reply through the side-effect stages.
type run struct {
	msg          model.IncomingMessage
	reply        *model.Reply
	lead         *model.Lead
	autoresponse *model.Autoresponse

	// created is set when this reply created the lead.
	created bool

	// providerID is set once the autoresponse has been handed to the mailer.
	providerID string
}

// ref returns what a retry of stage must carry over from this run.
func (r *run) ref(stage string) string {
	if stage == resilience.StageRespond {
		return r.providerID
	}
	return ""
}

// persist classifies, qualifies and stores the lead and then the reply. The
// reply row marks the message processed, so it is written last: a failed
// lead write leaves nothing that would block a retry.
func (p *Pipeline) persist(ctx context.Context, msg model.IncomingMessage, key string) (*run, error) {
	prior, err := p.store.GetLead(ctx, msg.SenderEmail)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: load lead")
	}

	cls, result := p.evaluate(msg, prior)

	lead := leadFrom(msg, result, prior)
	if err := p.store.UpsertLead(ctx, lead); err != nil {
		return nil, eris.Wrap(err, "pipeline: upsert lead")
	}

	reply := &model.Reply{
		ID:             uuid.New().String(),
		MessageKey:     key,
		Message:        msg,
		Classification: cls,
		CreatedAt:      p.now().UTC(),
	}
	if err := p.store.SaveReply(ctx, reply); err != nil {
		p.restoreLead(ctx, lead.Email, prior)
		if errors.Is(err, store.ErrDuplicate) {
			return nil, err
		}
		return nil, eris.Wrap(err, "pipeline: save reply")
	}
	return &run{msg: msg, reply: reply, lead: lead, created: prior == nil}, nil
}

// restoreLead puts the lead back as it was before a reply that failed to
// save, so a retried message is not counted twice. A lead created for that
// reply is removed.
func (p *Pipeline) restoreLead(ctx context.Context, email string, prior *model.Lead) {
	var err error
	if prior == nil {
		err = p.store.DeleteLead(ctx, email)
	} else {
		err = p.store.UpsertLead(ctx, prior)
	}
	if err != nil {
		zap.L().Warn("pipeline: restore lead", zap.String("email", email), zap.Error(err))
	}
}

// evaluate classifies msg and qualifies its sender. prior may be nil.
func (p *Pipeline) evaluate(msg model.IncomingMessage, prior *model.Lead) (classify.Result, qualify.Result) {
	cls := p.classifier.Classify(msg.Body)

	profile := qualify.Profile{
		Email:          msg.SenderEmail,
		Name:           msg.SenderName,
		Company:        msg.SenderCompany,
		Comment:        msg.Body,
		TriggerWord:    msg.TriggerWord,
		Classification: &cls,
	}
	if prior != nil {
		profile.PriorInteractions = prior.Interactions
	}
	return cls, p.qualifier.Qualify(profile)
}

func leadFrom(msg model.IncomingMessage, q qualify.Result, prior *model.Lead) *model.Lead {
	lead := &model.Lead{
		Email:         msg.SenderEmail,
		Name:          msg.SenderName,
		Company:       msg.SenderCompany,
		Tier:          q.Tier,
		TotalScore:    q.TotalScore,
		Priority:      q.Priority.Level,
		Amount:        q.EstimatedValue.Amount,
		Interactions:  1,
		Qualification: q,
	}
	if prior != nil {
		lead.Interactions = prior.Interactions + 1
		if lead.Name == "" {
			lead.Name = prior.Name
		}
		if lead.Company == "" {
			lead.Company = prior.Company
		}
	}
	return lead
}

func nextAction(cls classify.Result) string {
	words := classify.TriggerWords(cls)
	if len(words) == 0 {
		return responder.NextActionForTrigger("")
	}
	return responder.NextActionForTrigger(words[0])
}
