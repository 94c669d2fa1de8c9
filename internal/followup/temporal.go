package followup

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/qualify"
)

// WorkflowInput is the argument of FollowUpWorkflow.
type WorkflowInput struct {
	LeadID string             `json:"lead_id"`
	Email  string             `json:"email"`
	Base   time.Time          `json:"base"`
	Steps  []qualify.FollowUp `json:"steps"`
}

// WorkflowID is the workflow ID used for a lead's follow-ups.
func WorkflowID(email string) string {
	return "followup-" + email
}

// FollowUpWorkflow sleeps until each step's day offset and runs it. A step
// that exhausts its retries is logged and skipped so the rest of the cadence
// still runs; the workflow then fails with the number of skipped steps.
// Cancellation stops it at once.
func FollowUpWorkflow(ctx workflow.Context, in WorkflowInput) error {
	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    5 * time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    10 * time.Minute,
			MaximumAttempts:    5,
		},
	})
	logger := workflow.GetLogger(ctx)

	var acts *Activities
	followUps := BuildFollowUps(in.Email, in.Base, in.Steps)
	failed := 0
	for _, f := range followUps {
		if wait := f.DueAt.Sub(workflow.Now(ctx)); wait > 0 {
			if err := workflow.Sleep(ctx, wait); err != nil {
				return err
			}
		}
		err := workflow.ExecuteActivity(ctx, acts.RunFollowUp, f).Get(ctx, nil)
		if err == nil {
			continue
		}
		if temporal.IsCanceledError(err) {
			return err
		}
		failed++
		logger.Error("follow-up step failed", "email", in.Email, "day", f.DayOffset, "error", err)
	}
	if failed > 0 {
		return eris.Errorf("followup: %d of %d steps failed for %s", failed, len(followUps), in.Email)
	}
	return nil
}

// Activities holds the follow-up activity implementations.
type Activities struct {
	exec Executor
}

// NewActivities creates activities that run follow-ups with exec.
func NewActivities(exec Executor) *Activities {
	return &Activities{exec: exec}
}

// RunFollowUp executes one follow-up step.
func (a *Activities) RunFollowUp(ctx context.Context, f model.FollowUp) error {
	return a.exec.Execute(ctx, f)
}

// NewWorker creates a worker for the follow-up workflow on taskQueue.
func NewWorker(c client.Client, taskQueue string, acts *Activities) worker.Worker {
	w := worker.New(c, taskQueue, worker.Options{})
	w.RegisterWorkflow(FollowUpWorkflow)
	w.RegisterActivity(acts)
	return w
}

// Dial connects to the Temporal frontend.
func Dial(hostPort, namespace string) (client.Client, error) {
	c, err := client.Dial(client.Options{
		HostPort:  hostPort,
		Namespace: namespace,
	})
	if err != nil {
		return nil, eris.Wrapf(err, "followup: dial temporal %s", hostPort)
	}
	return c, nil
}

type workflowClient interface {
	ExecuteWorkflow(ctx context.Context, options client.StartWorkflowOptions, workflow any, args ...any) (client.WorkflowRun, error)
	CancelWorkflow(ctx context.Context, workflowID string, runID string) error
}

// TemporalScheduler runs one FollowUpWorkflow per lead.
type TemporalScheduler struct {
	client    workflowClient
	taskQueue string
}

// NewTemporalScheduler creates a scheduler on c.
func NewTemporalScheduler(c workflowClient, taskQueue string) *TemporalScheduler {
	return &TemporalScheduler{client: c, taskQueue: taskQueue}
}

func (s *TemporalScheduler) Schedule(ctx context.Context, leadID, email string, base time.Time, steps []qualify.FollowUp) error {
	opts := client.StartWorkflowOptions{
		ID:                       WorkflowID(email),
		TaskQueue:                s.taskQueue,
		WorkflowIDConflictPolicy: enumspb.WORKFLOW_ID_CONFLICT_POLICY_TERMINATE_EXISTING,
	}
	in := WorkflowInput{LeadID: leadID, Email: email, Base: base.UTC(), Steps: steps}
	if _, err := s.client.ExecuteWorkflow(ctx, opts, FollowUpWorkflow, in); err != nil {
		return eris.Wrapf(err, "followup: start workflow for %s", email)
	}
	zap.L().Debug("followup: workflow started",
		zap.String("workflow_id", opts.ID),
		zap.Int("steps", len(steps)),
	)
	return nil
}

func (s *TemporalScheduler) Cancel(ctx context.Context, email string) (int, error) {
	err := s.client.CancelWorkflow(ctx, WorkflowID(email), "")
	if err != nil {
		var nf *serviceerror.NotFound
		if errors.As(err, &nf) {
			return 0, nil
		}
		return 0, eris.Wrapf(err, "followup: cancel workflow for %s", email)
	}
	return 1, nil
}
