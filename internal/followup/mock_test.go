package followup

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	"go.temporal.io/sdk/client"

	"github.com/sells-group/outreach-cli/internal/events"
	"github.com/sells-group/outreach-cli/internal/model"
)

// --- FollowUpStore Mock ---

type mockStore struct {
	mock.Mock
}

func (m *mockStore) CreateFollowUps(ctx context.Context, followUps []model.FollowUp) error {
	args := m.Called(ctx, followUps)
	return args.Error(0)
}

func (m *mockStore) DueFollowUps(ctx context.Context, before time.Time, limit int) ([]model.FollowUp, error) {
	args := m.Called(ctx, before, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.FollowUp), args.Error(1)
}

func (m *mockStore) SetFollowUpStatus(ctx context.Context, id string, status model.FollowUpStatus) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

func (m *mockStore) CancelFollowUps(ctx context.Context, email string) (int, error) {
	args := m.Called(ctx, email)
	return args.Int(0), args.Error(1)
}

// --- Executor Mock ---

type mockExecutor struct {
	mock.Mock
}

func (m *mockExecutor) Execute(ctx context.Context, f model.FollowUp) error {
	args := m.Called(ctx, f)
	return args.Error(0)
}

// --- Publisher Mock ---

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Publish(ctx context.Context, key string, event events.Event) error {
	args := m.Called(ctx, key, event)
	return args.Error(0)
}

func (m *mockPublisher) Close() error {
	return m.Called().Error(0)
}

// --- Temporal client Mock ---

type mockWorkflowClient struct {
	mock.Mock
}

func (m *mockWorkflowClient) ExecuteWorkflow(ctx context.Context, options client.StartWorkflowOptions, workflow any, args ...any) (client.WorkflowRun, error) {
	a := m.Called(ctx, options, args)
	if a.Get(0) == nil {
		return nil, a.Error(1)
	}
	return a.Get(0).(client.WorkflowRun), a.Error(1)
}

func (m *mockWorkflowClient) CancelWorkflow(ctx context.Context, workflowID string, runID string) error {
	args := m.Called(ctx, workflowID, runID)
	return args.Error(0)
}
