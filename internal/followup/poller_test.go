package followup

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/outreach-cli/internal/model"
)

func newTestPoller(st *mockStore, ex *mockExecutor) *Poller {
	p := NewPoller(st, ex, time.Millisecond, 10)
	p.now = func() time.Time { return base }
	return p
}

func TestPoller_RunOnce(t *testing.T) {
	st := &mockStore{}
	ex := &mockExecutor{}
	due := []model.FollowUp{
		{ID: "f1", LeadEmail: "a@b.com"},
		{ID: "f2", LeadEmail: "c@d.com"},
	}

	st.On("DueFollowUps", mock.Anything, base, 10).Return(due, nil)
	ex.On("Execute", mock.Anything, due[0]).Return(nil)
	ex.On("Execute", mock.Anything, due[1]).Return(errors.New("publish failed"))
	st.On("SetFollowUpStatus", mock.Anything, "f1", model.FollowUpDone).Return(nil)
	st.On("SetFollowUpStatus", mock.Anything, "f2", model.FollowUpFailed).Return(nil)

	n, err := newTestPoller(st, ex).RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	st.AssertExpectations(t)
	ex.AssertExpectations(t)
}

func TestPoller_RunOnce_Nothing(t *testing.T) {
	st := &mockStore{}
	st.On("DueFollowUps", mock.Anything, base, 10).Return([]model.FollowUp{}, nil)

	n, err := newTestPoller(st, &mockExecutor{}).RunOnce(context.Background())
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestPoller_RunOnce_LoadError(t *testing.T) {
	st := &mockStore{}
	st.On("DueFollowUps", mock.Anything, base, 10).Return(nil, errors.New("no such table"))

	_, err := newTestPoller(st, &mockExecutor{}).RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "followup: load due")
}

func TestPoller_RunOnce_StatusError(t *testing.T) {
	st := &mockStore{}
	ex := &mockExecutor{}
	due := []model.FollowUp{{ID: "f1"}, {ID: "f2"}}

	st.On("DueFollowUps", mock.Anything, base, 10).Return(due, nil)
	ex.On("Execute", mock.Anything, mock.Anything).Return(nil)
	st.On("SetFollowUpStatus", mock.Anything, "f1", model.FollowUpDone).Return(errors.New("locked"))

	n, err := newTestPoller(st, ex).RunOnce(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1, n)
	ex.AssertNumberOfCalls(t, "Execute", 1)
}

func TestPoller_RunOnce_Cancelled(t *testing.T) {
	st := &mockStore{}
	st.On("DueFollowUps", mock.Anything, base, 10).Return([]model.FollowUp{{ID: "f1"}}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	n, err := newTestPoller(st, &mockExecutor{}).RunOnce(ctx)
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, n)
}

func TestPoller_RunStopsOnCancel(t *testing.T) {
	st := &mockStore{}
	st.On("DueFollowUps", mock.Anything, base, 10).Return([]model.FollowUp{}, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	require.NoError(t, newTestPoller(st, &mockExecutor{}).Run(ctx))
	st.AssertCalled(t, "DueFollowUps", mock.Anything, base, 10)
}

func TestNewPoller_DefaultBatch(t *testing.T) {
	p := NewPoller(&mockStore{}, &mockExecutor{}, time.Second, 0)
	assert.Equal(t, 100, p.batchSize)
}
