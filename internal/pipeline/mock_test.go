package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/outreach-cli/internal/alert"
	"github.com/sells-group/outreach-cli/internal/crm"
	"github.com/sells-group/outreach-cli/internal/events"
	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/qualify"
	"github.com/sells-group/outreach-cli/internal/responder"
	"github.com/sells-group/outreach-cli/internal/store"
)

// --- Mailer Mock ---

type mockMailer struct {
	mock.Mock
}

func (m *mockMailer) Send(ctx context.Context, mail responder.Mail) (string, error) {
	args := m.Called(ctx, mail)
	return args.String(0), args.Error(1)
}

// --- Scheduler Mock ---

type mockScheduler struct {
	mock.Mock
}

func (m *mockScheduler) Schedule(ctx context.Context, leadID, email string, base time.Time, steps []qualify.FollowUp) error {
	args := m.Called(ctx, leadID, email, base, steps)
	return args.Error(0)
}

func (m *mockScheduler) Cancel(ctx context.Context, email string) (int, error) {
	args := m.Called(ctx, email)
	return args.Int(0), args.Error(1)
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

// --- CRM Sink Mock ---

type mockSink struct {
	mock.Mock
}

func (m *mockSink) Name() string { return "mock" }

func (m *mockSink) Push(ctx context.Context, r crm.LeadRecord) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

// --- Notifier ---

// recordingNotifier keeps every alert it is given.
type recordingNotifier struct {
	alerts []alert.Alert
	err    error
}

func (n *recordingNotifier) Notify(_ context.Context, a alert.Alert) error {
	n.alerts = append(n.alerts, a)
	return n.err
}

// failingStore wraps a real store and fails selected writes.
type failingStore struct {
	store.Store
	saveReplyErr     error
	upsertLeadErr    error
	logAutoreplyErrs int
}

func (f *failingStore) UpsertLead(ctx context.Context, lead *model.Lead) error {
	if f.upsertLeadErr != nil {
		return f.upsertLeadErr
	}
	return f.Store.UpsertLead(ctx, lead)
}

// LogAutoresponse fails the next logAutoreplyErrs calls.
func (f *failingStore) LogAutoresponse(ctx context.Context, ar *model.Autoresponse) error {
	if f.logAutoreplyErrs > 0 {
		f.logAutoreplyErrs--
		return errors.New("database is locked")
	}
	return f.Store.LogAutoresponse(ctx, ar)
}

func (f *failingStore) SaveReply(ctx context.Context, reply *model.Reply) error {
	if f.saveReplyErr != nil {
		return f.saveReplyErr
	}
	return f.Store.SaveReply(ctx, reply)
}
