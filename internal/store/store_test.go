package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/outreach-cli/internal/classify"
	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/qualify"
	"github.com/sells-group/outreach-cli/internal/resilience"
)

func newTestSQLite(t *testing.T) Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func testReply(key, email string, rt classify.ResponseType) *model.Reply {
	return &model.Reply{
		MessageKey: key,
		Message: model.IncomingMessage{
			Body:        "send me the DATA",
			SenderEmail: email,
			SenderName:  "Jane Doe",
			CampaignID:  "c1",
		},
		Classification: classify.Result{
			ResponseType:    rt,
			Confidence:      0.9,
			MatchedTriggers: []string{"send"},
		},
	}
}

func testLead(email string, score int, tier qualify.Tier) *model.Lead {
	return &model.Lead{
		Email:        email,
		Name:         "Jane Doe",
		Company:      "Acme",
		Tier:         tier,
		TotalScore:   score,
		Priority:     qualify.PriorityHigh,
		Amount:       36000,
		Interactions: 1,
		Qualification: qualify.Result{
			Email:      email,
			TotalScore: score,
			MaxScore:   qualify.MaxScore,
			Tier:       tier,
		},
	}
}

func storeTestSuite(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("SaveReplyAndList", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		r := testReply("msg:1", "jane@acme.com", classify.ReportRequest)
		require.NoError(t, s.SaveReply(ctx, r))
		assert.NotEmpty(t, r.ID)
		assert.False(t, r.CreatedAt.IsZero())

		got, err := s.ListReplies(ctx, ReplyFilter{})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, r.ID, got[0].ID)
		assert.Equal(t, "msg:1", got[0].MessageKey)
		assert.Equal(t, "jane@acme.com", got[0].Message.SenderEmail)
		assert.Equal(t, classify.ReportRequest, got[0].Classification.ResponseType)
		assert.Equal(t, []string{"send"}, got[0].Classification.MatchedTriggers)
	})

	t.Run("SaveReplyDuplicate", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.SaveReply(ctx, testReply("msg:dup", "a@b.com", classify.Interested)))
		err := s.SaveReply(ctx, testReply("msg:dup", "a@b.com", classify.Interested))
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrDuplicate))

		got, err := s.ListReplies(ctx, ReplyFilter{})
		require.NoError(t, err)
		assert.Len(t, got, 1)
	})

	t.Run("IsProcessed", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		ok, err := s.IsProcessed(ctx, "msg:x")
		require.NoError(t, err)
		assert.False(t, ok)

		require.NoError(t, s.SaveReply(ctx, testReply("msg:x", "a@b.com", classify.Interested)))
		ok, err = s.IsProcessed(ctx, "msg:x")
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("ListRepliesFilters", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.SaveReply(ctx, testReply("k1", "a@b.com", classify.ReportRequest)))
		require.NoError(t, s.SaveReply(ctx, testReply("k2", "a@b.com", classify.NotInterested)))
		require.NoError(t, s.SaveReply(ctx, testReply("k3", "c@d.com", classify.ReportRequest)))

		byEmail, err := s.ListReplies(ctx, ReplyFilter{Email: "a@b.com"})
		require.NoError(t, err)
		assert.Len(t, byEmail, 2)

		byType, err := s.ListReplies(ctx, ReplyFilter{ResponseType: classify.ReportRequest})
		require.NoError(t, err)
		assert.Len(t, byType, 2)

		limited, err := s.ListReplies(ctx, ReplyFilter{Limit: 1})
		require.NoError(t, err)
		assert.Len(t, limited, 1)

		future, err := s.ListReplies(ctx, ReplyFilter{Since: time.Now().Add(time.Hour)})
		require.NoError(t, err)
		assert.Empty(t, future)
	})

	t.Run("UpsertAndGetLead", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		lead := testLead("jane@acme.com", 72, qualify.TierEnterprise)
		require.NoError(t, s.UpsertLead(ctx, lead))
		assert.NotEmpty(t, lead.ID)
		firstID := lead.ID

		got, err := s.GetLead(ctx, "jane@acme.com")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, qualify.TierEnterprise, got.Tier)
		assert.Equal(t, 72, got.TotalScore)
		assert.Equal(t, int64(36000), got.Amount)
		assert.Equal(t, qualify.MaxScore, got.Qualification.MaxScore)

		// Upsert keeps the row identity and replaces the scores.
		again := testLead("jane@acme.com", 40, qualify.TierStarter)
		again.Interactions = 2
		require.NoError(t, s.UpsertLead(ctx, again))
		assert.Equal(t, firstID, again.ID)

		got, err = s.GetLead(ctx, "jane@acme.com")
		require.NoError(t, err)
		assert.Equal(t, qualify.TierStarter, got.Tier)
		assert.Equal(t, 2, got.Interactions)
	})

	t.Run("GetLeadNotFound", func(t *testing.T) {
		s := newStore(t)
		got, err := s.GetLead(context.Background(), "nobody@nowhere.com")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("ListLeadsAndMarkContacted", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.UpsertLead(ctx, testLead("a@x.com", 80, qualify.TierEnterprise)))
		require.NoError(t, s.UpsertLead(ctx, testLead("b@x.com", 55, qualify.TierGrowth)))
		require.NoError(t, s.UpsertLead(ctx, testLead("c@x.com", 10, qualify.TierNurture)))

		all, err := s.ListLeads(ctx, LeadFilter{})
		require.NoError(t, err)
		require.Len(t, all, 3)
		assert.Equal(t, "a@x.com", all[0].Email, "highest score first")

		growth, err := s.ListLeads(ctx, LeadFilter{Tier: qualify.TierGrowth})
		require.NoError(t, err)
		require.Len(t, growth, 1)
		assert.Equal(t, "b@x.com", growth[0].Email)

		high, err := s.ListLeads(ctx, LeadFilter{MinScore: 50})
		require.NoError(t, err)
		assert.Len(t, high, 2)

		require.NoError(t, s.MarkContacted(ctx, "a@x.com"))
		open, err := s.ListLeads(ctx, LeadFilter{Uncontacted: true})
		require.NoError(t, err)
		assert.Len(t, open, 2)

		// Contacted survives a later upsert.
		lead := testLead("a@x.com", 81, qualify.TierEnterprise)
		require.NoError(t, s.UpsertLead(ctx, lead))
		assert.True(t, lead.Contacted)

		err = s.MarkContacted(ctx, "missing@x.com")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "lead not found")
	})

	t.Run("DeleteLead", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		require.NoError(t, s.UpsertLead(ctx, testLead("a@x.com", 80, qualify.TierEnterprise)))
		require.NoError(t, s.DeleteLead(ctx, "a@x.com"))

		got, err := s.GetLead(ctx, "a@x.com")
		require.NoError(t, err)
		assert.Nil(t, got)

		assert.NoError(t, s.DeleteLead(ctx, "a@x.com"), "missing lead is not an error")
	})

	t.Run("FollowUps", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		now := time.Now().UTC()

		fus := []model.FollowUp{
			{LeadEmail: "a@x.com", DayOffset: 0, Action: "Immediate call", Channel: qualify.ChannelCall, DueAt: now.Add(-time.Hour)},
			{LeadEmail: "a@x.com", DayOffset: 2, Action: "Follow-up email", Channel: qualify.ChannelEmail, DueAt: now.Add(48 * time.Hour)},
			{LeadEmail: "b@x.com", DayOffset: 0, Action: "Intro email", Channel: qualify.ChannelEmail, DueAt: now.Add(-2 * time.Hour)},
		}
		require.NoError(t, s.CreateFollowUps(ctx, fus))
		for _, f := range fus {
			assert.NotEmpty(t, f.ID)
			assert.Equal(t, model.FollowUpPending, f.Status)
		}

		due, err := s.DueFollowUps(ctx, now, 10)
		require.NoError(t, err)
		require.Len(t, due, 2)
		assert.Equal(t, "b@x.com", due[0].LeadEmail, "oldest due first")
		assert.Equal(t, qualify.ChannelCall, due[1].Channel)

		require.NoError(t, s.SetFollowUpStatus(ctx, due[0].ID, model.FollowUpDone))
		due, err = s.DueFollowUps(ctx, now, 10)
		require.NoError(t, err)
		assert.Len(t, due, 1)

		n, err := s.CancelFollowUps(ctx, "a@x.com")
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		due, err = s.DueFollowUps(ctx, now.Add(72*time.Hour), 10)
		require.NoError(t, err)
		assert.Empty(t, due)

		require.Error(t, s.SetFollowUpStatus(ctx, "missing", model.FollowUpDone))
		require.NoError(t, s.CreateFollowUps(ctx, nil))
	})

	t.Run("AutoresponseStats", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		now := time.Now().UTC()

		logs := []*model.Autoresponse{
			{ReplyID: "r1", Email: "a@x.com", ResponseType: classify.ReportRequest, TemplateID: "report_request", Subject: "s", CreatedAt: now.Add(-time.Hour)},
			{ReplyID: "r2", Email: "b@x.com", ResponseType: classify.ReportRequest, TemplateID: "report_request", Subject: "s", CreatedAt: now.Add(-48 * time.Hour)},
			{ReplyID: "r3", Email: "c@x.com", ResponseType: classify.NotInterested, TemplateID: "not_interested", Subject: "s", Suppressed: true, CreatedAt: now.Add(-30 * 24 * time.Hour)},
		}
		for _, ar := range logs {
			require.NoError(t, s.LogAutoresponse(ctx, ar))
			assert.NotEmpty(t, ar.ID)
		}

		stats, err := s.AutoresponseStats(ctx, now)
		require.NoError(t, err)
		assert.Equal(t, 3, stats.Total)
		assert.Equal(t, 1, stats.Suppressed)
		assert.Equal(t, 1, stats.Last24Hours)
		assert.Equal(t, 2, stats.Last7Days)
		assert.Equal(t, 2, stats.ByType["report_request"])
		assert.Equal(t, 1, stats.ByType["not_interested"])
	})

	t.Run("AutoresponseStatsEmpty", func(t *testing.T) {
		s := newStore(t)
		stats, err := s.AutoresponseStats(context.Background(), time.Now())
		require.NoError(t, err)
		assert.Equal(t, 0, stats.Total)
		assert.NotNil(t, stats.ByType)
	})

	t.Run("DeadLetterQueue", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		msg := model.IncomingMessage{Body: "DATA", SenderEmail: "a@x.com"}
		entry := resilience.NewDLQEntry(msg, resilience.StageRespond, errors.New("read tcp: i/o timeout"), 3, 0)
		entry.Ref = "provider-1"
		require.NoError(t, s.EnqueueDLQ(ctx, entry))

		later := resilience.NewDLQEntry(msg, resilience.StageCRM, errors.New("bad request"), 3, time.Hour)
		require.NoError(t, s.EnqueueDLQ(ctx, later))

		n, err := s.CountDLQ(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		ready, err := s.DequeueDLQ(ctx, resilience.DLQFilter{})
		require.NoError(t, err)
		require.Len(t, ready, 1)
		assert.Equal(t, resilience.StageRespond, ready[0].Stage)
		assert.Equal(t, "transient", ready[0].ErrorType)
		assert.Equal(t, "a@x.com", ready[0].Message.SenderEmail)
		assert.Equal(t, "provider-1", ready[0].Ref)

		// Re-enqueueing an entry updates it in place.
		updated := ready[0]
		updated.Ref = "provider-2"
		require.NoError(t, s.EnqueueDLQ(ctx, updated))
		ready, err = s.DequeueDLQ(ctx, resilience.DLQFilter{})
		require.NoError(t, err)
		require.Len(t, ready, 1)
		assert.Equal(t, "provider-2", ready[0].Ref)

		byStage, err := s.DequeueDLQ(ctx, resilience.DLQFilter{Stage: resilience.StageCRM})
		require.NoError(t, err)
		assert.Empty(t, byStage)

		require.NoError(t, s.IncrementDLQRetry(ctx, ready[0].ID, time.Now().Add(-time.Second), "still down"))
		ready, err = s.DequeueDLQ(ctx, resilience.DLQFilter{})
		require.NoError(t, err)
		require.Len(t, ready, 1)
		assert.Equal(t, 1, ready[0].RetryCount)
		assert.Equal(t, "still down", ready[0].Error)

		require.NoError(t, s.RemoveDLQ(ctx, ready[0].ID))
		n, err = s.CountDLQ(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		require.Error(t, s.IncrementDLQRetry(ctx, "missing", time.Now(), "x"))
	})

	t.Run("DeadLetterQueueExhausted", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		entry := resilience.NewDLQEntry(model.IncomingMessage{SenderEmail: "a@x.com"}, resilience.StagePublish, errors.New("timeout"), 1, 0)
		entry.RetryCount = 1
		require.NoError(t, s.EnqueueDLQ(ctx, entry))

		ready, err := s.DequeueDLQ(ctx, resilience.DLQFilter{})
		require.NoError(t, err)
		assert.Empty(t, ready)
	})
}

func TestSQLiteStore(t *testing.T) {
	storeTestSuite(t, newTestSQLite)
}
