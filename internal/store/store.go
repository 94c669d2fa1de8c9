// Package store persists classified replies, lead qualifications, follow-up
// schedules, autoresponse decisions and dead-lettered side effects.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/outreach-cli/internal/classify"
	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/qualify"
	"github.com/sells-group/outreach-cli/internal/resilience"
)

// ErrDuplicate is returned by SaveReply when the message key was already stored.
var ErrDuplicate = eris.New("store: duplicate message")

// ReplyFilter specifies criteria for listing replies.
type ReplyFilter struct {
	Email        string                `json:"email,omitempty"`
	ResponseType classify.ResponseType `json:"response_type,omitempty"`
	Since        time.Time             `json:"since,omitempty"`
	Limit        int                   `json:"limit,omitempty"`
	Offset       int                   `json:"offset,omitempty"`
}

// LeadFilter specifies criteria for listing leads.
type LeadFilter struct {
	Tier        qualify.Tier          `json:"tier,omitempty"`
	Priority    qualify.PriorityLevel `json:"priority,omitempty"`
	Uncontacted bool                  `json:"uncontacted,omitempty"`
	MinScore    int                   `json:"min_score,omitempty"`
	Limit       int                   `json:"limit,omitempty"`
	Offset      int                   `json:"offset,omitempty"`
}

// AutoresponseStats summarizes the autoresponse log.
type AutoresponseStats struct {
	Total       int            `json:"total"`
	Suppressed  int            `json:"suppressed"`
	ByType      map[string]int `json:"by_type"`
	Last24Hours int            `json:"last_24_hours"`
	Last7Days   int            `json:"last_7_days"`
}

// Store defines the persistence interface for reply processing.
type Store interface {
	// Replies
	SaveReply(ctx context.Context, reply *model.Reply) error
	IsProcessed(ctx context.Context, messageKey string) (bool, error)
	ListReplies(ctx context.Context, filter ReplyFilter) ([]model.Reply, error)

	// Leads
	UpsertLead(ctx context.Context, lead *model.Lead) error
	GetLead(ctx context.Context, email string) (*model.Lead, error)
	ListLeads(ctx context.Context, filter LeadFilter) ([]model.Lead, error)
	MarkContacted(ctx context.Context, email string) error
	DeleteLead(ctx context.Context, email string) error

	// Follow-ups
	CreateFollowUps(ctx context.Context, followUps []model.FollowUp) error
	DueFollowUps(ctx context.Context, before time.Time, limit int) ([]model.FollowUp, error)
	SetFollowUpStatus(ctx context.Context, id string, status model.FollowUpStatus) error
	CancelFollowUps(ctx context.Context, email string) (int, error)

	// Autoresponses
	LogAutoresponse(ctx context.Context, ar *model.Autoresponse) error
	AutoresponseStats(ctx context.Context, now time.Time) (*AutoresponseStats, error)

	// Dead letter queue
	EnqueueDLQ(ctx context.Context, entry resilience.DLQEntry) error
	DequeueDLQ(ctx context.Context, filter resilience.DLQFilter) ([]resilience.DLQEntry, error)
	IncrementDLQRetry(ctx context.Context, id string, nextRetryAt time.Time, lastErr string) error
	RemoveDLQ(ctx context.Context, id string) error
	CountDLQ(ctx context.Context) (int, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

func limitOr(limit, def int) int {
	if limit <= 0 {
		return def
	}
	return limit
}
