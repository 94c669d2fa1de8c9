package model

import (
	"time"

	"github.com/sells-group/outreach-cli/internal/classify"
	"github.com/sells-group/outreach-cli/internal/qualify"
)

// Reply is a persisted, classified incoming message.
type Reply struct {
	ID             string          `json:"id"`
	MessageKey     string          `json:"message_key"`
	Message        IncomingMessage `json:"message"`
	Classification classify.Result `json:"classification"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Lead is the latest qualification for one sender address. Interactions
// counts replies seen from the sender, including the current one.
type Lead struct {
	ID            string                `json:"id"`
	Email         string                `json:"email"`
	Name          string                `json:"name,omitempty"`
	Company       string                `json:"company,omitempty"`
	Tier          qualify.Tier          `json:"tier"`
	TotalScore    int                   `json:"total_score"`
	Priority      qualify.PriorityLevel `json:"priority"`
	Amount        int64                 `json:"amount"`
	Interactions  int                   `json:"interactions"`
	Contacted     bool                  `json:"contacted"`
	Qualification qualify.Result        `json:"qualification"`
	CreatedAt     time.Time             `json:"created_at"`
	UpdatedAt     time.Time             `json:"updated_at"`
}

// FollowUpStatus is the state of a scheduled follow-up.
type FollowUpStatus string

const (
	FollowUpPending   FollowUpStatus = "pending"
	FollowUpDone      FollowUpStatus = "done"
	FollowUpFailed    FollowUpStatus = "failed"
	FollowUpCancelled FollowUpStatus = "cancelled"
)

// FollowUp is one scheduled step of a lead's cadence.
type FollowUp struct {
	ID        string          `json:"id"`
	LeadEmail string          `json:"lead_email"`
	DayOffset int             `json:"day_offset"`
	Action    string          `json:"action"`
	Channel   qualify.Channel `json:"channel"`
	DueAt     time.Time       `json:"due_at"`
	Status    FollowUpStatus  `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
}

// Autoresponse records one autoresponse decision, sent or suppressed.
type Autoresponse struct {
	ID           string                `json:"id"`
	ReplyID      string                `json:"reply_id"`
	Email        string                `json:"email"`
	ResponseType classify.ResponseType `json:"response_type"`
	TemplateID   string                `json:"template_id"`
	Subject      string                `json:"subject"`
	ProviderID   string                `json:"provider_id,omitempty"`
	Suppressed   bool                  `json:"suppressed"`
	CreatedAt    time.Time             `json:"created_at"`
}
