package resilience

import (
	"time"

	"github.com/sells-group/outreach-cli/internal/model"
)

// Stages a reply can fail in after it has been persisted.
const (
	StageRespond  = "respond"
	StageSchedule = "schedule"
	StagePublish  = "publish"
	StageCRM      = "crm"
)

// DLQEntry is a processed reply whose side effect failed and can be retried.
type DLQEntry struct {
	ID           string                `json:"id"`
	Message      model.IncomingMessage `json:"message"`
	Stage        string                `json:"stage"`
	Error        string                `json:"error"`
	// Ref carries state a retry must not repeat: for the respond stage, the
	// provider ID of mail that was already sent.
	Ref          string                `json:"ref,omitempty"`
	ErrorType    string                `json:"error_type"`
	RetryCount   int                   `json:"retry_count"`
	MaxRetries   int                   `json:"max_retries"`
	NextRetryAt  time.Time             `json:"next_retry_at"`
	CreatedAt    time.Time             `json:"created_at"`
	LastFailedAt time.Time             `json:"last_failed_at"`
}

// DLQFilter narrows a dead-letter query.
type DLQFilter struct {
	Stage string `json:"stage,omitempty"`
	Limit int    `json:"limit,omitempty"`
}

// CanRetry reports whether the entry has attempts left.
func (e *DLQEntry) CanRetry() bool {
	return e.RetryCount < e.MaxRetries
}

// NewDLQEntry builds an entry for a failed stage, retryable after delay.
func NewDLQEntry(msg model.IncomingMessage, stage string, err error, maxRetries int, delay time.Duration) DLQEntry {
	now := time.Now().UTC()
	return DLQEntry{
		Message:      msg,
		Stage:        stage,
		Error:        err.Error(),
		ErrorType:    ClassifyError(err),
		MaxRetries:   maxRetries,
		NextRetryAt:  now.Add(delay),
		CreatedAt:    now,
		LastFailedAt: now,
	}
}

// ClassifyError labels err "transient" or "permanent".
func ClassifyError(err error) string {
	if IsTransient(err) {
		return "transient"
	}
	return "permanent"
}
