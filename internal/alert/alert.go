// Package alert notifies the sales team when a new high-priority lead
// arrives.
package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/outreach-cli/internal/model"
)

// Type identifies the kind of alert.
type Type string

// TypeNewLead is sent the first time a lead is seen at high priority.
const TypeNewLead Type = "new_lead"

// Alert is a single notification.
type Alert struct {
	Type      Type           `json:"type"`
	Severity  string         `json:"severity"`
	Message   string         `json:"message"`
	Details   map[string]any `json:"details,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// NewLead builds the alert for a newly created lead.
func NewLead(l *model.Lead, now time.Time) Alert {
	who := l.Email
	if l.Name != "" {
		who = fmt.Sprintf("%s <%s>", l.Name, l.Email)
	}
	if l.Company != "" {
		who += " at " + l.Company
	}
	q := l.Qualification
	return Alert{
		Type:     TypeNewLead,
		Severity: "high",
		Message: fmt.Sprintf("New %s lead: %s, score %d, est. $%d",
			l.Tier, who, l.TotalScore, l.Amount),
		Details: map[string]any{
			"email":       l.Email,
			"tier":        l.Tier,
			"score":       l.TotalScore,
			"priority":    l.Priority,
			"assign_to":   q.Priority.AssignTo,
			"follow_up":   q.Priority.FollowUpWindow,
			"est_value":   l.Amount,
			"probability": q.EstimatedValue.Probability,
		},
		Timestamp: now.UTC(),
	}
}

// Notifier delivers alerts.
type Notifier interface {
	Notify(ctx context.Context, a Alert) error
}

// NopNotifier drops every alert.
type NopNotifier struct{}

// Notify implements Notifier.
func (NopNotifier) Notify(context.Context, Alert) error { return nil }

// Webhook posts alerts as JSON to a URL.
type Webhook struct {
	url    string
	client *http.Client
}

// NewWebhook returns a Webhook posting to url.
func NewWebhook(url string) *Webhook {
	return &Webhook{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
}

// Notify implements Notifier.
func (w *Webhook) Notify(ctx context.Context, a Alert) error {
	payload, err := json.Marshal(a)
	if err != nil {
		return eris.Wrap(err, "alert: marshal")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(payload))
	if err != nil {
		return eris.Wrap(err, "alert: create webhook request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return eris.Wrap(err, "alert: webhook request")
	}
	defer resp.Body.Close() //nolint:errcheck

	if resp.StatusCode >= 400 {
		return eris.Errorf("alert: webhook returned status %d", resp.StatusCode)
	}
	return nil
}
