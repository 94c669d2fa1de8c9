package crm

import (
	"context"
	"fmt"

	"github.com/jomei/notionapi"
	"github.com/rotisserie/eris"

	"github.com/sells-group/outreach-cli/internal/resilience"
	"github.com/sells-group/outreach-cli/pkg/notion"
)

// NotionSink upserts leads into a Notion database keyed by the Email
// property.
type NotionSink struct {
	client  notion.Client
	dbID    string
	breaker *resilience.Breaker
}

// NewNotionSink creates a sink writing to database dbID.
func NewNotionSink(c notion.Client, dbID string, cfg resilience.BreakerConfig) *NotionSink {
	return &NotionSink{client: c, dbID: dbID, breaker: resilience.NewBreaker("notion", cfg)}
}

func (s *NotionSink) Name() string { return "notion" }

func (s *NotionSink) Push(ctx context.Context, r LeadRecord) error {
	return guarded(ctx, s.breaker, s.Name(), r.Email, func(ctx context.Context) error {
		_, err := notion.UpsertPage(ctx, s.client, s.dbID, "Email", r.Email, notionProperties(r))
		return eris.Wrap(err, fmt.Sprintf("crm: upsert notion lead %s", r.Email))
	})
}

func notionProperties(r LeadRecord) notionapi.Properties {
	name := r.Name
	if name == "" {
		name = r.Email
	}
	props := notionapi.Properties{
		"Name":            notion.Title(name),
		"Email":           notion.Text(r.Email),
		"Status":          notion.Status(Rating(r.Tier)),
		"Tier":            notion.Select(string(r.Tier)),
		"Priority":        notion.Select(string(r.Priority)),
		"Score":           notion.Number(float64(r.TotalScore)),
		"Estimated Value": notion.Number(float64(r.EstimatedValue)),
		"Response":        notion.Select(string(r.ResponseType)),
		"Summary":         notion.Text(r.Summary()),
		"Last Qualified":  notion.Date(r.QualifiedAt),
	}
	if r.Company != "" {
		props["Company"] = notion.Text(r.Company)
	}
	if r.AssignTo != "" {
		props["Owner"] = notion.Text(r.AssignTo)
	}
	return props
}
