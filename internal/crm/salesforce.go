package crm

import (
	"context"
	"strings"

	"github.com/sells-group/outreach-cli/internal/resilience"
	"github.com/sells-group/outreach-cli/pkg/salesforce"
)

// LeadSource is written to new Salesforce leads.
const LeadSource = "Campaign Reply"

// SalesforceSink upserts leads into the Salesforce Lead object by email.
type SalesforceSink struct {
	client  salesforce.Client
	breaker *resilience.Breaker
}

// NewSalesforceSink creates a sink on c.
func NewSalesforceSink(c salesforce.Client, cfg resilience.BreakerConfig) *SalesforceSink {
	return &SalesforceSink{client: c, breaker: resilience.NewBreaker("salesforce", cfg)}
}

func (s *SalesforceSink) Name() string { return "salesforce" }

func (s *SalesforceSink) Push(ctx context.Context, r LeadRecord) error {
	return guarded(ctx, s.breaker, s.Name(), r.Email, func(ctx context.Context) error {
		existing, err := salesforce.FindLeadByEmail(ctx, s.client, r.Email)
		if err != nil {
			return err
		}

		fields := map[string]any{
			"Rating":      Rating(r.Tier),
			"Description": r.Summary(),
		}
		if existing != nil {
			return salesforce.UpdateLead(ctx, s.client, existing.ID, fields)
		}

		first, last := splitName(r.Name, r.Email)
		fields["Email"] = r.Email
		fields["FirstName"] = first
		fields["LastName"] = last
		fields["Company"] = companyOrDomain(r.Company, r.Email)
		fields["LeadSource"] = LeadSource
		fields["Status"] = "Open - Not Contacted"
		_, err = salesforce.CreateLead(ctx, s.client, fields)
		return err
	})
}

// splitName splits a display name into first and last. Salesforce requires
// a last name, so a single word lands there, and an empty name falls back
// to the email local part.
func splitName(name, email string) (string, string) {
	parts := strings.Fields(name)
	switch len(parts) {
	case 0:
		local, _, _ := strings.Cut(email, "@")
		return "", local
	case 1:
		return "", parts[0]
	default:
		return strings.Join(parts[:len(parts)-1], " "), parts[len(parts)-1]
	}
}

func companyOrDomain(company, email string) string {
	if c := strings.TrimSpace(company); c != "" {
		return c
	}
	if _, domain, ok := strings.Cut(email, "@"); ok && domain != "" {
		return domain
	}
	return "Unknown"
}
