// Package responder turns a classified reply into a personalized plain-text
// autoresponse and hands it to a Mailer.
package responder

import (
	"regexp"
	"strings"

	"github.com/sells-group/outreach-cli/internal/classify"
	"github.com/sells-group/outreach-cli/internal/config"
	"github.com/sells-group/outreach-cli/internal/model"
)

// suppressConfidence is the confidence at or above which a not_interested
// reply gets no autoresponse.
const suppressConfidence = 0.9

const defaultSignature = "The Outreach Team"

// Recipient identifies who the autoresponse goes to.
type Recipient struct {
	Email   string
	Name    string
	Company string
}

// Campaign is the outbound campaign the reply answers.
type Campaign struct {
	ID              string
	AudienceSegment string
}

// Draft is a composed autoresponse ready for a Mailer.
type Draft struct {
	To             string                `json:"to"`
	ResponseType   classify.ResponseType `json:"response_type"`
	TemplateID     string                `json:"template_id"`
	Subject        string                `json:"subject"`
	Body           string                `json:"body"`
	Values         map[string]string     `json:"values"`
	Sequence       string                `json:"sequence"`
	SuppressFuture bool                  `json:"suppress_future"`
	CampaignID     string                `json:"campaign_id,omitempty"`
}

// Composer fills templates with recipient and campaign values.
type Composer struct {
	calendarLink string
	signature    string
}

// NewComposer creates a Composer from responder configuration.
func NewComposer(cfg config.ResponderConfig) *Composer {
	sig := cfg.Signature
	if sig == "" {
		sig = defaultSignature
	}
	return &Composer{calendarLink: cfg.CalendarLink, signature: sig}
}

// RecipientFrom builds the recipient of a reply to msg.
func RecipientFrom(msg model.IncomingMessage) Recipient {
	return Recipient{Email: msg.SenderEmail, Name: msg.SenderName, Company: msg.SenderCompany}
}

// CampaignFrom returns the campaign msg replied to.
func CampaignFrom(msg model.IncomingMessage) Campaign {
	return Campaign{ID: msg.CampaignID, AudienceSegment: msg.AudienceSegment}
}

// Compose selects the template for result and substitutes its placeholders.
// content is the reply text, used to pick the follow-up timeframe.
func (c *Composer) Compose(result classify.Result, r Recipient, camp Campaign, content string) Draft {
	tmpl := TemplateFor(result.ResponseType)
	values := c.Values(result, r, camp, content)

	pairs := make([]string, 0, len(values)*2)
	for k, v := range values {
		pairs = append(pairs, "{{"+k+"}}", v)
	}
	rep := strings.NewReplacer(pairs...)

	return Draft{
		To:             r.Email,
		ResponseType:   result.ResponseType,
		TemplateID:     tmpl.ID,
		Subject:        rep.Replace(tmpl.Subject),
		Body:           rep.Replace(tmpl.Body),
		Values:         values,
		Sequence:       tmpl.Sequence,
		SuppressFuture: tmpl.SuppressFuture,
		CampaignID:     camp.ID,
	}
}

// Values returns the substitution values for one autoresponse.
func (c *Composer) Values(result classify.Result, r Recipient, camp Campaign, content string) map[string]string {
	local, domain := splitEmail(r.Email)

	first := firstName(r.Name)
	if first == "" {
		first = local
	}
	if first == "" {
		first = "there"
	}
	full := strings.TrimSpace(r.Name)
	if full == "" {
		full = first
	}
	company := strings.TrimSpace(r.Company)
	if company == "" {
		company = domain
	}

	return map[string]string{
		"firstName":    first,
		"fullName":     full,
		"email":        r.Email,
		"company":      company,
		"industry":     IndustryForSegment(camp.AudienceSegment),
		"reportType":   ReportTypeForTriggers(result.MatchedTriggers),
		"calendarLink": c.calendarLink,
		"timeframe":    ExtractTimeframe(content),
		"signature":    c.signature,
	}
}

// ShouldSend reports whether a reply gets an autoresponse. Only a confident
// not_interested classification is suppressed.
func ShouldSend(result classify.Result) bool {
	return result.ResponseType != classify.NotInterested || result.Confidence < suppressConfidence
}

var industries = map[string]string{
	"data_science_professionals": "data science and analytics",
	"marketing_executives":       "B2B marketing",
	"business_owners":            "business services",
	"startup_founders":           "technology startups",
	"consultants_agencies":       "consulting and agencies",
	"tech_professionals":         "technology services",
}

// IndustryForSegment maps an audience segment to an industry phrase.
func IndustryForSegment(segment string) string {
	if s, ok := industries[segment]; ok {
		return s
	}
	return "your industry"
}

var reportTypes = []struct {
	keyword string
	report  string
}{
	{"INSIGHTS", "Marketing Intelligence Report"},
	{"DATA", "Data Science Intelligence Report"},
	{"STRATEGY", "Business Intelligence Report"},
	{"FOUNDER", "Startup Playbook"},
	{"AGENCY", "Agency Methodology Guide"},
}

// ReportTypeForTriggers names the report to offer given matched triggers.
// Keywords are checked in order against every trigger.
func ReportTypeForTriggers(triggers []string) string {
	for _, rt := range reportTypes {
		for _, t := range triggers {
			if strings.Contains(t, rt.keyword) {
				return rt.report
			}
		}
	}
	return "Data Science Intelligence Report"
}

var timeframes = []struct {
	re        *regexp.Regexp
	timeframe string
}{
	{regexp.MustCompile(`(?i)few months`), "3 months"},
	{regexp.MustCompile(`(?i)next quarter`), "3 months"},
	{regexp.MustCompile(`(?i)early next year`), "6 months"},
	{regexp.MustCompile(`(?i)after.*project`), "2 months"},
}

// ExtractTimeframe picks when to follow up on a timing reply.
func ExtractTimeframe(content string) string {
	for _, tf := range timeframes {
		if tf.re.MatchString(content) {
			return tf.timeframe
		}
	}
	return "3 months"
}

var nextActions = map[string]string{
	"DATA":     "Send Data Science Intelligence Report",
	"INSIGHTS": "Send Marketing Intelligence Report",
	"STRATEGY": "Send Business Intelligence Report",
	"FOUNDER":  "Send Founder Playbook",
	"AGENCY":   "Send Agency Methodology",
	"TECH":     "Send Tech Career Strategy",
	"CALL":     "Schedule strategy call",
	"PLAYBOOK": "Send AI Implementation Playbook",
}

// NextActionForTrigger returns the sales action for a campaign trigger word.
func NextActionForTrigger(word string) string {
	if a, ok := nextActions[strings.ToUpper(strings.TrimSpace(word))]; ok {
		return a
	}
	return "Send appropriate lead magnet"
}

func splitEmail(email string) (local, domain string) {
	local, domain, _ = strings.Cut(strings.TrimSpace(email), "@")
	return local, domain
}

func firstName(name string) string {
	fields := strings.Fields(name)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}
