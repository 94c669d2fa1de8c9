package responder

import "github.com/sells-group/outreach-cli/internal/classify"

// Template is a plain-text autoresponse with {{placeholder}} slots.
type Template struct {
	ID             string
	Subject        string
	Body           string
	Sequence       string
	SuppressFuture bool
}

var templates = map[classify.ResponseType]Template{
	classify.ReportRequest: {
		ID:       "report_request",
		Subject:  "Your Data Science Intelligence Report (instant access)",
		Sequence: "report_delivered",
		Body: `Hi {{firstName}},

Thanks for asking for the {{reportType}}.

It is built on an analysis of 125 posts and 118,001 interactions, and covers:

• The 110-character formula behind short, high-engagement posts
• Why questions tend to suppress engagement
• Platform performance data for technical content
• Five patterns that show up in viral content
• Templates you can put to work immediately

Reply "SEND REPORT" to this email and the PDF will be delivered to {{email}} with all charts and templates.

Quick question: what is your biggest challenge with content performance right now?

Best,
{{signature}}`,
	},
	classify.Interested: {
		ID:       "interested",
		Subject:  "Re: Data Science Content Strategy Insights",
		Sequence: "general_interest",
		Body: `Hi {{firstName}},

Great to hear you're interested in improving your content strategy.

After analyzing 118,001 social media interactions, a few findings stood out:

• Short posts get roughly 3x more engagement than long technical explanations
• Questions rarely appear in top-performing posts
• Platform choice matters more than most teams expect

The complete analysis is free for a limited time. Reply "SEND REPORT" and I'll send it over.

If a 15-minute conversation is easier, here's my calendar: {{calendarLink}}

Best,
{{signature}}`,
	},
	classify.CallRequest: {
		ID:       "call_request",
		Subject:  "Re: Strategy Discussion",
		Sequence: "call_requested",
		Body: `Hi {{firstName}},

Happy to talk through how these insights apply to {{company}}.

I'll come prepared with:
• A quick read of your current content approach
• Three improvements you could ship right away
• A case study from {{industry}} with real results

Calendar: {{calendarLink}}

Or reply with two or three times that work for you this week.

Best,
{{signature}}`,
	},
	classify.Qualification: {
		ID:       "qualification",
		Subject:  "Re: Your Questions About Data Science Intelligence",
		Sequence: "qualification_answered",
		Body: `Hi {{firstName}},

Great questions. Briefly:

• The analysis covers 125 posts and 118,001 interactions
• It includes platform-specific strategies and ready-to-use templates
• The report itself is free, and there is no obligation to work together

Reply "INSIGHTS" and I'll send the full analysis.

If you'd rather discuss your situation directly, here's my calendar: {{calendarLink}}

Best,
{{signature}}`,
	},
	classify.NotInterested: {
		ID:             "not_interested",
		Subject:        "Re: No Problem at All",
		Sequence:       "not_interested",
		SuppressFuture: true,
		Body: `Hi {{firstName}},

No problem at all, I completely understand.

If you'd like to be removed from future updates, just let me know.

Best of luck with your content strategy.

Best,
{{signature}}`,
	},
	classify.TimingIssue: {
		ID:       "timing_issue",
		Subject:  "Re: Perfect - Let's Connect When the Time is Right",
		Sequence: "timing_noted",
		Body: `Hi {{firstName}},

Understood, timing matters.

I'll follow up in {{timeframe}} about the content insights. In the meantime the full analysis is available whenever you want it: just reply "INSIGHTS".

Looking forward to reconnecting.

Best,
{{signature}}`,
	},
}

// TemplateFor returns the template for a response type, falling back to the
// interested template for unknown types.
func TemplateFor(rt classify.ResponseType) Template {
	if t, ok := templates[rt]; ok {
		return t
	}
	return templates[classify.Interested]
}
