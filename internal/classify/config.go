package classify

import (
	"github.com/sells-group/outreach-cli/internal/config"
)

// DefaultConfig returns the reference intent categories. Category order is
// the order triggers are logged in; resolution depends only on priority.
func DefaultConfig() config.ClassifierConfig {
	return config.ClassifierConfig{
		Categories: []config.IntentCategory{
			{
				Name:         "report",
				ResponseType: string(ReportRequest),
				Priority:     10,
				Patterns: []string{
					`\bDATA\b`, `\bINSIGHTS\b`, `\bSTRATEGY\b`, `\bFOUNDER\b`,
					`\bAGENCY\b`, `\bTECH\b`, `\bREPORT\b`, `\bANALYSIS\b`,
					`send.*report`, `complete.*analysis`, `full.*study`,
				},
			},
			{
				Name:         "interest",
				ResponseType: string(Interested),
				Priority:     5,
				Patterns: []string{
					`interesting`, `intrigued`, `curious`, `tell me more`,
					`more information`, `learn more`, `sounds good`,
					`looks promising`, `want to know`,
				},
			},
			{
				Name:         "call",
				ResponseType: string(CallRequest),
				Priority:     8,
				Patterns: []string{
					`\bCALL\b`, `\bMEETING\b`, `\bDISCUSS\b`, `schedule`, `talk`,
					`conversation`, `15 minutes`, `30 minutes`, `strategy call`,
					`quick call`,
				},
			},
			{
				Name:         "questions",
				ResponseType: string(Qualification),
				Priority:     7,
				Patterns: []string{
					`how much`, `what.*cost`, `pricing`, `how does.*work`,
					`what.*include`, `case studies`, `examples`, `clients`, `results`,
				},
			},
			{
				Name:         "not_interested",
				ResponseType: string(NotInterested),
				Priority:     9,
				Patterns: []string{
					`not interested`, `no thank`, `not right now`, `all set`,
					`remove.*list`, `unsubscribe`, `don't.*contact`, `stop.*email`,
				},
			},
			{
				Name:         "timing",
				ResponseType: string(TimingIssue),
				Priority:     6,
				Patterns: []string{
					`not.*right time`, `maybe later`, `few months`, `next quarter`,
					`circle back`, `touch base`, `busy right now`, `revisit`,
				},
			},
		},
		DefaultType:       string(Interested),
		MatchConfidence:   0.9,
		DefaultConfidence: 0.5,
	}
}
