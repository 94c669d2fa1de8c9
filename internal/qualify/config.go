package qualify

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/outreach-cli/internal/config"
)

// Factor ceilings. Totals stay within [0,100] as long as every bucket,
// fallback and cap respects these.
const (
	MaxBudget    = 25
	MaxAuthority = 20
	MaxNeed      = 25
	MaxTimeline  = 15
	MaxTrust     = 15
	MaxScore     = MaxBudget + MaxAuthority + MaxNeed + MaxTimeline + MaxTrust
)

// DefaultConfig returns the reference BANT+ buckets and thresholds.
func DefaultConfig() config.QualifierConfig {
	return config.QualifierConfig{
		Budget: []config.Bucket{
			{Name: "enterprise", Points: 25, Keywords: []string{"fortune", "500", "corporation", "inc.", "corp", "1000+", "employees"}},
			{Name: "growth", Points: 20, Keywords: []string{"company", "business", "50-500", "mid-size", "scale"}},
			{Name: "starter", Points: 15, Keywords: []string{"startup", "small", "local", "freelance", "10-50"}},
			{Name: "small", Points: 10, Keywords: []string{"solo", "individual", "personal", "side project"}},
		},
		HighValueTriggers: []string{"PLAYBOOK", "REPORT", "ANALYSIS"},
		BudgetFallback:    20,

		Authority: []config.Bucket{
			{Name: "decision_maker", Points: 20, Keywords: []string{"ceo", "cmo", "founder", "owner", "president", "director", "vp"}},
			{Name: "strong_influence", Points: 15, Keywords: []string{"manager", "head", "lead", "senior", "principal"}},
			{Name: "moderate_influence", Points: 10, Keywords: []string{"specialist", "coordinator", "analyst", "consultant"}},
			{Name: "weak_influence", Points: 5, Keywords: []string{"assistant", "intern", "junior", "trainee"}},
		},
		AuthorityLengthMin:    100,
		AuthorityLengthPoints: 10,

		Need: []config.Bucket{
			{Name: "urgent", Points: 25, Keywords: []string{"struggling", "failing", "losing money", "crisis", "urgent", "immediately", "not working", "disaster", "emergency", "help!"}},
			{Name: "strong", Points: 20, Keywords: []string{"need help", "looking for", "problem with", "challenge", "issue", "improve", "optimize", "better results"}},
			{Name: "moderate", Points: 15, Keywords: []string{"interested", "curious", "exploring", "considering", "want to learn"}},
			{Name: "weak", Points: 10, Keywords: []string{"thanks", "good post", "interesting", "nice", "cool"}},
		},

		Timeline: []config.Bucket{
			{Name: "immediate", Points: 15, Keywords: []string{"asap", "now", "urgent", "immediately", "right away", "this week"}},
			{Name: "short_term", Points: 12, Keywords: []string{"soon", "next month", "within 30 days", "quickly"}},
			{Name: "medium_term", Points: 8, Keywords: []string{"few months", "3-6 months", "this quarter", "planning"}},
			{Name: "long_term", Points: 4, Keywords: []string{"next year", "future", "eventually", "someday"}},
		},
		UrgentTriggers:   []string{"PLAYBOOK", "OUTREACH"},
		TimelineFallback: 12,

		Trust: config.TrustConfig{
			LengthBands: []config.LengthBand{
				{MinLength: 200, Points: 5},
				{MinLength: 100, Points: 3},
				{MinLength: 50, Points: 1},
			},
			MultiQuestionPoints:  4,
			SingleQuestionPoints: 2,
			PersonalPhrases: []string{
				"my company", "we are", "our business", "i work", "our team",
				"my role", "our situation", "we need", "our challenge",
			},
			PersonalPoints:         3,
			PriorInteractionPoints: 2,
			PriorInteractionCap:    6,
			Max:                    15,
		},

		Tiers: config.TierThresholds{Enterprise: 70, Growth: 50, Starter: 30},
	}
}

// ValidateConfig checks that a QualifierConfig keeps every factor inside its
// range and that tier thresholds descend.
func ValidateConfig(c config.QualifierConfig) error {
	var errs []string

	checkBuckets := func(factor string, buckets []config.Bucket, maxPoints int) {
		for _, b := range buckets {
			if b.Points < 0 || b.Points > maxPoints {
				errs = append(errs, fmt.Sprintf("%s bucket %q points must be between 0 and %d", factor, b.Name, maxPoints))
			}
		}
	}
	checkBuckets("budget", c.Budget, MaxBudget)
	checkBuckets("authority", c.Authority, MaxAuthority)
	checkBuckets("need", c.Need, MaxNeed)
	checkBuckets("timeline", c.Timeline, MaxTimeline)

	if c.BudgetFallback < 0 || c.BudgetFallback > MaxBudget {
		errs = append(errs, fmt.Sprintf("budget_fallback must be between 0 and %d", MaxBudget))
	}
	if c.AuthorityLengthPoints < 0 || c.AuthorityLengthPoints > MaxAuthority {
		errs = append(errs, fmt.Sprintf("authority_length_points must be between 0 and %d", MaxAuthority))
	}
	if c.AuthorityLengthMin < 0 {
		errs = append(errs, "authority_length_min must be >= 0")
	}
	if c.TimelineFallback < 0 || c.TimelineFallback > MaxTimeline {
		errs = append(errs, fmt.Sprintf("timeline_fallback must be between 0 and %d", MaxTimeline))
	}

	// Trust.
	if c.Trust.Max < 0 || c.Trust.Max > MaxTrust {
		errs = append(errs, fmt.Sprintf("trust.max must be between 0 and %d", MaxTrust))
	}
	for _, lb := range c.Trust.LengthBands {
		if lb.Points < 0 || lb.MinLength < 0 {
			errs = append(errs, "trust.length_bands entries must be non-negative")
			break
		}
	}
	if c.Trust.MultiQuestionPoints < 0 || c.Trust.SingleQuestionPoints < 0 ||
		c.Trust.PersonalPoints < 0 || c.Trust.PriorInteractionPoints < 0 || c.Trust.PriorInteractionCap < 0 {
		errs = append(errs, "trust points must be non-negative")
	}

	// Thresholds.
	t := c.Tiers
	if t.Starter < 0 {
		errs = append(errs, "tiers.starter must be >= 0")
	}
	if t.Growth <= t.Starter || t.Enterprise <= t.Growth {
		errs = append(errs, "tiers must descend: enterprise > growth > starter")
	}
	if t.Enterprise > MaxScore {
		errs = append(errs, fmt.Sprintf("tiers.enterprise must be <= %d", MaxScore))
	}

	if len(errs) > 0 {
		return eris.Errorf("qualify: config validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
