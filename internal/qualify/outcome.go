package qualify

import (
	"math"
	"strings"
)

// Result is the full qualification of one lead.
type Result struct {
	Email              string     `json:"email"`
	Name               string     `json:"name,omitempty"`
	Scores             Scores     `json:"scores"`
	TotalScore         int        `json:"total_score"`
	MaxScore           int        `json:"max_score"`
	Tier               Tier       `json:"tier"`
	RecommendedPackage Package    `json:"recommended_package"`
	Priority           Priority   `json:"priority"`
	EstimatedValue     Value      `json:"estimated_value"`
	NextActions        []Action   `json:"next_actions"`
	Notes              string     `json:"notes"`
	FollowUpSchedule   []FollowUp `json:"follow_up_schedule"`
}

// Package is the service offer recommended for a tier.
type Package struct {
	Name         string   `json:"name"`
	Price        string   `json:"price,omitempty"`
	Duration     string   `json:"duration,omitempty"`
	Target       string   `json:"target,omitempty"`
	Deliverables []string `json:"deliverables,omitempty"`
	FitReason    string   `json:"fit_reason,omitempty"`
	Approach     string   `json:"approach,omitempty"`
	Timeline     string   `json:"timeline,omitempty"`
}

// PriorityLevel ranks how quickly sales should act.
type PriorityLevel string

// Priority levels.
const (
	PriorityHigh    PriorityLevel = "high"
	PriorityMedium  PriorityLevel = "medium"
	PriorityLow     PriorityLevel = "low"
	PriorityNurture PriorityLevel = "nurture"
)

// Priority is the follow-up routing for a lead.
type Priority struct {
	Level          PriorityLevel `json:"level"`
	FollowUpWindow string        `json:"follow_up_window"`
	AssignTo       string        `json:"assign_to"`
	Approach       string        `json:"approach"`
}

// Value is the estimated deal value of a lead.
type Value struct {
	Amount      int64   `json:"amount"`
	Probability float64 `json:"probability"`
	Timeline    string  `json:"timeline"`
}

// Action is one concrete next step for the sales owner.
type Action struct {
	Action   string `json:"action"`
	Timeline string `json:"timeline"`
	Owner    string `json:"owner"`
	Notes    string `json:"notes"`
}

// Channel is the medium of a follow-up step.
type Channel string

// Channels.
const (
	ChannelEmail Channel = "email"
	ChannelCall  Channel = "call"
)

// FollowUp is one step of a tier's cadence.
type FollowUp struct {
	DayOffset int     `json:"day"`
	Action    string  `json:"action"`
	Channel   Channel `json:"type"`
}

var packages = map[Tier]Package{
	TierStarter: {
		Name:     "Intelligence Audit",
		Price:    "$2,997",
		Duration: "2 weeks",
		Target:   "Small businesses, solopreneurs",
		Deliverables: []string{
			"Complete social media audit",
			"Competitive analysis (top 5 competitors)",
			"Content template library",
			"90-day action plan",
			"1-hour strategy session",
		},
	},
	TierGrowth: {
		Name:     "Social Intelligence System",
		Price:    "$8,997/month",
		Duration: "6-12 month contracts",
		Target:   "Mid-market businesses",
		Deliverables: []string{
			"Monthly competitive intelligence reports",
			"Content strategy and calendar",
			"Performance optimization",
			"Team training and support",
			"Quarterly strategy reviews",
		},
	},
	TierEnterprise: {
		Name:     "Market Dominance Program",
		Price:    "$25,000-75,000/month",
		Duration: "12-24 month contracts",
		Target:   "Large enterprises, agencies",
		Deliverables: []string{
			"Advanced competitive intelligence",
			"Multi-market analysis and expansion",
			"Executive reporting and presentations",
			"Team development programs",
			"Strategic partnership facilitation",
		},
	},
}

func recommendPackage(tier Tier, s Scores) Package {
	p, ok := packages[tier]
	if !ok {
		return Package{
			Name:     "Email Nurture Sequence",
			Approach: "Continue nurturing until qualification improves",
			Timeline: "Re-evaluate in 30-60 days",
		}
	}
	p.Deliverables = append([]string(nil), p.Deliverables...)
	p.FitReason = fitReason(s)
	return p
}

func fitReason(s Scores) string {
	var reasons []string
	if s.Budget >= 20 {
		reasons = append(reasons, "Strong budget capacity")
	}
	if s.Authority >= 15 {
		reasons = append(reasons, "Decision making authority")
	}
	if s.Need >= 20 {
		reasons = append(reasons, "Urgent business need")
	}
	if s.Timeline >= 12 {
		reasons = append(reasons, "Ready to move quickly")
	}
	if s.Trust >= 10 {
		reasons = append(reasons, "High engagement level")
	}
	if len(reasons) == 0 {
		return "Basic qualification met"
	}
	return strings.Join(reasons, ", ")
}

func priorityFor(total int, s Scores) Priority {
	switch {
	case total >= 70 || (s.Need >= 20 && s.Timeline >= 12):
		return Priority{Level: PriorityHigh, FollowUpWindow: "24 hours", AssignTo: "senior_consultant", Approach: "direct_call"}
	case total >= 50:
		return Priority{Level: PriorityMedium, FollowUpWindow: "48 hours", AssignTo: "consultant", Approach: "email_then_call"}
	case total >= 30:
		return Priority{Level: PriorityLow, FollowUpWindow: "1 week", AssignTo: "junior_consultant", Approach: "email_sequence"}
	default:
		return Priority{Level: PriorityNurture, FollowUpWindow: "ongoing", AssignTo: "automated_system", Approach: "email_nurture"}
	}
}

func nextActions(tier Tier) []Action {
	switch tier {
	case TierEnterprise:
		return []Action{
			{Action: "Schedule executive briefing call", Timeline: "Within 24 hours", Owner: "senior_consultant", Notes: "Prepare competitive analysis for their industry"},
			{Action: "Send customized proposal", Timeline: "48 hours after call", Owner: "senior_consultant", Notes: "Include ROI projections and case studies"},
		}
	case TierGrowth:
		return []Action{
			{Action: "Send strategy call invitation", Timeline: "Within 48 hours", Owner: "consultant", Notes: "Include relevant case study in invitation"},
			{Action: "Prepare industry analysis", Timeline: "Before strategy call", Owner: "consultant", Notes: "Research their competitors and market position"},
		}
	case TierStarter:
		return []Action{
			{Action: "Send audit offer email", Timeline: "Within 1 week", Owner: "junior_consultant", Notes: "Emphasize quick wins and ROI"},
		}
	default:
		return []Action{
			{Action: "Continue email nurture sequence", Timeline: "Ongoing", Owner: "automated_system", Notes: "Focus on education and trust building"},
		}
	}
}

func qualificationNotes(s Scores) string {
	notes := make([]string, 0, 4)

	switch {
	case s.Budget >= 20:
		notes = append(notes, "Strong budget indicators")
	case s.Budget >= 15:
		notes = append(notes, "Moderate budget capacity")
	default:
		notes = append(notes, "Budget unclear - needs verification")
	}

	switch {
	case s.Authority >= 15:
		notes = append(notes, "Decision making authority confirmed")
	case s.Authority >= 10:
		notes = append(notes, "Some influence, may need buy-in")
	default:
		notes = append(notes, "Authority level unclear")
	}

	switch {
	case s.Need >= 20:
		notes = append(notes, "Strong business need expressed")
	case s.Need >= 15:
		notes = append(notes, "Clear interest in improvement")
	default:
		notes = append(notes, "Need further qualification")
	}

	if s.Trust >= 10 {
		notes = append(notes, "High engagement and trust")
	} else {
		notes = append(notes, "Building relationship needed")
	}

	return strings.Join(notes, ". ")
}

var (
	baseValue = map[Tier]float64{
		TierEnterprise: 450000,
		TierGrowth:     108000,
		TierStarter:    3000,
		TierNurture:    0,
	}
	baseProbability = map[Tier]float64{
		TierEnterprise: 0.15,
		TierGrowth:     0.25,
		TierStarter:    0.40,
		TierNurture:    0.05,
	}
	closeTimeline = map[Tier]string{
		TierEnterprise: "3-6 months",
		TierGrowth:     "1-3 months",
		TierStarter:    "2-4 weeks",
		TierNurture:    "6+ months",
	}
	acceleratedTimeline = map[Tier]string{
		TierEnterprise: "2-4 months",
		TierGrowth:     "3-6 weeks",
		TierStarter:    "1-2 weeks",
	}
)

// maxProbability caps the close probability.
const maxProbability = 0.75

func estimateValue(tier Tier, s Scores) Value {
	amount := baseValue[tier]
	if s.Timeline >= 12 && s.Authority >= 15 {
		amount *= 1.2
	}
	if s.Trust >= 12 {
		amount *= 1.1
	}

	return Value{
		Amount:      int64(math.Round(amount)),
		Probability: closeProbability(tier, s.Total()),
		Timeline:    estimateCloseTimeline(tier, s),
	}
}

func closeProbability(tier Tier, total int) float64 {
	p := baseProbability[tier]
	switch {
	case total >= 80:
		p *= 1.5
	case total >= 60:
		p *= 1.2
	case total <= 40:
		p *= 0.7
	}
	return math.Min(p, maxProbability)
}

func estimateCloseTimeline(tier Tier, s Scores) string {
	if s.Timeline >= 12 && s.Need >= 20 {
		if t, ok := acceleratedTimeline[tier]; ok {
			return t
		}
	}
	return closeTimeline[tier]
}

var schedules = map[Tier][]FollowUp{
	TierEnterprise: {
		{DayOffset: 1, Action: "Send executive briefing invitation", Channel: ChannelEmail},
		{DayOffset: 3, Action: "Follow up on briefing", Channel: ChannelCall},
		{DayOffset: 7, Action: "Send customized proposal", Channel: ChannelEmail},
		{DayOffset: 14, Action: "Proposal follow-up call", Channel: ChannelCall},
		{DayOffset: 30, Action: "Decision timeline check", Channel: ChannelCall},
	},
	TierGrowth: {
		{DayOffset: 2, Action: "Send strategy call invitation", Channel: ChannelEmail},
		{DayOffset: 5, Action: "Follow up on invitation", Channel: ChannelEmail},
		{DayOffset: 10, Action: "Alternative time slots", Channel: ChannelCall},
		{DayOffset: 21, Action: "Re-engagement campaign", Channel: ChannelEmail},
	},
	TierStarter: {
		{DayOffset: 7, Action: "Send audit offer", Channel: ChannelEmail},
		{DayOffset: 14, Action: "Follow up with case study", Channel: ChannelEmail},
		{DayOffset: 28, Action: "Final offer with urgency", Channel: ChannelEmail},
	},
	TierNurture: {
		{DayOffset: 14, Action: "Educational content", Channel: ChannelEmail},
		{DayOffset: 30, Action: "Re-qualification attempt", Channel: ChannelEmail},
		{DayOffset: 60, Action: "Industry insights", Channel: ChannelEmail},
		{DayOffset: 90, Action: "Check-in and re-score", Channel: ChannelEmail},
	},
}

// Schedule returns a copy of the follow-up cadence for tier. Unknown tiers
// get the nurture cadence.
func Schedule(tier Tier) []FollowUp {
	s, ok := schedules[tier]
	if !ok {
		s = schedules[TierNurture]
	}
	return append([]FollowUp(nil), s...)
}
