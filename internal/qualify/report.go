package qualify

import (
	"math"
	"sort"
	"strings"
)

// Report aggregates a set of qualification results.
type Report struct {
	TotalQualified       int                     `json:"total_qualified"`
	TierBreakdown        map[Tier]int            `json:"tier_breakdown"`
	AverageScores        AverageScores           `json:"average_scores"`
	PriorityDistribution map[PriorityLevel]int   `json:"priority_distribution"`
	Pipeline             PipelineValue           `json:"pipeline"`
	Conversion           map[Tier]TierConversion `json:"conversion"`
	ActionBreakdown      map[string]int          `json:"action_breakdown"`
	UrgentActions        []UrgentAction          `json:"urgent_actions"`
	TotalPendingActions  int                     `json:"total_pending_actions"`
}

// AverageScores holds rounded per-factor means.
type AverageScores struct {
	Budget    int `json:"budget"`
	Authority int `json:"authority"`
	Need      int `json:"need"`
	Timeline  int `json:"timeline"`
	Trust     int `json:"trust"`
	Total     int `json:"total"`
}

// PipelineValue sums estimated deal values.
type PipelineValue struct {
	Total    int64 `json:"total"`
	Weighted int64 `json:"weighted"`
	Average  int64 `json:"average"`
}

// TierConversion is the mean close probability of a tier.
type TierConversion struct {
	AverageProbability float64 `json:"average_probability"`
	LeadCount          int     `json:"lead_count"`
}

// UrgentAction is a next action due within a day.
type UrgentAction struct {
	Lead     string `json:"lead"`
	Action   string `json:"action"`
	Timeline string `json:"timeline"`
}

// Summarize aggregates results. An empty slice yields a zero report.
func Summarize(results []Result) Report {
	r := Report{
		TotalQualified:       len(results),
		TierBreakdown:        make(map[Tier]int),
		PriorityDistribution: make(map[PriorityLevel]int),
		Conversion:           make(map[Tier]TierConversion),
		ActionBreakdown:      make(map[string]int),
		UrgentActions:        []UrgentAction{},
	}
	if len(results) == 0 {
		return r
	}

	var sum Scores
	var total int
	var weighted float64
	probs := make(map[Tier]float64)

	for _, res := range results {
		r.TierBreakdown[res.Tier]++
		r.PriorityDistribution[res.Priority.Level]++

		sum.Budget += res.Scores.Budget
		sum.Authority += res.Scores.Authority
		sum.Need += res.Scores.Need
		sum.Timeline += res.Scores.Timeline
		sum.Trust += res.Scores.Trust
		total += res.TotalScore

		r.Pipeline.Total += res.EstimatedValue.Amount
		weighted += float64(res.EstimatedValue.Amount) * res.EstimatedValue.Probability
		probs[res.Tier] += res.EstimatedValue.Probability

		lead := res.Name
		if lead == "" {
			lead = res.Email
		}
		for _, a := range res.NextActions {
			r.ActionBreakdown[a.Action]++
			r.TotalPendingActions++
			if strings.Contains(a.Timeline, "24 hours") || strings.Contains(strings.ToLower(a.Timeline), "urgent") {
				r.UrgentActions = append(r.UrgentActions, UrgentAction{Lead: lead, Action: a.Action, Timeline: a.Timeline})
			}
		}
	}

	n := float64(len(results))
	r.AverageScores = AverageScores{
		Budget:    roundDiv(sum.Budget, n),
		Authority: roundDiv(sum.Authority, n),
		Need:      roundDiv(sum.Need, n),
		Timeline:  roundDiv(sum.Timeline, n),
		Trust:     roundDiv(sum.Trust, n),
		Total:     roundDiv(total, n),
	}
	r.Pipeline.Weighted = int64(math.Round(weighted))
	r.Pipeline.Average = int64(math.Round(float64(r.Pipeline.Total) / n))

	for tier, count := range r.TierBreakdown {
		r.Conversion[tier] = TierConversion{
			AverageProbability: probs[tier] / float64(count),
			LeadCount:          count,
		}
	}

	return r
}

// HighPriority returns the high priority results ordered by estimated value,
// largest first.
func HighPriority(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if r.Priority.Level == PriorityHigh {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].EstimatedValue.Amount > out[j].EstimatedValue.Amount
	})
	return out
}

// ByTier returns the results in tier ordered by total score, highest first.
func ByTier(results []Result, tier Tier) []Result {
	var out []Result
	for _, r := range results {
		if r.Tier == tier {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TotalScore > out[j].TotalScore
	})
	return out
}

func roundDiv(v int, n float64) int {
	return int(math.Round(float64(v) / n))
}
