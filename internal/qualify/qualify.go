// Package qualify scores leads on the BANT+ model (budget, authority, need,
// timeline, trust), routes them into tiers, and derives the sales follow-up
// plan for each tier.
package qualify

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/sells-group/outreach-cli/internal/classify"
	"github.com/sells-group/outreach-cli/internal/config"
)

// Profile is everything the qualifier knows about a lead. Empty fields
// contribute nothing.
type Profile struct {
	Email             string           `json:"email" csv:"email"`
	Name              string           `json:"name" csv:"name"`
	Company           string           `json:"company,omitempty" csv:"company,omitempty"`
	Comment           string           `json:"comment" csv:"comment"`
	PostTitle         string           `json:"post_title,omitempty" csv:"post_title,omitempty"`
	Platform          string           `json:"platform,omitempty" csv:"platform,omitempty"`
	Title             string           `json:"title,omitempty" csv:"title,omitempty"`
	Industry          string           `json:"industry,omitempty" csv:"industry,omitempty"`
	CompanySize       string           `json:"company_size,omitempty" csv:"company_size,omitempty"`
	TriggerWord       string           `json:"trigger_word,omitempty" csv:"trigger_word,omitempty"`
	PriorInteractions int              `json:"prior_interactions,omitempty" csv:"prior_interactions,omitempty"`
	Classification    *classify.Result `json:"classification,omitempty" csv:"-"`
}

// Scores holds the five factor scores.
type Scores struct {
	Budget    int `json:"budget"`
	Authority int `json:"authority"`
	Need      int `json:"need"`
	Timeline  int `json:"timeline"`
	Trust     int `json:"trust"`
}

// Total returns the sum of all factors.
func (s Scores) Total() int {
	return s.Budget + s.Authority + s.Need + s.Timeline + s.Trust
}

// Tier is the qualification bucket a lead falls into.
type Tier string

// Tiers.
const (
	TierEnterprise Tier = "enterprise"
	TierGrowth     Tier = "growth"
	TierStarter    Tier = "starter"
	TierNurture    Tier = "nurture"
)

// Tiers lists every tier from highest to lowest.
var Tiers = []Tier{TierEnterprise, TierGrowth, TierStarter, TierNurture}

type bucket struct {
	points   int
	keywords []string
}

type lengthBand struct {
	min    int
	points int
}

// Qualifier scores lead profiles. It is immutable after New and safe for
// concurrent use.
type Qualifier struct {
	budget            []bucket
	highValueTriggers map[string]bool
	budgetFallback    int

	authority             []bucket
	authorityLengthMin    int
	authorityLengthPoints int

	need []bucket

	timeline         []bucket
	urgentTriggers   map[string]bool
	timelineFallback int

	trustBands      []lengthBand
	trust           config.TrustConfig
	personalPhrases []string

	tiers config.TierThresholds
}

// New validates cfg and builds a Qualifier. Keywords are matched as
// lowercase substrings; trigger tables are matched uppercase.
func New(cfg config.QualifierConfig) (*Qualifier, error) {
	if err := ValidateConfig(cfg); err != nil {
		return nil, err
	}

	q := &Qualifier{
		budget:                lowerBuckets(cfg.Budget),
		highValueTriggers:     upperSet(cfg.HighValueTriggers),
		budgetFallback:        cfg.BudgetFallback,
		authority:             lowerBuckets(cfg.Authority),
		authorityLengthMin:    cfg.AuthorityLengthMin,
		authorityLengthPoints: cfg.AuthorityLengthPoints,
		need:                  lowerBuckets(cfg.Need),
		timeline:              lowerBuckets(cfg.Timeline),
		urgentTriggers:        upperSet(cfg.UrgentTriggers),
		timelineFallback:      cfg.TimelineFallback,
		trust:                 cfg.Trust,
		personalPhrases:       lowerAll(cfg.Trust.PersonalPhrases),
		tiers:                 cfg.Tiers,
	}

	for _, lb := range cfg.Trust.LengthBands {
		q.trustBands = append(q.trustBands, lengthBand{min: lb.MinLength, points: lb.Points})
	}
	// Highest band first so only the longest satisfied band counts.
	sort.SliceStable(q.trustBands, func(i, j int) bool {
		return q.trustBands[i].min > q.trustBands[j].min
	})

	return q, nil
}

// MustDefault returns a qualifier built from DefaultConfig.
func MustDefault() *Qualifier {
	q, err := New(DefaultConfig())
	if err != nil {
		panic(err)
	}
	return q
}

// Qualify scores p and derives its tier and follow-up plan.
func (q *Qualifier) Qualify(p Profile) Result {
	triggers := triggerWords(p)

	scores := Scores{
		Budget:    q.scoreBudget(p, triggers),
		Authority: q.scoreAuthority(p),
		Need:      q.scoreNeed(p),
		Timeline:  q.scoreTimeline(p, triggers),
		Trust:     q.scoreTrust(p),
	}
	total := scores.Total()
	tier := q.TierFor(total)

	return Result{
		Email:              p.Email,
		Name:               p.Name,
		Scores:             scores,
		TotalScore:         total,
		MaxScore:           MaxScore,
		Tier:               tier,
		RecommendedPackage: recommendPackage(tier, scores),
		Priority:           priorityFor(total, scores),
		EstimatedValue:     estimateValue(tier, scores),
		NextActions:        nextActions(tier),
		Notes:              qualificationNotes(scores),
		FollowUpSchedule:   Schedule(tier),
	}
}

// TierFor maps a total score to a tier, checking thresholds top-down.
func (q *Qualifier) TierFor(total int) Tier {
	switch {
	case total >= q.tiers.Enterprise:
		return TierEnterprise
	case total >= q.tiers.Growth:
		return TierGrowth
	case total >= q.tiers.Starter:
		return TierStarter
	default:
		return TierNurture
	}
}

func (q *Qualifier) scoreBudget(p Profile, triggers []string) int {
	text := strings.ToLower(p.Comment + " " + p.PostTitle + " " + p.Name)
	if pts, ok := matchBuckets(q.budget, text); ok {
		return pts
	}
	if anyIn(triggers, q.highValueTriggers) {
		return q.budgetFallback
	}
	return 0
}

func (q *Qualifier) scoreAuthority(p Profile) int {
	text := strings.ToLower(p.Name + " " + p.Title + " " + p.Comment)
	if pts, ok := matchBuckets(q.authority, text); ok {
		return pts
	}
	if utf8.RuneCountInString(p.Comment) > q.authorityLengthMin {
		return q.authorityLengthPoints
	}
	return 0
}

func (q *Qualifier) scoreNeed(p Profile) int {
	pts, _ := matchBuckets(q.need, strings.ToLower(p.Comment))
	return pts
}

func (q *Qualifier) scoreTimeline(p Profile, triggers []string) int {
	if pts, ok := matchBuckets(q.timeline, strings.ToLower(p.Comment)); ok {
		return pts
	}
	if anyIn(triggers, q.urgentTriggers) {
		return q.timelineFallback
	}
	return 0
}

func (q *Qualifier) scoreTrust(p Profile) int {
	score := 0

	length := utf8.RuneCountInString(p.Comment)
	for _, b := range q.trustBands {
		if length > b.min {
			score += b.points
			break
		}
	}

	switch questions := strings.Count(p.Comment, "?"); {
	case questions > 1:
		score += q.trust.MultiQuestionPoints
	case questions == 1:
		score += q.trust.SingleQuestionPoints
	}

	if containsAny(strings.ToLower(p.Comment), q.personalPhrases) {
		score += q.trust.PersonalPoints
	}

	if p.PriorInteractions > 0 {
		score += min(p.PriorInteractions*q.trust.PriorInteractionPoints, q.trust.PriorInteractionCap)
	}

	return min(score, q.trust.Max)
}

// triggerWords collects the uppercase trigger words attached to a profile:
// the declared trigger word plus whole-word triggers from its classification.
func triggerWords(p Profile) []string {
	var words []string
	if w := strings.ToUpper(strings.TrimSpace(p.TriggerWord)); w != "" {
		words = append(words, w)
	}
	if p.Classification != nil {
		words = append(words, classify.TriggerWords(*p.Classification)...)
	}
	return words
}

// matchBuckets returns the points of the first bucket with a keyword in text.
func matchBuckets(buckets []bucket, text string) (int, bool) {
	for _, b := range buckets {
		if containsAny(text, b.keywords) {
			return b.points, true
		}
	}
	return 0, false
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if kw != "" && strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

func anyIn(words []string, set map[string]bool) bool {
	for _, w := range words {
		if set[w] {
			return true
		}
	}
	return false
}

func lowerBuckets(in []config.Bucket) []bucket {
	out := make([]bucket, 0, len(in))
	for _, b := range in {
		out = append(out, bucket{points: b.Points, keywords: lowerAll(b.Keywords)})
	}
	return out
}

func lowerAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}

func upperSet(in []string) map[string]bool {
	set := make(map[string]bool, len(in))
	for _, s := range in {
		set[strings.ToUpper(s)] = true
	}
	return set
}
