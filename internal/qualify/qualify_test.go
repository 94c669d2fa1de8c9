package qualify

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/outreach-cli/internal/classify"
	"github.com/sells-group/outreach-cli/internal/config"
)

func TestQualifyEndToEnd(t *testing.T) {
	text := "This is urgent — need help asap, I'm the CEO, we're a 500-person company, reply with DATA"
	cls := classify.MustDefault().Classify(text)
	require.Equal(t, classify.ReportRequest, cls.ResponseType)

	q := MustDefault()
	got := q.Qualify(Profile{
		Email:          "dana@example.com",
		Name:           "Dana",
		Comment:        text,
		Classification: &cls,
	})

	assert.Equal(t, 25, got.Scores.Budget)
	assert.Equal(t, 20, got.Scores.Authority)
	assert.Equal(t, 25, got.Scores.Need)
	assert.Equal(t, 15, got.Scores.Timeline)
	assert.Equal(t, 1, got.Scores.Trust)
	assert.Equal(t, 86, got.TotalScore)
	assert.Equal(t, 100, got.MaxScore)
	assert.Equal(t, TierEnterprise, got.Tier)
	assert.Equal(t, PriorityHigh, got.Priority.Level)
	assert.Equal(t, "24 hours", got.Priority.FollowUpWindow)
	assert.Equal(t, "Market Dominance Program", got.RecommendedPackage.Name)
	assert.Equal(t, "Strong budget capacity, Decision making authority, Urgent business need, Ready to move quickly",
		got.RecommendedPackage.FitReason)
	assert.Equal(t, int64(540000), got.EstimatedValue.Amount)
	assert.InDelta(t, 0.225, got.EstimatedValue.Probability, 0.0001)
	assert.Equal(t, "2-4 months", got.EstimatedValue.Timeline)
	assert.Len(t, got.NextActions, 2)
	assert.Len(t, got.FollowUpSchedule, 5)
	assert.Equal(t, "Strong budget indicators. Decision making authority confirmed. Strong business need expressed. Building relationship needed",
		got.Notes)
}

func TestQualifyTotalEqualsSum(t *testing.T) {
	q := MustDefault()
	profiles := []Profile{
		{},
		{Comment: "nice post"},
		{Comment: "Our team is struggling with outreach. Can you help? What does it cost?", Name: "Head of Growth"},
		{Comment: strings.Repeat("we need help? ", 100), PriorInteractions: 9, TriggerWord: "PLAYBOOK"},
		{Comment: "Freelance consultant exploring options for next year", PostTitle: "Side project ideas"},
	}
	for _, p := range profiles {
		got := q.Qualify(p)
		assert.Equal(t, got.Scores.Total(), got.TotalScore)
		assert.GreaterOrEqual(t, got.TotalScore, 0)
		assert.LessOrEqual(t, got.TotalScore, MaxScore)
		assert.Equal(t, q.TierFor(got.TotalScore), got.Tier)
	}
}

func TestQualifyEmptyProfile(t *testing.T) {
	got := MustDefault().Qualify(Profile{})
	assert.Equal(t, Scores{}, got.Scores)
	assert.Equal(t, TierNurture, got.Tier)
	assert.Equal(t, PriorityNurture, got.Priority.Level)
	assert.Equal(t, "Email Nurture Sequence", got.RecommendedPackage.Name)
	assert.Equal(t, int64(0), got.EstimatedValue.Amount)
	assert.InDelta(t, 0.035, got.EstimatedValue.Probability, 0.0001)
	assert.Equal(t, "6+ months", got.EstimatedValue.Timeline)
}

func TestQualifyIdempotent(t *testing.T) {
	q := MustDefault()
	p := Profile{Comment: "We are looking for help soon. Pricing?", Name: "VP Marketing", PriorInteractions: 2}
	assert.Equal(t, q.Qualify(p), q.Qualify(p))
}

func TestQualifyConcurrent(t *testing.T) {
	q := MustDefault()
	p := Profile{Comment: "our business needs to optimize ROI this week", Name: "Owner"}
	want := q.Qualify(p)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.Equal(t, want, q.Qualify(p))
		}()
	}
	wg.Wait()
}

func TestTierFor(t *testing.T) {
	q := MustDefault()
	tests := []struct {
		total int
		want  Tier
	}{
		{100, TierEnterprise},
		{70, TierEnterprise},
		{69, TierGrowth},
		{50, TierGrowth},
		{49, TierStarter},
		{30, TierStarter},
		{29, TierNurture},
		{0, TierNurture},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, q.TierFor(tt.total), "total %d", tt.total)
	}
}

func TestScoreBudget(t *testing.T) {
	q := MustDefault()
	dataTrigger := classify.Result{MatchedTriggers: []string{`\bANALYSIS\b`}}

	tests := []struct {
		name string
		p    Profile
		want int
	}{
		{"enterprise keyword", Profile{Comment: "we are a fortune 100 firm"}, 25},
		{"growth keyword", Profile{Comment: "trying to scale"}, 20},
		{"starter keyword", Profile{Comment: "we're a startup"}, 15},
		{"small keyword", Profile{Comment: "just me, solo"}, 10},
		{"keyword in post title", Profile{PostTitle: "Mid-size teams"}, 20},
		{"keyword in name", Profile{Name: "Acme Corp"}, 25},
		{"enterprise beats starter", Profile{Comment: "small team at a corporation"}, 25},
		{"declared trigger fallback", Profile{Comment: "hello there", TriggerWord: "report"}, 20},
		{"classified trigger fallback", Profile{Comment: "hello there", Classification: &dataTrigger}, 20},
		{"other trigger", Profile{Comment: "hello there", TriggerWord: "DATA"}, 0},
		{"nothing", Profile{Comment: "hello there"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, q.scoreBudget(tt.p, triggerWords(tt.p)))
		})
	}
}

func TestScoreAuthority(t *testing.T) {
	q := MustDefault()
	tests := []struct {
		name string
		p    Profile
		want int
	}{
		{"ceo in comment", Profile{Comment: "I'm the CEO"}, 20},
		{"director in name", Profile{Name: "Director of Ops"}, 20},
		{"title field", Profile{Title: "Senior Engineer"}, 15},
		{"analyst", Profile{Comment: "data analyst here"}, 10},
		{"intern", Profile{Comment: "I'm an intern"}, 5},
		{"long comment fallback", Profile{Comment: strings.Repeat("x", 101)}, 10},
		{"exactly 100 runes", Profile{Comment: strings.Repeat("x", 100)}, 0},
		{"multibyte length counts runes", Profile{Comment: strings.Repeat("é", 60)}, 0},
		{"nothing", Profile{Comment: "hi"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, q.scoreAuthority(tt.p))
		})
	}
}

func TestScoreNeed(t *testing.T) {
	q := MustDefault()
	tests := []struct {
		comment string
		want    int
	}{
		{"we are struggling", 25},
		{"help! please", 25},
		{"looking for a partner", 20},
		{"what's the ROI here", 0},
		{"we ship an android app", 0},
		{"heroic effort", 0},
		{"we need to improve our ROI", 20},
		{"just exploring", 15},
		{"this is interesting", 10},
		{"urgent but also curious", 25},
		{"", 0},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, q.scoreNeed(Profile{Comment: tt.comment}), "comment %q", tt.comment)
	}
}

func TestScoreTimeline(t *testing.T) {
	q := MustDefault()
	tests := []struct {
		name string
		p    Profile
		want int
	}{
		{"asap", Profile{Comment: "need it asap"}, 15},
		{"this week", Profile{Comment: "can we start this week"}, 15},
		{"next month", Profile{Comment: "maybe next month"}, 12},
		{"planning", Profile{Comment: "still planning"}, 8},
		{"someday", Profile{Comment: "someday maybe"}, 4},
		{"substring match", Profile{Comment: "I know"}, 15},
		{"urgent trigger fallback", Profile{Comment: "hi", TriggerWord: "playbook"}, 12},
		{"non-urgent trigger", Profile{Comment: "hi", TriggerWord: "REPORT"}, 0},
		{"nothing", Profile{Comment: "hi"}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, q.scoreTimeline(tt.p, triggerWords(tt.p)))
		})
	}
}

func TestScoreTrust(t *testing.T) {
	q := MustDefault()
	tests := []struct {
		name string
		p    Profile
		want int
	}{
		{"empty", Profile{}, 0},
		{"51 runes", Profile{Comment: strings.Repeat("a", 51)}, 1},
		{"101 runes", Profile{Comment: strings.Repeat("a", 101)}, 3},
		{"201 runes", Profile{Comment: strings.Repeat("a", 201)}, 5},
		{"emoji count once", Profile{Comment: strings.Repeat("\U0001F680", 51)}, 1},
		{"one question", Profile{Comment: "why?"}, 2},
		{"two questions", Profile{Comment: "why? how?"}, 4},
		{"personal phrase", Profile{Comment: "Our team wants this"}, 3},
		{"prior interactions", Profile{PriorInteractions: 2}, 4},
		{"prior capped", Profile{PriorInteractions: 50}, 6},
		{"negative prior ignored", Profile{PriorInteractions: -3}, 0},
		{
			"capped at 15",
			Profile{Comment: strings.Repeat("my company? ", 1000), PriorInteractions: 100},
			15,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, q.scoreTrust(tt.p))
		})
	}
}

func TestScoreTrustCap(t *testing.T) {
	q := MustDefault()
	comment := strings.Repeat("a", 10000) + "?????"
	got := q.scoreTrust(Profile{Comment: comment, PriorInteractions: 100})
	assert.LessOrEqual(t, got, MaxTrust)
}

func TestScoreTrustMonotonicInLength(t *testing.T) {
	q := MustDefault()
	prev := 0
	for n := 0; n <= 400; n++ {
		got := q.scoreTrust(Profile{Comment: strings.Repeat("a", n)})
		assert.GreaterOrEqual(t, got, prev, "length %d", n)
		prev = got
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Budget[0].Points = 30
	_, err := New(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "budget bucket")
}

func TestValidateConfig(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *config.QualifierConfig)
		wantErr string
	}{
		{name: "defaults", mutate: func(c *config.QualifierConfig) {}},
		{
			name:    "authority over cap",
			mutate:  func(c *config.QualifierConfig) { c.Authority[0].Points = 21 },
			wantErr: "authority bucket",
		},
		{
			name:    "negative need",
			mutate:  func(c *config.QualifierConfig) { c.Need[3].Points = -1 },
			wantErr: "need bucket",
		},
		{
			name:    "timeline fallback over cap",
			mutate:  func(c *config.QualifierConfig) { c.TimelineFallback = 16 },
			wantErr: "timeline_fallback",
		},
		{
			name:    "trust max over cap",
			mutate:  func(c *config.QualifierConfig) { c.Trust.Max = 20 },
			wantErr: "trust.max",
		},
		{
			name:    "thresholds not descending",
			mutate:  func(c *config.QualifierConfig) { c.Tiers.Growth = 70 },
			wantErr: "tiers must descend",
		},
		{
			name:    "enterprise above max",
			mutate:  func(c *config.QualifierConfig) { c.Tiers.Enterprise = 101 },
			wantErr: "tiers.enterprise",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := ValidateConfig(cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestCustomThresholds(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Tiers = config.TierThresholds{Enterprise: 90, Growth: 60, Starter: 20}
	q, err := New(cfg)
	require.NoError(t, err)

	assert.Equal(t, TierGrowth, q.TierFor(86))
	assert.Equal(t, TierStarter, q.TierFor(25))
}
