package config

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

// IntentCategory is one named group of reply patterns. Patterns are regular
// expression sources matched case-insensitively.
type IntentCategory struct {
	Name         string   `yaml:"name" json:"name"`
	ResponseType string   `yaml:"response_type" json:"response_type"`
	Priority     int      `yaml:"priority" json:"priority"`
	Patterns     []string `yaml:"patterns" json:"patterns"`
}

// ClassifierConfig holds the ordered intent categories and confidence
// constants used by the reply classifier.
type ClassifierConfig struct {
	Categories        []IntentCategory `yaml:"categories" json:"categories"`
	DefaultType       string           `yaml:"default_type" json:"default_type"`
	MatchConfidence   float64          `yaml:"match_confidence" json:"match_confidence"`
	DefaultConfidence float64          `yaml:"default_confidence" json:"default_confidence"`
}

// Bucket is one keyword tier of a scoring factor. The first bucket whose
// keywords appear in the text awards its points.
type Bucket struct {
	Name     string   `yaml:"name" json:"name"`
	Points   int      `yaml:"points" json:"points"`
	Keywords []string `yaml:"keywords" json:"keywords"`
}

// LengthBand awards Points when a comment is longer than MinLength runes.
type LengthBand struct {
	MinLength int `yaml:"min_length" json:"min_length"`
	Points    int `yaml:"points" json:"points"`
}

// TrustConfig holds the additive engagement signals.
type TrustConfig struct {
	LengthBands            []LengthBand `yaml:"length_bands" json:"length_bands"`
	MultiQuestionPoints    int          `yaml:"multi_question_points" json:"multi_question_points"`
	SingleQuestionPoints   int          `yaml:"single_question_points" json:"single_question_points"`
	PersonalPhrases        []string     `yaml:"personal_phrases" json:"personal_phrases"`
	PersonalPoints         int          `yaml:"personal_points" json:"personal_points"`
	PriorInteractionPoints int          `yaml:"prior_interaction_points" json:"prior_interaction_points"`
	PriorInteractionCap    int          `yaml:"prior_interaction_cap" json:"prior_interaction_cap"`
	Max                    int          `yaml:"max" json:"max"`
}

// TierThresholds are the minimum totals for each tier, checked top-down.
type TierThresholds struct {
	Enterprise int `yaml:"enterprise" json:"enterprise"`
	Growth     int `yaml:"growth" json:"growth"`
	Starter    int `yaml:"starter" json:"starter"`
}

// QualifierConfig holds the BANT+ keyword buckets, fallbacks and thresholds.
type QualifierConfig struct {
	Budget            []Bucket `yaml:"budget" json:"budget"`
	HighValueTriggers []string `yaml:"high_value_triggers" json:"high_value_triggers"`
	BudgetFallback    int      `yaml:"budget_fallback" json:"budget_fallback"`

	Authority             []Bucket `yaml:"authority" json:"authority"`
	AuthorityLengthMin    int      `yaml:"authority_length_min" json:"authority_length_min"`
	AuthorityLengthPoints int      `yaml:"authority_length_points" json:"authority_length_points"`

	Need []Bucket `yaml:"need" json:"need"`

	Timeline         []Bucket `yaml:"timeline" json:"timeline"`
	UrgentTriggers   []string `yaml:"urgent_triggers" json:"urgent_triggers"`
	TimelineFallback int      `yaml:"timeline_fallback" json:"timeline_fallback"`

	Trust TrustConfig    `yaml:"trust" json:"trust"`
	Tiers TierThresholds `yaml:"tiers" json:"tiers"`
}

// Rules bundles both rule sets as they appear in a rules file.
type Rules struct {
	Classifier ClassifierConfig `yaml:"classifier"`
	Qualifier  QualifierConfig  `yaml:"qualifier"`
}

// LoadRules reads a YAML rules file and overlays it on defaults. Keys absent
// from the file keep their default value; lists present in the file replace
// the default list. An empty path returns defaults unchanged.
func LoadRules(path string, defaults Rules) (Rules, error) {
	if path == "" {
		return defaults, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, eris.Wrapf(err, "config: read rules file %s", path)
	}

	rules := defaults
	if err := yaml.Unmarshal(data, &rules); err != nil {
		return Rules{}, eris.Wrapf(err, "config: parse rules file %s", path)
	}

	return rules, nil
}
