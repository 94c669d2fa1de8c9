// Package classify maps free-text prospect replies to a fixed set of intents
// using ordered pattern categories and a strict priority resolution rule.
package classify

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/outreach-cli/internal/config"
)

// ResponseType is the intent assigned to a reply.
type ResponseType string

// Response types.
const (
	ReportRequest ResponseType = "report_request"
	NotInterested ResponseType = "not_interested"
	CallRequest   ResponseType = "call_request"
	Qualification ResponseType = "qualification"
	TimingIssue   ResponseType = "timing_issue"
	Interested    ResponseType = "interested"
)

// ResponseTypes lists every response type.
var ResponseTypes = []ResponseType{
	ReportRequest, NotInterested, CallRequest, Qualification, TimingIssue, Interested,
}

// Valid reports whether t is one of the known response types.
func (t ResponseType) Valid() bool {
	for _, rt := range ResponseTypes {
		if t == rt {
			return true
		}
	}
	return false
}

// Result is the outcome of classifying one reply.
type Result struct {
	ResponseType    ResponseType `json:"response_type"`
	Confidence      float64      `json:"confidence"`
	MatchedTriggers []string     `json:"matched_triggers"`
}

type pattern struct {
	source string
	re     *regexp.Regexp
}

type category struct {
	name         string
	responseType ResponseType
	priority     int
	patterns     []pattern
}

// Classifier holds compiled intent categories. It is immutable after New and
// safe for concurrent use.
type Classifier struct {
	categories        []category
	defaultType       ResponseType
	matchConfidence   float64
	defaultConfidence float64
}

// New compiles and validates a classifier configuration.
func New(cfg config.ClassifierConfig) (*Classifier, error) {
	var errs []string

	defaultType := ResponseType(cfg.DefaultType)
	if !defaultType.Valid() {
		errs = append(errs, fmt.Sprintf("default_type %q is not a response type", cfg.DefaultType))
	}
	if cfg.MatchConfidence < 0 || cfg.MatchConfidence > 1 {
		errs = append(errs, "match_confidence must be between 0 and 1")
	}
	if cfg.DefaultConfidence < 0 || cfg.DefaultConfidence > 1 {
		errs = append(errs, "default_confidence must be between 0 and 1")
	}
	if len(cfg.Categories) == 0 {
		errs = append(errs, "at least one category is required")
	}

	seen := make(map[int]string, len(cfg.Categories))
	cats := make([]category, 0, len(cfg.Categories))
	for _, ic := range cfg.Categories {
		rt := ResponseType(ic.ResponseType)
		if !rt.Valid() {
			errs = append(errs, fmt.Sprintf("category %q: response_type %q is not a response type", ic.Name, ic.ResponseType))
		}
		if other, ok := seen[ic.Priority]; ok {
			errs = append(errs, fmt.Sprintf("category %q: priority %d already used by %q", ic.Name, ic.Priority, other))
		}
		seen[ic.Priority] = ic.Name

		c := category{name: ic.Name, responseType: rt, priority: ic.Priority}
		for _, src := range ic.Patterns {
			re, err := regexp.Compile("(?i)" + src)
			if err != nil {
				errs = append(errs, fmt.Sprintf("category %q: pattern %q: %v", ic.Name, src, err))
				continue
			}
			c.patterns = append(c.patterns, pattern{source: src, re: re})
		}
		cats = append(cats, c)
	}

	if len(errs) > 0 {
		return nil, eris.Errorf("classify: config validation failed: %s", strings.Join(errs, "; "))
	}

	return &Classifier{
		categories:        cats,
		defaultType:       defaultType,
		matchConfidence:   cfg.MatchConfidence,
		defaultConfidence: cfg.DefaultConfidence,
	}, nil
}

// MustDefault returns a classifier built from DefaultConfig.
func MustDefault() *Classifier {
	c, err := New(DefaultConfig())
	if err != nil {
		panic(err)
	}
	return c
}

// Classify evaluates every pattern of every category against text. Each hit
// is logged in MatchedTriggers; the matching category with the highest
// priority decides the response type.
func (c *Classifier) Classify(text string) Result {
	lower := strings.ToLower(text)

	res := Result{
		ResponseType:    c.defaultType,
		Confidence:      c.defaultConfidence,
		MatchedTriggers: []string{},
	}

	bestPriority := 0
	matched := false
	for _, cat := range c.categories {
		hit := false
		for _, p := range cat.patterns {
			if p.re.MatchString(lower) {
				res.MatchedTriggers = append(res.MatchedTriggers, p.source)
				hit = true
			}
		}
		if !hit {
			continue
		}
		if !matched || cat.priority > bestPriority {
			bestPriority = cat.priority
			res.ResponseType = cat.responseType
		}
		matched = true
	}

	if matched {
		res.Confidence = c.matchConfidence
	}
	return res
}

var wordTrigger = regexp.MustCompile(`^\\b([A-Za-z]+)\\b$`)

// TriggerWords returns the bare keywords of whole-word triggers such as
// `\bDATA\b`, uppercased, without duplicates, in match order.
func TriggerWords(r Result) []string {
	var words []string
	seen := make(map[string]bool)
	for _, trig := range r.MatchedTriggers {
		m := wordTrigger.FindStringSubmatch(trig)
		if m == nil {
			continue
		}
		w := strings.ToUpper(m[1])
		if seen[w] {
			continue
		}
		seen[w] = true
		words = append(words, w)
	}
	return words
}
