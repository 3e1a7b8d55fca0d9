package classifier

import (
	"regexp"
	"strings"
)

// fastpathRule is one L0 declarative pattern: a regular expression and the
// plan it yields on a match. At most [maxFastpathRules] are registered, per
// spec §4.5's "≤20 patterns" cap.
type fastpathRule struct {
	pattern   *regexp.Regexp
	answer    string // canned answer; empty means "single-tool plan" instead
	tool      string // single-tool plan target when answer is empty
	intention string // intention for that tool, required when tool is set
}

const maxFastpathRules = 20

// FastpathResult is the outcome of an L0 match.
type FastpathResult struct {
	Matched      bool
	CannedAnswer string // set when the rule answers directly, no retrieval
	Tool         string // set when the rule yields a single-tool plan
	Intention    string // intention for Tool, set whenever Tool is set
}

func defaultFastpathRules() []fastpathRule {
	rules := []fastpathRule{
		{pattern: regexp.MustCompile(`(?i)^\s*(hi|hello|hey)[\s!.,]*$`), answer: "Hey there! What can I help you with?"},
		{pattern: regexp.MustCompile(`(?i)^\s*(thanks|thank you)[\s!.,]*$`), answer: "You're welcome!"},
		{pattern: regexp.MustCompile(`(?i)what'?s my ac\??`), tool: "character_data", intention: "combat_info"},
		{pattern: regexp.MustCompile(`(?i)what'?s my (armor class|hp|hit points)\??`), tool: "character_data", intention: "combat_info"},
		{pattern: regexp.MustCompile(`(?i)^\s*roll (a |an )?d(4|6|8|10|12|20|100)\s*$`), answer: "Rolling a die isn't something I can simulate here — grab your dice!"},
		{pattern: regexp.MustCompile(`(?i)what'?s my (speed|initiative)\??`), tool: "character_data", intention: "combat_info"},
		{pattern: regexp.MustCompile(`(?i)^\s*(bye|goodnight|see ya)[\s!.,]*$`), answer: "See you next session!"},
	}
	if len(rules) > maxFastpathRules {
		rules = rules[:maxFastpathRules]
	}
	return rules
}

// Fastpath evaluates L0's small declarative rule set against a query.
type Fastpath struct {
	rules []fastpathRule
}

// NewFastpath returns a Fastpath using the default rule set.
func NewFastpath() *Fastpath {
	return &Fastpath{rules: defaultFastpathRules()}
}

// Match checks query against every rule in order, returning the first hit.
func (f *Fastpath) Match(query string) FastpathResult {
	trimmed := strings.TrimSpace(query)
	for _, r := range f.rules {
		if r.pattern.MatchString(trimmed) {
			if r.answer != "" {
				return FastpathResult{Matched: true, CannedAnswer: r.answer}
			}
			return FastpathResult{Matched: true, Tool: r.tool, Intention: r.intention}
		}
	}
	return FastpathResult{}
}
