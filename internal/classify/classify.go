// Package classify maps a free-text request onto a finite set of request
// categories through an ordered, injectable rule list. Rules are data, not
// scattered substring checks, so the full behavior is enumerable in tests.
package classify

import "strings"

// Category is the tagged request variant driving plan selection.
type Category string

const (
	CategoryBugFix        Category = "bug_fix"
	CategoryFeature       Category = "feature"
	CategoryRefactor      Category = "refactor"
	CategoryDocumentation Category = "documentation"
	CategoryDeployment    Category = "deployment"
	CategoryAudit         Category = "audit"
	CategoryUnknown       Category = "unknown"
)

// Rule maps matching requests to a category. Keywords match on lowercased
// whole-word boundaries.
type Rule struct {
	Category Category
	Keywords []string
}

// DefaultRules is the standard rule list, evaluated in order; the first
// matching rule wins.
func DefaultRules() []Rule {
	return []Rule{
		{CategoryBugFix, []string{"fix", "bug", "broken", "crash", "error", "regression"}},
		{CategoryDeployment, []string{"deploy", "release", "publish", "rollout", "ship"}},
		{CategoryDocumentation, []string{"document", "docs", "readme", "changelog"}},
		{CategoryRefactor, []string{"refactor", "cleanup", "restructure", "simplify"}},
		{CategoryAudit, []string{"audit", "review", "analyze", "assess", "inspect"}},
		{CategoryFeature, []string{"add", "implement", "create", "build", "feature", "support"}},
	}
}

// Classifier evaluates an ordered rule list against request text.
type Classifier struct {
	rules []Rule
}

// NewClassifier builds a classifier over the given rules. Nil rules means
// DefaultRules.
func NewClassifier(rules []Rule) *Classifier {
	if rules == nil {
		rules = DefaultRules()
	}
	return &Classifier{rules: rules}
}

// Classify returns the category of the first rule with a matching keyword,
// or CategoryUnknown when nothing matches.
func (c *Classifier) Classify(text string) Category {
	words := tokenize(text)
	for _, rule := range c.rules {
		for _, kw := range rule.Keywords {
			if words[kw] {
				return rule.Category
			}
		}
	}
	return CategoryUnknown
}

// IncidentWorthy reports whether a failed run of this category should be
// recorded as a bug report rather than a system anomaly.
func IncidentWorthy(cat Category) bool {
	return cat == CategoryBugFix
}

func tokenize(text string) map[string]bool {
	words := make(map[string]bool)
	for _, w := range strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z') && !('0' <= r && r <= '9')
	}) {
		words[w] = true
	}
	return words
}
