// Package constitution implements the validation gate: a fixed, ordered
// set of ten governance articles evaluated against a proposed action.
// The gate is read-only and deterministic. It never persists anything;
// on a veto the caller files the incident.
package constitution

import (
	"fmt"

	"maestro/internal/logging"
)

// ============================================================================
// ACTION & RESULT TYPES
// ============================================================================

// Action is a proposed unit of work presented to the gate: a type tag plus
// the facts the actor declares about it. Predicates inspect only these two
// fields. A fact that is absent or not a bool evaluates as false, so a
// malformed action fails the relevant article instead of crashing the gate.
type Action struct {
	Type   string         `json:"type"`
	Intent string         `json:"intent"`
	Facts  map[string]any `json:"facts"`
}

// Fact keys the articles inspect.
const (
	FactSchemaDriven     = "schemaDriven"
	FactStatusConsistent = "statusConsistent"
	FactMobileFirst      = "mobileFirst"
	FactLiveVerified     = "liveVerified"
	FactDependenciesOK   = "dependenciesValid"
	FactNonDestructive   = "nonDestructive"
	FactReportIsolated   = "reportIsolated"
	FactDocsUpdated      = "documentationUpdated"
	FactTestsGenerated   = "testsGenerated"
)

// Violation identifies one failed article.
type Violation struct {
	Article string `json:"article"`
	Detail  string `json:"detail"`
}

// ValidationResult is produced fresh per Validate call. It is embedded in
// phase results and incident dossiers, never stored standalone.
type ValidationResult struct {
	Valid      bool        `json:"valid"`
	Violations []Violation `json:"violations,omitempty"`
	Veto       bool        `json:"veto"`
}

// ============================================================================
// ARTICLES
// ============================================================================

// article is one governance rule: a stable identifier and a pure predicate
// over the action.
type article struct {
	id    string
	check func(Action) (bool, string)
}

// boolFact reads a declared boolean fact, false when absent or mistyped.
func boolFact(a Action, key string) bool {
	v, ok := a.Facts[key].(bool)
	return ok && v
}

// requireFact builds the common predicate shape: the named fact must be
// declared true.
func requireFact(key, detail string) func(Action) (bool, string) {
	return func(a Action) (bool, string) {
		if boolFact(a, key) {
			return true, ""
		}
		return false, detail
	}
}

// articles is the fixed rule set, evaluated strictly in this order.
var articles = []article{
	{"art-01-schema-driven", requireFact(FactSchemaDriven,
		"output is not driven by the declared schema")},
	{"art-02-single-source-of-truth", requireFact(FactStatusConsistent,
		"component status disagrees with the world model")},
	{"art-03-mobile-first", requireFact(FactMobileFirst,
		"mobile-first requirement not satisfied")},
	{"art-04-live-verification", requireFact(FactLiveVerified,
		"no live verification was performed")},
	{"art-05-dependency-validity", requireFact(FactDependenciesOK,
		"action references invalid or missing dependencies")},
	{"art-06-non-destructive", requireFact(FactNonDestructive,
		"action is not declared non-destructive")},
	{"art-07-exclusive-reporting", requireFact(FactReportIsolated,
		"component analysis would leak to other components")},
	{"art-08-documentation-current", requireFact(FactDocsUpdated,
		"documentation was not updated alongside the change")},
	{"art-09-test-coverage", requireFact(FactTestsGenerated,
		"no tests accompany the change")},
	{"art-10-traceability", func(a Action) (bool, string) {
		if a.Type == "" {
			return false, "action has no type tag"
		}
		if a.Intent == "" {
			return false, "action has no originating intent"
		}
		return true, ""
	}},
}

// ArticleCount is the size of the fixed rule set.
var ArticleCount = len(articles)

// ============================================================================
// GATE
// ============================================================================

// Validate evaluates every article against the action, in order. The gate
// is vetoed when any article fails. Calling it twice with identical input
// yields an identical result.
func Validate(action Action) ValidationResult {
	result := ValidationResult{Valid: true}

	for _, art := range articles {
		ok, detail := art.check(action)
		if !ok {
			result.Violations = append(result.Violations, Violation{
				Article: art.id,
				Detail:  detail,
			})
		}
	}

	if len(result.Violations) > 0 {
		result.Valid = false
		result.Veto = true
		logging.Constitution("action %q vetoed: %d violation(s), first %s",
			action.Type, len(result.Violations), result.Violations[0].Article)
	}
	return result
}

// CompliantFacts returns a fact set that passes every article, used by
// collaborators that assert full compliance for an action.
func CompliantFacts() map[string]any {
	return map[string]any{
		FactSchemaDriven:     true,
		FactStatusConsistent: true,
		FactMobileFirst:      true,
		FactLiveVerified:     true,
		FactDependenciesOK:   true,
		FactNonDestructive:   true,
		FactReportIsolated:   true,
		FactDocsUpdated:      true,
		FactTestsGenerated:   true,
	}
}

// Describe returns a short human-readable summary of a result, used by the
// CLI and phase logs.
func Describe(r ValidationResult) string {
	if r.Valid {
		return "compliant"
	}
	return fmt.Sprintf("vetoed (%d violations)", len(r.Violations))
}
