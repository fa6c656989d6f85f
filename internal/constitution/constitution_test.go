package constitution

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func compliantAction() Action {
	return Action{
		Type:   "code_generation",
		Intent: "add health endpoint",
		Facts:  CompliantFacts(),
	}
}

func TestCompliantActionPasses(t *testing.T) {
	result := Validate(compliantAction())

	if !result.Valid || result.Veto {
		t.Fatalf("compliant action should pass: %+v", result)
	}
	if len(result.Violations) != 0 {
		t.Errorf("unexpected violations: %v", result.Violations)
	}
}

func TestSingleFailingArticle(t *testing.T) {
	action := compliantAction()
	action.Facts[FactLiveVerified] = false

	result := Validate(action)

	if !result.Veto {
		t.Fatal("expected veto")
	}
	if len(result.Violations) != 1 {
		t.Fatalf("expected exactly one violation, got %d", len(result.Violations))
	}
	if result.Violations[0].Article != "art-04-live-verification" {
		t.Errorf("wrong article: %s", result.Violations[0].Article)
	}
}

func TestViolationsFollowArticleOrder(t *testing.T) {
	action := compliantAction()
	action.Facts[FactTestsGenerated] = false
	action.Facts[FactSchemaDriven] = false

	result := Validate(action)

	if len(result.Violations) != 2 {
		t.Fatalf("expected two violations, got %d", len(result.Violations))
	}
	if result.Violations[0].Article != "art-01-schema-driven" ||
		result.Violations[1].Article != "art-09-test-coverage" {
		t.Errorf("violations out of article order: %v", result.Violations)
	}
}

func TestMalformedActionFailsRulesNotGate(t *testing.T) {
	// No facts at all, no type, no intent: every article fails, the gate
	// itself must not panic.
	result := Validate(Action{})

	if !result.Veto {
		t.Fatal("expected veto")
	}
	if len(result.Violations) != ArticleCount {
		t.Errorf("expected %d violations, got %d", ArticleCount, len(result.Violations))
	}
}

func TestMistypedFactFailsItsArticle(t *testing.T) {
	action := compliantAction()
	action.Facts[FactMobileFirst] = "yes" // wrong type, not a bool

	result := Validate(action)

	if len(result.Violations) != 1 || result.Violations[0].Article != "art-03-mobile-first" {
		t.Errorf("mistyped fact should fail its article: %v", result.Violations)
	}
}

func TestValidateIsDeterministic(t *testing.T) {
	action := compliantAction()
	action.Facts[FactDocsUpdated] = false
	action.Facts[FactDependenciesOK] = false

	first := Validate(action)
	second := Validate(action)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Errorf("repeated validation differs (-first +second):\n%s", diff)
	}
}
