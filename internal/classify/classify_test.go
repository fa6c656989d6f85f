package classify

import "testing"

func TestDefaultClassification(t *testing.T) {
	cases := []struct {
		text string
		want Category
	}{
		{"fix login bug", CategoryBugFix},
		{"the dashboard is broken on mobile", CategoryBugFix},
		{"deploy the new landing page", CategoryDeployment},
		{"update the README with setup steps", CategoryDocumentation},
		{"refactor the session cleanup path", CategoryRefactor},
		{"audit component dependencies", CategoryAudit},
		{"add dark mode support", CategoryFeature},
		{"hmm", CategoryUnknown},
		{"", CategoryUnknown},
	}

	c := NewClassifier(nil)
	for _, tc := range cases {
		if got := c.Classify(tc.text); got != tc.want {
			t.Errorf("Classify(%q) = %s, want %s", tc.text, got, tc.want)
		}
	}
}

func TestRuleOrderWins(t *testing.T) {
	// "fix" (bug_fix) appears before "deploy" (deployment) in the default
	// rule order, so a request matching both classifies as bug_fix.
	c := NewClassifier(nil)
	if got := c.Classify("fix the deploy script"); got != CategoryBugFix {
		t.Errorf("earlier rule should win, got %s", got)
	}
}

func TestKeywordsMatchWholeWordsOnly(t *testing.T) {
	c := NewClassifier(nil)
	// "prefix" contains "fix" as a substring but not as a word.
	if got := c.Classify("prefix handling"); got != CategoryUnknown {
		t.Errorf("substring should not match, got %s", got)
	}
}

func TestInjectedRules(t *testing.T) {
	c := NewClassifier([]Rule{
		{CategoryAudit, []string{"everything"}},
	})
	if got := c.Classify("check everything twice"); got != CategoryAudit {
		t.Errorf("injected rule not applied, got %s", got)
	}
	if got := c.Classify("fix login bug"); got != CategoryUnknown {
		t.Errorf("default rules should not apply when injected, got %s", got)
	}
}

func TestClassificationIsCaseInsensitive(t *testing.T) {
	c := NewClassifier(nil)
	if got := c.Classify("FIX Login BUG"); got != CategoryBugFix {
		t.Errorf("case should not matter, got %s", got)
	}
}
