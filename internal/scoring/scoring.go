// Package scoring computes the goal, confidence and unresolved-likelihood
// metrics for a workflow run. All functions are pure: deterministic,
// no I/O, no stored state.
//
// Convention: fractional terms (goal score) are combined on the 0-1 scale
// and then scaled to 0-100; additive terms (confidence, likelihood)
// accumulate directly on the 0-100 scale in the documented order. Rounding
// happens exactly once per function, after all terms are summed.
package scoring

import (
	"math"
	"time"
)

// Result is the score record attached to a completed run. It is a
// deliberately distinct type: collaborator reports never embed it, so one
// component's scoring can never leak into another component's inputs.
type Result struct {
	GoalScore  int       `json:"goalScore"`  // 0-100
	Confidence int       `json:"confidence"` // 0-100
	Timestamp  time.Time `json:"timestamp"`
}

// ReportStatusCompleted is the collaborator report status counted toward
// the goal score.
const ReportStatusCompleted = "completed"

// Checklist is the 8-item manager compliance checklist weighed into the
// goal score.
type Checklist struct {
	AllPhasesCompleted   bool `json:"allPhasesCompleted"`
	ValidationClean      bool `json:"validationClean"`
	CodeGenerated        bool `json:"codeGenerated"`
	TestsGenerated       bool `json:"testsGenerated"`
	DeploymentVerified   bool `json:"deploymentVerified"`
	DocumentationUpdated bool `json:"documentationUpdated"`
	RepositoryPushed     bool `json:"repositoryPushed"`
	WorldModelUpdated    bool `json:"worldModelUpdated"`
}

func (c Checklist) items() [8]bool {
	return [8]bool{
		c.AllPhasesCompleted,
		c.ValidationClean,
		c.CodeGenerated,
		c.TestsGenerated,
		c.DeploymentVerified,
		c.DocumentationUpdated,
		c.RepositoryPushed,
		c.WorldModelUpdated,
	}
}

// GoalScore weighs collaborator completion at 40% and manager checklist
// compliance at 60%, returning an integer in [0,100]. With no reports the
// completion fraction is zero.
func GoalScore(reportStatuses []string, checklist Checklist) int {
	completion := 0.0
	if len(reportStatuses) > 0 {
		completed := 0
		for _, s := range reportStatuses {
			if s == ReportStatusCompleted {
				completed++
			}
		}
		completion = float64(completed) / float64(len(reportStatuses))
	}

	checked := 0
	items := checklist.items()
	for _, ok := range items {
		if ok {
			checked++
		}
	}
	compliance := float64(checked) / float64(len(items))

	return clamp(math.Round((completion*0.4 + compliance*0.6) * 100))
}

// AgentAnalysis carries the collaborator-level flags feeding confidence.
type AgentAnalysis struct {
	Compliant            bool    `json:"compliant"`
	QualityScore         float64 `json:"qualityScore"` // 0-100
	DeploymentVerified   bool    `json:"deploymentVerified"`
	DocumentationUpdated bool    `json:"documentationUpdated"`
}

// ManagerAnalysis carries the manager-level flags feeding confidence.
type ManagerAnalysis struct {
	Compliant        bool `json:"compliant"`
	PlatformDeployed bool `json:"platformDeployed"`
	RepositoryPushed bool `json:"repositoryPushed"`
}

// Confidence accumulates, in fixed order: +30 when both compliance flags
// hold, + qualityScore*0.2, +25 when deployment was verified and the
// platform deploy happened, +25 when documentation was updated and the
// repository was pushed. Rounded once, clamped to [0,100].
func Confidence(agent AgentAnalysis, manager ManagerAnalysis) int {
	score := 0.0
	if agent.Compliant && manager.Compliant {
		score += 30
	}
	score += agent.QualityScore * 0.2
	if agent.DeploymentVerified && manager.PlatformDeployed {
		score += 25
	}
	if agent.DocumentationUpdated && manager.RepositoryPushed {
		score += 25
	}
	return clamp(math.Round(score))
}

// RequestRecord is one tracked request's aggregated history, supplied
// already deduplicated and counted by the request tracker.
type RequestRecord struct {
	Key                 string    `json:"key"`
	Text                string    `json:"text"`
	RepetitionCount     int       `json:"repetitionCount"`
	IsCritique          bool      `json:"isCritique"`
	OpenTodo            bool      `json:"openTodo"`            // a matching to-do exists and is unchecked
	NextStepsRepetition int       `json:"nextStepsRepetition"` // repetition count of a matching next-steps entry
	FirstSeen           time.Time `json:"firstSeen"`
	LastSeen            time.Time `json:"lastSeen"`
}

// UnresolvedLikelihood estimates how likely a tracked request remains
// unaddressed. Additive terms apply in fixed order: base 50,
// +10 per repetition beyond the first, +20 for a critique, +15 for an
// open matching to-do, +25 when the matching next-steps entry repeats.
// Clamped to [0,100]; monotone non-decreasing in RepetitionCount.
func UnresolvedLikelihood(rec RequestRecord) int {
	score := 50.0
	if rec.RepetitionCount > 1 {
		score += 10 * float64(rec.RepetitionCount-1)
	}
	if rec.IsCritique {
		score += 20
	}
	if rec.OpenTodo {
		score += 15
	}
	if rec.NextStepsRepetition > 1 {
		score += 25
	}
	return clamp(math.Round(score))
}

func clamp(v float64) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return int(v)
}
