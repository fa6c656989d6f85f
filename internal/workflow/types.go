// Package workflow orchestrates a run: an ordered list of phases executed
// strictly in plan order, each gated by the constitution and backed by an
// external collaborator, with outcomes written into the world model and
// scored on completion.
package workflow

import (
	"fmt"
	"time"

	"maestro/internal/agents"
	"maestro/internal/constitution"
	"maestro/internal/scoring"
)

// ============================================================================
// REQUEST & PLAN
// ============================================================================

// Request is the opaque payload a run is created for.
type Request struct {
	Text      string    `json:"text"`
	Timestamp time.Time `json:"timestamp"`
	Source    string    `json:"source"`
}

// PhaseDescriptor names one planned unit of work: the phase, the
// collaborator capability it requires, and the facts the plan declares
// about the action for the validation gate.
type PhaseDescriptor struct {
	Name          string         `json:"name"`
	RequiredAgent string         `json:"requiredAgent"`
	Facts         map[string]any `json:"facts,omitempty"`
}

// Plan is the ordered phase list supplied by the planning collaborator.
type Plan struct {
	Requirements []string          `json:"requirements"`
	Agents       []string          `json:"agents"`
	Phases       []PhaseDescriptor `json:"phases"`
}

// ============================================================================
// RUN STATE
// ============================================================================

// RunStatus is the workflow run state machine. Completed and Failed are
// terminal; nothing transitions out of them.
type RunStatus string

const (
	RunCreated   RunStatus = "created"
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// PhaseStatus is the lifecycle of a single phase within a run.
type PhaseStatus string

const (
	PhasePending   PhaseStatus = "pending"
	PhaseRunning   PhaseStatus = "running"
	PhaseCompleted PhaseStatus = "completed"
	PhaseFailed    PhaseStatus = "failed"
)

// Phase is the append-only record of one executed (or attempted) phase.
type Phase struct {
	Name       string                         `json:"name"`
	Status     PhaseStatus                    `json:"status"`
	StartedAt  time.Time                      `json:"startedAt,omitempty"`
	EndedAt    time.Time                      `json:"endedAt,omitempty"`
	Duration   time.Duration                  `json:"duration,omitempty"`
	Result     map[string]any                 `json:"result,omitempty"`
	Validation *constitution.ValidationResult `json:"validation,omitempty"`
	Error      string                         `json:"error,omitempty"`
}

// WorkflowRun is one execution of the engine for a single request. It is
// mutated only by the engine and becomes immutable once terminal.
type WorkflowRun struct {
	ID           string                   `json:"id"`
	Request      Request                  `json:"request"`
	Category     string                   `json:"category"`
	Status       RunStatus                `json:"status"`
	Phases       []Phase                  `json:"phases"`
	Completion   float64                  `json:"completion"` // 0-100, attempted/planned
	AgentReports map[string]agents.Report `json:"agentReports"`
	Score        *scoring.Result          `json:"score,omitempty"`
	CreatedAt    time.Time                `json:"createdAt"`
	EndedAt      time.Time                `json:"endedAt,omitempty"`
}

// RunResult is what Execute returns to the caller.
type RunResult struct {
	RunID              string                   `json:"runId"`
	Success            bool                     `json:"success"`
	FinalStatus        RunStatus                `json:"finalStatus"`
	Completion         float64                  `json:"completion"`
	Phases             []Phase                  `json:"phases"`
	AgentReports       map[string]agents.Report `json:"agentReports"`
	Score              *scoring.Result          `json:"score,omitempty"`
	Error              string                   `json:"error,omitempty"`
	LastCompletedPhase string                   `json:"lastCompletedPhase,omitempty"`
}

// ============================================================================
// ERRORS
// ============================================================================

// ValidationViolationError reports a constitution veto. Always fatal to
// the run and always produces an incident.
type ValidationViolationError struct {
	Phase  string
	Result constitution.ValidationResult
}

func (e *ValidationViolationError) Error() string {
	return fmt.Sprintf("phase %s vetoed by constitution: %d violation(s)",
		e.Phase, len(e.Result.Violations))
}

// PhaseExecutionError reports a collaborator failure. Always fatal; the
// remaining phases are aborted.
type PhaseExecutionError struct {
	Phase string
	Agent string
	Err   error
}

func (e *PhaseExecutionError) Error() string {
	return fmt.Sprintf("phase %s failed in collaborator %s: %v", e.Phase, e.Agent, e.Err)
}

func (e *PhaseExecutionError) Unwrap() error { return e.Err }
