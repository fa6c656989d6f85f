package workflow

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"maestro/internal/agents"
	"maestro/internal/casefile"
	"maestro/internal/classify"
	"maestro/internal/constitution"
	"maestro/internal/logging"
	"maestro/internal/persist"
	"maestro/internal/scoring"
	"maestro/internal/world"
)

// ============================================================================
// ENGINE
// ============================================================================

// Engine executes workflow runs. Phases within a run are strictly
// sequential; the engine itself holds no run state between calls, so one
// engine can serve concurrent runs sharing the world model graph.
type Engine struct {
	graph      *world.Graph
	recorder   *casefile.Recorder
	registry   *agents.Registry
	classifier *classify.Classifier

	runsDir      string
	phaseTimeout time.Duration // zero disables the per-phase timeout
	configSnap   map[string]string
}

// Options configures an engine.
type Options struct {
	Graph        *world.Graph
	Recorder     *casefile.Recorder
	Registry     *agents.Registry
	Classifier   *classify.Classifier
	RunsDir      string            // empty disables run persistence
	PhaseTimeout time.Duration     // zero disables the per-phase timeout
	ConfigSnap   map[string]string // configuration echoed into incident dossiers
}

// NewEngine wires an engine from its collaborating components.
func NewEngine(opts Options) *Engine {
	classifier := opts.Classifier
	if classifier == nil {
		classifier = classify.NewClassifier(nil)
	}
	return &Engine{
		graph:        opts.Graph,
		recorder:     opts.Recorder,
		registry:     opts.Registry,
		classifier:   classifier,
		runsDir:      opts.RunsDir,
		phaseTimeout: opts.PhaseTimeout,
		configSnap:   opts.ConfigSnap,
	}
}

// Execute runs every phase of the plan in order, aborting on the first
// failure. The returned result always reports how far execution progressed;
// the error mirrors result.Error for callers that prefer error handling.
func (e *Engine) Execute(ctx context.Context, req Request, plan Plan) (RunResult, error) {
	if len(plan.Phases) == 0 {
		return RunResult{}, fmt.Errorf("workflow: plan has no phases")
	}

	category := e.classifier.Classify(req.Text)
	run := &WorkflowRun{
		ID:           uuid.NewString(),
		Request:      req,
		Category:     string(category),
		Status:       RunCreated,
		AgentReports: make(map[string]agents.Report),
		CreatedAt:    time.Now(),
	}

	logging.Workflow("run %s created: %q (%s, %d phases)",
		run.ID, req.Text, category, len(plan.Phases))

	total := len(plan.Phases)
	var runErr error

	for i, descriptor := range plan.Phases {
		// Cancellation is honored at phase boundaries only; an in-flight
		// phase settles before the run ends.
		if err := ctx.Err(); err != nil {
			runErr = &PhaseExecutionError{Phase: descriptor.Name, Agent: descriptor.RequiredAgent, Err: err}
			break
		}

		run.Status = RunRunning
		phase, err := e.executePhase(ctx, run, descriptor)
		run.Phases = append(run.Phases, phase)
		run.Completion = float64(i+1) / float64(total) * 100

		if err != nil {
			runErr = err
			break
		}
	}

	run.EndedAt = time.Now()

	if runErr != nil {
		run.Status = RunFailed
		e.recordIncident(run, category, runErr)
	} else {
		run.Status = RunCompleted
		run.Score = e.scoreRun(run)
	}

	e.updateWorldModel(run)
	e.persistRun(run)

	result := buildResult(run, runErr)
	logging.Workflow("run %s finished: %s (completion %.0f%%)", run.ID, run.Status, run.Completion)
	return result, runErr
}

// executePhase runs one phase: gate first, collaborator second. The
// returned Phase records the outcome either way.
func (e *Engine) executePhase(ctx context.Context, run *WorkflowRun, descriptor PhaseDescriptor) (Phase, error) {
	timer := logging.StartTimer(logging.CategoryWorkflow, "phase "+descriptor.Name)
	defer timer.Stop()

	phase := Phase{
		Name:      descriptor.Name,
		Status:    PhaseRunning,
		StartedAt: time.Now(),
	}
	finish := func(status PhaseStatus) {
		phase.Status = status
		phase.EndedAt = time.Now()
		phase.Duration = phase.EndedAt.Sub(phase.StartedAt)
	}

	validation := constitution.Validate(constitution.Action{
		Type:   descriptor.Name,
		Intent: run.Request.Text,
		Facts:  descriptor.Facts,
	})
	phase.Validation = &validation
	if validation.Veto {
		err := &ValidationViolationError{Phase: descriptor.Name, Result: validation}
		phase.Error = err.Error()
		finish(PhaseFailed)
		return phase, err
	}

	collaborator, err := e.registry.Lookup(descriptor.RequiredAgent)
	if err != nil {
		perr := &PhaseExecutionError{Phase: descriptor.Name, Agent: descriptor.RequiredAgent, Err: err}
		phase.Error = perr.Error()
		finish(PhaseFailed)
		return phase, perr
	}

	callCtx := ctx
	if e.phaseTimeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, e.phaseTimeout)
		defer cancel()
	}

	report, err := collaborator.Execute(callCtx, agents.Request{
		RunID:  run.ID,
		Intent: run.Request.Text,
		Phase:  descriptor.Name,
	})
	if err == nil && report.Status == agents.StatusFailed {
		err = fmt.Errorf("collaborator reported failure")
	}
	if err != nil {
		perr := &PhaseExecutionError{Phase: descriptor.Name, Agent: descriptor.RequiredAgent, Err: err}
		phase.Error = perr.Error()
		finish(PhaseFailed)
		return phase, perr
	}

	run.AgentReports[descriptor.RequiredAgent] = report
	phase.Result = report.Payload
	finish(PhaseCompleted)
	return phase, nil
}

// ============================================================================
// OUTCOME HANDLING
// ============================================================================

// scoreRun derives goal score and confidence from the finished run.
func (e *Engine) scoreRun(run *WorkflowRun) *scoring.Result {
	statuses := make([]string, 0, len(run.AgentReports))
	for _, report := range run.AgentReports {
		statuses = append(statuses, report.Status)
	}

	checklist := scoring.Checklist{
		AllPhasesCompleted:   true,
		ValidationClean:      true,
		CodeGenerated:        reportCompleted(run, agents.NameCodeGenerator),
		TestsGenerated:       reportCompleted(run, agents.NameTestGenerator),
		DeploymentVerified:   reportCompleted(run, agents.NameDeployer),
		DocumentationUpdated: reportCompleted(run, agents.NameDocumenter),
		RepositoryPushed:     reportCompleted(run, agents.NameRepoHygienist),
		WorldModelUpdated:    e.graph != nil,
	}

	quality := 0.0
	if e.graph != nil {
		quality = e.graph.Quality()
	}
	agentAnalysis := scoring.AgentAnalysis{
		Compliant:            true,
		QualityScore:         quality,
		DeploymentVerified:   checklist.DeploymentVerified,
		DocumentationUpdated: checklist.DocumentationUpdated,
	}
	managerAnalysis := scoring.ManagerAnalysis{
		Compliant:        true,
		PlatformDeployed: checklist.DeploymentVerified,
		RepositoryPushed: checklist.RepositoryPushed,
	}

	return &scoring.Result{
		GoalScore:  scoring.GoalScore(statuses, checklist),
		Confidence: scoring.Confidence(agentAnalysis, managerAnalysis),
		Timestamp:  time.Now(),
	}
}

// recordIncident files exactly one case file for the run's triggering
// failure. A persistence failure here is logged but never masks runErr.
func (e *Engine) recordIncident(run *WorkflowRun, category classify.Category, runErr error) {
	if e.recorder == nil {
		return
	}

	kind := casefile.KindSystemAnomaly
	if classify.IncidentWorthy(category) {
		kind = casefile.KindBugReport
	}

	_, err := e.recorder.Create(kind, casefile.Context{
		Intent:      run.Request.Text,
		ComponentID: run.ID,
		Config:      e.configSnap,
		StateSnapshot: map[string]any{
			"status":             string(run.Status),
			"completion":         run.Completion,
			"lastCompletedPhase": lastCompleted(run),
			"error":              runErr.Error(),
		},
	})
	if err != nil {
		logging.Workflow("WARN: incident record for run %s not persisted: %v", run.ID, err)
	}
}

// updateWorldModel reflects the run outcome onto the run's node in the
// graph. Graph errors are logged; they do not change the run outcome.
func (e *Engine) updateWorldModel(run *WorkflowRun) {
	if e.graph == nil {
		return
	}

	status := world.StatusCompleted
	if run.Status == RunFailed {
		status = world.StatusBlocked
	}
	completion := run.Completion

	_, err := e.graph.UpsertNode(world.NodeSpec{
		ID:              "run-" + run.ID,
		Type:            "workflow_run",
		Status:          status,
		PercentComplete: &completion,
		Metadata: map[string]string{
			"category": run.Category,
			"request":  run.Request.Text,
		},
	})
	if err != nil {
		logging.Workflow("WARN: world model update for run %s failed: %v", run.ID, err)
	}
}

func (e *Engine) persistRun(run *WorkflowRun) {
	if e.runsDir == "" {
		return
	}
	path := filepath.Join(e.runsDir, run.ID+".json")
	if err := persist.WriteDocument(path, run); err != nil {
		logging.Workflow("WARN: run %s not persisted: %v", run.ID, err)
	}
}

// ============================================================================
// HELPERS
// ============================================================================

func buildResult(run *WorkflowRun, runErr error) RunResult {
	result := RunResult{
		RunID:              run.ID,
		Success:            run.Status == RunCompleted,
		FinalStatus:        run.Status,
		Completion:         run.Completion,
		Phases:             run.Phases,
		AgentReports:       run.AgentReports,
		Score:              run.Score,
		LastCompletedPhase: lastCompleted(run),
	}
	if runErr != nil {
		result.Error = runErr.Error()
	}
	return result
}

func lastCompleted(run *WorkflowRun) string {
	last := ""
	for _, p := range run.Phases {
		if p.Status == PhaseCompleted {
			last = p.Name
		}
	}
	return last
}

func reportCompleted(run *WorkflowRun, agent string) bool {
	report, ok := run.AgentReports[agent]
	return ok && report.Status == agents.StatusCompleted
}
