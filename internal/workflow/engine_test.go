package workflow

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"maestro/internal/agents"
	"maestro/internal/casefile"
	"maestro/internal/constitution"
	"maestro/internal/world"
)

// stubCollaborator settles immediately unless told to fail or block.
type stubCollaborator struct {
	name  string
	fail  bool
	block bool
}

func (s *stubCollaborator) Name() string { return s.name }

func (s *stubCollaborator) Execute(ctx context.Context, req agents.Request) (agents.Report, error) {
	if s.block {
		<-ctx.Done()
		return agents.Report{}, ctx.Err()
	}
	if s.fail {
		return agents.Report{}, fmt.Errorf("stub failure")
	}
	return agents.Report{Status: agents.StatusCompleted}, nil
}

func testRegistry(stubs ...*stubCollaborator) *agents.Registry {
	r := agents.DefaultRegistry()
	for _, s := range stubs {
		r.Register(s)
	}
	return r
}

func compliantPlan(n int) Plan {
	plan := Plan{}
	for i := 0; i < n; i++ {
		plan.Phases = append(plan.Phases, PhaseDescriptor{
			Name:          fmt.Sprintf("phase-%d", i+1),
			RequiredAgent: agents.NameStatusAuditor,
			Facts:         constitution.CompliantFacts(),
		})
	}
	return plan
}

func testEngine(t *testing.T, registry *agents.Registry) *Engine {
	t.Helper()
	return NewEngine(Options{
		Graph:    world.NewGraph("", ""),
		Recorder: casefile.NewRecorder(t.TempDir(), 10),
		Registry: registry,
	})
}

func request() Request {
	return Request{Text: "fix login bug", Timestamp: time.Now(), Source: "test"}
}

func TestSuccessfulRunCompletesEveryPhase(t *testing.T) {
	e := testEngine(t, testRegistry())

	result, err := e.Execute(context.Background(), request(), DefaultPlan("bug_fix"))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if !result.Success || result.FinalStatus != RunCompleted {
		t.Fatalf("expected completed run: %+v", result)
	}
	for _, p := range result.Phases {
		if p.Status != PhaseCompleted {
			t.Errorf("phase %s not completed: %s", p.Name, p.Status)
		}
	}
	if result.Score == nil {
		t.Fatal("completed run must carry a score")
	}
	if result.Score.GoalScore < 0 || result.Score.GoalScore > 100 {
		t.Errorf("goal score out of range: %d", result.Score.GoalScore)
	}
}

func TestCompletionFormula(t *testing.T) {
	// Fail at phase k of n: completion must be exactly k/n*100 and no
	// later phase may be attempted.
	for n := 1; n <= 5; n++ {
		for k := 1; k <= n; k++ {
			failing := &stubCollaborator{name: "failing", fail: true}
			registry := testRegistry(failing)

			plan := compliantPlan(n)
			plan.Phases[k-1].RequiredAgent = "failing"

			e := testEngine(t, registry)
			result, err := e.Execute(context.Background(), request(), plan)
			if err == nil {
				t.Fatalf("n=%d k=%d: expected failure", n, k)
			}

			var perr *PhaseExecutionError
			if !errors.As(err, &perr) {
				t.Fatalf("n=%d k=%d: expected PhaseExecutionError, got %T", n, k, err)
			}
			if len(result.Phases) != k {
				t.Errorf("n=%d k=%d: %d phases attempted, want %d", n, k, len(result.Phases), k)
			}

			want := float64(k) / float64(n) * 100
			if result.Completion != want {
				t.Errorf("n=%d k=%d: completion %f, want %f", n, k, result.Completion, want)
			}
		}
	}
}

func TestFailureAbortsRemainingPhases(t *testing.T) {
	failing := &stubCollaborator{name: "failing", fail: true}
	plan := compliantPlan(4)
	plan.Phases[1].RequiredAgent = "failing"

	e := testEngine(t, testRegistry(failing))
	result, err := e.Execute(context.Background(), request(), plan)
	if err == nil {
		t.Fatal("expected failure")
	}

	if result.Success || result.FinalStatus != RunFailed {
		t.Errorf("run should be failed: %+v", result)
	}
	if result.Score != nil {
		t.Error("failed run must not carry a score")
	}
	if result.LastCompletedPhase != "phase-1" {
		t.Errorf("last completed phase: got %q, want phase-1", result.LastCompletedPhase)
	}
	if len(result.Phases) != 2 {
		t.Errorf("phases after the failure must not be attempted, got %d records", len(result.Phases))
	}
	if result.Error == "" {
		t.Error("failed result must surface the error")
	}
}

func TestVetoFilesIncidentAndFailsRun(t *testing.T) {
	dir := t.TempDir()
	recorder := casefile.NewRecorder(dir, 10)
	e := NewEngine(Options{
		Graph:    world.NewGraph("", ""),
		Recorder: recorder,
		Registry: testRegistry(),
	})

	plan := compliantPlan(2)
	plan.Phases[0].Facts[constitution.FactLiveVerified] = false

	result, err := e.Execute(context.Background(), request(), plan)

	var verr *ValidationViolationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationViolationError, got %v", err)
	}
	if len(verr.Result.Violations) != 1 {
		t.Errorf("expected exactly one violation, got %d", len(verr.Result.Violations))
	}
	if result.FinalStatus != RunFailed {
		t.Errorf("vetoed run must fail, got %s", result.FinalStatus)
	}

	incidents, err := recorder.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(incidents) != 1 {
		t.Fatalf("expected exactly one incident, got %d", len(incidents))
	}
	if incidents[0].Status != casefile.StatusOpen {
		t.Errorf("incident should open as Open, got %s", incidents[0].Status)
	}
	if len(incidents[0].Dossier.Logs) == 0 {
		t.Error("incident dossier should carry a log excerpt")
	}
	if incidents[0].Kind != casefile.KindBugReport {
		t.Errorf("bug-fix request should file a bug report, got %s", incidents[0].Kind)
	}
}

func TestCancellationStopsAtPhaseBoundary(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	e := testEngine(t, testRegistry())
	result, err := e.Execute(ctx, request(), compliantPlan(3))
	if err == nil {
		t.Fatal("expected cancellation error")
	}
	if result.FinalStatus != RunFailed {
		t.Errorf("cancelled run should fail, got %s", result.FinalStatus)
	}
	if len(result.Phases) != 0 {
		t.Errorf("no phase should start after cancellation, got %d", len(result.Phases))
	}
}

func TestPhaseTimeoutBoundsStalledCollaborator(t *testing.T) {
	stalled := &stubCollaborator{name: "stalled", block: true}
	plan := compliantPlan(1)
	plan.Phases[0].RequiredAgent = "stalled"

	e := NewEngine(Options{
		Graph:        world.NewGraph("", ""),
		Recorder:     casefile.NewRecorder(t.TempDir(), 10),
		Registry:     testRegistry(stalled),
		PhaseTimeout: 20 * time.Millisecond,
	})

	done := make(chan struct{})
	var err error
	go func() {
		_, err = e.Execute(context.Background(), request(), plan)
		close(done)
	}()

	select {
	case <-done:
		if err == nil {
			t.Fatal("expected timeout failure")
		}
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("expected deadline error, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("phase timeout did not fire")
	}
}

func TestRunUpdatesWorldModel(t *testing.T) {
	g := world.NewGraph("", "")
	e := NewEngine(Options{
		Graph:    g,
		Recorder: casefile.NewRecorder(t.TempDir(), 10),
		Registry: testRegistry(),
	})

	result, err := e.Execute(context.Background(), request(), compliantPlan(2))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	node, ok := g.Node("run-" + result.RunID)
	if !ok {
		t.Fatal("run should be reflected in the world model")
	}
	if node.Status != world.StatusCompleted || node.PercentComplete != 100 {
		t.Errorf("node outcome mismatch: %+v", node)
	}
}

func TestEmptyPlanRejected(t *testing.T) {
	e := testEngine(t, testRegistry())
	if _, err := e.Execute(context.Background(), request(), Plan{}); err == nil {
		t.Error("empty plan must be rejected")
	}
}
