package workflow

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"maestro/internal/logging"
)

// Manager fans independent requests out to concurrent runs over one shared
// engine. Runs never share state except the world model graph, which
// serializes its own mutations.
type Manager struct {
	engine  *Engine
	maxRuns int
	planFor func(Request) Plan
}

// NewManager bounds concurrency at maxRuns (minimum 1). planFor maps each
// request to its plan; nil uses the default category plans.
func NewManager(engine *Engine, maxRuns int, planFor func(Request) Plan) *Manager {
	if maxRuns < 1 {
		maxRuns = 1
	}
	if planFor == nil {
		planFor = func(req Request) Plan {
			return DefaultPlan(engine.classifier.Classify(req.Text))
		}
	}
	return &Manager{engine: engine, maxRuns: maxRuns, planFor: planFor}
}

// ExecuteAll runs every request and returns the results in request order.
// Individual run failures do not cancel sibling runs; the first error is
// returned after all runs settle.
func (m *Manager) ExecuteAll(ctx context.Context, requests []Request) ([]RunResult, error) {
	results := make([]RunResult, len(requests))

	g := &errgroup.Group{}
	g.SetLimit(m.maxRuns)

	var firstErr error
	var errMu sync.Mutex

	for i, req := range requests {
		i, req := i, req
		g.Go(func() error {
			result, err := m.engine.Execute(ctx, req, m.planFor(req))
			results[i] = result
			if err != nil {
				logging.Workflow("manager: run for %q failed: %v", req.Text, err)
				errMu.Lock()
				if firstErr == nil {
					firstErr = err
				}
				errMu.Unlock()
			}
			return nil
		})
	}

	g.Wait()
	return results, firstErr
}
