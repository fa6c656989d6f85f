// Package agents defines the collaborator boundary: the external workers a
// workflow phase calls out to. The engine treats every collaborator as
// opaque, inspecting only the report status it returns.
package agents

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"maestro/internal/logging"
)

// Report statuses a collaborator may return.
const (
	StatusCompleted = "completed"
	StatusSkipped   = "skipped"
	StatusFailed    = "failed"
)

// Request is the unit of work handed to a collaborator.
type Request struct {
	RunID   string
	Intent  string
	Phase   string
	Payload map[string]any
}

// Report is a collaborator's result. Payload is opaque to the engine.
type Report struct {
	Status  string         `json:"status"`
	Payload map[string]any `json:"payload,omitempty"`
}

// Collaborator is one external capability (generation, deployment,
// documentation, repository hygiene). Execute blocks until the work
// settles or ctx is done.
type Collaborator interface {
	Name() string
	Execute(ctx context.Context, req Request) (Report, error)
}

// ============================================================================
// REGISTRY
// ============================================================================

// Registry resolves collaborator names from a plan to implementations.
type Registry struct {
	mu            sync.RWMutex
	collaborators map[string]Collaborator
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{collaborators: make(map[string]Collaborator)}
}

// Register adds or replaces a collaborator under its name.
func (r *Registry) Register(c Collaborator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.collaborators[c.Name()] = c
}

// Lookup resolves a collaborator by name.
func (r *Registry) Lookup(name string) (Collaborator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.collaborators[name]
	if !ok {
		return nil, fmt.Errorf("agents: no collaborator registered as %q", name)
	}
	return c, nil
}

// Names lists registered collaborators in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.collaborators))
	for name := range r.collaborators {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ============================================================================
// LOCAL COLLABORATORS
// ============================================================================

// Standard collaborator names used by the default plans.
const (
	NameCodeGenerator = "code_generator"
	NameTestGenerator = "test_generator"
	NameDeployer      = "deployer"
	NameDocumenter    = "documenter"
	NameRepoHygienist = "repo_hygienist"
	NameStatusAuditor = "status_auditor"
)

// LocalCollaborator is a deterministic in-process collaborator used when no
// external integration is configured. It completes immediately, honoring
// ctx cancellation, and echoes the request into its payload.
type LocalCollaborator struct {
	name string
}

// NewLocal builds a local collaborator with the given name.
func NewLocal(name string) *LocalCollaborator {
	return &LocalCollaborator{name: name}
}

func (c *LocalCollaborator) Name() string { return c.name }

func (c *LocalCollaborator) Execute(ctx context.Context, req Request) (Report, error) {
	if err := ctx.Err(); err != nil {
		return Report{}, err
	}

	logging.Agents("%s handled phase %s for run %s", c.name, req.Phase, req.RunID)
	return Report{
		Status: StatusCompleted,
		Payload: map[string]any{
			"collaborator": c.name,
			"phase":        req.Phase,
			"intent":       req.Intent,
		},
	}, nil
}

// DefaultRegistry registers the full local collaborator set.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, name := range []string{
		NameCodeGenerator,
		NameTestGenerator,
		NameDeployer,
		NameDocumenter,
		NameRepoHygienist,
		NameStatusAuditor,
	} {
		r.Register(NewLocal(name))
	}
	return r
}
