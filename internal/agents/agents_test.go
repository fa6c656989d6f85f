package agents

import (
	"context"
	"testing"
)

func TestRegistryLookup(t *testing.T) {
	r := DefaultRegistry()

	c, err := r.Lookup(NameDeployer)
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if c.Name() != NameDeployer {
		t.Errorf("wrong collaborator: %s", c.Name())
	}

	if _, err := r.Lookup("nonexistent"); err == nil {
		t.Error("expected error for unregistered collaborator")
	}
}

func TestRegistryNamesSorted(t *testing.T) {
	r := DefaultRegistry()
	names := r.Names()
	if len(names) != 6 {
		t.Fatalf("expected 6 collaborators, got %d", len(names))
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] >= names[i] {
			t.Errorf("names not sorted: %v", names)
		}
	}
}

func TestLocalCollaboratorCompletes(t *testing.T) {
	c := NewLocal(NameCodeGenerator)

	report, err := c.Execute(context.Background(), Request{
		RunID:  "run-1",
		Intent: "add endpoint",
		Phase:  "generation",
	})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if report.Status != StatusCompleted {
		t.Errorf("status: got %s", report.Status)
	}
	if report.Payload["phase"] != "generation" {
		t.Errorf("payload should echo the phase: %v", report.Payload)
	}
}

func TestLocalCollaboratorHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := NewLocal(NameDeployer)
	if _, err := c.Execute(ctx, Request{RunID: "run-1"}); err == nil {
		t.Error("expected context error after cancellation")
	}
}
