package casefile

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"maestro/internal/logging"
)

func TestCreateStartsOpenWithPopulatedDossier(t *testing.T) {
	logging.ResetRing()
	logging.Workflow("phase deploy failed: connection refused")

	r := NewRecorder(t.TempDir(), 20)
	cf, err := r.Create(KindBugReport, Context{
		Intent:      "fix login bug",
		ComponentID: "run-42",
		Config:      map[string]string{"phase_timeout": "5m"},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if cf.Status != StatusOpen {
		t.Errorf("new case file must be open, got %s", cf.Status)
	}
	if cf.ID == "" {
		t.Error("case file needs an id")
	}
	if len(cf.Dossier.Logs) == 0 {
		t.Error("dossier should capture a log excerpt")
	}
	if cf.Dossier.Environment.OS == "" || cf.Dossier.Environment.GoVersion == "" {
		t.Errorf("dossier missing environment metadata: %+v", cf.Dossier.Environment)
	}
	if cf.Dossier.Intent != "fix login bug" || cf.Dossier.ComponentID != "run-42" {
		t.Errorf("dossier context mismatch: %+v", cf.Dossier)
	}
}

func TestUpdateStatusLeavesDossierUntouched(t *testing.T) {
	r := NewRecorder(t.TempDir(), 5)
	cf, err := r.Create(KindSystemAnomaly, Context{Intent: "deploy", ComponentID: "run-7"})
	if err != nil {
		t.Fatal(err)
	}

	updated, err := r.UpdateStatus(cf.ID, StatusInProgress, "assigned to platform team")
	if err != nil {
		t.Fatalf("UpdateStatus: %v", err)
	}

	if updated.Status != StatusInProgress {
		t.Errorf("status not updated: %s", updated.Status)
	}
	if updated.ResolutionNotes != "assigned to platform team" {
		t.Errorf("notes not updated: %s", updated.ResolutionNotes)
	}
	if diff := cmp.Diff(cf.Dossier, updated.Dossier); diff != "" {
		t.Errorf("dossier mutated by status update (-created +updated):\n%s", diff)
	}
}

func TestUpdateStatusRejectsUnknownStatus(t *testing.T) {
	r := NewRecorder(t.TempDir(), 5)
	cf, err := r.Create(KindFeatureRequest, Context{Intent: "x", ComponentID: "run-1"})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := r.UpdateStatus(cf.ID, Status("resolved_maybe"), ""); err == nil {
		t.Error("expected rejection of unknown status")
	}
}

func TestGetRoundTrips(t *testing.T) {
	r := NewRecorder(t.TempDir(), 5)
	created, err := r.Create(KindBugReport, Context{Intent: "x", ComponentID: "run-1"})
	if err != nil {
		t.Fatal(err)
	}

	loaded, err := r.Get(created.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if loaded.ID != created.ID || loaded.Kind != created.Kind {
		t.Errorf("round trip mismatch: %+v", loaded)
	}
}

func TestListNewestFirst(t *testing.T) {
	r := NewRecorder(t.TempDir(), 5)

	first, err := r.Create(KindBugReport, Context{Intent: "a", ComponentID: "run-1"})
	if err != nil {
		t.Fatal(err)
	}
	time.Sleep(5 * time.Millisecond)
	second, err := r.Create(KindBugReport, Context{Intent: "b", ComponentID: "run-2"})
	if err != nil {
		t.Fatal(err)
	}

	all, err := r.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 case files, got %d", len(all))
	}
	if all[0].ID != second.ID || all[1].ID != first.ID {
		t.Error("list should be newest first")
	}
}

func TestListEmptyDirectory(t *testing.T) {
	r := NewRecorder(t.TempDir()+"/never-created", 5)
	all, err := r.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 0 {
		t.Errorf("expected no case files, got %d", len(all))
	}
}
