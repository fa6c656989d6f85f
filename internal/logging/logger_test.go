package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestInitializeRequiresWorkspace(t *testing.T) {
	if err := Initialize("", Settings{}); err == nil {
		t.Fatal("expected error for empty workspace")
	}
}

func TestProductionModeWritesNoFiles(t *testing.T) {
	dir := t.TempDir()
	if err := Initialize(dir, Settings{DebugMode: false}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	defer CloseAll()

	Workflow("should not touch disk")

	if _, err := os.Stat(filepath.Join(dir, ".maestro", "logs")); !os.IsNotExist(err) {
		t.Error("logs directory should not exist in production mode")
	}
}

func TestDebugModeCreatesCategoryFile(t *testing.T) {
	dir := t.TempDir()
	if err := Initialize(dir, Settings{DebugMode: true, Level: "debug"}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	defer CloseAll()

	Get(CategoryWorld).Info("node upserted")
	CloseAll()

	entries, err := os.ReadDir(filepath.Join(dir, ".maestro", "logs"))
	if err != nil {
		t.Fatalf("ReadDir: %v", err)
	}
	found := false
	for _, e := range entries {
		if strings.Contains(e.Name(), "world") {
			found = true
		}
	}
	if !found {
		t.Error("expected a world category log file")
	}
}

func TestCategoryFilter(t *testing.T) {
	dir := t.TempDir()
	err := Initialize(dir, Settings{
		DebugMode:  true,
		Categories: map[string]bool{"tracker": false},
	})
	if err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	defer CloseAll()

	if IsCategoryEnabled(CategoryTracker) {
		t.Error("tracker category should be disabled")
	}
	if !IsCategoryEnabled(CategoryWorkflow) {
		t.Error("unlisted categories should default to enabled")
	}
}

func TestRecentRing(t *testing.T) {
	ResetRing()
	dir := t.TempDir()
	if err := Initialize(dir, Settings{DebugMode: false}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	Get(CategoryWorkflow).Info("first")
	Get(CategoryWorkflow).Info("second")
	Get(CategoryWorkflow).Error("third")

	recent := Recent(2)
	if len(recent) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(recent))
	}
	if !strings.Contains(recent[0], "second") || !strings.Contains(recent[1], "third") {
		t.Errorf("unexpected ring order: %v", recent)
	}
}

func TestRecentRingWraps(t *testing.T) {
	ResetRing()
	for i := 0; i < ringSize+10; i++ {
		record("entry")
	}
	if got := len(Recent(ringSize * 2)); got != ringSize {
		t.Errorf("ring should cap at %d entries, got %d", ringSize, got)
	}
}
