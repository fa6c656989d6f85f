package persist

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

type doc struct {
	ID    string `json:"id"`
	Value int    `json:"value"`
}

func TestWriteAndReadDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "doc.json")
	if err := WriteDocument(path, doc{ID: "a", Value: 7}); err != nil {
		t.Fatalf("WriteDocument: %v", err)
	}

	var got doc
	if err := ReadDocument(path, &got); err != nil {
		t.Fatalf("ReadDocument: %v", err)
	}
	if got.ID != "a" || got.Value != 7 {
		t.Errorf("round trip mismatch: %+v", got)
	}
}

func TestWriteWithBackupRotatesSingleSlot(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "graph.json")
	backup := filepath.Join(dir, "graph.backup.json")

	// First write: no previous snapshot, no backup created.
	if err := WriteWithBackup(path, backup, doc{ID: "v1"}); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if _, err := os.Stat(backup); !os.IsNotExist(err) {
		t.Fatal("backup should not exist after first write")
	}

	if err := WriteWithBackup(path, backup, doc{ID: "v2"}); err != nil {
		t.Fatalf("second write: %v", err)
	}
	if err := WriteWithBackup(path, backup, doc{ID: "v3"}); err != nil {
		t.Fatalf("third write: %v", err)
	}

	var cur, prev doc
	if err := ReadDocument(path, &cur); err != nil {
		t.Fatalf("read current: %v", err)
	}
	if err := ReadDocument(backup, &prev); err != nil {
		t.Fatalf("read backup: %v", err)
	}
	// One level of history only: backup holds v2, not v1.
	if cur.ID != "v3" || prev.ID != "v2" {
		t.Errorf("rotation mismatch: current=%s backup=%s", cur.ID, prev.ID)
	}
}

func TestWriteDocumentReportsTypedError(t *testing.T) {
	err := WriteDocument(filepath.Join(t.TempDir(), "x.json"), make(chan int))
	var perr *Error
	if !errors.As(err, &perr) {
		t.Fatalf("expected *persist.Error, got %T", err)
	}
}
