// Package persist writes the JSON documents maestro keeps on disk:
// workflow runs, case files and world model snapshots. Documents use
// stable field names, RFC 3339 timestamps and string status enums.
package persist

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Error wraps a failed snapshot or record write. Callers decide whether a
// persistence failure is fatal; for incident records it never is.
type Error struct {
	Path string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("persistence failed for %s: %v", e.Path, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// WriteDocument marshals v with indentation and writes it to path,
// creating parent directories as needed.
func WriteDocument(path string, v interface{}) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return &Error{Path: path, Err: err}
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return &Error{Path: path, Err: err}
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return &Error{Path: path, Err: err}
	}
	return nil
}

// WriteWithBackup rotates the current document at path into backupPath
// (one level of history, overwritten each time) and then writes v to path.
func WriteWithBackup(path, backupPath string, v interface{}) error {
	if prev, err := os.ReadFile(path); err == nil {
		if err := os.MkdirAll(filepath.Dir(backupPath), 0755); err != nil {
			return &Error{Path: backupPath, Err: err}
		}
		if err := os.WriteFile(backupPath, prev, 0644); err != nil {
			return &Error{Path: backupPath, Err: err}
		}
	} else if !os.IsNotExist(err) {
		return &Error{Path: path, Err: err}
	}
	return WriteDocument(path, v)
}

// IsNotExist reports whether err means the document has never been written.
func IsNotExist(err error) bool {
	return os.IsNotExist(err)
}

// ReadDocument unmarshals the JSON document at path into v.
func ReadDocument(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}
