// Package casefile records incidents: immutable dossiers captured at the
// moment a run fails or a validation veto fires. A case file's dossier is
// frozen at creation; only the status and resolution notes move afterward.
package casefile

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"maestro/internal/logging"
	"maestro/internal/persist"
)

// ============================================================================
// TYPES
// ============================================================================

// Kind classifies what the case file records.
type Kind string

const (
	KindBugReport      Kind = "bug_report"
	KindFeatureRequest Kind = "feature_request"
	KindSystemAnomaly  Kind = "system_anomaly"
)

// Status is the remediation lifecycle of a case file.
type Status string

const (
	StatusOpen              Status = "open"
	StatusInProgress        Status = "in_progress"
	StatusPendingValidation Status = "pending_validation"
	StatusClosed            Status = "closed"
)

// Dossier is the evidence captured when the case file is created. It is
// never mutated afterward.
type Dossier struct {
	Intent        string            `json:"intent"`
	ComponentID   string            `json:"componentId"`
	Config        map[string]string `json:"config,omitempty"`
	StateSnapshot map[string]any    `json:"stateSnapshot,omitempty"`
	Logs          []string          `json:"logs"`
	Environment   Environment       `json:"environment"`
}

// Environment is the process and platform metadata stamped into a dossier.
type Environment struct {
	Hostname  string `json:"hostname"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
	GoVersion string `json:"goVersion"`
	PID       int    `json:"pid"`
}

// CaseFile is one recorded incident.
type CaseFile struct {
	ID              string    `json:"id"`
	Kind            Kind      `json:"kind"`
	Status          Status    `json:"status"`
	Dossier         Dossier   `json:"dossier"`
	ResolutionNotes string    `json:"resolutionNotes,omitempty"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`
}

// Context is what the caller knows at the moment of failure. The recorder
// fills in logs and environment itself.
type Context struct {
	Intent        string
	ComponentID   string
	Config        map[string]string
	StateSnapshot map[string]any
}

// ============================================================================
// RECORDER
// ============================================================================

// Recorder creates and updates case files under a single directory, one
// JSON document per incident.
type Recorder struct {
	mu         sync.Mutex
	dir        string
	logExcerpt int
	now        func() time.Time
}

// NewRecorder writes case files under dir, capturing the last logExcerpt
// in-memory log entries into each dossier.
func NewRecorder(dir string, logExcerpt int) *Recorder {
	return &Recorder{
		dir:        dir,
		logExcerpt: logExcerpt,
		now:        time.Now,
	}
}

// Create records a new incident. The returned case file always starts Open.
// A persistence failure is logged and reported in the error, but the case
// file itself is still returned so the triggering failure is never masked.
func (r *Recorder) Create(kind Kind, ctx Context) (CaseFile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	hostname, _ := os.Hostname()
	now := r.now()

	cf := CaseFile{
		ID:     uuid.NewString(),
		Kind:   kind,
		Status: StatusOpen,
		Dossier: Dossier{
			Intent:        ctx.Intent,
			ComponentID:   ctx.ComponentID,
			Config:        ctx.Config,
			StateSnapshot: ctx.StateSnapshot,
			Logs:          logging.Recent(r.logExcerpt),
			Environment: Environment{
				Hostname:  hostname,
				OS:        runtime.GOOS,
				Arch:      runtime.GOARCH,
				GoVersion: runtime.Version(),
				PID:       os.Getpid(),
			},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}

	logging.CaseFile("created %s case file %s for component %s", kind, cf.ID, ctx.ComponentID)

	if err := persist.WriteDocument(r.path(cf.ID), cf); err != nil {
		logging.CaseFile("WARN: failed to persist case file %s: %v", cf.ID, err)
		return cf, err
	}
	return cf, nil
}

// UpdateStatus moves a case file through its lifecycle. Only status and
// resolution notes change; the dossier stays as captured.
func (r *Recorder) UpdateStatus(id string, status Status, notes string) (CaseFile, error) {
	switch status {
	case StatusOpen, StatusInProgress, StatusPendingValidation, StatusClosed:
	default:
		return CaseFile{}, fmt.Errorf("casefile: unknown status %q", status)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var cf CaseFile
	if err := persist.ReadDocument(r.path(id), &cf); err != nil {
		return CaseFile{}, fmt.Errorf("casefile: load %s: %w", id, err)
	}

	cf.Status = status
	if notes != "" {
		cf.ResolutionNotes = notes
	}
	cf.UpdatedAt = r.now()

	if err := persist.WriteDocument(r.path(id), cf); err != nil {
		return CaseFile{}, err
	}
	logging.CaseFile("case file %s -> %s", id, status)
	return cf, nil
}

// Get loads a single case file by id.
func (r *Recorder) Get(id string) (CaseFile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var cf CaseFile
	if err := persist.ReadDocument(r.path(id), &cf); err != nil {
		return CaseFile{}, fmt.Errorf("casefile: load %s: %w", id, err)
	}
	return cf, nil
}

// List returns all recorded case files, newest first.
func (r *Recorder) List() ([]CaseFile, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries, err := os.ReadDir(r.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var out []CaseFile
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}
		var cf CaseFile
		if err := persist.ReadDocument(filepath.Join(r.dir, entry.Name()), &cf); err != nil {
			logging.CaseFile("WARN: skipping unreadable case file %s: %v", entry.Name(), err)
			continue
		}
		out = append(out, cf)
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *Recorder) path(id string) string {
	return filepath.Join(r.dir, id+".json")
}
