// Package tracker is the request history repository: every incoming
// request is keyed, deduplicated and counted in sqlite so the scoring
// engine can estimate unresolved likelihood from an explicit snapshot
// instead of ambient module state.
package tracker

import (
	"database/sql"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"maestro/internal/logging"
	"maestro/internal/scoring"
)

// Repository stores request history in a local sqlite database.
type Repository struct {
	mu sync.Mutex
	db *sql.DB
}

// Open creates or opens the tracker database at path and applies the
// schema.
func Open(path string) (*Repository, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("tracker: open %s: %w", path, err)
	}

	r := &Repository{db: db}
	if err := r.migrate(); err != nil {
		db.Close()
		return nil, err
	}
	logging.Get(logging.CategoryTracker).Info("tracker database ready at %s", filepath.Clean(path))
	return r, nil
}

func (r *Repository) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS requests (
		key                   TEXT PRIMARY KEY,
		text                  TEXT NOT NULL,
		repetition_count      INTEGER NOT NULL DEFAULT 1,
		is_critique           INTEGER NOT NULL DEFAULT 0,
		open_todo             INTEGER NOT NULL DEFAULT 0,
		next_steps_repetition INTEGER NOT NULL DEFAULT 0,
		first_seen            TEXT NOT NULL,
		last_seen             TEXT NOT NULL
	);
	`
	if _, err := r.db.Exec(schema); err != nil {
		return fmt.Errorf("tracker: migrate: %w", err)
	}
	return nil
}

// Close releases the underlying database.
func (r *Repository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.db.Close()
}

// Key normalizes request text into the dedup key: lowercased, whitespace
// collapsed.
func Key(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

// Observe records one sighting of a request. A repeated key increments its
// repetition count; the critique flag reflects the latest sighting. The
// returned record is the aggregated history ready for scoring.
func (r *Repository) Observe(text string, isCritique bool) (scoring.RequestRecord, error) {
	key := Key(text)
	if key == "" {
		return scoring.RequestRecord{}, fmt.Errorf("tracker: empty request text")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now().UTC().Format(time.RFC3339)
	critique := 0
	if isCritique {
		critique = 1
	}

	_, err := r.db.Exec(`
		INSERT INTO requests (key, text, repetition_count, is_critique, first_seen, last_seen)
		VALUES (?, ?, 1, ?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET
			repetition_count = repetition_count + 1,
			is_critique      = excluded.is_critique,
			last_seen        = excluded.last_seen
	`, key, text, critique, now, now)
	if err != nil {
		return scoring.RequestRecord{}, fmt.Errorf("tracker: observe %q: %w", key, err)
	}

	rec, err := r.getLocked(key)
	if err != nil {
		return scoring.RequestRecord{}, err
	}
	logging.Get(logging.CategoryTracker).Info("observed request %q (repetition %d)", key, rec.RepetitionCount)
	return rec, nil
}

// SetOpenTodo marks whether an unchecked to-do matches the request.
func (r *Repository) SetOpenTodo(key string, open bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.setIntLocked(key, "open_todo", boolToInt(open))
}

// BumpNextSteps increments the repetition count of the matching next-steps
// entry.
func (r *Repository) BumpNextSteps(key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, err := r.db.Exec(`UPDATE requests SET next_steps_repetition = next_steps_repetition + 1 WHERE key = ?`, key)
	if err != nil {
		return fmt.Errorf("tracker: bump next steps for %q: %w", key, err)
	}
	return requireRow(res, key)
}

// Get returns the aggregated record for a key.
func (r *Repository) Get(key string) (scoring.RequestRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.getLocked(key)
}

// All returns every tracked request, most recently seen first.
func (r *Repository) All() ([]scoring.RequestRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rows, err := r.db.Query(`
		SELECT key, text, repetition_count, is_critique, open_todo, next_steps_repetition, first_seen, last_seen
		FROM requests ORDER BY last_seen DESC`)
	if err != nil {
		return nil, fmt.Errorf("tracker: list: %w", err)
	}
	defer rows.Close()

	var out []scoring.RequestRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *Repository) getLocked(key string) (scoring.RequestRecord, error) {
	row := r.db.QueryRow(`
		SELECT key, text, repetition_count, is_critique, open_todo, next_steps_repetition, first_seen, last_seen
		FROM requests WHERE key = ?`, key)
	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return scoring.RequestRecord{}, fmt.Errorf("tracker: unknown request %q", key)
	}
	return rec, err
}

func (r *Repository) setIntLocked(key, column string, value int) error {
	res, err := r.db.Exec(fmt.Sprintf(`UPDATE requests SET %s = ? WHERE key = ?`, column), value, key)
	if err != nil {
		return fmt.Errorf("tracker: update %s for %q: %w", column, key, err)
	}
	return requireRow(res, key)
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (scoring.RequestRecord, error) {
	var rec scoring.RequestRecord
	var critique, todo int
	var firstSeen, lastSeen string

	err := row.Scan(&rec.Key, &rec.Text, &rec.RepetitionCount, &critique, &todo,
		&rec.NextStepsRepetition, &firstSeen, &lastSeen)
	if err != nil {
		return scoring.RequestRecord{}, err
	}

	rec.IsCritique = critique != 0
	rec.OpenTodo = todo != 0
	rec.FirstSeen, _ = time.Parse(time.RFC3339, firstSeen)
	rec.LastSeen, _ = time.Parse(time.RFC3339, lastSeen)
	return rec, nil
}

func requireRow(res sql.Result, key string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("tracker: unknown request %q", key)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
