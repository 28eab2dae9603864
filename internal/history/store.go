// Package history persists finished QA sessions in a local SQLite database
// so comparison tables can be listed and re-opened later.
package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"docqa/internal/domain"
	"docqa/internal/evaluator"
	"docqa/internal/history/migrations"
)

// ErrNotFound is returned when a session id is not in the history.
var ErrNotFound = errors.New("session not found")

// Entry is the listing view of one stored session.
type Entry struct {
	ID         string            `json:"id"`
	StartedAt  time.Time         `json:"started_at"`
	FinishedAt time.Time         `json:"finished_at"`
	Categories []domain.Category `json:"categories"`
	Rows       int               `json:"rows"`
}

// Session is a stored session with its results and comparison table.
type Session struct {
	Entry
	Results *domain.SessionResults     `json:"results"`
	Table   *evaluator.ComparisonTable `json:"table"`
}

// Store is a SQLite-backed session history.
type Store struct {
	db   *sql.DB
	path string
}

// Open opens (creating if needed) the history database at path.
func Open(path string) (*Store, error) {
	if path == "" {
		return nil, errors.New("history path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("creating history directory: %w", err)
	}
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	s := &Store{db: db, path: path}
	if err := s.migrate(migrations.FS); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) migrate(fsys fs.FS) error {
	if _, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	var current int
	if err := s.db.QueryRow("SELECT COALESCE(MAX(version), 0) FROM schema_migrations").Scan(&current); err != nil {
		return fmt.Errorf("getting current version: %w", err)
	}

	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}
	var names []string
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".up.sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		var version int
		if _, err := fmt.Sscanf(name, "%d_", &version); err != nil || version <= current {
			continue
		}
		content, err := fs.ReadFile(fsys, name)
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", name, err)
		}
		if _, err := s.db.Exec(string(content)); err != nil {
			return fmt.Errorf("executing migration %s: %w", name, err)
		}
		if _, err := s.db.Exec("INSERT INTO schema_migrations (version) VALUES (?)", version); err != nil {
			return fmt.Errorf("recording migration %s: %w", name, err)
		}
	}
	return nil
}

// SaveSession stores results and their table under results.ID, replacing
// any earlier copy.
func (s *Store) SaveSession(ctx context.Context, results *domain.SessionResults, table *evaluator.ComparisonTable) error {
	if results == nil || results.ID == "" {
		return errors.New("session results without id")
	}
	if table == nil {
		table = evaluator.GenerateComparisonTable(results)
	}
	resultsJSON, err := json.Marshal(results)
	if err != nil {
		return fmt.Errorf("marshalling results: %w", err)
	}
	tableJSON, err := json.Marshal(table)
	if err != nil {
		return fmt.Errorf("marshalling table: %w", err)
	}
	cats := make([]string, 0, len(table.Categories))
	for _, c := range table.Categories {
		cats = append(cats, string(c))
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (id, started_at, finished_at, categories, row_count, results, comparison)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			started_at = excluded.started_at,
			finished_at = excluded.finished_at,
			categories = excluded.categories,
			row_count = excluded.row_count,
			results = excluded.results,
			comparison = excluded.comparison
	`, results.ID, formatTime(results.StartedAt), formatTime(results.FinishedAt),
		strings.Join(cats, ","), len(table.Rows), string(resultsJSON), string(tableJSON))
	if err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}

// ListSessions returns stored sessions, newest first. limit <= 0 means all.
func (s *Store) ListSessions(ctx context.Context, limit int) ([]Entry, error) {
	query := `SELECT id, started_at, finished_at, categories, row_count FROM sessions ORDER BY started_at DESC, id`
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var started, finished, cats string
		if err := rows.Scan(&e.ID, &started, &finished, &cats, &e.Rows); err != nil {
			return nil, fmt.Errorf("scanning session: %w", err)
		}
		if err := e.fill(started, finished, cats); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// GetSession loads one stored session.
func (s *Store) GetSession(ctx context.Context, id string) (*Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, started_at, finished_at, categories, row_count, results, comparison
		FROM sessions WHERE id = ?
	`, id)

	var sess Session
	var started, finished, cats, resultsJSON, tableJSON string
	if err := row.Scan(&sess.ID, &started, &finished, &cats, &sess.Rows, &resultsJSON, &tableJSON); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return nil, fmt.Errorf("scanning session: %w", err)
	}
	if err := sess.fill(started, finished, cats); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(resultsJSON), &sess.Results); err != nil {
		return nil, fmt.Errorf("unmarshalling results: %w", err)
	}
	if err := json.Unmarshal([]byte(tableJSON), &sess.Table); err != nil {
		return nil, fmt.Errorf("unmarshalling table: %w", err)
	}
	return &sess, nil
}

// DeleteSession removes a stored session.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM sessions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

func (e *Entry) fill(started, finished, cats string) error {
	var err error
	if e.StartedAt, err = parseTime(started); err != nil {
		return err
	}
	if e.FinishedAt, err = parseTime(finished); err != nil {
		return err
	}
	e.Categories = nil
	for _, name := range strings.Split(cats, ",") {
		if name != "" {
			e.Categories = append(e.Categories, domain.Category(name))
		}
	}
	return nil
}

// timeLayout is fixed width so stored timestamps sort as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing time %q: %w", s, err)
	}
	return t, nil
}
