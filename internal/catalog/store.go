// Package catalog persists recovery run history in a SQLite evidence
// catalog so past runs can be audited after the fact.
package catalog

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Run is one recorded recovery run.
type Run struct {
	ID              string
	StartedAt       time.Time
	Source          string
	OutputDir       string
	FilesScanned    int
	FilesIdentified int
	Truncated       int
	BytesRecovered  int64
	DurationSecs    int64
	TimedOut        bool
}

// File is one recovered file belonging to a run.
type File struct {
	ID         int64
	RunID      string
	Type       string
	SourcePath string
	OutputPath string
	SizeBytes  int64
	Complete   bool
}

// Store manages the SQLite evidence catalog.
type Store struct {
	db     *sql.DB
	dbPath string
}

// Open opens the catalog database at dbPath, creating the file and its
// parent directory on first use, and applies any pending migrations.
func Open(dbPath string) (*Store, error) {
	// In-memory databases have no parent directory to create.
	if dbPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
			return nil, fmt.Errorf("create catalog directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open catalog database: %w", err)
	}

	// Configure SQLite for concurrent access. busy_timeout must come first
	// so the remaining pragmas wait on locks instead of failing. The retry
	// covers "database is locked" races during concurrent initialization of
	// the same catalog file.
	pragmas := []string{
		"PRAGMA busy_timeout=5000",
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
	}

	for _, pragma := range pragmas {
		if err := execWithRetry(db, pragma, 5, 10*time.Millisecond); err != nil {
			db.Close()
			return nil, fmt.Errorf("set %s: %w", pragma, err)
		}
	}

	store := &Store{
		db:     db,
		dbPath: dbPath,
	}

	if err := store.ApplyMigrations(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply migrations: %w", err)
	}

	return store, nil
}

// execWithRetry executes a SQL statement with exponential backoff retry on
// lock errors.
func execWithRetry(db *sql.DB, sql string, maxRetries int, baseDelay time.Duration) error {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		_, err := db.Exec(sql)
		if err == nil {
			return nil
		}

		if !strings.Contains(err.Error(), "database is locked") {
			return err
		}

		lastErr = err
		delay := baseDelay * time.Duration(1<<attempt)
		time.Sleep(delay)
	}
	return lastErr
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Path returns the database path the store was opened with.
func (s *Store) Path() string {
	return s.dbPath
}

// tableExists checks if a table exists in the database.
func (s *Store) tableExists(tableName string) (bool, error) {
	var count int
	query := `SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name=?`
	err := s.db.QueryRow(query, tableName).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check table existence: %w", err)
	}
	return count > 0, nil
}

// indexExists checks if an index exists in the database.
func (s *Store) indexExists(indexName string) (bool, error) {
	var count int
	query := `SELECT COUNT(*) FROM sqlite_master WHERE type='index' AND name=?`
	err := s.db.QueryRow(query, indexName).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check index existence: %w", err)
	}
	return count > 0, nil
}

// RecordRun inserts a run row into the catalog.
func (s *Store) RecordRun(ctx context.Context, run *Run) error {
	if run.ID == "" {
		return fmt.Errorf("record run: missing run id")
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now().UTC()
	}

	query := `INSERT INTO runs
		(id, started_at, source, output_dir, files_scanned, files_identified, truncated, bytes_recovered, duration_seconds, timed_out)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query,
		run.ID,
		run.StartedAt.UTC(),
		run.Source,
		run.OutputDir,
		run.FilesScanned,
		run.FilesIdentified,
		run.Truncated,
		run.BytesRecovered,
		run.DurationSecs,
		run.TimedOut,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// RecordFiles inserts the recovered files of a run in a single transaction.
func (s *Store) RecordFiles(ctx context.Context, runID string, files []File) error {
	if len(files) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback() // no-op if committed

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO recovered_files
		(run_id, type, source_path, output_path, size_bytes, complete)
		VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare file insert: %w", err)
	}
	defer stmt.Close()

	for i := range files {
		f := &files[i]
		result, err := stmt.ExecContext(ctx, runID, f.Type, f.SourcePath, f.OutputPath, f.SizeBytes, f.Complete)
		if err != nil {
			return fmt.Errorf("insert recovered file %s: %w", f.OutputPath, err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("get last insert id: %w", err)
		}
		f.ID = id
		f.RunID = runID
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit file inserts: %w", err)
	}
	return nil
}

// ListRuns retrieves recorded runs ordered by most recent first. A limit of
// zero or less returns every run.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = -1 // SQLite treats a negative LIMIT as unbounded
	}

	query := `SELECT id, started_at, source, output_dir, files_scanned, files_identified, truncated, bytes_recovered, duration_seconds, timed_out
		FROM runs
		ORDER BY started_at DESC, id DESC
		LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run := &Run{}
		err := rows.Scan(
			&run.ID,
			&run.StartedAt,
			&run.Source,
			&run.OutputDir,
			&run.FilesScanned,
			&run.FilesIdentified,
			&run.Truncated,
			&run.BytesRecovered,
			&run.DurationSecs,
			&run.TimedOut,
		)
		if err != nil {
			return nil, fmt.Errorf("scan run row: %w", err)
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate run rows: %w", err)
	}

	return runs, nil
}

// RunFiles retrieves the recovered files recorded for a run, in insertion
// order.
func (s *Store) RunFiles(ctx context.Context, runID string) ([]*File, error) {
	query := `SELECT id, run_id, type, source_path, output_path, size_bytes, complete
		FROM recovered_files
		WHERE run_id = ?
		ORDER BY id ASC`

	rows, err := s.db.QueryContext(ctx, query, runID)
	if err != nil {
		return nil, fmt.Errorf("query recovered files: %w", err)
	}
	defer rows.Close()

	var files []*File
	for rows.Next() {
		f := &File{}
		err := rows.Scan(
			&f.ID,
			&f.RunID,
			&f.Type,
			&f.SourcePath,
			&f.OutputPath,
			&f.SizeBytes,
			&f.Complete,
		)
		if err != nil {
			return nil, fmt.Errorf("scan file row: %w", err)
		}
		files = append(files, f)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate file rows: %w", err)
	}

	return files, nil
}
