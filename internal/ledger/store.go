package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"hlsladder/internal/config"
	"hlsladder/internal/services"
)

// Store manages ledger persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the ledger database at cfg.Paths.LedgerPath.
func Open(cfg *config.Config) (*Store, error) {
	if cfg == nil {
		return nil, services.Wrap(services.ErrConfiguration, "ledger", "open", "config is nil", nil)
	}
	return OpenPath(cfg.Paths.LedgerPath)
}

// OpenPath opens the ledger at an explicit path.
func OpenPath(dbPath string) (*Store, error) {
	if strings.TrimSpace(dbPath) == "" {
		return nil, services.Wrap(services.ErrConfiguration, "ledger", "open", "ledger path is empty", nil)
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, services.Wrap(services.ErrFilesystem, "ledger", "create directory", filepath.Dir(dbPath), err)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// BeginRun inserts a run in the running state.
func (s *Store) BeginRun(ctx context.Context, run Run) error {
	if strings.TrimSpace(run.ID) == "" {
		return errors.New("run id is required")
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, course, lesson, input_path, status, renditions_total, started_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		run.ID,
		run.Course,
		run.Lesson,
		nullableString(run.InputPath),
		RunRunning,
		run.RenditionsTotal,
		formatTime(run.StartedAt),
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// FinishRun records the terminal state and counters of a run.
func (s *Store) FinishRun(ctx context.Context, runID string, summary Summary) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs
         SET status = ?, error_message = ?, renditions_total = ?, renditions_failed = ?,
             uploads_attempted = ?, uploads_failed = ?, finished_at = ?
         WHERE id = ?`,
		summary.Status,
		nullableString(summary.ErrorMessage),
		summary.RenditionsTotal,
		summary.RenditionsFailed,
		summary.UploadsAttempted,
		summary.UploadsFailed,
		formatTime(time.Now()),
		runID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("finish run: unknown run %q", runID)
	}
	return nil
}

// RecordRenditions stores the transcode outcome of every rendition in a run.
func (s *Store) RecordRenditions(ctx context.Context, runID string, outcomes []RenditionOutcome) error {
	return s.withTx(ctx, "record renditions", func(tx *sql.Tx) error {
		for _, o := range outcomes {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR REPLACE INTO rendition_outcomes (run_id, rendition, status, cause, elapsed_ms)
                 VALUES (?, ?, ?, ?, ?)`,
				runID, o.Rendition, o.Status, nullableString(o.Cause), o.Elapsed.Milliseconds(),
			); err != nil {
				return err
			}
		}
		return nil
	})
}

// RecordArtifacts upserts publish outcomes for a run. Re-publishing a key
// within the same run overwrites its previous outcome.
func (s *Store) RecordArtifacts(ctx context.Context, runID string, artifacts []Artifact) error {
	return s.withTx(ctx, "record artifacts", func(tx *sql.Tx) error {
		now := formatTime(time.Now())
		for _, a := range artifacts {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO artifacts (run_id, object_key, bucket, local_path, status, error_message, bytes, updated_at)
                 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
                 ON CONFLICT(run_id, object_key) DO UPDATE SET
                     bucket = excluded.bucket, local_path = excluded.local_path, status = excluded.status,
                     error_message = excluded.error_message, bytes = excluded.bytes, updated_at = excluded.updated_at`,
				runID, a.Key, a.Bucket, a.LocalPath, a.Status, nullableString(a.ErrorMessage), a.Bytes, now,
			); err != nil {
				return err
			}
		}
		return nil
	})
}

// Run fetches one run, returning nil when it does not exist.
func (s *Store) Run(ctx context.Context, runID string) (*Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get run: %w", err)
	}
	return run, nil
}

// LastRun returns the most recent run for a lesson, or nil.
func (s *Store) LastRun(ctx context.Context, course, lesson string) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE course = ? AND lesson = ? ORDER BY started_at DESC, rowid DESC LIMIT 1`,
		course, lesson,
	)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("last run: %w", err)
	}
	return run, nil
}

// LastTranscode returns the most recent run for a lesson that encoded its
// input, skipping publish-only runs, or nil.
func (s *Store) LastTranscode(ctx context.Context, course, lesson string) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+runColumns+` FROM runs WHERE course = ? AND lesson = ? AND COALESCE(input_path, '') != ''
		ORDER BY started_at DESC, rowid DESC LIMIT 1`,
		course, lesson,
	)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("last transcode: %w", err)
	}
	return run, nil
}

// ListRuns returns the newest runs first. A limit <= 0 returns all runs.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// Renditions returns the recorded transcode outcomes of a run by name.
func (s *Store) Renditions(ctx context.Context, runID string) ([]RenditionOutcome, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT rendition, status, cause, elapsed_ms FROM rendition_outcomes WHERE run_id = ? ORDER BY rendition`,
		runID,
	)
	if err != nil {
		return nil, fmt.Errorf("list renditions: %w", err)
	}
	defer rows.Close()

	var out []RenditionOutcome
	for rows.Next() {
		var (
			o       RenditionOutcome
			cause   sql.NullString
			elapsed int64
		)
		if err := rows.Scan(&o.Rendition, &o.Status, &cause, &elapsed); err != nil {
			return nil, fmt.Errorf("scan rendition: %w", err)
		}
		o.Cause = cause.String
		o.Elapsed = time.Duration(elapsed) * time.Millisecond
		out = append(out, o)
	}
	return out, rows.Err()
}

// Artifacts returns every recorded artifact of a run sorted by key.
func (s *Store) Artifacts(ctx context.Context, runID string) ([]Artifact, error) {
	return s.queryArtifacts(ctx, `WHERE run_id = ?`, runID)
}

// FailedKeys returns the keys whose latest outcome in the run is a failure.
func (s *Store) FailedKeys(ctx context.Context, runID string) ([]string, error) {
	artifacts, err := s.queryArtifacts(ctx, `WHERE run_id = ? AND status = ?`, runID, ArtifactFailed)
	if err != nil {
		return nil, err
	}
	keys := make([]string, len(artifacts))
	for i, a := range artifacts {
		keys[i] = a.Key
	}
	return keys, nil
}

// PruneBefore deletes runs started before cutoff along with their outcomes.
func (s *Store) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM runs WHERE started_at < ? AND status != ?`, formatTime(cutoff), RunRunning)
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	return res.RowsAffected()
}

func (s *Store) queryArtifacts(ctx context.Context, where string, args ...any) ([]Artifact, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT object_key, bucket, local_path, status, error_message, bytes, updated_at FROM artifacts `+where+` ORDER BY object_key`,
		args...,
	)
	if err != nil {
		return nil, fmt.Errorf("list artifacts: %w", err)
	}
	defer rows.Close()

	var out []Artifact
	for rows.Next() {
		var (
			a          Artifact
			status     string
			errMessage sql.NullString
			updatedRaw string
		)
		if err := rows.Scan(&a.Key, &a.Bucket, &a.LocalPath, &status, &errMessage, &a.Bytes, &updatedRaw); err != nil {
			return nil, fmt.Errorf("scan artifact: %w", err)
		}
		a.Status = ArtifactStatus(status)
		a.ErrorMessage = errMessage.String
		a.UpdatedAt = parseTime(updatedRaw)
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *Store) withTx(ctx context.Context, op string, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%s: begin tx: %w", op, err)
	}
	defer func() { _ = tx.Rollback() }()
	if err := fn(tx); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%s: commit: %w", op, err)
	}
	return nil
}
