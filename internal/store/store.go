// Package store persists conversion history in SQLite. The pipeline
// treats it as a fire-and-forget sink: a write failure is logged and
// never fails the job that produced the artifact.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"audiopress/internal/config"
	"audiopress/internal/media"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is bumped when the schema changes; an old database must
// be deleted rather than migrated.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database was created by a different
// release.
var ErrSchemaMismatch = errors.New("schema version mismatch")

const timeLayout = time.RFC3339

// Conversion is one completed job as recorded in history.
type Conversion struct {
	ID                  int64
	JobID               string
	SourceURL           string
	Title               string
	FileName            string
	FileSizeBytes       int64
	Quality             media.Quality
	MeasuredBitrateKbps int
	Strategy            string
	DurationSeconds     int
	CreatedAt           time.Time
	ExpiresAt           time.Time
}

// Failure is one failed job, kept for operator diagnostics.
type Failure struct {
	ID        int64
	SourceURL string
	Stage     string
	Reason    string
	CreatedAt time.Time
}

// Counters summarizes history for the status endpoint.
type Counters struct {
	Completed int64
	Failed    int64
}

type Store struct {
	db   *sql.DB
	path string
}

// Open connects to the history database under the log directory,
// creating it and its schema on first use.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	return OpenPath(filepath.Join(cfg.Paths.LogDir, "history.db"))
}

// OpenPath connects to a history database at an explicit location.
func OpenPath(dbPath string) (*Store, error) {
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

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}
	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// RecordConversion appends a completed job to history.
func (s *Store) RecordConversion(ctx context.Context, conv Conversion) error {
	createdAt := conv.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO conversions
			(job_id, source_url, title, file_name, file_size_bytes, quality,
			 measured_bitrate_kbps, strategy, duration_seconds, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		conv.JobID, conv.SourceURL, conv.Title, conv.FileName, conv.FileSizeBytes,
		string(conv.Quality), conv.MeasuredBitrateKbps, conv.Strategy,
		conv.DurationSeconds, createdAt.Format(timeLayout), conv.ExpiresAt.UTC().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("record conversion %s: %w", conv.JobID, err)
	}
	return nil
}

// RecordFailure appends a failed job to history.
func (s *Store) RecordFailure(ctx context.Context, failure Failure) error {
	createdAt := failure.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO failures (source_url, stage, reason, created_at)
		VALUES (?, ?, ?, ?)`,
		failure.SourceURL, failure.Stage, failure.Reason, createdAt.Format(timeLayout))
	if err != nil {
		return fmt.Errorf("record failure: %w", err)
	}
	return nil
}

// ListRecent returns the newest completed conversions, capped at limit.
func (s *Store) ListRecent(ctx context.Context, limit int) ([]Conversion, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, job_id, source_url, title, file_name, file_size_bytes, quality,
		       measured_bitrate_kbps, strategy, duration_seconds, created_at, expires_at
		FROM conversions
		ORDER BY id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list conversions: %w", err)
	}
	defer rows.Close()

	var conversions []Conversion
	for rows.Next() {
		conv, err := scanConversion(rows)
		if err != nil {
			return nil, err
		}
		conversions = append(conversions, conv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate conversions: %w", err)
	}
	return conversions, nil
}

// Count returns completed/failed totals for the status endpoint.
func (s *Store) Count(ctx context.Context) (Counters, error) {
	var counters Counters
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM conversions").Scan(&counters.Completed); err != nil {
		return Counters{}, fmt.Errorf("count conversions: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM failures").Scan(&counters.Failed); err != nil {
		return Counters{}, fmt.Errorf("count failures: %w", err)
	}
	return counters, nil
}

// PruneExpired drops history rows whose artifacts have passed their
// expiry and returns how many were removed.
func (s *Store) PruneExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		"DELETE FROM conversions WHERE expires_at <= ?", now.UTC().Format(timeLayout))
	if err != nil {
		return 0, fmt.Errorf("prune conversions: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune conversions: %w", err)
	}
	return affected, nil
}

func scanConversion(rows *sql.Rows) (Conversion, error) {
	var (
		conv      Conversion
		quality   string
		createdAt string
		expiresAt string
	)
	if err := rows.Scan(&conv.ID, &conv.JobID, &conv.SourceURL, &conv.Title,
		&conv.FileName, &conv.FileSizeBytes, &quality, &conv.MeasuredBitrateKbps,
		&conv.Strategy, &conv.DurationSeconds, &createdAt, &expiresAt); err != nil {
		return Conversion{}, fmt.Errorf("scan conversion: %w", err)
	}
	conv.Quality = media.Quality(strings.TrimSpace(quality))
	conv.CreatedAt = parseTime(createdAt)
	conv.ExpiresAt = parseTime(expiresAt)
	return conv, nil
}

func parseTime(raw string) time.Time {
	parsed, err := time.Parse(timeLayout, raw)
	if err != nil {
		return time.Time{}
	}
	return parsed
}
