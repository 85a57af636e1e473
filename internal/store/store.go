// Package store persists research runs and their per-video outcomes in a
// local SQLite database.
package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is bumped when schema.sql changes; mismatched databases are
// rejected rather than migrated.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database was created by a different version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

// timeLayout keeps fractional seconds fixed-width so that the string ordering
// of created_at matches chronological order. RFC3339Nano trims trailing zeros
// and does not sort correctly.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Run statuses.
const (
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// Run is one research run.
type Run struct {
	ID           string
	Topic        string
	Query        string
	Status       string
	ScrapedCount int
	SkippedCount int
	ReportPath   string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// VideoRow is one video's outcome within a run. SkipReason is empty for
// videos that produced a transcript.
type VideoRow struct {
	VideoID        string
	Title          string
	Channel        string
	URL            string
	TranscriptPath string
	SkipReason     string
}

// Store manages run persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the run database at dbPath.
func Open(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("ensure database dir: %w", err)
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

	s := &Store{db: db, path: dbPath}
	if err := s.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

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
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s to reset)",
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
	return tx.Commit()
}

// CreateRun inserts a new run in the running state.
func (s *Store) CreateRun(ctx context.Context, id, topic, query string) (*Run, error) {
	now := time.Now().UTC()
	timestamp := now.Format(timeLayout)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, topic, query, status, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		id, topic, query, StatusRunning, timestamp, timestamp)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return s.GetRun(ctx, id)
}

// FinishRun records a run's terminal state and counters.
func (s *Store) FinishRun(ctx context.Context, id, status string, scraped, skipped int, reportPath string) error {
	timestamp := time.Now().UTC().Format(timeLayout)
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, scraped_count = ?, skipped_count = ?,
                report_path = ?, updated_at = ?
         WHERE id = ?`,
		status, scraped, skipped, nullableString(reportPath), timestamp, id)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("run %s not found", id)
	}
	return nil
}

// AddVideo records one video's outcome for a run.
func (s *Store) AddVideo(ctx context.Context, runID string, v VideoRow) error {
	timestamp := time.Now().UTC().Format(timeLayout)
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO videos (run_id, video_id, title, channel, url, transcript_path, skip_reason, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, v.VideoID, v.Title, v.Channel, v.URL,
		nullableString(v.TranscriptPath), nullableString(v.SkipReason), timestamp)
	if err != nil {
		return fmt.Errorf("insert video: %w", err)
	}
	return nil
}

// GetRun returns a run by ID.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, topic, query, status, scraped_count, skipped_count,
                report_path, created_at, updated_at
         FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run %s not found", id)
	}
	return run, err
}

// Videos returns the video rows for a run in insertion order.
func (s *Store) Videos(ctx context.Context, runID string) ([]VideoRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT video_id, title, channel, url, transcript_path, skip_reason
         FROM videos WHERE run_id = ? ORDER BY created_at, video_id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query videos: %w", err)
	}
	defer rows.Close()

	var videos []VideoRow
	for rows.Next() {
		var v VideoRow
		var transcriptPath, skipReason sql.NullString
		if err := rows.Scan(&v.VideoID, &v.Title, &v.Channel, &v.URL, &transcriptPath, &skipReason); err != nil {
			return nil, fmt.Errorf("scan video: %w", err)
		}
		v.TranscriptPath = transcriptPath.String
		v.SkipReason = skipReason.String
		videos = append(videos, v)
	}
	return videos, rows.Err()
}

// RecentRuns returns the most recent runs, newest first.
func (s *Store) RecentRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, topic, query, status, scraped_count, skipped_count,
                report_path, created_at, updated_at
         FROM runs ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

// RecentTopics returns distinct topics from recent runs, newest first.
func (s *Store) RecentTopics(ctx context.Context, limit int) ([]string, error) {
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT topic FROM runs GROUP BY topic ORDER BY MAX(created_at) DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query topics: %w", err)
	}
	defer rows.Close()

	var topics []string
	for rows.Next() {
		var topic string
		if err := rows.Scan(&topic); err != nil {
			return nil, fmt.Errorf("scan topic: %w", err)
		}
		topics = append(topics, topic)
	}
	return topics, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var run Run
	var reportPath sql.NullString
	var createdAt, updatedAt string
	err := row.Scan(&run.ID, &run.Topic, &run.Query, &run.Status,
		&run.ScrapedCount, &run.SkippedCount, &reportPath, &createdAt, &updatedAt)
	if err != nil {
		return nil, err
	}
	run.ReportPath = reportPath.String
	run.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdAt)
	run.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updatedAt)
	return &run, nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
