// Package sqlite provides the SQLite-backed feed cache.
package sqlite

import (
	"database/sql"
	_ "embed"
	"fmt"
	"log/slog"
	"time"

	"github.com/gfycat/feedcore/internal/feedid"
	"github.com/gfycat/feedcore/internal/report"
	"github.com/gfycat/feedcore/internal/store"

	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// Store is the SQLite implementation of store.FeedCache.
type Store struct {
	db     *sql.DB
	logger *slog.Logger

	notifier   store.Notifier
	metrics    store.Recorder
	sink       report.Sink
	staleAfter time.Duration
}

// Open creates the feed cache at the given path.
// It configures WAL mode, sets pragmas, and applies the schema.
func Open(path string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// Set connection pool to 1 writer (SQLite limitation).
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(time.Hour)

	// Configure pragmas.
	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("exec pragma %q: %w", pragma, err)
		}
	}

	if _, err := db.Exec(schemaSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("exec schema: %w", err)
	}

	return &Store{
		db:         db,
		logger:     logger,
		notifier:   store.NewNoopNotifier(),
		metrics:    store.NewNoopRecorder(),
		sink:       report.NewLogSink(logger),
		staleAfter: store.DefaultStaleAfter,
	}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// SetNotifier attaches the change bus fed by write side effects.
func (s *Store) SetNotifier(n store.Notifier) {
	s.notifier = n
}

// SetRecorder attaches the metrics collector.
func (s *Store) SetRecorder(r store.Recorder) {
	s.metrics = r
}

// SetReportSink overrides the invariant-violation sink.
func (s *Store) SetReportSink(sink report.Sink) {
	s.sink = sink
}

// SetStaleAfter overrides the freshness window used by the no-op
// short-circuit in InsertFeed.
func (s *Store) SetStaleAfter(d time.Duration) {
	s.staleAfter = d
}

func (s *Store) notify(id feedid.Identifier) {
	s.metrics.RecordNotification()
	s.notifier.Notify(id)
}

func (s *Store) notifyAll() {
	s.metrics.RecordNotification()
	s.notifier.NotifyAll()
}

// broken routes a violated invariant to the diagnostics sink and returns
// the error the caller hands up.
func (s *Store) broken(err error) error {
	wrapped := store.ErrInvariant.WithCause(err)
	s.sink.Broken(wrapped)
	return wrapped
}

// formatTime formats a time.Time to RFC3339Nano for storage.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

// parseTime parses a RFC3339Nano string back to time.Time.
func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

// nullString returns a sql.NullString from a string, mapping empty to NULL.
func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
