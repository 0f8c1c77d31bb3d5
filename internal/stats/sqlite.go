package stats

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	_ "modernc.org/sqlite" // SQLite driver
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS usage_logs (
	id          TEXT PRIMARY KEY,
	user_id     TEXT NOT NULL,
	username    TEXT NOT NULL DEFAULT '',
	role        TEXT NOT NULL DEFAULT 'unknown',
	action      TEXT NOT NULL,
	filename    TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_usage_logs_created_at ON usage_logs(created_at DESC);

CREATE TABLE IF NOT EXISTS book_stats (
	book_name     TEXT NOT NULL,
	role          TEXT NOT NULL,
	count         INTEGER NOT NULL DEFAULT 0,
	last_used_at  TIMESTAMP NOT NULL,
	PRIMARY KEY (book_name, role)
);
CREATE INDEX IF NOT EXISTS idx_book_stats_role_count ON book_stats(role, count DESC);
`

// SQLiteStore implements RecordStore on a local SQLite file.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at dsn and applies the schema.
func NewSQLiteStore(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports one concurrent writer. A single open connection
	// serialises writes and avoids SQLITE_BUSY under concurrent load; WAL
	// lets readers proceed without blocking the writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// LogUsage appends one usage record.
func (s *SQLiteStore) LogUsage(ctx context.Context, rec UsageRecord) error {
	if rec.UserID == "" {
		return fmt.Errorf("%w: user id is required", ErrInvalidInput)
	}
	if rec.Action == "" {
		return fmt.Errorf("%w: action is required", ErrInvalidInput)
	}
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.Role == "" {
		rec.Role = RoleUnknown
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO usage_logs (id, user_id, username, role, action, filename, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.UserID, rec.Username, rec.Role, rec.Action, rec.Filename, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert usage record: %w", err)
	}
	return nil
}

// RecordBookUse increments the total ranking and, for known roles, the
// per-role ranking.
func (s *SQLiteStore) RecordBookUse(ctx context.Context, bookName, role string) error {
	bookName = strings.TrimSpace(bookName)
	if bookName == "" {
		return fmt.Errorf("%w: book name is required", ErrInvalidInput)
	}

	now := time.Now().UTC()
	if err := s.upsertBook(ctx, bookName, RoleAll, now); err != nil {
		return err
	}
	if role != "" && role != RoleUnknown {
		return s.upsertBook(ctx, bookName, role, now)
	}
	return nil
}

func (s *SQLiteStore) upsertBook(ctx context.Context, bookName, role string, now time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO book_stats (book_name, role, count, last_used_at)
		VALUES (?, ?, 1, ?)
		ON CONFLICT(book_name, role) DO UPDATE SET
			count = count + 1,
			last_used_at = excluded.last_used_at`,
		bookName, role, now)
	if err != nil {
		return fmt.Errorf("failed to upsert book stat: %w", err)
	}
	return nil
}

// TopBooks returns the ranking for a role bucket, most used first.
func (s *SQLiteStore) TopBooks(ctx context.Context, role string, limit int) ([]BookStat, error) {
	if role == "" {
		role = RoleAll
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT book_name, role, count, last_used_at
		FROM book_stats
		WHERE role = ?
		ORDER BY count DESC, last_used_at DESC
		LIMIT ?`, role, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query book stats: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []BookStat
	for rows.Next() {
		var b BookStat
		if err := rows.Scan(&b.BookName, &b.Role, &b.Count, &b.LastUsedAt); err != nil {
			return nil, fmt.Errorf("failed to scan book stat: %w", err)
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate book stats: %w", err)
	}
	return out, nil
}

// UsageSummary returns the most recent usage records.
func (s *SQLiteStore) UsageSummary(ctx context.Context, limit int) ([]UsageRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, username, role, action, filename, created_at
		FROM usage_logs
		ORDER BY created_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query usage records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []UsageRecord
	for rows.Next() {
		var r UsageRecord
		if err := rows.Scan(&r.ID, &r.UserID, &r.Username, &r.Role, &r.Action, &r.Filename, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan usage record: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate usage records: %w", err)
	}
	return out, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Compile-time assertion.
var _ RecordStore = (*SQLiteStore)(nil)
