package stats

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	_ "github.com/lib/pq" // PostgreSQL driver
)

const postgresSchema = `
CREATE TABLE IF NOT EXISTS usage_logs (
	id          TEXT PRIMARY KEY,
	user_id     TEXT NOT NULL,
	username    TEXT NOT NULL DEFAULT '',
	role        TEXT NOT NULL DEFAULT 'unknown',
	action      TEXT NOT NULL,
	filename    TEXT NOT NULL DEFAULT '',
	created_at  TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_usage_logs_created_at ON usage_logs(created_at DESC);

CREATE TABLE IF NOT EXISTS book_stats (
	book_name     TEXT NOT NULL,
	role          TEXT NOT NULL,
	count         BIGINT NOT NULL DEFAULT 0,
	last_used_at  TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (book_name, role)
);
CREATE INDEX IF NOT EXISTS idx_book_stats_role_count ON book_stats(role, count DESC);
`

// PostgresStore implements RecordStore on PostgreSQL for shared deployments.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore connects to dsn and applies the schema.
func NewPostgresStore(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	if _, err := db.Exec(postgresSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}
	return &PostgresStore{db: db}, nil
}

// LogUsage appends one usage record.
func (s *PostgresStore) LogUsage(ctx context.Context, rec UsageRecord) error {
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
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		rec.ID, rec.UserID, rec.Username, rec.Role, rec.Action, rec.Filename, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert usage record: %w", err)
	}
	return nil
}

// RecordBookUse increments the total ranking and, for known roles, the
// per-role ranking.
func (s *PostgresStore) RecordBookUse(ctx context.Context, bookName, role string) error {
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

func (s *PostgresStore) upsertBook(ctx context.Context, bookName, role string, now time.Time) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO book_stats (book_name, role, count, last_used_at)
		VALUES ($1, $2, 1, $3)
		ON CONFLICT (book_name, role) DO UPDATE SET
			count = book_stats.count + 1,
			last_used_at = EXCLUDED.last_used_at`,
		bookName, role, now)
	if err != nil {
		return fmt.Errorf("failed to upsert book stat: %w", err)
	}
	return nil
}

// TopBooks returns the ranking for a role bucket, most used first.
func (s *PostgresStore) TopBooks(ctx context.Context, role string, limit int) ([]BookStat, error) {
	if role == "" {
		role = RoleAll
	}
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT book_name, role, count, last_used_at
		FROM book_stats
		WHERE role = $1
		ORDER BY count DESC, last_used_at DESC
		LIMIT $2`, role, limit)
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
func (s *PostgresStore) UsageSummary(ctx context.Context, limit int) ([]UsageRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, username, role, action, filename, created_at
		FROM usage_logs
		ORDER BY created_at DESC
		LIMIT $1`, limit)
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
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// Compile-time assertion.
var _ RecordStore = (*PostgresStore)(nil)
