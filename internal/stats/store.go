// Package stats records who analyzed what and which reference books they
// leaned on, feeding the dashboard rankings. Writes happen off the streaming
// path; a failed write is logged by the caller and never surfaces to users.
package stats

import (
	"context"
	"errors"
	"time"
)

// RoleAll is the aggregate bucket every book use is counted into, next to
// its per-role bucket.
const RoleAll = "all"

// RoleUnknown marks submissions without a role; they count toward RoleAll only.
const RoleUnknown = "unknown"

// ErrInvalidInput is returned for records that cannot be stored.
var ErrInvalidInput = errors.New("invalid input")

// UsageRecord is one analysis submission.
type UsageRecord struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Action    string    `json:"action"`
	Filename  string    `json:"filename"`
	CreatedAt time.Time `json:"created_at"`
}

// BookStat is one row of the reference-book ranking.
type BookStat struct {
	BookName   string    `json:"book_name"`
	Role       string    `json:"role"`
	Count      int64     `json:"count"`
	LastUsedAt time.Time `json:"last_used_at"`
}

// RecordStore persists usage records and book rankings.
type RecordStore interface {
	// LogUsage appends one usage record.
	LogUsage(ctx context.Context, rec UsageRecord) error

	// RecordBookUse increments the book's total ranking and, when the role
	// is known, its per-role ranking.
	RecordBookUse(ctx context.Context, bookName, role string) error

	// TopBooks returns the ranking for a role bucket, most used first.
	TopBooks(ctx context.Context, role string, limit int) ([]BookStat, error)

	// UsageSummary returns the most recent usage records.
	UsageSummary(ctx context.Context, limit int) ([]UsageRecord, error)

	Close() error
}
