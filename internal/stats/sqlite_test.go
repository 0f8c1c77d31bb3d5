package stats

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	store, err := NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestLogUsage_AndSummary(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.LogUsage(ctx, UsageRecord{
		UserID:   "u1",
		Username: "张三",
		Role:     "consultant",
		Action:   "analyze_blueprint",
		Filename: "方案.pdf",
	}))
	require.NoError(t, store.LogUsage(ctx, UsageRecord{
		UserID: "u2",
		Action: "generate_proposal",
	}))

	records, err := store.UsageSummary(ctx, 10)
	require.NoError(t, err)
	require.Len(t, records, 2)
	for _, r := range records {
		assert.NotEmpty(t, r.ID, "missing ids are generated")
		assert.False(t, r.CreatedAt.IsZero())
	}
}

func TestLogUsage_Validation(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	assert.ErrorIs(t, store.LogUsage(ctx, UsageRecord{Action: "analyze_blueprint"}), ErrInvalidInput)
	assert.ErrorIs(t, store.LogUsage(ctx, UsageRecord{UserID: "u1"}), ErrInvalidInput)
}

func TestRecordBookUse_TotalAndRoleBuckets(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.RecordBookUse(ctx, "《定位》", "consultant"))
	require.NoError(t, store.RecordBookUse(ctx, "《定位》", "consultant"))
	require.NoError(t, store.RecordBookUse(ctx, "《定位》", "manager"))
	require.NoError(t, store.RecordBookUse(ctx, "《增长黑客》", "consultant"))

	all, err := store.TopBooks(ctx, RoleAll, 10)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "《定位》", all[0].BookName)
	assert.Equal(t, int64(3), all[0].Count)
	assert.Equal(t, int64(1), all[1].Count)

	consultant, err := store.TopBooks(ctx, "consultant", 10)
	require.NoError(t, err)
	require.Len(t, consultant, 2)
	assert.Equal(t, int64(2), consultant[0].Count)
}

func TestRecordBookUse_UnknownRoleCountsTotalOnly(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.RecordBookUse(ctx, "《商战》", RoleUnknown))
	require.NoError(t, store.RecordBookUse(ctx, "《商战》", ""))

	all, err := store.TopBooks(ctx, RoleAll, 10)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, int64(2), all[0].Count)

	unknown, err := store.TopBooks(ctx, RoleUnknown, 10)
	require.NoError(t, err)
	assert.Empty(t, unknown, "unknown roles get no per-role bucket")
}

func TestRecordBookUse_Validation(t *testing.T) {
	store := newTestStore(t)
	assert.ErrorIs(t, store.RecordBookUse(context.Background(), "   ", "consultant"), ErrInvalidInput)
}

func TestTopBooks_DefaultsAndLimit(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, book := range []string{"a", "b", "c"} {
		require.NoError(t, store.RecordBookUse(ctx, book, ""))
	}

	// Empty role resolves to the aggregate bucket.
	books, err := store.TopBooks(ctx, "", 2)
	require.NoError(t, err)
	assert.Len(t, books, 2)
}
