package history

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/modelbay/modelbay/internal/config"
	"github.com/modelbay/modelbay/internal/database"
)

func newTestDB(t *testing.T) *database.DB {
	t.Helper()

	db, err := database.Open(&config.DatabaseConfig{
		Path:         filepath.Join(t.TempDir(), "test.db"),
		WALMode:      true,
		BusyTimeout:  5 * time.Second,
		MaxOpenConns: 4,
		MaxIdleConns: 2,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func sampleRecord(id, artifact, status string) *Record {
	return &Record{
		ID:         id,
		ArtifactID: artifact,
		Function:   "generate",
		Requester:  "test",
		Status:     status,
		DurationMs: 120,
		Args:       `{"args":[],"kwargs":{}}`,
		Output:     `{"rows":3}`,
		Stdout:     "done\n",
	}
}

func TestStoreCreateAndGet(t *testing.T) {
	store := NewStore(newTestDB(t), 0)
	ctx := context.Background()

	rec := sampleRecord("r1", "report", "success")
	require.NoError(t, store.Create(ctx, rec))
	require.NotEmpty(t, rec.CreatedAt)

	got, err := store.Get(ctx, "r1")
	require.NoError(t, err)
	require.Equal(t, "report", got.ArtifactID)
	require.Equal(t, "generate", got.Function)
	require.Equal(t, "success", got.Status)
	require.Equal(t, int64(120), got.DurationMs)
	require.JSONEq(t, `{"rows":3}`, got.Output)
}

func TestStoreGetMissing(t *testing.T) {
	store := NewStore(newTestDB(t), 0)

	_, err := store.Get(context.Background(), "nope")
	require.ErrorIs(t, err, ErrRecordNotFound)
}

func TestStoreListFilters(t *testing.T) {
	store := NewStore(newTestDB(t), 0)
	ctx := context.Background()

	require.NoError(t, store.Create(ctx, sampleRecord("r1", "report", "success")))
	require.NoError(t, store.Create(ctx, sampleRecord("r2", "report", "failure")))
	require.NoError(t, store.Create(ctx, sampleRecord("r3", "scanner", "success")))

	all, err := store.List(ctx, ListFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)

	reports, err := store.List(ctx, ListFilter{ArtifactID: "report"})
	require.NoError(t, err)
	require.Len(t, reports, 2)

	failures, err := store.List(ctx, ListFilter{Status: "failure"})
	require.NoError(t, err)
	require.Len(t, failures, 1)
	require.Equal(t, "r2", failures[0].ID)

	count, err := store.Count(ctx, ListFilter{ArtifactID: "report"})
	require.NoError(t, err)
	require.Equal(t, 2, count)
}

func TestStoreListLimitOffset(t *testing.T) {
	store := NewStore(newTestDB(t), 0)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c", "d"} {
		rec := sampleRecord(id, "report", "success")
		require.NoError(t, store.Create(ctx, rec))
	}

	page, err := store.List(ctx, ListFilter{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)

	rest, err := store.List(ctx, ListFilter{Limit: 10, Offset: 2})
	require.NoError(t, err)
	require.Len(t, rest, 2)
}

func TestStoreCompressesLargeOutput(t *testing.T) {
	store := NewStore(newTestDB(t), 64)
	ctx := context.Background()

	large := `{"data":"` + strings.Repeat("x", 4096) + `"}`
	rec := sampleRecord("big", "report", "success")
	rec.Output = large
	require.NoError(t, store.Create(ctx, rec))

	small := sampleRecord("small", "report", "success")
	require.NoError(t, store.Create(ctx, small))

	// Round-trips transparently regardless of on-disk encoding.
	got, err := store.Get(ctx, "big")
	require.NoError(t, err)
	require.Equal(t, large, got.Output)

	var encoding string
	err = store.db.QueryRow("SELECT output_encoding FROM run_history WHERE id = ?", "big").Scan(&encoding)
	require.NoError(t, err)
	require.Equal(t, "gzip", encoding)

	err = store.db.QueryRow("SELECT output_encoding FROM run_history WHERE id = ?", "small").Scan(&encoding)
	require.NoError(t, err)
	require.Equal(t, "", encoding)
}

func TestStoreDeleteOlderThan(t *testing.T) {
	store := NewStore(newTestDB(t), 0)
	ctx := context.Background()

	old := sampleRecord("old", "report", "success")
	old.CreatedAt = time.Now().UTC().Add(-48 * time.Hour).Format(time.RFC3339)
	require.NoError(t, store.Create(ctx, old))

	fresh := sampleRecord("fresh", "report", "success")
	require.NoError(t, store.Create(ctx, fresh))

	cutoff := time.Now().UTC().Add(-24 * time.Hour).Format(time.RFC3339)
	deleted, err := store.DeleteOlderThan(ctx, cutoff)
	require.NoError(t, err)
	require.Equal(t, int64(1), deleted)

	_, err = store.Get(ctx, "old")
	require.ErrorIs(t, err, ErrRecordNotFound)
	_, err = store.Get(ctx, "fresh")
	require.NoError(t, err)
}
