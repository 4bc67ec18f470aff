package journal

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/dmitrijs2005/mediagate/internal/client/models"
	"github.com/dmitrijs2005/mediagate/internal/dbx"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open(dbx.DriverName, ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE scans (
  id          TEXT PRIMARY KEY,
  content_uri TEXT NOT NULL,
  encrypted   INTEGER NOT NULL DEFAULT 0,
  mode        TEXT NOT NULL,
  state       TEXT NOT NULL,
  clean       INTEGER NOT NULL DEFAULT 0,
  error       TEXT NOT NULL DEFAULT '',
  location    TEXT NOT NULL DEFAULT '',
  created_at  INTEGER NOT NULL
);`)
	require.NoError(t, err)
	return db
}

func TestInsert_FillsIDAndTimestamp(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	rec := &models.JournalRecord{ContentURI: "mxc://example.org/a", Mode: "plain", State: models.StateResolved, Clean: true}
	require.NoError(t, r.Insert(ctx, rec))
	assert.NotEmpty(t, rec.ID)
	assert.False(t, rec.CreatedAt.IsZero())

	got, err := r.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, got, 1)
	if diff := cmp.Diff(*rec, got[0]); diff != "" {
		t.Fatalf("record mismatch (-want +got):\n%s", diff)
	}
}

func TestInsert_DuplicateID(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	rec := models.JournalRecord{ID: "fixed", ContentURI: "mxc://example.org/a", Mode: "plain", State: models.StateRejected}
	require.NoError(t, r.Insert(ctx, &rec))
	assert.Error(t, r.Insert(ctx, &rec))
}

func TestList_NewestFirstWithLimit(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)

	for i, uri := range []string{"mxc://e/1", "mxc://e/2", "mxc://e/3"} {
		require.NoError(t, r.Insert(ctx, &models.JournalRecord{
			ContentURI: uri,
			Mode:       "plain",
			State:      models.StateResolved,
			CreatedAt:  base.Add(time.Duration(i) * time.Minute),
		}))
	}

	got, err := r.List(ctx, 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "mxc://e/3", got[0].ContentURI)
	assert.Equal(t, "mxc://e/2", got[1].ContentURI)

	all, err := r.List(ctx, -1)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

func TestCountByState(t *testing.T) {
	r := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	for _, s := range []models.ScanState{models.StateResolved, models.StateRejected, models.StateRejected, models.StateFailed} {
		require.NoError(t, r.Insert(ctx, &models.JournalRecord{ContentURI: "mxc://e/x", Mode: "plain", State: s}))
	}

	counts, err := r.CountByState(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[models.ScanState]int{
		models.StateResolved: 1,
		models.StateRejected: 2,
		models.StateFailed:   1,
	}, counts)
}

func TestInsert_WithinTransaction(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	err := dbx.WithTx(ctx, db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return NewSQLiteRepository(tx).Insert(ctx, &models.JournalRecord{ContentURI: "mxc://e/1", Mode: "sealed", State: models.StateResolved})
	})
	require.NoError(t, err)

	got, err := NewSQLiteRepository(db).List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}
