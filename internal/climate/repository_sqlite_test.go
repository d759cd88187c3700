package climate

import (
	"context"
	"database/sql"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestDB creates an in-memory SQLite database with the climate tables.
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	schema := `
		CREATE TABLE climate_state (
			device_id TEXT PRIMARY KEY,
			attributes TEXT NOT NULL,
			updated_at TEXT NOT NULL
		) STRICT;
		CREATE TABLE climate_state_history (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			device_id TEXT NOT NULL,
			state TEXT NOT NULL,
			source TEXT NOT NULL DEFAULT 'command',
			created_at TEXT NOT NULL
		) STRICT;
	`
	_, err = db.Exec(schema)
	require.NoError(t, err)

	t.Cleanup(func() {
		db.Close()
	})
	return db
}

func TestSQLiteRepository_SaveLoad(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))
	ctx := context.Background()

	_, err := repo.Load(ctx, "living-ac")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, repo.Save(ctx, "living-ac", Attributes{
		AttrOperationMode:     "heat",
		AttrTemperature:       20.5,
		AttrSupportedFeatures: uint32(BaseFeatures),
		AttrPower:             "on",
	}))

	attrs, err := repo.Load(ctx, "living-ac")
	require.NoError(t, err)
	mode, _ := attrs.String(AttrOperationMode)
	assert.Equal(t, "heat", mode)
	temp, ok := attrs.Number(AttrTemperature)
	require.True(t, ok)
	assert.Equal(t, 20.5, temp)
	features, ok := attrs.Number(AttrSupportedFeatures)
	require.True(t, ok)
	assert.Equal(t, float64(BaseFeatures), features)

	// Save replaces the previous snapshot.
	require.NoError(t, repo.Save(ctx, "living-ac", Attributes{AttrOperationMode: "cool"}))
	attrs, err = repo.Load(ctx, "living-ac")
	require.NoError(t, err)
	mode, _ = attrs.String(AttrOperationMode)
	assert.Equal(t, "cool", mode)
	_, ok = attrs[AttrTemperature]
	assert.False(t, ok)
}

func TestSQLiteRepository_RequiresID(t *testing.T) {
	repo := NewSQLiteRepository(setupTestDB(t))

	assert.Error(t, repo.Save(context.Background(), "", Attributes{}))
	_, err := repo.Load(context.Background(), "")
	assert.Error(t, err)
}

func TestSQLiteHistoryRepository_RecordAndGet(t *testing.T) {
	repo := NewSQLiteHistoryRepository(setupTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.RecordStateChange(ctx, "living-ac", Snapshot{ID: "living-ac", OperationMode: "cool"}, ReasonCommand))
	require.NoError(t, repo.RecordStateChange(ctx, "living-ac", Snapshot{ID: "living-ac", OperationMode: "heat"}, ReasonPower))
	require.NoError(t, repo.RecordStateChange(ctx, "bedroom-ac", Snapshot{ID: "bedroom-ac"}, ""))

	entries, err := repo.GetHistory(ctx, "living-ac", 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "heat", entries[0].State.OperationMode, "newest first")
	assert.Equal(t, ReasonPower, entries[0].Source)
	assert.Equal(t, "cool", entries[1].State.OperationMode)
	assert.WithinDuration(t, time.Now(), entries[0].CreatedAt, time.Minute)

	other, err := repo.GetHistory(ctx, "bedroom-ac", 0)
	require.NoError(t, err)
	require.Len(t, other, 1)
	assert.Equal(t, ReasonCommand, other[0].Source, "empty source defaults to command")
}

func TestSQLiteHistoryRepository_Prune(t *testing.T) {
	db := setupTestDB(t)
	repo := NewSQLiteHistoryRepository(db)
	ctx := context.Background()

	old := time.Now().UTC().Add(-48 * time.Hour).Format(historyTimeFormat)
	_, err := db.Exec(
		"INSERT INTO climate_state_history (device_id, state, source, created_at) VALUES (?, ?, ?, ?)",
		"living-ac", `{"id":"living-ac"}`, "command", old,
	)
	require.NoError(t, err)
	require.NoError(t, repo.RecordStateChange(ctx, "living-ac", Snapshot{ID: "living-ac"}, ReasonSensor))

	n, err := repo.PruneHistory(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	entries, err := repo.GetHistory(ctx, "living-ac", 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, ReasonSensor, entries[0].Source)

	_, err = repo.PruneHistory(ctx, 0)
	assert.Error(t, err)
}
