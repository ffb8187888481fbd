package storage

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/the-deals-must-flow/internal/model"
)

// Helper function to create test storage.
func createTestStorage(t *testing.T) *SQLiteBackend {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")

	backend, err := NewSQLiteBackend(dbPath, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = backend.Close() })

	require.NoError(t, backend.Migrate(context.Background()))
	return backend
}

func TestSQLiteBackend(t *testing.T) {
	exerciseBackend(t, createTestStorage(t))
}

func TestSQLiteBackend_History(t *testing.T) {
	exerciseHistory(t, createTestStorage(t))
}

func TestSQLiteBackend_MigrationStatus(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "status.db")

	backend, err := NewSQLiteBackend(dbPath, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = backend.Close() })

	before, err := backend.MigrationStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint(0), before.CurrentVersion)
	assert.Equal(t, uint(ExpectedSchemaVersion), before.LatestVersion)
	assert.True(t, before.Pending)

	require.NoError(t, backend.Migrate(ctx))
	// A second run is a no-op.
	require.NoError(t, backend.Migrate(ctx))

	after, err := backend.MigrationStatus(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint(ExpectedSchemaVersion), after.CurrentVersion)
	assert.False(t, after.Pending)
	assert.False(t, after.Dirty)
}

func TestSQLiteBackend_StoreSurvivesReopen(t *testing.T) {
	ctx := context.Background()
	dbPath := filepath.Join(t.TempDir(), "reopen.db")

	backend, err := NewSQLiteBackend(dbPath, nil)
	require.NoError(t, err)
	require.NoError(t, backend.Migrate(ctx))

	store, _ := newTestStore(t, backend)
	created, err := store.Create(ctx, model.DealInput{Title: "Durable", Value: 900, Stage: model.StageQualified})
	require.NoError(t, err)
	require.NoError(t, store.Delete(ctx, created.ID))
	kept, err := store.Create(ctx, model.DealInput{Title: "Kept"})
	require.NoError(t, err)
	require.NoError(t, backend.Close())

	reopened, err := NewSQLiteBackend(dbPath, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })
	require.NoError(t, reopened.Migrate(ctx))

	store2, _ := newTestStore(t, reopened)
	got, err := store2.GetByID(ctx, kept.ID)
	require.NoError(t, err)
	assert.Equal(t, "Kept", got.Title)

	next, err := store2.Create(ctx, model.DealInput{Title: "Next"})
	require.NoError(t, err)
	assert.Equal(t, 3, next.ID)
}

func TestNewSQLiteBackend_EmptyPath(t *testing.T) {
	_, err := NewSQLiteBackend("", nil)
	require.ErrorIs(t, err, ErrEmptyString)
}
