// Package testutil builds seeded deal stores for tests.
package testutil

import (
	"context"
	"testing"

	"github.com/Veraticus/the-deals-must-flow/internal/model"
	"github.com/Veraticus/the-deals-must-flow/internal/pipeline"
	"github.com/Veraticus/the-deals-must-flow/internal/storage"
)

// TestDB is an in-memory sqlite store seeded with deals, plus the service
// over it.
type TestDB struct {
	Backend *storage.SQLiteBackend
	Store   *storage.DealStore
	Service *pipeline.Service
	t       *testing.T
	Deals   []model.Deal
}

// SetupTestDB creates a migrated in-memory database holding deals. It is
// closed when the test ends.
//
// Example:
//
//	db := testutil.SetupTestDB(t, deals.NewBuilder().WithScenarioA().Build())
func SetupTestDB(t *testing.T, deals []model.Deal, opts ...storage.Option) *TestDB {
	t.Helper()
	ctx := context.Background()

	backend, err := storage.NewSQLiteBackend(":memory:", nil)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		_ = backend.Close()
	})

	if err := backend.Migrate(ctx); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	opts = append([]storage.Option{storage.WithSeed(deals)}, opts...)
	store, err := storage.NewDealStore(ctx, backend, opts...)
	if err != nil {
		t.Fatalf("failed to load deal store: %v", err)
	}

	return &TestDB{
		Backend: backend,
		Store:   store,
		Service: pipeline.NewService(store, pipeline.WithHistory(backend)),
		Deals:   deals,
		t:       t,
	}
}

// MustGet returns a deal or fails the test.
func (db *TestDB) MustGet(id int) model.AgedDeal {
	db.t.Helper()
	d, err := db.Store.GetByID(context.Background(), id)
	if err != nil {
		db.t.Fatalf("deal %d: %v", id, err)
	}
	return d
}
