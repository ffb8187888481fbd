package storage

import (
	"context"
	"sort"
	"sync"

	"github.com/Veraticus/the-deals-must-flow/internal/model"
	"github.com/Veraticus/the-deals-must-flow/internal/service"
)

// MemoryBackend keeps the snapshot in process memory. Nothing survives a
// restart.
type MemoryBackend struct {
	snap  service.Snapshot
	saves int
	mu    sync.Mutex
}

var _ service.Backend = (*MemoryBackend)(nil)

// NewMemoryBackend creates a backend pre-loaded with deals.
func NewMemoryBackend(deals ...model.Deal) *MemoryBackend {
	return &MemoryBackend{
		snap: service.Snapshot{
			Version: service.SnapshotVersion,
			Deals:   cloneDeals(deals),
			LastID:  maxDealID(deals),
		},
	}
}

// Load returns a copy of the stored snapshot.
func (m *MemoryBackend) Load(_ context.Context) (service.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap := m.snap
	snap.Deals = cloneDeals(m.snap.Deals)
	return snap, nil
}

// Save replaces the stored snapshot.
func (m *MemoryBackend) Save(_ context.Context, snap service.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap.Deals = cloneDeals(snap.Deals)
	m.snap = snap
	m.saves++
	return nil
}

// Saves reports how many times Save was called.
func (m *MemoryBackend) Saves() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

// Close is a no-op.
func (m *MemoryBackend) Close() error {
	return nil
}

// MemoryTransitionLog keeps stage history in process memory.
type MemoryTransitionLog struct {
	entries []model.StageTransition
	mu      sync.RWMutex
}

var _ service.TransitionLog = (*MemoryTransitionLog)(nil)

// NewMemoryTransitionLog creates an empty log.
func NewMemoryTransitionLog() *MemoryTransitionLog {
	return &MemoryTransitionLog{}
}

// Append records a transition.
func (l *MemoryTransitionLog) Append(_ context.Context, t model.StageTransition) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, t)
	return nil
}

// ForDeal returns the transitions of one deal, oldest first.
func (l *MemoryTransitionLog) ForDeal(_ context.Context, dealID int) ([]model.StageTransition, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	var out []model.StageTransition
	for _, e := range l.entries {
		if e.DealID == dealID {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].At.Before(out[j].At)
	})
	return out, nil
}
