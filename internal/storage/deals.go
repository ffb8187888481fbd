package storage

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/Veraticus/the-deals-must-flow/internal/common"
	"github.com/Veraticus/the-deals-must-flow/internal/model"
	"github.com/Veraticus/the-deals-must-flow/internal/service"
)

// DealStore owns the deal collection and id allocation. Every mutation is
// written through to the backend before it becomes visible; a failed write
// leaves the store unchanged.
type DealStore struct {
	backend service.Backend
	now     func() time.Time
	logger  *slog.Logger
	seed    []model.Deal
	deals   []model.Deal
	lastID  int
	mu      sync.RWMutex
}

var _ service.DealStore = (*DealStore)(nil)

// Option configures a DealStore.
type Option func(*DealStore)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *DealStore) {
		s.now = now
	}
}

// WithSeed installs deals when the backend holds nothing yet.
func WithSeed(deals []model.Deal) Option {
	return func(s *DealStore) {
		s.seed = deals
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *DealStore) {
		s.logger = logger
	}
}

// NewDealStore loads the initial state from backend.
func NewDealStore(ctx context.Context, backend service.Backend, opts ...Option) (*DealStore, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if backend == nil {
		return nil, fmt.Errorf("%w: backend", common.ErrMissingConfig)
	}

	s := &DealStore{
		backend: backend,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = common.OrDefault(s.logger)

	snap, err := backend.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load deals: %w", err)
	}
	if err := validateSnapshot(snap); err != nil {
		return nil, fmt.Errorf("failed to load deals: %w", err)
	}

	s.deals = cloneDeals(snap.Deals)
	s.lastID = max(snap.LastID, maxDealID(s.deals))

	if len(s.deals) == 0 && s.lastID == 0 && len(s.seed) > 0 {
		seeded, err := s.prepareSeed(s.seed)
		if err != nil {
			return nil, fmt.Errorf("invalid seed data: %w", err)
		}
		s.deals = seeded
		s.lastID = maxDealID(seeded)
		s.logger.Info("installed seed deals", "count", len(seeded))
	}

	s.logger.Debug("deal store ready", "deals", len(s.deals), "last_id", s.lastID)
	return s, nil
}

// GetAll returns copies of all deals, decorated with their age.
func (s *DealStore) GetAll(ctx context.Context) ([]model.AgedDeal, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	out := make([]model.AgedDeal, len(s.deals))
	for i, d := range s.deals {
		out[i] = model.Decorate(d, now)
	}
	return out, nil
}

// GetByID returns one deal.
func (s *DealStore) GetByID(ctx context.Context, id int) (model.AgedDeal, error) {
	if err := validateContext(ctx); err != nil {
		return model.AgedDeal{}, err
	}
	if err := validateID(id); err != nil {
		return model.AgedDeal{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return model.AgedDeal{}, fmt.Errorf("%w: deal %d", common.ErrNotFound, id)
	}
	return model.Decorate(s.deals[idx], s.now()), nil
}

// GetByStage returns the deals currently in stage.
func (s *DealStore) GetByStage(ctx context.Context, stage model.StageID) ([]model.AgedDeal, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if !stage.Valid() {
		return nil, fmt.Errorf("%w: %q", common.ErrInvalidStage, stage)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	now := s.now()
	var out []model.AgedDeal
	for _, d := range s.deals {
		if d.Stage == stage {
			out = append(out, model.Decorate(d, now))
		}
	}
	return out, nil
}

// Create adds a deal. The id is one past the highest id ever handed out.
func (s *DealStore) Create(ctx context.Context, input model.DealInput) (model.AgedDeal, error) {
	if err := validateContext(ctx); err != nil {
		return model.AgedDeal{}, err
	}
	if err := input.Validate(); err != nil {
		return model.AgedDeal{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	id := max(s.lastID, maxDealID(s.deals)) + 1

	deal := model.Deal{
		ID:          id,
		Title:       strings.TrimSpace(input.Title),
		Company:     input.Company,
		Contact:     input.Contact,
		Value:       input.Value,
		Stage:       input.Stage,
		Priority:    input.Priority,
		Description: input.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if deal.Stage == "" {
		deal.Stage = model.StageLead
	}
	if deal.Priority == "" {
		deal.Priority = model.PriorityMedium
	}
	if input.ExpectedCloseDate != nil {
		t := *input.ExpectedCloseDate
		deal.ExpectedCloseDate = &t
	}

	next := append(cloneDeals(s.deals), deal)
	if err := s.commit(ctx, next, id); err != nil {
		return model.AgedDeal{}, err
	}

	s.logger.Debug("created deal", "id", id, "stage", deal.Stage)
	return model.Decorate(deal, now), nil
}

// Update merges patch onto the deal. ID and CreatedAt are preserved and
// UpdatedAt always moves forward.
func (s *DealStore) Update(ctx context.Context, id int, patch model.DealPatch) (model.AgedDeal, error) {
	if err := validateContext(ctx); err != nil {
		return model.AgedDeal{}, err
	}
	if err := validateID(id); err != nil {
		return model.AgedDeal{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return model.AgedDeal{}, fmt.Errorf("%w: deal %d", common.ErrNotFound, id)
	}
	if err := patch.Validate(); err != nil {
		return model.AgedDeal{}, err
	}

	current := s.deals[idx]
	updated := patch.Apply(current)
	updated.ID = current.ID
	updated.CreatedAt = current.CreatedAt
	updated.UpdatedAt = s.touch(current.UpdatedAt)

	next := cloneDeals(s.deals)
	next[idx] = updated
	if err := s.commit(ctx, next, s.lastID); err != nil {
		return model.AgedDeal{}, err
	}

	s.logger.Debug("updated deal", "id", id, "stage", updated.Stage)
	return model.Decorate(updated, s.now()), nil
}

// Delete removes a deal. Its id is never handed out again.
func (s *DealStore) Delete(ctx context.Context, id int) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateID(id); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	idx := s.indexOf(id)
	if idx < 0 {
		return fmt.Errorf("%w: deal %d", common.ErrNotFound, id)
	}

	next := make([]model.Deal, 0, len(s.deals)-1)
	for i, d := range s.deals {
		if i != idx {
			next = append(next, d.Clone())
		}
	}
	if err := s.commit(ctx, next, max(s.lastID, id)); err != nil {
		return err
	}

	s.logger.Debug("deleted deal", "id", id)
	return nil
}

// Len returns the number of deals.
func (s *DealStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.deals)
}

// commit persists next and swaps it in. Callers hold the write lock.
func (s *DealStore) commit(ctx context.Context, next []model.Deal, lastID int) error {
	snap := service.Snapshot{
		Version: service.SnapshotVersion,
		LastID:  lastID,
		Deals:   cloneDeals(next),
	}
	if err := s.backend.Save(ctx, snap); err != nil {
		common.LogError(s.logger, err, "failed to persist deals", common.Fields{"deals": len(next)})
		return fmt.Errorf("failed to persist deals: %w", err)
	}
	s.deals = next
	s.lastID = lastID
	return nil
}

// touch returns a timestamp strictly after prev.
func (s *DealStore) touch(prev time.Time) time.Time {
	t := s.now().UTC()
	if !t.After(prev) {
		t = prev.Add(time.Nanosecond)
	}
	return t
}

func (s *DealStore) indexOf(id int) int {
	for i, d := range s.deals {
		if d.ID == id {
			return i
		}
	}
	return -1
}

// prepareSeed fills in ids and timestamps missing from seed records.
func (s *DealStore) prepareSeed(seed []model.Deal) ([]model.Deal, error) {
	now := s.now().UTC()
	out := cloneDeals(seed)
	next := maxDealID(out)
	for i := range out {
		if out[i].ID <= 0 {
			next++
			out[i].ID = next
		}
		if out[i].Stage == "" {
			out[i].Stage = model.StageLead
		}
		if out[i].Priority == "" {
			out[i].Priority = model.PriorityMedium
		}
		if out[i].CreatedAt.IsZero() {
			out[i].CreatedAt = now
		}
		if out[i].UpdatedAt.IsZero() {
			out[i].UpdatedAt = out[i].CreatedAt
		}
	}
	if err := validateSnapshot(service.Snapshot{Deals: out}); err != nil {
		return nil, err
	}
	return out, nil
}

func cloneDeals(deals []model.Deal) []model.Deal {
	out := make([]model.Deal, len(deals))
	for i, d := range deals {
		out[i] = d.Clone()
	}
	return out
}

func maxDealID(deals []model.Deal) int {
	highest := 0
	for _, d := range deals {
		highest = max(highest, d.ID)
	}
	return highest
}
