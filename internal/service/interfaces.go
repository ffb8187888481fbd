// Package service defines the interfaces for all application services.
package service

import (
	"context"

	"github.com/Veraticus/the-deals-must-flow/internal/model"
)

// SnapshotVersion is the current persisted layout version.
const SnapshotVersion = 1

// Snapshot is the persisted state of the deal store. LastID is the id
// high-water mark, kept so ids are never reused after a delete.
type Snapshot struct {
	Deals   []model.Deal `json:"deals"`
	Version int          `json:"version"`
	LastID  int          `json:"last_id"`
}

// Backend persists the full deal collection. Save always receives the
// complete collection; backends never merge.
type Backend interface {
	Load(ctx context.Context) (Snapshot, error)
	Save(ctx context.Context, snapshot Snapshot) error
	Close() error
}

// DealStore is the contract of the deal collection owner.
type DealStore interface {
	GetAll(ctx context.Context) ([]model.AgedDeal, error)
	GetByID(ctx context.Context, id int) (model.AgedDeal, error)
	GetByStage(ctx context.Context, stage model.StageID) ([]model.AgedDeal, error)
	Create(ctx context.Context, input model.DealInput) (model.AgedDeal, error)
	Update(ctx context.Context, id int, patch model.DealPatch) (model.AgedDeal, error)
	Delete(ctx context.Context, id int) error
}

// TransitionLog records stage moves for display.
type TransitionLog interface {
	Append(ctx context.Context, transition model.StageTransition) error
	ForDeal(ctx context.Context, dealID int) ([]model.StageTransition, error)
}
