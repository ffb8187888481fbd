// Package pipeline coordinates stage transitions between the deal store and
// the board that displays it.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Veraticus/the-deals-must-flow/internal/analytics"
	"github.com/Veraticus/the-deals-must-flow/internal/common"
	"github.com/Veraticus/the-deals-must-flow/internal/model"
	"github.com/Veraticus/the-deals-must-flow/internal/service"
)

// Service is the in-process contract consumed by the CLI and the board.
type Service struct {
	store   service.DealStore
	history service.TransitionLog
	logger  *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithHistory records every successful stage move in log.
func WithHistory(log service.TransitionLog) ServiceOption {
	return func(s *Service) {
		s.history = log
	}
}

// WithServiceLogger sets the logger.
func WithServiceLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService creates a service over store.
func NewService(store service.DealStore, opts ...ServiceOption) *Service {
	s := &Service{store: store}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = common.OrDefault(s.logger)
	return s
}

// GetAll returns every deal with its age.
func (s *Service) GetAll(ctx context.Context) ([]model.AgedDeal, error) {
	return s.store.GetAll(ctx)
}

// GetByID returns one deal.
func (s *Service) GetByID(ctx context.Context, id int) (model.AgedDeal, error) {
	return s.store.GetByID(ctx, id)
}

// DealsByStage returns the deals currently in stage.
func (s *Service) DealsByStage(ctx context.Context, stage model.StageID) ([]model.AgedDeal, error) {
	return s.store.GetByStage(ctx, stage)
}

// Create adds a deal.
func (s *Service) Create(ctx context.Context, input model.DealInput) (model.AgedDeal, error) {
	return s.store.Create(ctx, input)
}

// Update applies a partial update. A patch that changes the stage is
// recorded in the history like a move.
func (s *Service) Update(ctx context.Context, id int, patch model.DealPatch) (model.AgedDeal, error) {
	if patch.Stage == nil {
		return s.store.Update(ctx, id, patch)
	}

	before, err := s.store.GetByID(ctx, id)
	if err != nil {
		return model.AgedDeal{}, err
	}
	updated, err := s.store.Update(ctx, id, patch)
	if err != nil {
		return model.AgedDeal{}, err
	}
	s.record(ctx, before.Stage, updated)
	return updated, nil
}

// Delete removes a deal.
func (s *Service) Delete(ctx context.Context, id int) error {
	return s.store.Delete(ctx, id)
}

// MoveToStage moves a deal to stage. Any stage may follow any other,
// backwards included; only catalogue membership is checked.
func (s *Service) MoveToStage(ctx context.Context, dealID int, stage model.StageID) (model.AgedDeal, error) {
	if !stage.Valid() {
		return model.AgedDeal{}, fmt.Errorf("%w: %q", common.ErrInvalidStage, stage)
	}

	before, err := s.store.GetByID(ctx, dealID)
	if err != nil {
		return model.AgedDeal{}, err
	}

	updated, err := s.store.Update(ctx, dealID, model.StagePatch(stage))
	if err != nil {
		return model.AgedDeal{}, fmt.Errorf("failed to move deal %d to %s: %w", dealID, stage, err)
	}

	s.logger.Info("moved deal",
		"deal_id", dealID,
		"from", before.Stage,
		"to", stage)
	s.record(ctx, before.Stage, updated)
	return updated, nil
}

// PipelineAnalytics computes the analytics of every stage.
func (s *Service) PipelineAnalytics(ctx context.Context) (analytics.Pipeline, error) {
	deals, err := s.store.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	return analytics.ComputePipeline(deals), nil
}

// History returns the recorded stage moves of a deal. Without a configured
// log it is always empty.
func (s *Service) History(ctx context.Context, dealID int) ([]model.StageTransition, error) {
	if s.history == nil {
		return nil, nil
	}
	return s.history.ForDeal(ctx, dealID)
}

// record appends a transition. The move has already been committed, so a
// failure here is logged and not returned.
func (s *Service) record(ctx context.Context, from model.StageID, updated model.AgedDeal) {
	if s.history == nil {
		return
	}
	t := model.NewStageTransition(updated.ID, from, updated.Stage, updated.UpdatedAt)
	if err := s.history.Append(ctx, t); err != nil {
		common.LogError(s.logger, err, "failed to record stage transition", common.Fields{
			"deal_id": updated.ID,
			"from":    from,
			"to":      updated.Stage,
		})
	}
}
