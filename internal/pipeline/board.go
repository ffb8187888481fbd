package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Veraticus/the-deals-must-flow/internal/analytics"
	"github.com/Veraticus/the-deals-must-flow/internal/common"
	"github.com/Veraticus/the-deals-must-flow/internal/model"
)

// User-facing messages surfaced by the board.
const (
	MsgMoveFailed   = "Failed to move deal. Please try again."
	MsgLoadFailed   = "Failed to load pipeline data. Please try again."
	MsgDeleteFailed = "Failed to delete deal. Please try again."
)

// DealService is what the board needs from the pipeline service.
type DealService interface {
	GetAll(ctx context.Context) ([]model.AgedDeal, error)
	MoveToStage(ctx context.Context, dealID int, stage model.StageID) (model.AgedDeal, error)
	Delete(ctx context.Context, id int) error
}

var _ DealService = (*Service)(nil)

// Notifier receives the board's user notifications.
type Notifier interface {
	Success(message string)
	Error(message string)
}

// NotifierFunc adapts a pair of functions to Notifier.
type NotifierFunc struct {
	OnSuccess func(string)
	OnError   func(string)
}

// Success implements Notifier.
func (n NotifierFunc) Success(message string) {
	if n.OnSuccess != nil {
		n.OnSuccess(message)
	}
}

// Error implements Notifier.
func (n NotifierFunc) Error(message string) {
	if n.OnError != nil {
		n.OnError(message)
	}
}

// Position is a slot on the board: a stage column and an index in it.
type Position struct {
	Stage model.StageID
	Index int
}

// DragEvent describes the end of a drag. A nil Destination means the deal
// was dropped outside every column.
type DragEvent struct {
	Destination *Position
	Source      Position
	DealID      int
}

// State is the phase of the board's transition state machine.
type State int

const (
	// StateIdle accepts new drags.
	StateIdle State = iota
	// StateOptimisticApplied means a move is shown locally and awaiting the store.
	StateOptimisticApplied
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateOptimisticApplied:
		return "optimistic-applied"
	default:
		return "unknown"
	}
}

// Outcome reports how a drag ended.
type Outcome int

const (
	// OutcomeNoop means the drag changed nothing.
	OutcomeNoop Outcome = iota
	// OutcomeCommitted means the store accepted the move.
	OutcomeCommitted
	// OutcomeRolledBack means the move failed and the pre-drag list was restored.
	OutcomeRolledBack
)

func (o Outcome) String() string {
	switch o {
	case OutcomeNoop:
		return "noop"
	case OutcomeCommitted:
		return "committed"
	case OutcomeRolledBack:
		return "rolled-back"
	default:
		return "unknown"
	}
}

// Board is the view-side copy of the pipeline. Stage moves are applied
// locally first and confirmed or rolled back once the store answers. Only
// one move may be in flight at a time.
type Board struct {
	svc       DealService
	notifier  Notifier
	logger    *slog.Logger
	analytics analytics.Pipeline
	search    string
	deals     []model.AgedDeal
	timeout   time.Duration
	state     State
	mu        sync.RWMutex
}

// BoardOption configures a Board.
type BoardOption func(*Board)

// WithNotifier sets where notifications go.
func WithNotifier(n Notifier) BoardOption {
	return func(b *Board) {
		b.notifier = n
	}
}

// WithBoardLogger sets the logger.
func WithBoardLogger(logger *slog.Logger) BoardOption {
	return func(b *Board) {
		b.logger = logger
	}
}

// WithTransitionTimeout bounds each persistence call. Zero waits forever.
func WithTransitionTimeout(d time.Duration) BoardOption {
	return func(b *Board) {
		b.timeout = d
	}
}

// NewBoard creates an empty board. Call Load to fill it.
func NewBoard(svc DealService, opts ...BoardOption) *Board {
	b := &Board{
		svc:       svc,
		notifier:  NotifierFunc{},
		analytics: analytics.ComputePipeline(nil),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.logger = common.OrDefault(b.logger)
	return b
}

// Load replaces the board's deals with the store's and recomputes analytics.
// It is refused while a move is in flight.
func (b *Board) Load(ctx context.Context) error {
	if b.DragDisabled() {
		return common.ErrDragDisabled
	}

	deals, err := b.svc.GetAll(ctx)
	if err != nil {
		b.notifier.Error(MsgLoadFailed)
		return common.NewUserError(MsgLoadFailed, err)
	}

	b.mu.Lock()
	if b.state != StateIdle {
		b.mu.Unlock()
		return common.ErrDragDisabled
	}
	b.deals = model.CloneAged(deals)
	b.analytics = analytics.ComputePipeline(b.deals)
	b.mu.Unlock()

	b.logger.Debug("board loaded", "deals", len(deals))
	return nil
}

// DragEnd runs the stage transition protocol for one drag.
func (b *Board) DragEnd(ctx context.Context, ev DragEvent) (Outcome, error) {
	if ev.Destination == nil || *ev.Destination == ev.Source {
		return OutcomeNoop, nil
	}
	target := ev.Destination.Stage

	b.mu.Lock()
	if b.state != StateIdle {
		b.mu.Unlock()
		return OutcomeNoop, common.ErrDragDisabled
	}
	idx := b.indexOf(ev.DealID)
	if idx < 0 {
		b.mu.Unlock()
		return OutcomeNoop, fmt.Errorf("%w: deal %d is not on the board", common.ErrNotFound, ev.DealID)
	}

	snapshot := model.CloneAged(b.deals)
	b.deals[idx].Stage = target
	b.state = StateOptimisticApplied
	b.mu.Unlock()

	moveCtx := ctx
	if b.timeout > 0 {
		var cancel context.CancelFunc
		moveCtx, cancel = context.WithTimeout(ctx, b.timeout)
		defer cancel()
	}

	updated, err := b.svc.MoveToStage(moveCtx, ev.DealID, target)

	b.mu.Lock()
	if err != nil {
		b.deals = snapshot
		b.analytics = analytics.ComputePipeline(b.deals)
		b.state = StateIdle
		b.mu.Unlock()

		common.LogError(b.logger, err, "stage move rolled back", common.Fields{
			"deal_id": ev.DealID,
			"to":      target,
		})
		b.notifier.Error(MsgMoveFailed)
		return OutcomeRolledBack, common.NewUserError(MsgMoveFailed, err)
	}

	if i := b.indexOf(updated.ID); i >= 0 {
		b.deals[i] = updated.Clone()
	}
	b.analytics = analytics.ComputePipeline(b.deals)
	b.state = StateIdle
	b.mu.Unlock()

	b.notifier.Success(fmt.Sprintf("Deal moved to %s", target.Name()))
	return OutcomeCommitted, nil
}

// DeleteDeal removes a deal from the store and the board. It is refused
// while a move is in flight, since a rollback restores the pre-drag list.
func (b *Board) DeleteDeal(ctx context.Context, id int) error {
	if b.DragDisabled() {
		return common.ErrDragDisabled
	}
	if err := b.svc.Delete(ctx, id); err != nil {
		b.notifier.Error(MsgDeleteFailed)
		return common.NewUserError(MsgDeleteFailed, err)
	}

	b.mu.Lock()
	if i := b.indexOf(id); i >= 0 {
		b.deals = append(b.deals[:i:i], b.deals[i+1:]...)
	}
	b.analytics = analytics.ComputePipeline(b.deals)
	b.mu.Unlock()

	b.notifier.Success("Deal deleted")
	return nil
}

// DragDisabled reports whether a move is in flight.
func (b *Board) DragDisabled() bool {
	return b.State() != StateIdle
}

// State returns the current phase of the state machine.
func (b *Board) State() State {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.state
}

// Deals returns a copy of every deal on the board, ignoring the search.
func (b *Board) Deals() []model.AgedDeal {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return model.CloneAged(b.deals)
}

// Visible returns the deals matching the current search.
func (b *Board) Visible() []model.AgedDeal {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return model.CloneAged(analytics.Filter(b.deals, b.search))
}

// Column returns the visible deals of one stage.
func (b *Board) Column(stage model.StageID) []model.AgedDeal {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return model.CloneAged(analytics.InStage(analytics.Filter(b.deals, b.search), stage))
}

// Analytics returns the per-stage analytics as of the last load or commit.
// They cover every deal, not just the visible ones.
func (b *Board) Analytics() analytics.Pipeline {
	b.mu.RLock()
	defer b.mu.RUnlock()
	out := make(analytics.Pipeline, len(b.analytics))
	for k, v := range b.analytics {
		out[k] = v
	}
	return out
}

// Summary totals the visible deals.
func (b *Board) Summary() analytics.Summary {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return analytics.Summarize(analytics.Filter(b.deals, b.search))
}

// SetSearch filters the visible deals by title, company or description.
func (b *Board) SetSearch(term string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.search = term
}

// Search returns the current search term.
func (b *Board) Search() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.search
}

// PositionOf locates a deal among the visible deals of its column.
func (b *Board) PositionOf(dealID int) (Position, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, stage := range model.StageIDs() {
		for i, d := range analytics.InStage(analytics.Filter(b.deals, b.search), stage) {
			if d.ID == dealID {
				return Position{Stage: stage, Index: i}, true
			}
		}
	}
	return Position{}, false
}

// MoveEvent builds the drag event that drops a deal at the end of stage.
func (b *Board) MoveEvent(dealID int, stage model.StageID) (DragEvent, bool) {
	src, ok := b.PositionOf(dealID)
	if !ok {
		return DragEvent{}, false
	}
	dst := Position{Stage: stage, Index: len(b.Column(stage))}
	if stage == src.Stage {
		dst.Index = src.Index
	}
	return DragEvent{DealID: dealID, Source: src, Destination: &dst}, true
}

func (b *Board) indexOf(id int) int {
	for i, d := range b.deals {
		if d.ID == id {
			return i
		}
	}
	return -1
}
