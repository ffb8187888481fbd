package pipeline

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/the-deals-must-flow/internal/common"
	"github.com/Veraticus/the-deals-must-flow/internal/model"
)

// recordingNotifier keeps every notification.
type recordingNotifier struct {
	successes []string
	errors    []string
	mu        sync.Mutex
}

func (n *recordingNotifier) Success(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.successes = append(n.successes, msg)
}

func (n *recordingNotifier) Error(msg string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.errors = append(n.errors, msg)
}

func (n *recordingNotifier) Errors() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.errors...)
}

func (n *recordingNotifier) Successes() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.successes...)
}

// gatedService holds MoveToStage until release is closed.
type gatedService struct {
	DealService
	entered chan struct{}
	release chan struct{}
	err     error
}

func (g *gatedService) MoveToStage(ctx context.Context, id int, stage model.StageID) (model.AgedDeal, error) {
	close(g.entered)
	select {
	case <-g.release:
	case <-ctx.Done():
		return model.AgedDeal{}, ctx.Err()
	}
	if g.err != nil {
		return model.AgedDeal{}, g.err
	}
	return g.DealService.MoveToStage(ctx, id, stage)
}

func newBoard(t *testing.T, svc DealService, opts ...BoardOption) (*Board, *recordingNotifier) {
	t.Helper()
	n := &recordingNotifier{}
	b := NewBoard(svc, append([]BoardOption{WithNotifier(n)}, opts...)...)
	require.NoError(t, b.Load(context.Background()))
	return b, n
}

func moveEvent(t *testing.T, b *Board, id int, stage model.StageID) DragEvent {
	t.Helper()
	ev, ok := b.MoveEvent(id, stage)
	require.True(t, ok)
	return ev
}

func stagesOf(deals []model.AgedDeal) map[int]model.StageID {
	out := make(map[int]model.StageID, len(deals))
	for _, d := range deals {
		out[d.ID] = d.Stage
	}
	return out
}

func TestBoard_Load(t *testing.T) {
	f := newFixture(t)
	b, _ := newBoard(t, f.svc)

	assert.Len(t, b.Deals(), 5)
	assert.Len(t, b.Column(model.StageLead), 3)
	assert.Equal(t, StateIdle, b.State())
	assert.Equal(t, 3, b.Analytics().Stage(model.StageLead).TotalDeals)
	assert.Equal(t, int64(4600), b.Summary().TotalValue)
}

func TestBoard_DragEndCommits(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	b, n := newBoard(t, f.svc)

	outcome, err := b.DragEnd(ctx, moveEvent(t, b, 1, model.StageProposal))
	require.NoError(t, err)
	assert.Equal(t, OutcomeCommitted, outcome)
	assert.Equal(t, StateIdle, b.State())

	assert.Equal(t, model.StageProposal, stagesOf(b.Deals())[1])
	assert.Equal(t, 2, b.Analytics().Stage(model.StageLead).TotalDeals)
	assert.Equal(t, 1, b.Analytics().Stage(model.StageProposal).TotalDeals)
	assert.Equal(t, []string{"Deal moved to Proposal"}, n.Successes())
	assert.Empty(t, n.Errors())

	stored, err := f.svc.GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, model.StageProposal, stored.Stage)

	// The board holds the authoritative record, not just the stage.
	for _, d := range b.Deals() {
		if d.ID == 1 {
			assert.Equal(t, stored.UpdatedAt, d.UpdatedAt)
		}
	}
}

func TestBoard_DragEndNoop(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	b, n := newBoard(t, f.svc)
	before := b.Deals()

	src := Position{Stage: model.StageLead, Index: 0}
	same := src

	tests := []struct {
		name string
		ev   DragEvent
	}{
		{name: "dropped outside any column", ev: DragEvent{DealID: 1, Source: src}},
		{name: "dropped where it started", ev: DragEvent{DealID: 1, Source: src, Destination: &same}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			outcome, err := b.DragEnd(ctx, tt.ev)
			require.NoError(t, err)
			assert.Equal(t, OutcomeNoop, outcome)
		})
	}

	assert.Equal(t, before, b.Deals())
	assert.Equal(t, 0, f.backend.Saves())
	assert.Empty(t, n.Successes())
	assert.Empty(t, n.Errors())
}

func TestBoard_ReorderWithinStageStillWrites(t *testing.T) {
	f := newFixture(t)
	b, _ := newBoard(t, f.svc)

	dst := Position{Stage: model.StageLead, Index: 2}
	outcome, err := b.DragEnd(context.Background(), DragEvent{
		DealID:      1,
		Source:      Position{Stage: model.StageLead, Index: 0},
		Destination: &dst,
	})
	require.NoError(t, err)
	assert.Equal(t, OutcomeCommitted, outcome)
	assert.Equal(t, 1, f.backend.Saves())
}

// Scenario B: a failed persistence call restores the pre-drag list.
func TestBoard_DragEndRollsBack(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	b, n := newBoard(t, f.svc)

	before := b.Deals()
	analyticsBefore := b.Analytics()
	f.backend.setFail(true)

	outcome, err := b.DragEnd(ctx, moveEvent(t, b, 1, model.StageProposal))
	require.Error(t, err)
	assert.Equal(t, OutcomeRolledBack, outcome)
	assert.ErrorIs(t, err, errUnavailable)

	var userErr *common.UserError
	require.True(t, errors.As(err, &userErr))
	assert.Equal(t, MsgMoveFailed, userErr.UserMessage)

	assert.Equal(t, before, b.Deals())
	assert.Equal(t, analyticsBefore, b.Analytics())
	assert.Equal(t, StateIdle, b.State())
	assert.Equal(t, []string{MsgMoveFailed}, n.Errors())
	assert.Empty(t, n.Successes())

	// The board accepts drags again once the store recovers.
	f.backend.setFail(false)
	outcome, err = b.DragEnd(ctx, moveEvent(t, b, 1, model.StageProposal))
	require.NoError(t, err)
	assert.Equal(t, OutcomeCommitted, outcome)
}

func TestBoard_RollbackForInvalidStage(t *testing.T) {
	f := newFixture(t)
	b, n := newBoard(t, f.svc)
	before := b.Deals()

	dst := Position{Stage: "archived"}
	outcome, err := b.DragEnd(context.Background(), DragEvent{
		DealID:      2,
		Source:      Position{Stage: model.StageLead, Index: 1},
		Destination: &dst,
	})
	require.ErrorIs(t, err, common.ErrInvalidStage)
	assert.Equal(t, OutcomeRolledBack, outcome)
	assert.Equal(t, before, b.Deals())
	assert.Len(t, n.Errors(), 1)
}

func TestBoard_UnknownDeal(t *testing.T) {
	f := newFixture(t)
	b, _ := newBoard(t, f.svc)

	dst := Position{Stage: model.StageClosed}
	outcome, err := b.DragEnd(context.Background(), DragEvent{DealID: 77, Destination: &dst})
	require.ErrorIs(t, err, common.ErrNotFound)
	assert.Equal(t, OutcomeNoop, outcome)
	assert.Equal(t, StateIdle, b.State())
}

func TestBoard_OptimisticApplyAndInFlightGuard(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	gated := &gatedService{
		DealService: f.svc,
		entered:     make(chan struct{}),
		release:     make(chan struct{}),
	}
	b, _ := newBoard(t, gated)
	before := b.Deals()

	type result struct {
		outcome Outcome
		err     error
	}
	ev := moveEvent(t, b, 2, model.StageNegotiation)
	done := make(chan result, 1)
	go func() {
		outcome, err := b.DragEnd(ctx, ev)
		done <- result{outcome, err}
	}()

	select {
	case <-gated.entered:
	case <-time.After(5 * time.Second):
		t.Fatal("persistence call never started")
	}

	// The move is visible before the store has answered.
	assert.Equal(t, model.StageNegotiation, stagesOf(b.Deals())[2])
	assert.True(t, b.DragDisabled())
	assert.Equal(t, StateOptimisticApplied, b.State())
	assert.Equal(t, 3, b.Analytics().Stage(model.StageLead).TotalDeals)

	stored, err := f.svc.GetByID(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, model.StageLead, stored.Stage)

	// A second drag is refused and changes nothing.
	during := b.Deals()
	outcome, err := b.DragEnd(ctx, moveEvent(t, b, 3, model.StageClosed))
	require.ErrorIs(t, err, common.ErrDragDisabled)
	assert.Equal(t, OutcomeNoop, outcome)
	assert.Equal(t, during, b.Deals())

	close(gated.release)
	res := <-done
	require.NoError(t, res.err)
	assert.Equal(t, OutcomeCommitted, res.outcome)
	assert.False(t, b.DragDisabled())
	assert.NotEqual(t, stagesOf(before), stagesOf(b.Deals()))
}

func TestBoard_OptimisticRollbackAfterWait(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	gated := &gatedService{
		DealService: f.svc,
		entered:     make(chan struct{}),
		release:     make(chan struct{}),
		err:         errUnavailable,
	}
	b, _ := newBoard(t, gated)
	before := b.Deals()

	ev := moveEvent(t, b, 5, model.StageLead)
	done := make(chan error, 1)
	go func() {
		_, err := b.DragEnd(ctx, ev)
		done <- err
	}()

	<-gated.entered
	assert.Equal(t, model.StageLead, stagesOf(b.Deals())[5])

	close(gated.release)
	require.ErrorIs(t, <-done, errUnavailable)
	assert.Equal(t, before, b.Deals())
}

func TestBoard_DeleteAndLoadWaitForMove(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	gated := &gatedService{
		DealService: f.svc,
		entered:     make(chan struct{}),
		release:     make(chan struct{}),
		err:         errUnavailable,
	}
	b, n := newBoard(t, gated)
	before := b.Deals()

	ev := moveEvent(t, b, 1, model.StageProposal)
	done := make(chan error, 1)
	go func() {
		_, err := b.DragEnd(ctx, ev)
		done <- err
	}()
	<-gated.entered

	require.ErrorIs(t, b.DeleteDeal(ctx, 4), common.ErrDragDisabled)
	require.ErrorIs(t, b.Load(ctx), common.ErrDragDisabled)

	// Nothing was deleted behind the board's back.
	_, err := f.svc.GetByID(ctx, 4)
	require.NoError(t, err)

	close(gated.release)
	require.ErrorIs(t, <-done, errUnavailable)

	assert.Equal(t, before, b.Deals())
	assert.Equal(t, 3, b.Analytics().Stage(model.StageLead).TotalDeals)
	assert.Equal(t, 0, b.Analytics().Stage(model.StageProposal).TotalDeals)
	assert.Empty(t, n.Successes())
	assert.Equal(t, []string{MsgMoveFailed}, n.Errors())

	// Once idle the delete goes through.
	require.NoError(t, b.DeleteDeal(ctx, 4))
	_, ok := b.PositionOf(4)
	assert.False(t, ok)
}

func TestBoard_TransitionTimeout(t *testing.T) {
	f := newFixture(t)
	gated := &gatedService{
		DealService: f.svc,
		entered:     make(chan struct{}),
		release:     make(chan struct{}),
	}
	b, n := newBoard(t, gated, WithTransitionTimeout(20*time.Millisecond))
	before := b.Deals()

	outcome, err := b.DragEnd(context.Background(), moveEvent(t, b, 4, model.StageClosed))
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, OutcomeRolledBack, outcome)
	assert.Equal(t, before, b.Deals())
	assert.Equal(t, []string{MsgMoveFailed}, n.Errors())
}

func TestBoard_SearchAndSummary(t *testing.T) {
	f := newFixture(t)
	b, _ := newBoard(t, f.svc)

	b.SetSearch("  ")
	assert.Len(t, b.Visible(), 5)

	b.SetSearch("PLATFORM")
	assert.Equal(t, "PLATFORM", b.Search())
	visible := b.Visible()
	require.Len(t, visible, 1)
	assert.Equal(t, 2, visible[0].ID)
	assert.Len(t, b.Column(model.StageLead), 1)
	assert.Empty(t, b.Column(model.StageQualified))
	assert.Equal(t, 1, b.Summary().TotalDeals)
	assert.Equal(t, int64(200), b.Summary().TotalValue)

	// Analytics ignore the search.
	assert.Equal(t, 3, b.Analytics().Stage(model.StageLead).TotalDeals)

	pos, ok := b.PositionOf(2)
	require.True(t, ok)
	assert.Equal(t, Position{Stage: model.StageLead, Index: 0}, pos)

	_, ok = b.PositionOf(1)
	assert.False(t, ok)
}

func TestBoard_DeleteDeal(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	b, n := newBoard(t, f.svc)

	require.NoError(t, b.DeleteDeal(ctx, 4))
	assert.Len(t, b.Deals(), 4)
	assert.Equal(t, 1, b.Analytics().Stage(model.StageQualified).TotalDeals)
	assert.Equal(t, []string{"Deal deleted"}, n.Successes())

	err := b.DeleteDeal(ctx, 4)
	require.ErrorIs(t, err, common.ErrNotFound)
	assert.Equal(t, MsgDeleteFailed, common.UserMessage(err, ""))
	assert.Len(t, b.Deals(), 4)
}

func TestBoard_LoadFailure(t *testing.T) {
	b := NewBoard(brokenService{})
	err := b.Load(context.Background())
	require.ErrorIs(t, err, errUnavailable)
	assert.Equal(t, MsgLoadFailed, common.UserMessage(err, ""))
	assert.Empty(t, b.Deals())
}

type brokenService struct{}

func (brokenService) GetAll(context.Context) ([]model.AgedDeal, error) {
	return nil, errUnavailable
}

func (brokenService) MoveToStage(context.Context, int, model.StageID) (model.AgedDeal, error) {
	return model.AgedDeal{}, errUnavailable
}

func (brokenService) Delete(context.Context, int) error {
	return errUnavailable
}

func TestStateAndOutcomeStrings(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "optimistic-applied", StateOptimisticApplied.String())
	assert.Equal(t, "committed", OutcomeCommitted.String())
	assert.Equal(t, "rolled-back", OutcomeRolledBack.String())
	assert.Equal(t, "noop", OutcomeNoop.String())
}
