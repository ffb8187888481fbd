package testutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/the-deals-must-flow/internal/model"
	"github.com/Veraticus/the-deals-must-flow/internal/testutil/deals"
)

func TestSetupTestDB(t *testing.T) {
	ctx := context.Background()
	db := SetupTestDB(t, deals.NewBuilder().WithScenarioA().Build())

	all, err := db.Service.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 5)
	assert.Equal(t, "Support plan", db.MustGet(5).Title)

	_, err = db.Service.MoveToStage(ctx, 1, model.StageClosed)
	require.NoError(t, err)

	history, err := db.Service.History(ctx, 1)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, model.StageClosed, history[0].To)
}

func TestBuilder(t *testing.T) {
	built := deals.NewBuilder().
		WithDeal("Alpha", model.StageProposal, 50, deals.WithPriority(model.PriorityHigh)).
		WithDeal("Beta", model.StageLead, 10).
		Build()

	require.Len(t, built, 2)
	assert.Equal(t, 1, built[0].ID)
	assert.Equal(t, model.PriorityHigh, built[0].Priority)
	assert.Equal(t, 2, built[1].ID)
	assert.Equal(t, model.PriorityMedium, built[1].Priority)
	assert.Equal(t, deals.DefaultCreatedAt, built[1].CreatedAt)
}
