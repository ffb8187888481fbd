package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/the-deals-must-flow/internal/common"
)

func TestStages_Catalogue(t *testing.T) {
	stages := Stages()
	require.Len(t, stages, 5)

	wantIDs := []StageID{StageLead, StageQualified, StageProposal, StageNegotiation, StageClosed}
	for i, s := range stages {
		assert.Equal(t, wantIDs[i], s.ID)
		assert.Equal(t, i+1, s.Order)
	}
	assert.Equal(t, "Closed Won", stages[4].Name)
	assert.Equal(t, wantIDs, StageIDs())
}

func TestStages_ReturnsCopy(t *testing.T) {
	stages := Stages()
	stages[0].Order = 99
	stages[0].Name = "Mutated"

	lead, ok := LookupStage(StageLead)
	require.True(t, ok)
	assert.Equal(t, 1, lead.Order)
	assert.Equal(t, "Lead", lead.Name)
}

func TestParseStage(t *testing.T) {
	tests := []struct {
		input   string
		want    StageID
		wantErr bool
	}{
		{input: "lead", want: StageLead},
		{input: "  Qualified ", want: StageQualified},
		{input: "NEGOTIATION", want: StageNegotiation},
		{input: "closed", want: StageClosed},
		{input: "won", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseStage(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, common.ErrInvalidStage)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDownstreamOf(t *testing.T) {
	assert.Equal(t, []StageID{StageQualified, StageProposal, StageNegotiation, StageClosed}, DownstreamOf(StageLead))
	assert.Equal(t, []StageID{StageClosed}, DownstreamOf(StageNegotiation))
	assert.Empty(t, DownstreamOf(StageClosed))
	assert.Nil(t, DownstreamOf("archived"))
}

func TestNeighbourStages(t *testing.T) {
	next, ok := NextStage(StageLead)
	assert.True(t, ok)
	assert.Equal(t, StageQualified, next)

	_, ok = NextStage(StageClosed)
	assert.False(t, ok)

	prev, ok := PreviousStage(StageClosed)
	assert.True(t, ok)
	assert.Equal(t, StageNegotiation, prev)

	_, ok = PreviousStage(StageLead)
	assert.False(t, ok)

	_, ok = NextStage("unknown")
	assert.False(t, ok)
}

func TestStageID_Name(t *testing.T) {
	assert.Equal(t, "Proposal", StageProposal.Name())
	assert.Equal(t, "mystery", StageID("mystery").Name())
}
