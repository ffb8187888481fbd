package model

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// StageTransition records one successful stage move. History is kept for
// display only; analytics do not read it.
type StageTransition struct {
	At     time.Time `json:"at"`
	ID     string    `json:"id"`
	From   StageID   `json:"from"`
	To     StageID   `json:"to"`
	DealID int       `json:"dealId"`
}

// NewStageTransition stamps a transition with a ULID derived from at, so
// ids sort in the order the moves happened.
func NewStageTransition(dealID int, from, to StageID, at time.Time) StageTransition {
	return StageTransition{
		ID:     ulid.MustNew(ulid.Timestamp(at), ulid.DefaultEntropy()).String(),
		DealID: dealID,
		From:   from,
		To:     to,
		At:     at,
	}
}

// IsBackward reports whether the move went to an earlier stage.
func (t StageTransition) IsBackward() bool {
	from, okFrom := LookupStage(t.From)
	to, okTo := LookupStage(t.To)
	return okFrom && okTo && to.Order < from.Order
}
