package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Veraticus/the-deals-must-flow/internal/pipeline"
)

func loadBoard(ctx context.Context, board *pipeline.Board) tea.Cmd {
	return func() tea.Msg {
		return boardLoadedMsg{err: board.Load(ctx)}
	}
}

func moveDeal(ctx context.Context, board *pipeline.Board, ev pipeline.DragEvent) tea.Cmd {
	return func() tea.Msg {
		outcome, err := board.DragEnd(ctx, ev)
		return moveFinishedMsg{dealID: ev.DealID, outcome: outcome, err: err}
	}
}

func deleteDeal(ctx context.Context, board *pipeline.Board, id int) tea.Cmd {
	return func() tea.Msg {
		return deleteFinishedMsg{dealID: id, err: board.DeleteDeal(ctx, id)}
	}
}

func clearStatusAfter(d time.Duration, seq int) tea.Cmd {
	if d <= 0 {
		return nil
	}
	return tea.Tick(d, func(time.Time) tea.Msg {
		return clearStatusMsg{seq: seq}
	})
}
