package tui

import "github.com/Veraticus/the-deals-must-flow/internal/pipeline"

// boardLoadedMsg reports the end of a (re)load.
type boardLoadedMsg struct {
	err error
}

// moveFinishedMsg reports the end of a stage move.
type moveFinishedMsg struct {
	err     error
	dealID  int
	outcome pipeline.Outcome
}

// deleteFinishedMsg reports the end of a delete.
type deleteFinishedMsg struct {
	err    error
	dealID int
}

type statusKind int

const (
	statusInfo statusKind = iota
	statusSuccess
	statusWarning
	statusError
)

// statusMsg shows a line in the status bar.
type statusMsg struct {
	text string
	kind statusKind
}

// clearStatusMsg expires the status line it was scheduled for.
type clearStatusMsg struct {
	seq int
}
