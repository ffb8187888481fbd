package tui

import (
	"context"
	"errors"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/Veraticus/the-deals-must-flow/internal/pipeline"
)

// Run opens the interactive board over svc and blocks until the user quits
// or ctx is canceled.
func Run(ctx context.Context, svc pipeline.DealService, opts ...Option) error {
	if svc == nil {
		return fmt.Errorf("deal service is required")
	}

	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	// The notifier runs on the command goroutines; program is assigned
	// before any command can execute.
	var program *tea.Program
	notify := func(kind statusKind) func(string) {
		return func(text string) {
			if program != nil {
				program.Send(statusMsg{text: text, kind: kind})
			}
		}
	}

	board := pipeline.NewBoard(svc,
		pipeline.WithNotifier(pipeline.NotifierFunc{
			OnSuccess: notify(statusSuccess),
			OnError:   notify(statusError),
		}),
		pipeline.WithBoardLogger(cfg.Logger),
		pipeline.WithTransitionTimeout(cfg.TransitionTimeout),
	)

	programOpts := []tea.ProgramOption{tea.WithContext(ctx)}
	if cfg.AltScreen {
		programOpts = append(programOpts, tea.WithAltScreen())
	}
	program = tea.NewProgram(newModel(ctx, board, cfg), programOpts...)

	if _, err := program.Run(); err != nil && !errors.Is(err, tea.ErrProgramKilled) {
		return fmt.Errorf("board exited: %w", err)
	}
	return nil
}
