package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/the-deals-must-flow/internal/analytics"
	"github.com/Veraticus/the-deals-must-flow/internal/tui"
	"github.com/Veraticus/the-deals-must-flow/internal/tui/themes"
)

func pipelineCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "pipeline",
		Short: "Show per-stage analytics",
		Long: `Show deal count, total value, average deal size and conversion
rate for every stage of the pipeline.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := a.openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			deals, err := s.service.GetAll(cmd.Context())
			if err != nil {
				return err
			}
			out := analytics.NewCLIFormatter().FormatPipeline(
				analytics.ComputePipeline(deals),
				analytics.Summarize(deals))
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
}

func historyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "history <id>",
		Short: "Show the stage moves of a deal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			s, err := a.openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			if _, err := s.service.GetByID(cmd.Context(), id); err != nil {
				return err
			}
			moves, err := s.service.History(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), analytics.NewCLIFormatter().FormatHistory(id, moves))
			return nil
		},
	}
}

func boardCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "board",
		Short: "Open the interactive pipeline board",
		Long: `Open the kanban board. Move between columns with h/l, between
deals with j/k, and move the selected deal with H/L. Press ? for help.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			themeName, _ := cmd.Flags().GetString("theme")

			s, err := a.openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			return tui.Run(cmd.Context(), s.service,
				tui.WithTheme(themes.GetTheme(themeName)),
				tui.WithTransitionTimeout(s.cfg.Board.TransitionTimeout))
		},
	}

	cmd.Flags().String("theme", "default", "color theme (default, catppuccin-mocha)")

	return cmd
}
