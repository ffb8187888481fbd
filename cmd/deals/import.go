package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Veraticus/the-deals-must-flow/internal/cli"
	"github.com/Veraticus/the-deals-must-flow/internal/model"
	"github.com/Veraticus/the-deals-must-flow/internal/storage"
)

func importCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <fixture.json|fixture.toml>",
		Short: "Import deals from a fixture file",
		Long: `Add every deal of a JSON or TOML fixture to the pipeline. Imported
deals get fresh ids; their stage, priority and other fields are kept.

JSON fixtures may be a bare array of deals or a snapshot written by the
file backend. TOML fixtures list deals under [[deals]].`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			deals, err := storage.LoadFixtureFile(args[0])
			if err != nil {
				return err
			}
			if len(deals) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), cli.FormatWarning("No deals found in "+args[0]))
				return nil
			}

			s, err := a.openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			handler := cli.NewInterruptHandler(cmd.ErrOrStderr())
			ctx, stop := handler.HandleInterrupts(cmd.Context(), "Deals imported so far have been saved.")
			defer stop()

			progress := cli.NewProgress(cmd.ErrOrStderr(), len(deals), "Importing deals")
			imported := 0
			for _, d := range deals {
				if ctx.Err() != nil {
					break
				}
				if _, err := s.service.Create(ctx, inputFromDeal(d)); err != nil {
					if errors.Is(err, ctx.Err()) {
						break
					}
					return fmt.Errorf("failed to import %q: %w", d.Title, err)
				}
				imported++
				progress.Advance()
			}

			if handler.WasInterrupted() {
				slog.Warn("Import interrupted", "imported", imported, "total", len(deals))
				return nil
			}
			progress.Finish()

			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Imported %d deals", imported)))
			return nil
		},
	}

	return cmd
}

func inputFromDeal(d model.Deal) model.DealInput {
	return model.DealInput{
		ExpectedCloseDate: d.ExpectedCloseDate,
		Title:             d.Title,
		Company:           d.Company,
		Contact:           d.Contact,
		Stage:             d.Stage,
		Priority:          d.Priority,
		Description:       d.Description,
		Value:             d.Value,
	}
}
