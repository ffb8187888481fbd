package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/the-deals-must-flow/internal/analytics"
	"github.com/Veraticus/the-deals-must-flow/internal/cli"
	"github.com/Veraticus/the-deals-must-flow/internal/model"
)

func listCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List deals",
		Long: `List every deal with its stage, value, priority and age.

Use --stage to show a single column of the pipeline and --search to
filter by title, company or description.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			stageFlag, _ := cmd.Flags().GetString("stage")
			search, _ := cmd.Flags().GetString("search")

			s, err := a.openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			var deals []model.AgedDeal
			if stageFlag != "" {
				stage, err := model.ParseStage(stageFlag)
				if err != nil {
					return err
				}
				deals, err = s.service.DealsByStage(cmd.Context(), stage)
				if err != nil {
					return err
				}
			} else {
				deals, err = s.service.GetAll(cmd.Context())
				if err != nil {
					return err
				}
			}

			deals = analytics.Filter(deals, search)
			fmt.Fprintln(cmd.OutOrStdout(), analytics.NewCLIFormatter().FormatDeals(deals))
			return nil
		},
	}

	cmd.Flags().String("stage", "", "only show deals in this stage")
	cmd.Flags().String("search", "", "filter by title, company or description")

	return cmd
}

func showCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one deal",
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

			deal, err := s.service.GetByID(cmd.Context(), id)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), analytics.NewCLIFormatter().FormatDeal(deal))
			return nil
		},
	}
}

// addDealFlags registers the editable deal fields on cmd.
func addDealFlags(cmd *cobra.Command) {
	cmd.Flags().String("title", "", "deal title")
	cmd.Flags().String("company", "", "company name")
	cmd.Flags().String("contact", "", "contact person")
	cmd.Flags().Int64("value", 0, "deal value in whole dollars")
	cmd.Flags().String("stage", "", "pipeline stage (lead, qualified, proposal, negotiation, closed)")
	cmd.Flags().String("priority", "", "priority (low, medium, high)")
	cmd.Flags().String("description", "", "free-form notes")
	cmd.Flags().String("close-date", "", "expected close date (YYYY-MM-DD)")
}

func addCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a deal",
		Long: `Add a deal to the pipeline. New deals start in the lead stage
with medium priority unless --stage or --priority say otherwise.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			input, err := dealInputFromFlags(cmd)
			if err != nil {
				return err
			}

			s, err := a.openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			deal, err := s.service.Create(cmd.Context(), input)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Created deal %d: %s", deal.ID, deal.Title)))
			return nil
		},
	}

	addDealFlags(cmd)
	_ = cmd.MarkFlagRequired("title")

	return cmd
}

func dealInputFromFlags(cmd *cobra.Command) (model.DealInput, error) {
	flags := cmd.Flags()
	input := model.DealInput{}
	input.Title, _ = flags.GetString("title")
	input.Company, _ = flags.GetString("company")
	input.Contact, _ = flags.GetString("contact")
	input.Value, _ = flags.GetInt64("value")
	input.Description, _ = flags.GetString("description")

	if raw, _ := flags.GetString("stage"); raw != "" {
		stage, err := model.ParseStage(raw)
		if err != nil {
			return input, err
		}
		input.Stage = stage
	}

	priority, _ := flags.GetString("priority")
	p, err := model.ParsePriority(priority)
	if err != nil {
		return input, err
	}
	input.Priority = p

	if raw, _ := flags.GetString("close-date"); raw != "" {
		closeDate, err := parseDate(raw)
		if err != nil {
			return input, err
		}
		input.ExpectedCloseDate = &closeDate
	}
	return input, nil
}

func updateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update a deal",
		Long: `Update the fields of a deal. Only the flags given are changed;
pass --clear-close-date to remove the expected close date.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			patch, err := dealPatchFromFlags(cmd)
			if err != nil {
				return err
			}
			if patch.IsEmpty() {
				return fmt.Errorf("nothing to update, pass at least one field flag")
			}

			s, err := a.openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			deal, err := s.service.Update(cmd.Context(), id, patch)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Updated deal %d: %s", deal.ID, deal.Title)))
			return nil
		},
	}

	addDealFlags(cmd)
	cmd.Flags().Bool("clear-close-date", false, "remove the expected close date")

	return cmd
}

func dealPatchFromFlags(cmd *cobra.Command) (model.DealPatch, error) {
	flags := cmd.Flags()
	var patch model.DealPatch

	stringField := func(name string) *string {
		if !flags.Changed(name) {
			return nil
		}
		v, _ := flags.GetString(name)
		return &v
	}
	patch.Title = stringField("title")
	patch.Company = stringField("company")
	patch.Contact = stringField("contact")
	patch.Description = stringField("description")

	if flags.Changed("value") {
		v, _ := flags.GetInt64("value")
		patch.Value = &v
	}
	if raw := stringField("stage"); raw != nil {
		stage, err := model.ParseStage(*raw)
		if err != nil {
			return patch, err
		}
		patch.Stage = &stage
	}
	if raw := stringField("priority"); raw != nil {
		p, err := model.ParsePriority(*raw)
		if err != nil {
			return patch, err
		}
		patch.Priority = &p
	}
	if raw := stringField("close-date"); raw != nil {
		closeDate, err := parseDate(*raw)
		if err != nil {
			return patch, err
		}
		patch.ExpectedCloseDate = &closeDate
	}
	patch.ClearCloseDate, _ = flags.GetBool("clear-close-date")

	return patch, nil
}

func deleteCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a deal",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			yes, _ := cmd.Flags().GetBool("yes")

			s, err := a.openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			deal, err := s.service.GetByID(cmd.Context(), id)
			if err != nil {
				return err
			}

			if !yes {
				reader := cli.NewNonBlockingReader(cmd.InOrStdin())
				ok, err := cli.Confirm(cmd.Context(), reader, cmd.OutOrStdout(),
					fmt.Sprintf("Delete deal %d %q?", deal.ID, deal.Title))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), cli.FormatInfo("Delete canceled"))
					return nil
				}
			}

			if err := s.service.Delete(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Deleted deal %d", id)))
			return nil
		},
	}

	cmd.Flags().BoolP("yes", "y", false, "delete without asking")

	return cmd
}

func moveCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "move <id> <stage>",
		Short: "Move a deal to another stage",
		Long: `Move a deal to any stage of the pipeline. Moves may go backwards;
every move is recorded in the deal's history.`,
		Args: cobra.ExactArgs(2),
		ValidArgsFunction: func(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
			if len(args) != 1 {
				return nil, cobra.ShellCompDirectiveNoFileComp
			}
			stages := make([]string, 0, len(model.StageIDs()))
			for _, id := range model.StageIDs() {
				stages = append(stages, string(id))
			}
			return stages, cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			stage, err := model.ParseStage(args[1])
			if err != nil {
				return err
			}

			s, err := a.openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			deal, err := s.service.MoveToStage(cmd.Context(), id, stage)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Deal moved to %s", deal.Stage.Name())))
			return nil
		},
	}
}
