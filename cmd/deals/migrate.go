package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Veraticus/the-deals-must-flow/internal/cli"
	"github.com/Veraticus/the-deals-must-flow/internal/config"
	"github.com/Veraticus/the-deals-must-flow/internal/storage"
)

func migrateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long: `Initialize or update the sqlite schema to the latest version.

Other backends keep no schema, so this command only applies when
storage.backend is sqlite.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			statusOnly, _ := cmd.Flags().GetBool("status")

			cfg, err := config.Load(a.v)
			if err != nil {
				return err
			}
			if cfg.Storage.Backend != storage.KindSQLite {
				return fmt.Errorf("migrations only apply to the sqlite backend, not %s", cfg.Storage.Backend)
			}

			slog.Info("Opening database", "path", cfg.Storage.Path, "status_only", statusOnly)
			store, err := storage.NewSQLiteBackend(cfg.Storage.Path, slog.Default())
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer func() { _ = store.Close() }()

			out := cmd.OutOrStdout()
			if !statusOnly {
				if err := store.Migrate(cmd.Context()); err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
			}

			status, err := store.MigrationStatus(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(out, cli.FormatInfo(fmt.Sprintf("Database: %s", cfg.Storage.Path)))
			fmt.Fprintln(out, cli.FormatInfo(fmt.Sprintf("Schema version: %d of %d", status.CurrentVersion, status.LatestVersion)))
			switch {
			case status.Dirty:
				fmt.Fprintln(out, cli.FormatWarning("The last migration did not finish; the schema is dirty"))
			case status.Pending:
				fmt.Fprintln(out, cli.FormatWarning("Migrations are pending, run 'deals migrate'"))
			default:
				fmt.Fprintln(out, cli.FormatSuccess("Schema is up to date"))
			}
			return nil
		},
	}

	cmd.Flags().Bool("status", false, "show the migration status without applying changes")

	return cmd
}
