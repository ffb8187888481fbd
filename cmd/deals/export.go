package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/Veraticus/the-deals-must-flow/internal/cli"
	"github.com/Veraticus/the-deals-must-flow/internal/config"
	"github.com/Veraticus/the-deals-must-flow/internal/sheets"
)

func exportCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the pipeline to Google Sheets",
		Long: `Write the per-stage analytics and every deal to a Google Sheets
spreadsheet. The sheet is cleared and rewritten on each export.

Authenticate with a service account (sheets.service_account_path) or with
OAuth2 (sheets.client_id, sheets.client_secret and a refresh token from
'deals export auth').`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if id, _ := cmd.Flags().GetString("spreadsheet-id"); id != "" {
				a.v.Set("sheets.spreadsheet_id", id)
			}
			if title, _ := cmd.Flags().GetString("sheet"); title != "" {
				a.v.Set("sheets.sheet_title", title)
			}

			sheetsConfig, err := config.LoadSheetsConfig(a.v)
			if err != nil {
				return fmt.Errorf("invalid sheets configuration: %w", err)
			}

			s, err := a.openSession(cmd.Context())
			if err != nil {
				return err
			}
			defer s.Close()

			deals, err := s.service.GetAll(cmd.Context())
			if err != nil {
				return err
			}

			writer, err := sheets.NewWriter(cmd.Context(), *sheetsConfig, slog.Default())
			if err != nil {
				return err
			}
			return exportReport(cmd, writer, sheets.BuildReport(deals, time.Now()))
		},
	}

	cmd.Flags().String("spreadsheet-id", "", "spreadsheet to write to (default: create one)")
	cmd.Flags().String("sheet", "", "sheet title inside the spreadsheet")

	cmd.AddCommand(exportAuthCmd(a))

	return cmd
}

func exportReport(cmd *cobra.Command, writer sheets.ReportWriter, report sheets.PipelineReport) error {
	slog.Info("Exporting pipeline", "deals", report.TotalDeals, "stages", len(report.Stages))
	if err := writer.Write(cmd.Context(), report); err != nil {
		return fmt.Errorf("export failed: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Exported %d deals to Google Sheets", report.TotalDeals)))
	return nil
}

func exportAuthCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authenticate with Google Sheets",
		Long: `Authenticate with Google Sheets using OAuth2.

This command will:
1. Open a local callback server and print the consent URL
2. Save the token next to the config file
3. Store the refresh token in the config file when one is in use

You'll need to run this once before exporting with OAuth2.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			clientID := a.v.GetString("sheets.client_id")
			clientSecret := a.v.GetString("sheets.client_secret")
			if flagID, _ := cmd.Flags().GetString("client-id"); flagID != "" {
				clientID = flagID
			}
			if flagSecret, _ := cmd.Flags().GetString("client-secret"); flagSecret != "" {
				clientSecret = flagSecret
			}
			if clientID == "" {
				clientID = os.Getenv("GOOGLE_SHEETS_CLIENT_ID")
			}
			if clientSecret == "" {
				clientSecret = os.Getenv("GOOGLE_SHEETS_CLIENT_SECRET")
			}
			if clientID == "" || clientSecret == "" {
				return fmt.Errorf("OAuth2 credentials not found. Set sheets.client_id and sheets.client_secret or use --client-id and --client-secret")
			}

			tokenFile, err := sheetsTokenFile()
			if err != nil {
				return err
			}
			slog.Info("Starting Google Sheets authentication", "token_file", tokenFile)

			token, err := sheets.GetOrCreateToken(cmd.Context(), sheets.OAuth2Config{
				ClientID:     clientID,
				ClientSecret: clientSecret,
				TokenFile:    tokenFile,
			})
			if err != nil {
				return fmt.Errorf("authentication failed: %w", err)
			}

			out := cmd.OutOrStdout()
			if token.RefreshToken == "" {
				fmt.Fprintln(out, cli.FormatWarning("Google returned no refresh token; revoke access and run this again"))
				return nil
			}

			a.v.Set("sheets.refresh_token", token.RefreshToken)
			if a.v.ConfigFileUsed() == "" {
				fmt.Fprintln(out, cli.FormatInfo("Add this to your config.yaml:"))
				fmt.Fprintf(out, "sheets:\n  refresh_token: %q\n", token.RefreshToken)
				return nil
			}
			if err := a.v.WriteConfig(); err != nil {
				slog.Warn("Failed to update config file with refresh token", "error", err)
				fmt.Fprintln(out, cli.FormatInfo("Add this to your config.yaml manually:"))
				fmt.Fprintf(out, "sheets:\n  refresh_token: %q\n", token.RefreshToken)
				return nil
			}
			fmt.Fprintln(out, cli.FormatSuccess("Authentication successful! Run 'deals export' to publish the pipeline."))
			return nil
		},
	}

	cmd.Flags().String("client-id", "", "OAuth2 Client ID (overrides config)")
	cmd.Flags().String("client-secret", "", "OAuth2 Client Secret (overrides config)")

	return cmd
}

func sheetsTokenFile() (string, error) {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, "deals", "sheets-token.json"), nil
}
