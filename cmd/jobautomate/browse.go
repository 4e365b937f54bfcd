package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sanathsadiga/jobautomate/internal/browse"
	"github.com/sanathsadiga/jobautomate/internal/logging"
	"github.com/sanathsadiga/jobautomate/internal/model"
)

const browseLimit = 1000

var browseCmd = &cobra.Command{
	Use:   "browse",
	Short: "Browse stored jobs interactively (TUI)",
	Long:  "Shows the company picker, then a split-pane view of all and matching stored jobs.",
	RunE:  runBrowse,
}

func init() {
	rootCmd.AddCommand(browseCmd)
}

func runBrowse(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	// Log output before the alt-screen starts corrupts the display.
	jobStore, err := openStore(cfg, false, logging.Discard())
	if err != nil {
		return err
	}
	defer jobStore.Close()

	jobs, err := browse.RunLoader(cmd.Context(), "Loading stored jobs", func(ctx context.Context) ([]model.StoredJob, error) {
		return jobStore.List(ctx, model.ListFilter{Limit: browseLimit})
	})
	if errors.Is(err, browse.ErrCancelled) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load jobs: %w", err)
	}
	if len(jobs) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No stored jobs yet. Run `jobautomate search` first.")
		return nil
	}

	companies := browse.CountCompanies(jobs)
	for {
		choice, err := browse.RunCompanyPicker(companies)
		if err != nil {
			return fmt.Errorf("picker: %w", err)
		}
		if choice < 0 {
			return nil
		}

		wantQuit, err := browse.Run(browse.FilterCompany(jobs, companies[choice].Name))
		if err != nil {
			return fmt.Errorf("browse: %w", err)
		}
		if wantQuit {
			return nil
		}
		// else: loop → back to picker
	}
}
