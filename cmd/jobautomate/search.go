package main

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sanathsadiga/jobautomate/internal/model"
	"github.com/sanathsadiga/jobautomate/internal/pipeline"
)

var (
	searchCompanies []string
	searchRole      string
	searchLocation  string
	searchDryRun    bool
)

var searchCmd = &cobra.Command{
	Use:   "search",
	Short: "Run one aggregation and print the results",
	Long: `Fetches postings for the given companies, scores them, stores them and prints
the combined batch as JSON. Without --company the configured company set is used.`,
	Example: `  jobautomate search --company zoho --company google --role developer --location India
  jobautomate search -C microsoft -r "software engineer" --dry-run`,
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().StringSliceVarP(&searchCompanies, "company", "C", nil, "company to search (repeatable or comma separated)")
	searchCmd.Flags().StringVarP(&searchRole, "role", "r", "", "role keyword")
	searchCmd.Flags().StringVarP(&searchLocation, "location", "l", "", "location keyword")
	searchCmd.Flags().BoolVar(&searchDryRun, "dry-run", false, "do not store results or send notifications")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	// Logs go to stderr so stdout stays valid JSON.
	cfg, logger, err := bootstrap(os.Stderr)
	if err != nil {
		return err
	}

	companies := searchCompanies
	if len(companies) == 0 {
		companies = cfg.Companies
	}
	if len(companies) == 0 {
		return errors.New("no companies given: pass --company or set companies in the config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	jobStore, err := openStore(cfg, searchDryRun, logger)
	if err != nil {
		logger.Error("failed to open store", "error", err)
		return err
	}
	defer jobStore.Close()

	var n model.Notifier
	if !searchDryRun {
		var closeNotifier func()
		n, closeNotifier, err = setupNotifier(ctx, cfg, &http.Client{Timeout: cfg.Sources.HTTPTimeout}, logger)
		if err != nil {
			logger.Error("failed to set up notifier", "error", err)
			return err
		}
		defer closeNotifier()
	}

	agg := newAggregator(cfg, buildRegistry(cfg, logger), jobStore, n, logger)
	results := agg.Aggregate(ctx, model.Query{
		Companies: companies,
		Role:      searchRole,
		Location:  searchLocation,
	})

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(pipeline.EnsureNonEmpty(results))
}
