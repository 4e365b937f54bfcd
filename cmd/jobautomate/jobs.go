package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sanathsadiga/jobautomate/internal/model"
)

var (
	jobsMatch   bool
	jobsCompany string
	jobsLimit   int
	jobsJSON    bool
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List stored jobs, newest first",
	RunE:  runJobs,
}

func init() {
	jobsCmd.Flags().BoolVarP(&jobsMatch, "match", "m", false, "only jobs that match your experience")
	jobsCmd.Flags().StringVar(&jobsCompany, "company", "", "only jobs from this company")
	jobsCmd.Flags().IntVarP(&jobsLimit, "limit", "n", 20, "maximum number of jobs")
	jobsCmd.Flags().BoolVar(&jobsJSON, "json", false, "print JSON instead of a table")
	rootCmd.AddCommand(jobsCmd)
}

func runJobs(cmd *cobra.Command, args []string) error {
	cfg, logger, err := bootstrap(os.Stderr)
	if err != nil {
		return err
	}

	jobStore, err := openStore(cfg, false, logger)
	if err != nil {
		return err
	}
	defer jobStore.Close()

	jobs, err := jobStore.List(context.Background(), model.ListFilter{
		MatchOnly: jobsMatch,
		Company:   jobsCompany,
		Limit:     jobsLimit,
	})
	if err != nil {
		return fmt.Errorf("list jobs: %w", err)
	}

	out := cmd.OutOrStdout()
	if jobsJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(jobs)
	}
	printJobs(out, jobs)
	return nil
}

func printJobs(w io.Writer, jobs []model.StoredJob) {
	fmt.Fprintf(w, "%-12s %-40s %-20s %-6s %s\n", "Company", "Title", "Location", "Match", "Reason")
	fmt.Fprintln(w, strings.Repeat("─", 110))

	matched := 0
	for _, j := range jobs {
		match := "no"
		if j.Match {
			match = "yes"
			matched++
		}
		fmt.Fprintf(w, "%-12s %-40s %-20s %-6s %s\n",
			clip(j.Company, 12), clip(j.Title, 40), clip(j.Location, 20), match, j.MatchReason)
	}

	fmt.Fprintf(w, "\nTotal: %d jobs (%d matched)\n", len(jobs), matched)
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
