package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sanathsadiga/jobautomate/internal/logging"
)

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List registered sources",
	Long:  "Prints every company name accepted by search, with its display name and class.",
	RunE:  runSources,
}

func init() {
	rootCmd.AddCommand(sourcesCmd)
}

func runSources(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	reg := buildRegistry(cfg, logging.Discard())
	out := cmd.OutOrStdout()

	fmt.Fprintf(out, "%-20s %-20s %s\n", "Key", "Source", "Class")
	fmt.Fprintln(out, strings.Repeat("─", 47))

	keys := reg.Keys()
	for _, k := range keys {
		s, _ := reg.Lookup(k)
		fmt.Fprintf(out, "%-20s %-20s %s\n", k, s.Name(), s.Class())
	}

	fmt.Fprintf(out, "\nTotal: %d sources\n", len(keys))
	return nil
}
