package main

import (
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/sanathsadiga/jobautomate/internal/notifier"
)

var notifyCmd = &cobra.Command{
	Use:   "notify",
	Short: "Notification subcommands",
}

var notifyTestCmd = &cobra.Command{
	Use:   "test",
	Short: "Send a test notification",
	Long:  "Sends a sample matching job through the configured notifier.",
	RunE:  runNotifyTest,
}

func init() {
	rootCmd.AddCommand(notifyCmd)
	notifyCmd.AddCommand(notifyTestCmd)
}

func runNotifyTest(cmd *cobra.Command, args []string) error {
	cfg, logger, err := bootstrap(os.Stdout)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	n, closeNotifier, err := setupNotifier(ctx, cfg, &http.Client{Timeout: cfg.Sources.HTTPTimeout}, logger)
	if err != nil {
		logger.Error("failed to set up notifier", "error", err)
		return err
	}
	defer closeNotifier()

	if err := notifier.SendTestMessage(ctx, n); err != nil {
		logger.Error("test notification failed", "error", err)
		return err
	}
	logger.Info("test notification sent successfully", "type", cfg.Notification.Type)
	return nil
}
