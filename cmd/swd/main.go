package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/groblegark/shopwatch/internal/ui"
)

var rootCmd = &cobra.Command{
	Use:   "swd <command>",
	Short: "Real-time shop event broadcast server",
	Long: `swd republishes business events (stock changes, order status,
offers, reviews) from the shop's event log to WebSocket clients.

The serve command runs the broadcast server; watch connects to one and
prints events as they arrive; emit inserts a test event into the log.`,
	SilenceUsage: true,
}

func main() {
	if !ui.ShouldUseColor() {
		ui.ForceNoColor()
	}
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
