package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/groblegark/shopwatch/internal/config"
	"github.com/groblegark/shopwatch/internal/model"
	"github.com/groblegark/shopwatch/internal/store/postgres"
)

// emitCmd inserts a test/demo event directly into the event log. In
// production the CRUD layer is the writer; this is the one in-scope
// insertion path.
var emitCmd = &cobra.Command{
	Use:   "emit <type>",
	Short: "Insert a test event into the event log",
	Long: `Inserts an event into the shared event log, exactly as the shop's
CRUD layer would. Connected watchers receive it on the next tick.

Examples:
  swd emit stock_update --data '{"product_id": 7, "stock": 2}'
  swd emit smoke_test`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, _ := cmd.Flags().GetString("data")

		var payload json.RawMessage
		if data != "" {
			if !json.Valid([]byte(data)) {
				return fmt.Errorf("--data is not valid JSON: %q", data)
			}
			payload = json.RawMessage(data)
		}

		cfg, err := config.Load()
		if err != nil {
			return err
		}
		store, err := postgres.New(cfg.DatabaseURL)
		if err != nil {
			return err
		}
		defer store.Close()

		event := &model.Event{Type: args[0], Payload: payload}
		if err := store.RecordEvent(cmd.Context(), event); err != nil {
			return fmt.Errorf("recording event: %w", err)
		}

		fmt.Printf("event %d recorded (%s)\n", event.ID, event.Type)
		return nil
	},
}

func init() {
	emitCmd.Flags().String("data", "", "event payload as a JSON object")
	rootCmd.AddCommand(emitCmd)
}
