package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/groblegark/shopwatch/internal/client"
	"github.com/groblegark/shopwatch/internal/ui"
)

func defaultServerURL() string {
	if s := os.Getenv("SHOPWATCH_URL"); s != "" {
		return s
	}
	if u := activeRemoteURL(); u != "" {
		return u
	}
	return "ws://localhost:8080"
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Connect to a broadcast server and print events",
	RunE: func(cmd *cobra.Command, args []string) error {
		url, _ := cmd.Flags().GetString("url")
		kinds, _ := cmd.Flags().GetStringSlice("subscribe")
		if url == "" {
			url = defaultServerURL()
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		conn, err := client.Dial(ctx, url)
		if err != nil {
			return err
		}
		defer conn.Close()

		for _, kind := range kinds {
			if err := conn.Subscribe(kind); err != nil {
				return err
			}
		}

		// Close the socket when interrupted so the read loop unblocks.
		go func() {
			<-ctx.Done()
			conn.Close()
		}()

		for {
			payload, err := conn.Read()
			if err != nil {
				if ctx.Err() != nil || err == io.EOF {
					return nil
				}
				return fmt.Errorf("reading from server: %w", err)
			}
			printMessage(payload)
		}
	},
}

// printMessage renders one server message as a single line.
func printMessage(payload []byte) {
	var msg struct {
		Type             string          `json:"type"`
		Message          string          `json:"message"`
		Data             json.RawMessage `json:"data"`
		Timestamp        string          `json:"timestamp"`
		LowStockProducts json.RawMessage `json:"low_stock_products"`
	}
	if err := json.Unmarshal(payload, &msg); err != nil {
		fmt.Println(string(payload))
		return
	}

	now := ui.RenderMuted(time.Now().Format("15:04:05"))
	switch {
	case msg.Type == "initial_data":
		fmt.Printf("%s %s %s\n", now, ui.RenderAccent(msg.Message), ui.RenderMuted(string(msg.LowStockProducts)))
	case msg.Type == "error":
		fmt.Printf("%s %s %s\n", now, ui.RenderAccent("error"), msg.Message)
	case msg.Data != nil:
		fmt.Printf("%s %s %s\n", now, ui.RenderEvent(msg.Type), string(msg.Data))
	default:
		fmt.Printf("%s %s %s\n", now, ui.RenderEvent(msg.Type), msg.Message)
	}
}

func init() {
	watchCmd.Flags().String("url", "", "server URL (default: SHOPWATCH_URL, active remote, or ws://localhost:8080)")
	watchCmd.Flags().StringSlice("subscribe", nil, "subscription kinds to announce (stock, orders, offers, reviews)")
	rootCmd.AddCommand(watchCmd)
}
