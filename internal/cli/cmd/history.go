package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history <channel>",
	Short: "Show recent events on a channel",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		events, err := getClient().History(context.Background(), args[0], historyLimit)
		if err != nil {
			out.Error("Failed to fetch history: %v", err)
			os.Exit(1)
		}

		if out.JSONMode() {
			out.JSON(events)
			return
		}
		if len(events) == 0 {
			out.Info("No events on channel %s", args[0])
			return
		}
		for _, evt := range events {
			printEvent(evt)
		}
	},
}

func init() {
	historyCmd.Flags().IntVar(&historyLimit, "limit", 50, "max events to return")
	rootCmd.AddCommand(historyCmd)
}
