package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show realtime usage statistics",
	Run: func(cmd *cobra.Command, args []string) {
		stats, err := getClient().Stats(context.Background())
		if err != nil {
			out.Error("Failed to fetch stats: %v", err)
			os.Exit(1)
		}

		if out.JSONMode() {
			out.JSON(stats)
			return
		}
		out.KeyValue("Uptime", fmt.Sprintf("%ds", stats.UptimeSeconds))
		out.KeyValue("Connections", fmt.Sprintf("%d", stats.Realtime.Connections))
		for name, ch := range stats.Realtime.Channels {
			out.KeyValue(name, fmt.Sprintf("%d subscribers, %d buffered", ch.Subscribers, ch.Buffered))
		}
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
}
