package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check server health",
	Run: func(cmd *cobra.Command, args []string) {
		if err := getClient().Health(context.Background()); err != nil {
			out.Error("Server unhealthy: %v", err)
			os.Exit(1)
		}
		out.Success("Server healthy at %s", serverURL)
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
