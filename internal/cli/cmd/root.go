package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/stablehq/stablecast/internal/cli/output"
	"github.com/stablehq/stablecast/pkg/client"
)

var (
	serverURL  string
	userID     int64
	jsonOutput bool
	out        *output.Output
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "stablecast",
	Short: "CLI for the stablecast realtime event service",
	Long:  `stablecast is a command-line tool for publishing and consuming realtime events from a stablecast server.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		out = output.New(jsonOutput)
		if serverURL == "" {
			serverURL = os.Getenv("STABLECAST_SERVER")
		}
		if serverURL == "" {
			serverURL = client.DefaultServer
		}
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&serverURL, "server", "", "server URL (default $STABLECAST_SERVER or "+client.DefaultServer+")")
	rootCmd.PersistentFlags().Int64Var(&userID, "user", 1, "subject user id sent as X-User-ID")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")
}

// getClient creates a client with current flags.
func getClient() *client.Client {
	return client.New(client.WithServer(serverURL), client.WithUserID(userID))
}
