package cmd

import (
	"context"
	"encoding/json"
	"os"

	"github.com/spf13/cobra"
	"github.com/stablehq/stablecast/pkg/client"
)

var (
	emitOwner  int64
	emitGlobal bool
)

var emitCmd = &cobra.Command{
	Use:   "emit <module> <action> [payload-json]",
	Short: "Publish an event",
	Long: `Publish a domain event.

Examples:
  stablecast emit horses created '{"name":"Star"}'
  stablecast emit documents uploaded '{"id":12}' --owner 3
  stablecast emit --global maintenance '{"until":"18:00"}'`,
	Args: cobra.RangeArgs(1, 3),
	Run: func(cmd *cobra.Command, args []string) {
		c := getClient()
		ctx := context.Background()

		if emitGlobal {
			payload := optionalPayload(args, 1)
			resp, err := c.EmitGlobal(ctx, args[0], payload)
			if err != nil {
				out.Error("Failed to emit: %v", err)
				os.Exit(1)
			}
			report(resp)
			return
		}

		if len(args) < 2 {
			out.Error("module and action are required")
			os.Exit(1)
		}

		req := client.EmitRequest{
			Module:  args[0],
			Action:  args[1],
			Payload: optionalPayload(args, 2),
		}
		if cmd.Flags().Changed("owner") {
			req.OwnerID = &emitOwner
		}

		resp, err := c.Emit(ctx, req)
		if err != nil {
			out.Error("Failed to emit: %v", err)
			os.Exit(1)
		}
		report(resp)
	},
}

func optionalPayload(args []string, idx int) json.RawMessage {
	if len(args) > idx {
		return json.RawMessage(args[idx])
	}
	return nil
}

func report(resp *client.EmitResponse) {
	if out.JSONMode() {
		out.JSON(resp)
		return
	}
	out.Success("Published %s", resp.Event)
	out.KeyValue("Channel", resp.Channel)
	out.KeyValue("Timestamp", resp.Timestamp.Local().Format("15:04:05.000"))
}

func init() {
	emitCmd.Flags().Int64Var(&emitOwner, "owner", 0, "route to this owner's user channel")
	emitCmd.Flags().BoolVar(&emitGlobal, "global", false, "publish to the global broadcast channel")
	rootCmd.AddCommand(emitCmd)
}
