package cmd

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/itchyny/gojq"
	"github.com/spf13/cobra"
	"github.com/stablehq/stablecast/pkg/client"
)

var (
	subscribeChannels []string
	subscribeReplay   int
	subscribeFilter   string
	subscribeCount    int
	subscribeTimeout  time.Duration
)

var subscribeCmd = &cobra.Command{
	Use:   "subscribe",
	Short: "Subscribe to realtime events",
	Long: `Subscribe to realtime events and print them as they arrive.

Examples:
  stablecast subscribe
  stablecast subscribe --channels horses,documents --replay 20
  stablecast subscribe --filter '.name != null' --count 5 --timeout 30s`,
	Run: func(cmd *cobra.Command, args []string) {
		var jqCode *gojq.Code
		if subscribeFilter != "" {
			code, err := compileJqFilter(subscribeFilter)
			if err != nil {
				out.Error("Invalid jq filter: %v", err)
				os.Exit(1)
			}
			jqCode = code
		}

		ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer cancel()
		if subscribeTimeout > 0 {
			ctx, cancel = context.WithTimeout(ctx, subscribeTimeout)
			defer cancel()
		}

		sub, err := getClient().Subscribe(ctx, client.SubscribeOptions{
			Channels: subscribeChannels,
			Replay:   subscribeReplay,
		})
		if err != nil {
			out.Error("Failed to subscribe: %v", err)
			os.Exit(1)
		}
		defer sub.Close()

		out.Success("Subscribed")
		if len(subscribeChannels) > 0 {
			out.KeyValue("Channels", strings.Join(subscribeChannels, ", "))
		}
		if subscribeFilter != "" {
			out.KeyValue("Filter", subscribeFilter)
		}

		received := 0
		for {
			select {
			case <-ctx.Done():
				return
			case evt, ok := <-sub.Events():
				if !ok {
					if err := sub.Err(); err != nil {
						out.Error("Stream ended: %v", err)
						os.Exit(1)
					}
					return
				}
				if jqCode != nil && !matchesFilter(jqCode, evt.Payload) {
					continue
				}
				printEvent(evt)
				received++
				if subscribeCount > 0 && received >= subscribeCount {
					return
				}
			}
		}
	},
}

func printEvent(evt client.Event) {
	if out.JSONMode() {
		out.JSON(evt)
		return
	}
	out.Event(
		evt.Timestamp.Local().Format("15:04:05"),
		evt.Channel,
		evt.Name,
		string(evt.Payload),
	)
}

func compileJqFilter(filter string) (*gojq.Code, error) {
	query, err := gojq.Parse(filter)
	if err != nil {
		return nil, err
	}
	return gojq.Compile(query)
}

// matchesFilter runs the jq program against the event payload and keeps
// the event when the first result is truthy.
func matchesFilter(code *gojq.Code, payload []byte) bool {
	var input any
	if err := json.Unmarshal(payload, &input); err != nil {
		return false
	}

	iter := code.Run(input)
	v, ok := iter.Next()
	if !ok {
		return false
	}
	if _, isErr := v.(error); isErr {
		return false
	}
	return v != nil && v != false
}

func init() {
	subscribeCmd.Flags().StringSliceVar(&subscribeChannels, "channels", nil, "extra channels to subscribe to")
	subscribeCmd.Flags().IntVar(&subscribeReplay, "replay", 0, "replay up to N recent events per channel")
	subscribeCmd.Flags().StringVar(&subscribeFilter, "filter", "", "jq filter applied to event payloads")
	subscribeCmd.Flags().IntVar(&subscribeCount, "count", 0, "exit after N events")
	subscribeCmd.Flags().DurationVar(&subscribeTimeout, "timeout", 0, "exit after this duration")
	rootCmd.AddCommand(subscribeCmd)
}
