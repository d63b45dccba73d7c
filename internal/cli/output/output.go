// Package output handles CLI output formatting.
package output

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/muesli/termenv"
)

// Output handles CLI output formatting.
type Output struct {
	jsonMode bool
	profile  termenv.Profile
}

// New creates a new Output instance.
func New(jsonMode bool) *Output {
	profile := termenv.ColorProfile()
	if os.Getenv("NO_COLOR") != "" || os.Getenv("TERM") == "dumb" {
		profile = termenv.Ascii
	}
	return &Output{jsonMode: jsonMode, profile: profile}
}

func (o *Output) color(hex, text string) string {
	return termenv.String(text).Foreground(o.profile.Color(hex)).String()
}

// Success prints a success message.
func (o *Output) Success(format string, args ...any) {
	if o.jsonMode {
		return
	}
	fmt.Printf(o.color("#50FA7B", "✓ ")+format+"\n", args...)
}

// Error prints an error message to stderr.
func (o *Output) Error(format string, args ...any) {
	if o.jsonMode {
		return
	}
	fmt.Fprintf(os.Stderr, o.color("#FF5555", "✗ ")+format+"\n", args...)
}

// Info prints an info message.
func (o *Output) Info(format string, args ...any) {
	if o.jsonMode {
		return
	}
	fmt.Printf(o.color("#8BE9FD", "→ ")+format+"\n", args...)
}

// KeyValue prints a key-value pair.
func (o *Output) KeyValue(key, value string) {
	if o.jsonMode {
		return
	}
	fmt.Printf("  %s: %s\n", o.color("#6272A4", key), value)
}

// Event prints one received event line.
func (o *Output) Event(timestamp, channel, name, payload string) {
	if o.jsonMode {
		return
	}
	fmt.Printf("%s %s %s %s\n",
		o.color("#6272A4", timestamp),
		o.color("#BD93F9", channel),
		o.color("#F1FA8C", name),
		payload,
	)
}

// JSON prints data as JSON regardless of mode.
func (o *Output) JSON(data any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	enc.Encode(data)
}

// JSONMode reports whether --json output was requested.
func (o *Output) JSONMode() bool {
	return o.jsonMode
}
