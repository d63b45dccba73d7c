package main

import "github.com/stablehq/stablecast/internal/cli/cmd"

func main() {
	cmd.Execute()
}
