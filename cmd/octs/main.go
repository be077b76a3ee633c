// octs parses HCL and Elixir sources and search patterns with tree-sitter.
package main

import (
	"fmt"
	"os"

	"github.com/corey/octs/cmd/octs/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		if msg := err.Error(); msg != "" {
			fmt.Fprintf(os.Stderr, "octs: %s\n", msg)
		}
		os.Exit(cmd.ExitCode(err))
	}
}
