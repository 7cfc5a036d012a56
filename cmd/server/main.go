// ABOUTME: Standalone h2c MCP server with stdio transport
// ABOUTME: Equivalent to 'h2c serve' for MCP clients that want a dedicated binary
package main

import (
	"fmt"
	"os"

	"github.com/rajujutsu/highlight-to-chatgpt/cmd/h2c/commands"
)

// Version information (set by goreleaser)
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersion(version, commit, date)

	root := commands.NewRootCmd()
	root.SetArgs(append([]string{"serve"}, os.Args[1:]...))
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
