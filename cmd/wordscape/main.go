// Package main is the entry point for the wordscape CLI.
//
// Usage:
//
//	wordscape [flags] <command> [args]
//
// Commands:
//
//	talk     - Interactive push-to-talk conversation session
//	embed    - Look up 3D positions for words
//	vocab    - Inspect the learned vocabulary store
//	config   - Configuration management
//	version  - Show version information
package main

import (
	"fmt"
	"os"

	"github.com/wordscape/wordscape/cmd/wordscape/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
