// Package main provides the entry point for the trove CLI.
package main

import (
	"os"

	"github.com/trove-dev/trove/cmd/trove/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
