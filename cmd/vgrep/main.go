// Package main provides the entry point for the vgrep CLI.
package main

import (
	"os"

	"github.com/vectorgrep/vgrep/cmd/vgrep/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
