// Package main provides the entry point for the indexcore CLI.
package main

import (
	"os"

	"github.com/codeforge-dev/indexcore/cmd/indexcore/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
