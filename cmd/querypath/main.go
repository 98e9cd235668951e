// Package main is the entry point for the querypath CLI.
package main

import (
	"os"

	"github.com/querypath-labs/querypath/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
