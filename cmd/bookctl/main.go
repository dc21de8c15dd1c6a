// Package main is the entry point for the bookctl CLI.
package main

import (
	"os"

	"github.com/smallbooks/bookkeeper/cmd/bookctl/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
