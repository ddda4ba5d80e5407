// Package main is the yobidashi CLI entry point.
package main

import (
	"os"

	"github.com/hyperjump/yobidashi/cmd/yobidashi/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
