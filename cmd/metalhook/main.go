// Package main is the entry point for the metalhook webhook service.
//
// metalhook receives reservation lifecycle events from a booking system
// and translates them into bare-metal host provisioning and deprovisioning
// transitions against the cluster API, monitoring each transition to its
// terminal state and reporting the outcome.
//
// For detailed usage information, run:
//
//	metalhook --help
package main

import (
	"fmt"
	"os"

	"metalhook/cmd/metalhook/commands"
)

// Version information set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	commands.SetVersionInfo(version, commit, date)
	if err := commands.Root().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
