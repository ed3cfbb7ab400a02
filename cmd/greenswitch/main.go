// Package main is the entry point for the greenswitch CLI.
//
// greenswitch orchestrates a blue-green deployment demo end to end: it
// provisions an EKS cluster with Terraform, installs Jenkins via Helm,
// configures a deployment pipeline, runs the blue deployment, pauses for
// the operator's application update, then runs the green deployment.
//
// Commands: deploy, cleanup, version.
//
// For detailed usage information, run:
//
//	greenswitch --help
package main

import (
	"fmt"
	"os"

	"github.com/greenswitch/greenswitch/cmd/greenswitch/commands"
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
