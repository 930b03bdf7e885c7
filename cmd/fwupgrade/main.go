// Package main is the entry point for the fwupgrade CLI.
//
// fwupgrade upgrades the firmware of a Cisco ASA, either a standalone unit or
// both units of a failover pair, over SSH: it copies the image, verifies it,
// sets the boot variable, reloads and checks the running version. For a pair
// it moves the active role around so that traffic keeps flowing.
//
// Commands: upgrade, init, version, completion.
//
// For detailed usage information, run:
//
//	fwupgrade --help
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/imamik/fwupgrade/cmd/fwupgrade/commands"
	"github.com/imamik/fwupgrade/cmd/fwupgrade/handlers"
)

// Version information set by goreleaser at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	commands.SetVersionInfo(version, commit, date)
	if err := commands.Root().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(handlers.ExitCode(err))
	}
}
