// shardctl is the command-line client for a running shardserver:
// distribute, restore, reconstruct, and inspect the cluster over the
// control protocol in package ctl.
//
// Grounded on cli/commands' urfave/cli command tables, wired into a
// standard cli.NewApp()/app.Run(os.Args) bootstrap; version/build are
// set by ldflags the same way ais/setup/aisnode.go's are.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli"

	"github.com/shardkeep/shardkeep/cli/commands"
)

var (
	version string
	build   string
)

func main() {
	app := cli.NewApp()
	app.Name = "shardctl"
	app.Usage = "control a shardkeep cluster"
	app.Version = fmt.Sprintf("%s (build %s)", version, build)
	app.Flags = commands.GlobalFlags()
	app.Commands = commands.AllCommands()
	app.CommandNotFound = func(c *cli.Context, cmd string) {
		fmt.Fprintf(os.Stderr, "unknown command %q\n", cmd)
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
