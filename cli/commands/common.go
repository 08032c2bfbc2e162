// Package commands provides the set of CLI commands used to drive a
// running shardserver: distribute, restore, reconstruct, show (files,
// stats, peers), and rm/kill.
// This specific file contains common constants and variables used in other files.
/*
 * Copyright (c) 2019, NVIDIA CORPORATION. All rights reserved.
 */
package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli"

	"github.com/shardkeep/shardkeep/ctl"
)

const (
	// Commands (top-level) - preferably verbs
	commandDistribute  = "distribute"
	commandRestore     = "restore"
	commandReconstruct = "reconstruct"
	commandShow        = "show"
	commandRemove      = "rm"
	commandKill        = "kill"
	commandKillThread  = "kill-thread"

	// Show subcommands - preferably nouns
	subcmdShowFiles  = "files"
	subcmdShowStats  = "stats"
	subcmdShowPeers  = "peers"

	// Default values for long running operations
	refreshRateDefault = time.Second
)

// Argument placeholders in help messages. Name format: *Argument
const (
	noArguments          = " "
	fileArgument         = "FILE"
	nameArgument         = "NAME"
	nameDestArgument     = "NAME DEST_PATH"
	optionalNameArgument = "[NAME]"
	peerArgument         = "PEER_ID"
	taskNameArgument     = "TASK_NAME"
)

// Flags
var (
	serverFlag = cli.StringFlag{
		Name:   "server",
		Usage:  "shardserver control address (host:port)",
		Value:  "127.0.0.1:2049",
		EnvVar: "SHARDCTL_SERVER",
	}
	blockSizeFlag = cli.Int64Flag{
		Name:  "block-size",
		Usage: "block size in bytes",
		Value: 1 << 20,
	}
	duplicationFlag = cli.IntFlag{
		Name:  "duplication",
		Usage: "number of peer copies of every data block",
		Value: 1,
	}
	validationFlag = cli.IntFlag{
		Name:  "validation",
		Usage: "data blocks per parity (metadata) block",
		Value: 1,
	}
	jsonFlag        = cli.BoolFlag{Name: "json,j", Usage: "json output"}
	allFlag         = cli.BoolFlag{Name: "all,a", Usage: "include finished tasks"}
	noHeaderFlag    = cli.BoolFlag{Name: "no-headers,H", Usage: "display tables without headers"}
	progressBarFlag = cli.BoolFlag{Name: "progress", Usage: "display progress bar", Value: true}
	refreshFlag     = cli.DurationFlag{Name: "refresh", Usage: "poll period while a job is running", Value: refreshRateDefault}
	yesFlag         = cli.BoolFlag{Name: "yes,y", Usage: "assume 'yes' for all questions"}
)

func ctlClient(c *cli.Context) *ctl.Client {
	return ctl.NewClient(c.GlobalString(serverFlag.Name))
}

// incorrectUsageMsg reports a usage error and shows the command's help.
func incorrectUsageMsg(c *cli.Context, format string, a ...interface{}) error {
	msg := fmt.Sprintf(format, a...)
	fmt.Fprintf(os.Stderr, "Incorrect usage of \"%s %s\": %s\n\n", c.App.Name, c.Command.Name, msg)
	cli.ShowCommandHelp(c, c.Command.Name)
	return cli.NewExitError("", 1)
}

func missingArgumentsError(c *cli.Context, args ...string) error {
	return incorrectUsageMsg(c, "missing arguments: %s", fmt.Sprint(args))
}

func checkResponse(resp map[string]interface{}, err error) error {
	if err != nil {
		return err
	}
	ok, _ := resp["ok"].(bool)
	if !ok {
		msg, _ := resp["error"].(string)
		return cli.NewExitError("shardserver: "+msg, 1)
	}
	return nil
}

// AllCommands is the full top-level command table registered on the
// shardctl cli.App.
func AllCommands() []cli.Command {
	var cmds []cli.Command
	cmds = append(cmds, distributeCmds...)
	cmds = append(cmds, restoreCmds...)
	cmds = append(cmds, reconstructCmds...)
	cmds = append(cmds, showCmds...)
	cmds = append(cmds, removeCmds...)
	return cmds
}

// GlobalFlags is registered on the shardctl cli.App itself.
func GlobalFlags() []cli.Flag {
	return []cli.Flag{serverFlag}
}
