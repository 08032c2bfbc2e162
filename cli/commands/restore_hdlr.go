// This file handles the restore command: reassemble a previously
// distributed file from the blocks still reachable across the
// cluster, repairing any losses the validation level allows.
/*
 * Copyright (c) 2019, NVIDIA CORPORATION. All rights reserved.
 */
package commands

import (
	"fmt"

	"github.com/urfave/cli"

	"github.com/shardkeep/shardkeep/ctl"
)

var (
	restoreCmdsFlags = map[string][]cli.Flag{
		commandRestore: {
			progressBarFlag,
			refreshFlag,
		},
	}

	restoreCmds = []cli.Command{
		{
			Name:      commandRestore,
			Usage:     "reassemble a distributed file into a local destination path",
			ArgsUsage: nameDestArgument,
			Flags:     restoreCmdsFlags[commandRestore],
			Action:    restoreHandler,
		},
	}
)

func restoreHandler(c *cli.Context) error {
	if c.NArg() < 2 {
		return missingArgumentsError(c, nameDestArgument)
	}
	name, dest := c.Args().Get(0), c.Args().Get(1)

	client := ctlClient(c)
	resp, err := client.Call(ctl.Restore(name, dest))
	if err := checkResponse(resp, err); err != nil {
		return err
	}

	fmt.Fprintf(c.App.Writer, "restore of %s accepted\n", name)
	if !c.Bool(progressBarFlag.Name) {
		return nil
	}
	return waitForTask(c, client, name, "restore")
}
