// This specific file handles the CLI command that removes a file (or
// every file) from the cluster and the metadata store.
/*
 * Copyright (c) 2019, NVIDIA CORPORATION. All rights reserved.
 */
package commands

import (
	"fmt"

	"github.com/urfave/cli"

	"github.com/shardkeep/shardkeep/coordinator"
	"github.com/shardkeep/shardkeep/ctl"
)

var removeCmds = []cli.Command{
	{
		Name:      commandRemove,
		Usage:     "remove a file from every peer and the metadata store",
		ArgsUsage: optionalNameArgument,
		Flags:     []cli.Flag{yesFlag},
		Action:    removeHandler,
	},
}

func removeHandler(c *cli.Context) error {
	name := c.Args().First()
	if name == "" {
		name = coordinator.AllPeers
	}
	if name == coordinator.AllPeers && !c.Bool(yesFlag.Name) {
		ok, err := confirm(c, "this removes every file in the cluster. Continue?")
		if err != nil || !ok {
			return err
		}
	}

	resp, err := ctlClient(c).Call(ctl.Delete(name))
	if err := checkResponse(resp, err); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "removed %s\n", name)
	return nil
}
