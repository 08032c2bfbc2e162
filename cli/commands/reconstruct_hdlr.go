// This file handles commands specific to one running task or peer:
// reconstruct (rebuild the whole cluster after catastrophic loss),
// kill-thread (cancel one named task), and kill (terminate one peer).
/*
 * Copyright (c) 2019, NVIDIA CORPORATION. All rights reserved.
 */
package commands

import (
	"fmt"

	"github.com/urfave/cli"

	"github.com/shardkeep/shardkeep/ctl"
)

var reconstructCmds = []cli.Command{
	{
		Name:      commandReconstruct,
		Usage:     "restore every known file, wipe the cluster, then redistribute whichever files survived",
		ArgsUsage: noArguments,
		Flags:     []cli.Flag{yesFlag},
		Action:    reconstructHandler,
	},
	{
		Name:      commandKillThread,
		Usage:     "cancel the running task named TASK_NAME",
		ArgsUsage: taskNameArgument,
		Action:    killThreadHandler,
	},
	{
		Name:      commandKill,
		Usage:     "send a kill command to one connected peer",
		ArgsUsage: peerArgument,
		Action:    killHandler,
	},
}

func reconstructHandler(c *cli.Context) error {
	if !c.Bool(yesFlag.Name) {
		ok, err := confirm(c, "reconstruct restores then wipes and redistributes every file in the cluster. Continue?")
		if err != nil || !ok {
			return err
		}
	}
	resp, err := ctlClient(c).Call(ctl.Reconstruct())
	if err := checkResponse(resp, err); err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, "reconstruct accepted")
	return nil
}

func killThreadHandler(c *cli.Context) error {
	if c.NArg() == 0 {
		return missingArgumentsError(c, taskNameArgument)
	}
	resp, err := ctlClient(c).Call(ctl.KillThread(c.Args().First()))
	if err := checkResponse(resp, err); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "cancelled tasks named %s\n", c.Args().First())
	return nil
}

func killHandler(c *cli.Context) error {
	if c.NArg() == 0 {
		return missingArgumentsError(c, peerArgument)
	}
	resp, err := ctlClient(c).Call(ctl.Kill(c.Args().First()))
	if err := checkResponse(resp, err); err != nil {
		return err
	}
	fmt.Fprintf(c.App.Writer, "kill sent to %s\n", c.Args().First())
	return nil
}

func confirm(c *cli.Context, prompt string) (bool, error) {
	fmt.Fprintf(c.App.Writer, "%s [y/N] ", prompt)
	var answer string
	if _, err := fmt.Fscanln(c.App.Reader, &answer); err != nil {
		return false, nil
	}
	return answer == "y" || answer == "Y" || answer == "yes", nil
}
