// This file contains implementation of the top-level `show` command:
// files (ls), stats (running/finished tasks), and peers (connected
// storage peers).
/*
 * Copyright (c) 2019, NVIDIA CORPORATION. All rights reserved.
 */
package commands

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/urfave/cli"

	"github.com/shardkeep/shardkeep/ctl"
)

var (
	showCmdsFlags = map[string][]cli.Flag{
		subcmdShowFiles: {jsonFlag, noHeaderFlag},
		subcmdShowStats: {jsonFlag, allFlag, noHeaderFlag},
		subcmdShowPeers: {jsonFlag},
	}

	showCmds = []cli.Command{
		{
			Name:  commandShow,
			Usage: "show the state of a running cluster",
			Subcommands: []cli.Command{
				{
					Name:      subcmdShowFiles,
					Usage:     "list every file known to the metadata store",
					ArgsUsage: noArguments,
					Flags:     showCmdsFlags[subcmdShowFiles],
					Action:    showFilesHandler,
				},
				{
					Name:      subcmdShowStats,
					Usage:     "show distribute/restore/reconstruct task status",
					ArgsUsage: noArguments,
					Flags:     showCmdsFlags[subcmdShowStats],
					Action:    showStatsHandler,
				},
				{
					Name:      subcmdShowPeers,
					Usage:     "list connected storage peers",
					ArgsUsage: noArguments,
					Flags:     showCmdsFlags[subcmdShowPeers],
					Action:    showPeersHandler,
				},
			},
		},
	}
)

func showFilesHandler(c *cli.Context) error {
	resp, err := ctlClient(c).Call(ctl.LS())
	if err := checkResponse(resp, err); err != nil {
		return err
	}
	files, _ := resp["files"].([]interface{})

	if flagIsSet(c, jsonFlag) {
		return printJSON(c, files)
	}

	w := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	if !flagIsSet(c, noHeaderFlag) {
		fmt.Fprintln(w, "NAME\tSIZE\tBLOCKS\tDUPLICATION\tVALIDATION")
	}
	for _, raw := range files {
		f, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		fmt.Fprintf(w, "%v\t%v\t%v\t%v\t%v\n", f["name"], f["file_size"], f["block_number"], f["duplication_level"], f["validation_level"])
	}
	return w.Flush()
}

func showStatsHandler(c *cli.Context) error {
	resp, err := ctlClient(c).Call(ctl.Stats())
	if err := checkResponse(resp, err); err != nil {
		return err
	}
	tasks, _ := resp["tasks"].([]interface{})

	if !flagIsSet(c, allFlag) {
		filtered := tasks[:0]
		for _, raw := range tasks {
			t, ok := raw.(map[string]interface{})
			if ok {
				if running, _ := t["running"].(bool); running {
					filtered = append(filtered, raw)
				}
			}
		}
		tasks = filtered
	}

	if flagIsSet(c, jsonFlag) {
		return printJSON(c, tasks)
	}

	w := tabwriter.NewWriter(c.App.Writer, 0, 4, 2, ' ', 0)
	if !flagIsSet(c, noHeaderFlag) {
		fmt.Fprintln(w, "ID\tKIND\tNAME\tRUNNING\tSUCCESS\tBLOCKS\tBYTES")
	}
	for _, raw := range tasks {
		t, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		fmt.Fprintf(w, "%v\t%v\t%v\t%v\t%v\t%v\t%v\n",
			t["id"], t["kind"], t["name"], t["running"], t["success"], t["block_count"], t["bytes_count"])
	}
	return w.Flush()
}

func showPeersHandler(c *cli.Context) error {
	resp, err := ctlClient(c).Call(ctl.Clients())
	if err := checkResponse(resp, err); err != nil {
		return err
	}
	peers, _ := resp["peers"].([]interface{})

	if flagIsSet(c, jsonFlag) {
		return printJSON(c, peers)
	}
	for _, p := range peers {
		fmt.Fprintln(c.App.Writer, p)
	}
	return nil
}

func flagIsSet(c *cli.Context, flag cli.Flag) bool {
	return c.IsSet(cleanFlagName(flag.GetName())) || c.GlobalIsSet(cleanFlagName(flag.GetName()))
}

func cleanFlagName(name string) string {
	for i := 0; i < len(name); i++ {
		if name[i] == ',' {
			return name[:i]
		}
	}
	return name
}

func printJSON(c *cli.Context, v interface{}) error {
	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
