// This file handles the distribute command: scatter a local file
// across the cluster as encrypted, duplicated, parity-protected
// blocks.
/*
 * Copyright (c) 2019, NVIDIA CORPORATION. All rights reserved.
 */
package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli"
	"github.com/vbauerster/mpb/v4"
	"github.com/vbauerster/mpb/v4/decor"

	"github.com/shardkeep/shardkeep/ctl"
)

// unknownTotalIncrement is the bar's step size while the task's final
// block count is still unknown; the bar is given a generous total and
// re-based whenever progress would otherwise overrun it.
const unknownTotalIncrement = 64

var (
	distributeCmdsFlags = map[string][]cli.Flag{
		commandDistribute: {
			blockSizeFlag,
			duplicationFlag,
			validationFlag,
			progressBarFlag,
			refreshFlag,
		},
	}

	distributeCmds = []cli.Command{
		{
			Name:      commandDistribute,
			Usage:     "split a file into encrypted blocks and scatter it across connected peers",
			ArgsUsage: fileArgument,
			Flags:     distributeCmdsFlags[commandDistribute],
			Action:    distributeHandler,
		},
	}
)

func distributeHandler(c *cli.Context) error {
	if c.NArg() == 0 {
		return missingArgumentsError(c, fileArgument)
	}
	path := c.Args().First()
	if _, err := os.Stat(path); err != nil {
		return cli.NewExitError(fmt.Sprintf("distribute: %v", err), 1)
	}

	client := ctlClient(c)
	resp, err := client.Call(ctl.Distribute(path, c.Int64(blockSizeFlag.Name), c.Int(duplicationFlag.Name), c.Int(validationFlag.Name)))
	if err := checkResponse(resp, err); err != nil {
		return err
	}

	name := fileBase(path)
	fmt.Fprintf(c.App.Writer, "distribute of %s accepted\n", name)
	if !c.Bool(progressBarFlag.Name) {
		return nil
	}
	return waitForTask(c, client, name, "distribute")
}

// waitForTask polls "show stats" until a task named name of the given
// kind finishes, driving an indeterminate mpb bar off the task's block
// count; grounded on downloader.go's progressBar, whose
// unknownTotalIncrement re-basing handles a file download's unknown
// final size the same way this handles a task's unknown final block
// count. The coordinator records a task's block count only when the
// task finishes, so while it runs the bar shows elapsed time and does
// not advance; it fills in one step at the end.
func waitForTask(c *cli.Context, client *ctl.Client, name, kind string) error {
	p := mpb.New(mpb.WithWidth(64))
	bar := p.AddBar(unknownTotalIncrement,
		mpb.PrependDecorators(decor.Name(kind+" "+name)),
		mpb.AppendDecorators(decor.Elapsed(decor.ET_STYLE_GO)),
	)

	ticker := time.NewTicker(c.Duration(refreshFlag.Name))
	defer ticker.Stop()

	var lastBlocks, current int64
	total := int64(unknownTotalIncrement)
	var outcome string
	for range ticker.C {
		resp, err := client.Call(ctl.Stats())
		if err != nil {
			bar.SetTotal(current, true)
			p.Wait()
			return err
		}
		tasks, _ := resp["tasks"].([]interface{})
		for _, raw := range tasks {
			t, ok := raw.(map[string]interface{})
			if !ok || t["name"] != name || t["kind"] != kind {
				continue
			}
			blocks, _ := toInt64(t["block_count"])
			if delta := blocks - lastBlocks; delta > 0 {
				if current+delta >= total {
					total = current + delta + unknownTotalIncrement
					bar.SetTotal(total, false)
				}
				bar.IncrBy(int(delta))
				current += delta
				lastBlocks = blocks
			}
			if running, _ := t["running"].(bool); running {
				continue
			}
			success, _ := t["success"].(bool)
			if success {
				outcome = "finished"
			} else {
				outcome = "failed"
			}
		}
		if outcome != "" {
			bar.SetTotal(current, true)
			break
		}
	}
	p.Wait()
	fmt.Fprintf(c.App.Writer, "%s: %s %s\n", kind, name, outcome)
	return nil
}

func toInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case float64:
		return int64(n), true
	case int64:
		return n, true
	default:
		return 0, false
	}
}

func fileBase(path string) string {
	for i := len(path) - 1; i >= 0; i-- {
		if path[i] == '/' {
			return path[i+1:]
		}
	}
	return path
}
