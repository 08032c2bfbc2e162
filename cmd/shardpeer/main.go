// shardpeer runs the storage peer process (spec.md section 4.5): it
// connects to the coordinator, reconnecting with a backoff on drop,
// and applies the server's block commands against dataPath.
//
// Grounded the same way as shardserver's main: a thin stdlib flag
// parse followed by a one-line delegation into the daemon package, in
// the style of ais/setup/aisnode.go.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/golang/glog"

	"github.com/shardkeep/shardkeep/cmn/config"
	"github.com/shardkeep/shardkeep/daemon"
)

func main() {
	var (
		server   = flag.String("server", "", "coordinator host (overrides config file)")
		port     = flag.Int("port", 0, "coordinator port (overrides config file)")
		dataPath = flag.String("datapath", "", "directory to store blocks in (overrides config file)")
		confPath = flag.String("config", "", "path to a peer config JSON file")
	)
	flag.Parse()
	defer glog.Flush()

	cfg := config.DefaultPeer()
	if *confPath != "" {
		if err := config.LoadPeerFile(*confPath, cfg); err != nil {
			fmt.Fprintf(os.Stderr, "shardpeer: load config: %v\n", err)
			os.Exit(1)
		}
	}
	if *server != "" {
		cfg.Server = *server
	}
	if *port != 0 {
		cfg.Port = *port
	}
	if *dataPath != "" {
		cfg.DataPath = *dataPath
	}

	d := daemon.New(fmt.Sprintf("%s:%d", cfg.Server, cfg.Port), cfg.DataPath, cfg.ReconnectBackoff)
	glog.Infof("shardpeer: connecting to %s:%d, data dir %s", cfg.Server, cfg.Port, cfg.DataPath)
	if err := d.Run(); err != nil {
		glog.Errorf("shardpeer: %v", err)
		os.Exit(1)
	}
}
