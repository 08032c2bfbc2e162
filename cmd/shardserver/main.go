// shardserver runs the coordinator process (spec.md section 4.9): it
// listens for peer connections, drives distribute/restore/reconstruct
// tasks, and serves the CLI's commands.
//
// Grounded on ais/setup/aisnode.go's one-line main that delegates
// everything to a package Run function; flag parsing is plain stdlib
// flag plus glog's registered -v/-logtostderr flags, since glog is the
// only flag-registering dependency the teacher ever wires into a main.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/golang/glog"

	"github.com/shardkeep/shardkeep/cluster"
	"github.com/shardkeep/shardkeep/cmn/config"
	"github.com/shardkeep/shardkeep/coordinator"
	"github.com/shardkeep/shardkeep/ctl"
	"github.com/shardkeep/shardkeep/store"
)

func main() {
	var (
		confPath = flag.String("config", "", "path to a server config JSON file")
		port     = flag.Int("port", 0, "listen port (overrides config file)")
		confdir  = flag.String("confdir", "", "base dir for files.db and temp/ (overrides config file)")
	)
	flag.Parse()
	defer glog.Flush()

	cfg, err := config.LoadServerFile(*confPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "shardserver: load config: %v\n", err)
		os.Exit(1)
	}
	if *port != 0 {
		cfg.Port = *port
	}
	if *confdir != "" {
		cfg.Confdir = *confdir
	}
	config.Set(cfg)

	if err := run(cfg); err != nil {
		glog.Errorf("shardserver: %v", err)
		os.Exit(1)
	}
}

func run(cfg *config.Server) error {
	events := make(chan cluster.Event, 256)
	hub := cluster.NewHub(events)
	if err := hub.Listen(fmt.Sprintf(":%d", cfg.Port)); err != nil {
		return err
	}
	go hub.Run()

	tempDir := cfg.Confdir + "/temp"
	if err := os.MkdirAll(tempDir, 0o755); err != nil {
		return err
	}

	st, err := store.Open(cfg.Confdir)
	if err != nil {
		return err
	}
	defer st.Close()

	ui := make(chan coordinator.UIEvent, 256)
	go logUIEvents(ui)

	coord := coordinator.New(hub, events, st, ui, tempDir)
	go coord.Run()
	glog.Infof("shardserver: listening on port %d, confdir %s", cfg.Port, cfg.Confdir)

	ctlAddr := fmt.Sprintf(":%d", cfg.Port+1)
	ctlSrv := ctl.NewServer(coord, st)
	if err := ctlSrv.Listen(ctlAddr); err != nil {
		return err
	}
	glog.Infof("shardserver: control endpoint on %s", ctlSrv.Addr())
	return ctlSrv.Serve()
}

func logUIEvents(ui <-chan coordinator.UIEvent) {
	for evt := range ui {
		switch evt.Kind {
		case "error":
			glog.Warningf("shardserver: %s", evt.Message)
		default:
			glog.V(2).Infof("shardserver: ui event %s: peers=%v payload=%v", evt.Kind, evt.Peers, evt.Payload)
		}
	}
}
