package ctl

import (
	"testing"

	"github.com/shardkeep/shardkeep/cluster"
	"github.com/shardkeep/shardkeep/cmn"
	"github.com/shardkeep/shardkeep/coordinator"
	"github.com/shardkeep/shardkeep/store"
)

type fakeHub struct{}

func (fakeHub) Send(target string, msg cmn.SimpleKVs) error { return nil }
func (fakeHub) Stop()                                       {}

func startServer(t *testing.T) (string, *coordinator.Coordinator) {
	t.Helper()
	st, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	hubEvents := make(chan cluster.Event, 8)
	coord := coordinator.New(fakeHub{}, hubEvents, st, nil, t.TempDir())
	go coord.Run()
	t.Cleanup(coord.Exit)

	srv := NewServer(coord, st)
	if err := srv.Listen("127.0.0.1:0"); err != nil {
		t.Fatalf("listen: %v", err)
	}
	go srv.Serve()
	return srv.Addr(), coord
}

func TestServerLSEmpty(t *testing.T) {
	addr, _ := startServer(t)
	client := NewClient(addr)

	resp, err := client.Call(LS())
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if ok, _ := resp["ok"].(bool); !ok {
		t.Fatalf("got %+v, want ok=true", resp)
	}
	files, _ := resp["files"].([]interface{})
	if len(files) != 0 {
		t.Fatalf("got %d files, want 0", len(files))
	}
}

func TestServerStatsEmpty(t *testing.T) {
	addr, _ := startServer(t)
	client := NewClient(addr)

	resp, err := client.Call(Stats())
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	tasks, _ := resp["tasks"].([]interface{})
	if len(tasks) != 0 {
		t.Fatalf("got %d tasks, want 0", len(tasks))
	}
}

func TestServerClientsEmpty(t *testing.T) {
	addr, _ := startServer(t)
	client := NewClient(addr)

	resp, err := client.Call(Clients())
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	peers, _ := resp["peers"].([]interface{})
	if len(peers) != 0 {
		t.Fatalf("got %d peers, want 0", len(peers))
	}
}

func TestServerUnrecognizedCommand(t *testing.T) {
	addr, _ := startServer(t)
	client := NewClient(addr)

	resp, err := client.Call(map[string]interface{}{"type": "cmd_bogus"})
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if ok, _ := resp["ok"].(bool); ok {
		t.Fatal("got ok=true for an unrecognized command")
	}
}

func TestServerDeleteAccepted(t *testing.T) {
	addr, _ := startServer(t)
	client := NewClient(addr)

	resp, err := client.Call(Delete("*"))
	if err != nil {
		t.Fatalf("call: %v", err)
	}
	if ok, _ := resp["ok"].(bool); !ok {
		t.Fatalf("got %+v, want ok=true", resp)
	}
}
