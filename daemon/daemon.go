// Package daemon implements the storage-peer process (spec.md section
// 4.5): a client that reconnects to the coordinator with a 2-second
// backoff and applies the server's block commands against the local
// filesystem.
//
// Structurally this mirrors cluster's reader/sender pair, but for a
// single outbound connection instead of a listener accepting many: a
// receiver goroutine frames and decodes inbound bytes and dispatches
// them to the logic worker, and a sender goroutine owns the socket's
// write half and drains an outbound queue. Disk glue is deliberately
// thin stdlib (os/path/filepath/syscall) per spec.md's Non-goals —
// there is no ecosystem filesystem framework in the retrieval pack
// that this component could exercise.
package daemon

import (
	"bufio"
	"net"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/golang/glog"
	"go.uber.org/atomic"

	"github.com/shardkeep/shardkeep/cmn"
	"github.com/shardkeep/shardkeep/wire"
)

// anyNumber is the in-process sentinel for "number wildcard" once a
// query has been parsed off the wire; cmn.AnyNumber is the wire-level
// "*" string and cannot be compared against an int block number.
const anyNumber = -1

// Daemon is a storage peer: it owns a data directory and one
// connection to the coordinator.
type Daemon struct {
	serverAddr string
	dataDir    string
	backoff    time.Duration

	running atomic.Bool
	// outbox is (re)created fresh for each connection attempt in serve;
	// see serve's comment for why it isn't carried across reconnects.
	outbox *cmn.FrameQueue
}

// New creates a Daemon that will persist blocks under dataDir and
// connect to serverAddr.
func New(serverAddr, dataDir string, backoff time.Duration) *Daemon {
	return &Daemon{
		serverAddr: serverAddr,
		dataDir:    dataDir,
		backoff:    backoff,
	}
}

// Run connects and serves until the server sends kill or the
// connection cannot be reestablished after Stop is called.
func (d *Daemon) Run() error {
	if err := os.MkdirAll(d.dataDir, 0o755); err != nil {
		return cmn.WrapError(cmn.ErrStorageFailure, "create data dir", err)
	}
	d.running.Store(true)
	for d.running.Load() {
		conn, err := net.Dial("tcp", d.serverAddr)
		if err != nil {
			glog.Warningf("daemon: connect to %s failed: %v, retrying in %s", d.serverAddr, err, d.backoff)
			time.Sleep(d.backoff)
			continue
		}
		d.serve(conn)
	}
	return nil
}

// Stop causes Run to return after the current connection, if any, ends.
func (d *Daemon) Stop() { d.running.Store(false) }

// serve runs one connection's reader and writer halves. outbox is
// rebuilt for this connection alone (rather than carried across
// reconnects): a reply queued for a connection that just died is
// stale by the time a new one comes up, since the coordinator has no
// way to know whether the old reply ever arrived and will simply
// re-ask (ask_block/ask_disk_state/ask_storage_state) once it sees the
// peer reconnect, so there is nothing worth preserving it for.
func (d *Daemon) serve(conn net.Conn) {
	d.outbox = cmn.NewFrameQueue()
	go d.sendLoop(conn)
	d.recvLoop(conn)
	d.outbox.Close()
}

func (d *Daemon) sendLoop(conn net.Conn) {
	defer conn.Close()
	for {
		frame, ok := d.outbox.Dequeue()
		if !ok {
			return
		}
		if _, err := conn.Write(frame); err != nil {
			glog.Warningf("daemon: write failed: %v", err)
			return
		}
	}
}

func (d *Daemon) recvLoop(conn net.Conn) {
	r := bufio.NewReader(conn)
	header := make([]byte, wire.HeaderLen)
	for {
		if _, err := readFull(r, header); err != nil {
			glog.Warningf("daemon: connection to server lost: %v", err)
			return
		}
		length := wire.SplitHeader(header)
		payload := make([]byte, length)
		if _, err := readFull(r, payload); err != nil {
			glog.Warningf("daemon: connection to server lost: %v", err)
			return
		}
		msg, err := wire.Decode(payload)
		if err != nil {
			glog.Warningf("daemon: malformed frame: %v", err)
			continue
		}
		if d.dispatch(msg) {
			return
		}
	}
}

// dispatch applies one server->peer command. It returns true if the
// connection should be torn down (kill received).
func (d *Daemon) dispatch(msg cmn.SimpleKVs) bool {
	switch wire.TypeOf(msg) {
	case wire.TypeSendBlock:
		d.handleSendBlock(msg)
	case wire.TypeAskBlock:
		d.handleAskBlock(msg)
	case wire.TypeDeleteBlock:
		d.handleDeleteBlock(msg)
	case wire.TypeAskDiskState:
		d.handleAskDiskState()
	case wire.TypeAskStorageState:
		d.handleAskStorageState()
	case wire.TypeKill:
		d.Stop()
		return true
	default:
		glog.Warningf("daemon: unrecognized message type %q", wire.TypeOf(msg))
	}
	return false
}

func (d *Daemon) send(msg cmn.SimpleKVs) {
	frame, err := wire.Encode(msg)
	if err != nil {
		glog.Errorf("daemon: encode reply: %v", err)
		return
	}
	d.outbox.Enqueue(frame)
}

func (d *Daemon) handleSendBlock(msg cmn.SimpleKVs) {
	name, _ := msg["name"].(string)
	blockType, _ := msg["block_type"].(string)
	number := asInt(msg["number"])
	content, _ := msg["content"].([]byte)

	id := cmn.BlockID{Name: name, Number: number, Type: cmn.BlockType(blockType)}
	path := filepath.Join(d.dataDir, id.FileName())
	if err := os.WriteFile(path, content, 0o644); err != nil {
		glog.Errorf("daemon: write block %s: %v", path, err)
	}
}

func (d *Daemon) handleAskBlock(msg cmn.SimpleKVs) {
	name, _ := msg["name"].(string)
	blockType := wildcardString(msg["block_type"])
	number := wildcardNumber(msg["number"])

	matches, err := d.matchBlocks(name, blockType, number)
	if err != nil {
		glog.Errorf("daemon: scan data dir: %v", err)
	}
	for _, id := range matches {
		content, err := os.ReadFile(filepath.Join(d.dataDir, id.FileName()))
		if err != nil {
			glog.Warningf("daemon: read block %s: %v", id.FileName(), err)
			continue
		}
		d.send(wire.Block(id.Type, id.Name, id.Number, content))
	}
	d.send(wire.FileSent(name))
}

func (d *Daemon) handleDeleteBlock(msg cmn.SimpleKVs) {
	name, _ := msg["name"].(string)
	blockType := wildcardString(msg["block_type"])
	number := wildcardNumber(msg["number"])

	matches, err := d.matchBlocks(name, blockType, number)
	if err != nil {
		glog.Errorf("daemon: scan data dir: %v", err)
		return
	}
	for _, id := range matches {
		if err := os.Remove(filepath.Join(d.dataDir, id.FileName())); err != nil {
			glog.Warningf("daemon: delete block %s: %v", id.FileName(), err)
		}
	}
}

func (d *Daemon) handleAskDiskState() {
	total, free, err := diskUsage(d.dataDir)
	if err != nil {
		glog.Errorf("daemon: disk usage: %v", err)
		return
	}
	d.send(wire.DiskState(total, free))
}

func (d *Daemon) handleAskStorageState() {
	entries, err := os.ReadDir(d.dataDir)
	if err != nil {
		glog.Errorf("daemon: read data dir: %v", err)
		return
	}
	descs := make([]wire.BlockDescriptor, 0, len(entries))
	for _, e := range entries {
		id, err := cmn.ParseBlockFileName(e.Name())
		if err != nil {
			continue
		}
		descs = append(descs, wire.BlockDescriptor{Name: id.Name, Number: id.Number, BlockType: string(id.Type)})
	}
	d.send(wire.StorageState(descs))
}

// matchBlocks scans the data directory for blocks matching the given
// (possibly wildcard) name, block type and number.
func (d *Daemon) matchBlocks(name, blockType string, number int) ([]cmn.BlockID, error) {
	entries, err := os.ReadDir(d.dataDir)
	if err != nil {
		return nil, err
	}
	var out []cmn.BlockID
	for _, e := range entries {
		id, err := cmn.ParseBlockFileName(e.Name())
		if err != nil {
			continue
		}
		if name != cmn.AnyType && id.Name != name {
			continue
		}
		if blockType != cmn.AnyType && string(id.Type) != blockType {
			continue
		}
		if number != anyNumber && id.Number != number {
			continue
		}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Number < out[j].Number })
	return out, nil
}

func wildcardString(v interface{}) string {
	if v == nil {
		return cmn.AnyType
	}
	s, _ := v.(string)
	if s == "" {
		return cmn.AnyType
	}
	return s
}

func wildcardNumber(v interface{}) int {
	if v == nil {
		return anyNumber
	}
	if s, ok := v.(string); ok && s == cmn.AnyNumber {
		return anyNumber
	}
	return asInt(v)
}

func asInt(v interface{}) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return anyNumber
	}
}

func readFull(r *bufio.Reader, buf []byte) (int, error) {
	n := 0
	for n < len(buf) {
		m, err := r.Read(buf[n:])
		n += m
		if err != nil {
			return n, err
		}
	}
	return n, nil
}
