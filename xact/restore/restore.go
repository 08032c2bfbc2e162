// Package restore implements the restore engine (spec.md section 4.7):
// collect blocks from every peer into per-peer staging paths, map them
// into parity groups, validate against metadata hashes (or majority
// vote when metadata is missing), XOR-reconstruct any single missing
// block per group, and assemble the final file.
//
// Grounded on reb/waiter_test.go's per-object "done" bookkeeping
// pattern (a countable set of expected contributors with an idle
// timeout) for Phase A, and on the restore narrative in ec/ec.go's
// comments (metadata-driven validation, majority vote on missing
// metadata) for Phases C/D.
package restore

import (
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/golang/glog"
	"go.uber.org/atomic"

	"github.com/shardkeep/shardkeep/cmn"
	"github.com/shardkeep/shardkeep/crypto"
	"github.com/shardkeep/shardkeep/wire"
	"github.com/shardkeep/shardkeep/xact"
)

// idleTimeout is Phase A's collection window (spec.md section 4.7:
// "a 30-second idle timeout elapses without any message; the timer is
// reset by every received message").
const idleTimeout = 30 * time.Second

// Request is the fully resolved input to one restore task.
type Request struct {
	DestinationPath string
	Name            string
	BlockNumber     int // N
	ValidationLevel int // V
	Peers           []string
	Key             []byte
	TempDir         string // staging root; per-peer subdirectories live under here
}

// Result is reported back once Run returns.
type Result struct {
	Name    string
	Success bool
	Err     error
}

// PeerMessage is one block/file_sent message the coordinator routed to
// this task because its "name" field matched.
type PeerMessage struct {
	Peer string
	Msg  cmn.SimpleKVs
}

type groupEntry struct {
	metadataPath string // "" if no candidate
	blocks       map[int][]string
	missing      int // 0 if no single missing block, else its number
}

// Task runs one restore operation.
type Task struct {
	id   string
	req  Request
	name string

	msgCh     chan PeerMessage
	inbox     xact.Inbox
	cancelled atomic.Bool
}

// New creates a restore task for req.
func New(id string, req Request) *Task {
	return &Task{
		id:    id,
		req:   req,
		name:  req.Name,
		msgCh: make(chan PeerMessage, 256),
		inbox: xact.NewInbox(),
	}
}

func (t *Task) ID() string   { return t.id }
func (t *Task) Name() string { return t.name }

// Cancel requests the task abort at its next poll point.
func (t *Task) Cancel() {
	if t.cancelled.CAS(false, true) {
		xact.Exit(t.inbox)
	}
}

// Deliver hands the task a block or file_sent message the coordinator
// routed to it. It never blocks the coordinator: a full queue drops
// the message and logs, same disposition as a lost network message.
func (t *Task) Deliver(pm PeerMessage) {
	select {
	case t.msgCh <- pm:
	default:
		glog.Warningf("restore %s: message queue full, dropping message from %s", t.name, pm.Peer)
	}
}

// Run executes all five restore phases to completion or cancellation.
func (t *Task) Run() Result {
	err := t.run()
	return Result{Name: t.name, Success: err == nil, Err: err}
}

func (t *Task) run() error {
	stageRoot := filepath.Join(t.req.TempDir, t.name)
	defer os.RemoveAll(stageRoot)

	if err := t.collect(stageRoot); err != nil {
		return err
	}

	groups := t.mapGroups(stageRoot)
	validBlocks, corrupted := t.validate(groups)
	if !corrupted {
		corrupted = t.repair(groups, validBlocks)
	}
	if corrupted || len(validBlocks) != t.req.BlockNumber {
		return cmn.NewError(cmn.ErrCorrupted, t.name+": could not restore")
	}

	return t.assemble(validBlocks)
}

// Phase A — collection. Returns once every peer has sent file_sent or
// the 30-second idle timer (reset on every message) elapses; only
// cancellation is reported as an error.
func (t *Task) collect(stageRoot string) error {
	if len(t.req.Peers) == 0 {
		return nil
	}

	peerDone := make(map[string]bool, len(t.req.Peers))
	timer := time.NewTimer(idleTimeout)
	defer timer.Stop()

	for {
		select {
		case <-t.inbox:
			return cmn.NewError(cmn.ErrCancelled, "restore cancelled")
		case <-timer.C:
			return nil
		case pm := <-t.msgCh:
			if !timer.Stop() {
				<-timer.C
			}
			timer.Reset(idleTimeout)

			switch wire.TypeOf(pm.Msg) {
			case wire.TypeBlock:
				t.stageBlock(stageRoot, pm)
			case wire.TypeFileSent:
				peerDone[pm.Peer] = true
			}
			if allDone(peerDone, t.req.Peers) {
				return nil
			}
		}
	}
}

func allDone(done map[string]bool, peers []string) bool {
	for _, p := range peers {
		if !done[p] {
			return false
		}
	}
	return true
}

func (t *Task) stageBlock(stageRoot string, pm PeerMessage) {
	blockType, _ := pm.Msg["block_type"].(string)
	number := asInt(pm.Msg["number"])
	content, _ := pm.Msg["content"].([]byte)

	plain, err := crypto.Decrypt(t.req.Key, content)
	if err != nil {
		glog.Warningf("restore %s: decrypt block from %s: %v", t.name, pm.Peer, err)
		return
	}

	dir := filepath.Join(stageRoot, pm.Peer)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		glog.Warningf("restore %s: stage dir: %v", t.name, err)
		return
	}
	id := cmn.BlockID{Name: t.name, Number: number, Type: cmn.BlockType(blockType)}
	path := filepath.Join(dir, id.FileName())
	if err := os.WriteFile(path, plain, 0o644); err != nil {
		glog.Warningf("restore %s: stage block %s: %v", t.name, path, err)
	}
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
		return 0
	}
}

// Phase B — mapping.
func (t *Task) mapGroups(stageRoot string) map[int]*groupEntry {
	V := t.req.ValidationLevel
	N := t.req.BlockNumber
	G := int(cmn.CeilDiv(int64(N), int64(V)))

	groups := make(map[int]*groupEntry, G)
	for g := 1; g <= G; g++ {
		entry := &groupEntry{blocks: make(map[int][]string)}
		lo := (g-1)*V + 1
		hi := g * V
		if hi > N {
			hi = N
		}
		for n := lo; n <= hi; n++ {
			entry.blocks[n] = nil
		}
		groups[g] = entry
	}

	peerDirs, _ := os.ReadDir(stageRoot)
	for _, pd := range peerDirs {
		if !pd.IsDir() {
			continue
		}
		peerDir := filepath.Join(stageRoot, pd.Name())
		entries, err := os.ReadDir(peerDir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			id, err := cmn.ParseBlockFileName(e.Name())
			if err != nil || id.Name != t.name {
				continue
			}
			path := filepath.Join(peerDir, e.Name())
			if id.Type == cmn.MetaBlock {
				g := id.Number
				if entry, ok := groups[g]; ok && entry.metadataPath == "" {
					entry.metadataPath = path
				}
				continue
			}
			g := int(cmn.CeilDiv(int64(id.Number), int64(V)))
			if entry, ok := groups[g]; ok {
				entry.blocks[id.Number] = append(entry.blocks[id.Number], path)
			}
		}
	}
	return groups
}

// Phase C — validation. Returns the validated block map and whether
// the file is unconditionally corrupted (a group had >1 missing block,
// or exactly 1 missing block with no usable metadata).
func (t *Task) validate(groups map[int]*groupEntry) (map[int]string, bool) {
	valid := make(map[int]string, t.req.BlockNumber)
	warnedUnvalidated := false

	for g := 1; g <= len(groups); g++ {
		entry := groups[g]
		meta, usable := t.loadMetadata(entry.metadataPath)

		missing := 0
		for n, candidates := range entry.blocks {
			if usable {
				if path, ok := matchByHash(candidates, meta.Hashes[n]); ok {
					valid[n] = path
					continue
				}
				missing++
				continue
			}
			if path, ok := majorityVote(candidates); ok {
				valid[n] = path
				if !warnedUnvalidated {
					glog.Warningf("restore %s: group %d accepted without validation (no usable metadata)", t.name, g)
					warnedUnvalidated = true
				}
				continue
			}
			missing++
		}
		switch {
		case missing == 0:
			// group complete, nothing to repair
		case missing == 1 && usable:
			// repairable via XOR parity in Phase D
			groups[g].missing = missingNumber(entry, valid)
		default:
			// >1 missing always unrecoverable (P3); exactly 1 missing
			// without usable metadata has no parity to repair from.
			return valid, true
		}
	}
	return valid, false
}

func matchByHash(candidates []string, want string) (string, bool) {
	for _, path := range candidates {
		content, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		if crypto.HashHex(content) == want {
			return path, true
		}
	}
	return "", false
}

func majorityVote(candidates []string) (string, bool) {
	if len(candidates) == 0 {
		return "", false
	}
	type tally struct {
		path  string
		count int
	}
	byContent := make(map[string]*tally, len(candidates))
	for _, path := range candidates {
		content, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		key := string(content)
		if e, ok := byContent[key]; ok {
			e.count++
		} else {
			byContent[key] = &tally{path: path, count: 1}
		}
	}
	if len(byContent) == 0 {
		return "", false
	}
	var best *tally
	for _, e := range byContent {
		if best == nil || e.count > best.count {
			best = e
		}
	}
	return best.path, true
}

func (t *Task) loadMetadata(path string) (*wire.GroupMetadata, bool) {
	if path == "" {
		return nil, false
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, false
	}
	meta, err := wire.UnmarshalGroupMetadata(raw)
	if err != nil {
		return nil, false
	}
	return meta, true
}

func missingNumber(entry *groupEntry, valid map[int]string) int {
	for n := range entry.blocks {
		if _, ok := valid[n]; !ok {
			return n
		}
	}
	return 0
}

// Phase D — repair: reconstruct the one missing block per group (if
// any) from the group's XOR parity and its surviving blocks.
func (t *Task) repair(groups map[int]*groupEntry, valid map[int]string) bool {
	for g := 1; g <= len(groups); g++ {
		entry := groups[g]
		if entry.missing == 0 {
			continue
		}
		meta, usable := t.loadMetadata(entry.metadataPath)
		if !usable {
			return true
		}
		var xorAcc []byte
		for n := range entry.blocks {
			if n == entry.missing {
				continue
			}
			path, ok := valid[n]
			if !ok {
				return true
			}
			content, err := os.ReadFile(path)
			if err != nil {
				return true
			}
			xorAcc = crypto.XorPad(xorAcc, content)
		}
		reconstructed := crypto.XorPad(xorAcc, meta.Xor)
		if crypto.HashHex(reconstructed) != meta.Hashes[entry.missing] {
			return true
		}
		id := cmn.BlockID{Name: t.name, Number: entry.missing, Type: cmn.DataBlock}
		path := filepath.Join(t.req.TempDir, t.name, "reconstructed", id.FileName())
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return true
		}
		if err := os.WriteFile(path, reconstructed, 0o644); err != nil {
			return true
		}
		valid[entry.missing] = path
	}
	return false
}

// Phase E — assembly.
func (t *Task) assemble(valid map[int]string) error {
	numbers := make([]int, 0, len(valid))
	for n := range valid {
		numbers = append(numbers, n)
	}
	sort.Ints(numbers)

	out, err := os.Create(t.req.DestinationPath)
	if err != nil {
		return cmn.WrapError(cmn.ErrCorrupted, "create destination", err)
	}
	defer out.Close()

	for _, n := range numbers {
		src, err := os.Open(valid[n])
		if err != nil {
			return cmn.WrapError(cmn.ErrCorrupted, "read reconstructed block", err)
		}
		_, copyErr := io.Copy(out, src)
		src.Close()
		if copyErr != nil {
			return cmn.WrapError(cmn.ErrCorrupted, "assemble "+t.name, copyErr)
		}
	}
	return nil
}
