// Package coordinator implements the central event loop (spec.md
// section 4.9): the single writer of the peer set, the task table, and
// the metadata store, reached by every other component exclusively
// through messages on its inbox.
//
// Grounded on transport/collect.go's collector.run: one goroutine
// owns an inbox channel and a private map, fed by forwarder goroutines
// that translate other components' events into that one channel's
// message type. This package generalizes that shape to the larger
// message-kind switch spec.md section 4.9 requires, and is the direct
// fix for the REDESIGN FLAGS item about the source's buggy
// `disconnected` handler (spec.md section 9): because this is the only
// goroutine that ever ranges over the task table, the cancel-on-
// disconnect sweep cannot race a concurrent insert/delete the way the
// source's did.
package coordinator

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"os"
	"time"

	"github.com/golang/glog"

	"github.com/shardkeep/shardkeep/cluster"
	"github.com/shardkeep/shardkeep/cmn"
	"github.com/shardkeep/shardkeep/crypto"
	"github.com/shardkeep/shardkeep/stats"
	"github.com/shardkeep/shardkeep/store"
	"github.com/shardkeep/shardkeep/wire"
	"github.com/shardkeep/shardkeep/xact"
	"github.com/shardkeep/shardkeep/xact/distribute"
	"github.com/shardkeep/shardkeep/xact/reconstruct"
	"github.com/shardkeep/shardkeep/xact/restore"
)

// PeerHub is the subset of cluster.Hub the coordinator depends on;
// narrowed to an interface so tests can substitute a fake without
// opening real sockets.
type PeerHub interface {
	Send(target string, msg cmn.SimpleKVs) error
	Stop()
}

// MsgKind tags one entry on the coordinator's inbox (spec.md section 4.9).
type MsgKind string

const (
	MsgSend         MsgKind = "send"
	MsgConnected    MsgKind = "connected"
	MsgDisconnected MsgKind = "disconnected"
	MsgReceived     MsgKind = "received"
	MsgDistribute   MsgKind = "distribute"
	MsgRestore      MsgKind = "restore"
	MsgReconstruct  MsgKind = "reconstruct"
	MsgDelete       MsgKind = "delete"
	MsgThreadExit   MsgKind = "thread_exit"
	MsgKillThread   MsgKind = "kill_thread"
	MsgKill         MsgKind = "kill"
	MsgRefresh      MsgKind = "refresh"
	MsgError        MsgKind = "error"
	MsgExit         MsgKind = "exit"
	MsgPeers        MsgKind = "peers"
)

// AllPeers is the delete/restore wildcard target, spec.md's `*`.
const AllPeers = cmn.AnyType

// DistributeRequest is the UI-facing distribute command; the
// coordinator fills in peers and a fresh key before spawning the task.
type DistributeRequest struct {
	FilePath         string
	BlockSize        int64
	DuplicationLevel int
	ValidationLevel  int
}

// RestoreRequest is the UI-facing restore command; the coordinator
// resolves the rest of distribute.Task's fields from the stored record.
type RestoreRequest struct {
	DestinationPath string
	Name            string
}

// taskOutcome is what a spawned task's goroutine reports back on
// completion; richer than xact.Event because the coordinator needs the
// full result (file size, block count, key) to persist a record.
type taskOutcome struct {
	id      string
	kind    xact.Kind
	name    string
	success bool
	err     error

	fileSize         int64
	blockNumber      int
	duplicationLevel int
	validationLevel  int
	key              []byte

	// reconstruct sub-tasks only: batchID ties this outcome back to
	// the in-flight reconstructBatch, and record carries the metadata
	// store row the sub-task was working from (it has no other way to
	// get back to the coordinator, which owns the store).
	batchID string
	record  store.FileRecord
}

// Msg is one entry on the coordinator's single inbox.
type Msg struct {
	Kind MsgKind

	clusterEvt *cluster.Event
	outcome    *taskOutcome

	// send
	target  string
	payload cmn.SimpleKVs

	// distribute / restore
	distReq DistributeRequest
	restReq RestoreRequest

	// delete / kill_thread / kill
	name string
	peer string

	// error
	message string

	// peers
	reply chan []string
}

// UIEvent is something the UI layer (CLI, future GUI) should observe.
type UIEvent struct {
	Kind    string // "clients", "storage_state", "disk_state", "error", "refresh"
	Peers   []string
	Payload cmn.SimpleKVs
	Message string
}

type taskHandle struct {
	kind   xact.Kind
	name   string
	cancel func()
	ref    interface{} // concrete *restore.Task for tasks that need message delivery
}

// reconstructPhase names which half of an in-flight reconstruct batch
// is running.
type reconstructPhase string

const (
	reconstructPhaseRestore    reconstructPhase = "restore"
	reconstructPhaseDistribute reconstructPhase = "distribute"
)

// reconstructBatch tracks one running reconstruct (spec.md section
// 4.8): every per-record restore/distribute sub-task spawned for it
// carries this id in its taskOutcome so handleThreadExit routes its
// completion here instead of the single-command paths, and the phase
// advances once pending drops to zero — the coordinator's own version
// of "poll ask_thread_list until no restore/distribute tasks remain".
type reconstructBatch struct {
	id      string
	phase   reconstructPhase
	pending int

	restored []store.FileRecord // accumulated during the restore phase
	result   reconstruct.Result
}

// Coordinator is the single-consumer event loop owning the peer set,
// task table, and metadata store handle.
type Coordinator struct {
	hub     PeerHub
	store   *store.Store
	ui      chan<- UIEvent
	tempDir string

	inbox chan Msg

	peers map[string]bool
	tasks map[string]*taskHandle
	stats *stats.Registry

	reconstructRunning bool
	batch              *reconstructBatch
	stopped            bool
}

// New creates a Coordinator. hubEvents is the channel cluster.Hub (or
// a test double) publishes connected/disconnected/received events to;
// a forwarder goroutine folds those onto the same inbox the rest of
// the coordinator's commands arrive on, so Run has exactly one
// channel to select over.
func New(hub PeerHub, hubEvents <-chan cluster.Event, st *store.Store, ui chan<- UIEvent, tempDir string) *Coordinator {
	c := &Coordinator{
		hub:     hub,
		store:   st,
		ui:      ui,
		tempDir: tempDir,
		inbox:   make(chan Msg, 1024),
		peers:   make(map[string]bool, 16),
		tasks:   make(map[string]*taskHandle, 16),
		stats:   stats.NewRegistry(),
	}
	go func() {
		for evt := range hubEvents {
			evt := evt
			c.inbox <- Msg{Kind: MsgKind(evt.Kind), clusterEvt: &evt}
		}
	}()
	return c
}

// Send forwards msg to target ("*" for broadcast).
func (c *Coordinator) Send(target string, msg cmn.SimpleKVs) {
	c.inbox <- Msg{Kind: MsgSend, target: target, payload: msg}
}

// Distribute requests a new distribute task be spawned.
func (c *Coordinator) Distribute(req DistributeRequest) {
	c.inbox <- Msg{Kind: MsgDistribute, distReq: req}
}

// Restore requests a new restore task be spawned for a known file.
func (c *Coordinator) Restore(req RestoreRequest) {
	c.inbox <- Msg{Kind: MsgRestore, restReq: req}
}

// Reconstruct requests the restore-all/delete-all/redistribute-all
// engine run, locking the UI for its duration.
func (c *Coordinator) Reconstruct() { c.inbox <- Msg{Kind: MsgReconstruct} }

// Delete requests the file named name (or AllPeers for every file) be
// removed from every peer and the metadata store.
func (c *Coordinator) Delete(name string) { c.inbox <- Msg{Kind: MsgDelete, name: name} }

// KillThread cancels every active task whose file name equals name.
func (c *Coordinator) KillThread(name string) { c.inbox <- Msg{Kind: MsgKillThread, name: name} }

// Kill sends a kill command to one peer.
func (c *Coordinator) Kill(peer string) { c.inbox <- Msg{Kind: MsgKill, peer: peer} }

// Refresh re-broadcasts ask_storage_state to every peer.
func (c *Coordinator) Refresh() { c.inbox <- Msg{Kind: MsgRefresh} }

// Stats returns a snapshot of every tracked task's lifecycle stats; safe
// to call from any goroutine since Registry guards itself with a mutex.
func (c *Coordinator) Stats() []stats.TaskStats { return c.stats.Snapshot() }

// ReportError routes msg to the UI through the same inbox every other
// command travels, rather than notifying it directly out of band.
func (c *Coordinator) ReportError(msg string) { c.inbox <- Msg{Kind: MsgError, message: msg} }

// Peers returns the currently connected peer ids. Unlike the
// fire-and-forget commands above, this one blocks for a reply since
// the caller (the ctl server) needs the answer synchronously; reply
// is buffered so handle() never stalls delivering it.
func (c *Coordinator) Peers() []string {
	reply := make(chan []string, 1)
	c.inbox <- Msg{Kind: MsgPeers, reply: reply}
	return <-reply
}

// Exit cancels every task, stops the peer session layer, and ends Run.
func (c *Coordinator) Exit() { c.inbox <- Msg{Kind: MsgExit} }

// Run is the coordinator's single-consumer event loop. Call it in its
// own goroutine; it returns once an exit message has been processed.
func (c *Coordinator) Run() {
	for !c.stopped {
		msg := <-c.inbox
		c.handle(msg)
	}
}

func (c *Coordinator) handle(msg Msg) {
	switch msg.Kind {
	case MsgSend:
		if err := c.hub.Send(msg.target, msg.payload); err != nil {
			glog.Warningf("coordinator: send to %s: %v", msg.target, err)
		}
	case MsgConnected:
		c.handleConnected(msg.clusterEvt.Peer)
	case MsgDisconnected:
		c.handleDisconnected(msg.clusterEvt.Peer)
	case MsgReceived:
		c.handleReceived(msg.clusterEvt.Peer, msg.clusterEvt.Payload)
	case MsgDistribute:
		c.handleDistribute(msg.distReq)
	case MsgRestore:
		c.handleRestore(msg.restReq)
	case MsgReconstruct:
		c.handleReconstruct()
	case MsgDelete:
		c.handleDelete(msg.name)
	case MsgThreadExit:
		c.handleThreadExit(msg.outcome)
	case MsgKillThread:
		c.handleKillThread(msg.name)
	case MsgKill:
		if err := c.hub.Send(msg.peer, wire.Kill()); err != nil {
			glog.Warningf("coordinator: kill %s: %v", msg.peer, err)
		}
	case MsgRefresh:
		c.updateStorageState()
	case MsgError:
		c.notifyUI(UIEvent{Kind: "error", Message: msg.message})
	case MsgExit:
		c.handleExit()
	case MsgPeers:
		msg.reply <- c.peerList()
	default:
		glog.Warningf("coordinator: unrecognized message kind %q", msg.Kind)
	}
}

func (c *Coordinator) handleConnected(peer string) {
	c.peers[peer] = true
	c.broadcastClients()
	c.updateStorageState()
}

func (c *Coordinator) handleDisconnected(peer string) {
	delete(c.peers, peer)

	var cancelled []string
	for _, h := range c.tasks {
		if h.kind == xact.KindDistribute {
			h.cancel()
			cancelled = append(cancelled, h.name)
		}
	}
	if len(cancelled) > 0 {
		glog.Warningf("coordinator: peer %s lost, cancelling distribute tasks: %v", peer, cancelled)
		c.notifyUI(UIEvent{Kind: "error", Message: "peer lost, cancelled distribute of: " + joinNames(cancelled)})
	}
	c.broadcastClients()
}

func (c *Coordinator) handleReceived(peer string, payload cmn.SimpleKVs) {
	switch wire.TypeOf(payload) {
	case wire.TypeBlock, wire.TypeFileSent:
		name, _ := payload["name"].(string)
		for _, h := range c.tasks {
			if h.kind == xact.KindRestore && h.name == name {
				if rt, ok := c.restoreTask(h); ok {
					rt.Deliver(restore.PeerMessage{Peer: peer, Msg: payload})
				}
			}
		}
	case wire.TypeDiskState:
		c.notifyUI(UIEvent{Kind: "disk_state", Peers: []string{peer}, Payload: payload})
	case wire.TypeStorageState:
		c.notifyUI(UIEvent{Kind: "storage_state", Peers: []string{peer}, Payload: payload})
	default:
		glog.Warningf("coordinator: received unrecognized message type %q from %s", wire.TypeOf(payload), peer)
	}
}

// restoreTaskRef lets a taskHandle carry its concrete *restore.Task
// without widening taskHandle.cancel's signature for every task kind.
type restoreTaskRef struct {
	task *restore.Task
}

func (c *Coordinator) restoreTask(h *taskHandle) (*restore.Task, bool) {
	ref, ok := h.ref.(restoreTaskRef)
	if !ok {
		return nil, false
	}
	return ref.task, true
}

func (c *Coordinator) handleDistribute(req DistributeRequest) {
	if c.reconstructRunning {
		c.notifyUI(UIEvent{Kind: "error", Message: "distribute: reconstruct is running, try again once it finishes"})
		return
	}
	seed := make([]byte, 16)
	if _, err := rand.Read(seed); err != nil {
		c.notifyUI(UIEvent{Kind: "error", Message: "distribute: generate key: " + err.Error()})
		return
	}
	key := crypto.DeriveKey(seed)

	id := newTaskID()
	task := distribute.New(id, distribute.Request{
		FilePath:         req.FilePath,
		BlockSize:        req.BlockSize,
		DuplicationLevel: req.DuplicationLevel,
		ValidationLevel:  req.ValidationLevel,
		Key:              key,
		Peers:            c.peerList(),
	}, func(peer string, msg cmn.SimpleKVs) error { return c.hub.Send(peer, msg) })

	c.tasks[id] = &taskHandle{kind: xact.KindDistribute, name: task.Name(), cancel: task.Cancel}
	c.stats.Start(id, string(xact.KindDistribute), task.Name(), time.Now())

	go func() {
		result := task.Run()
		c.inbox <- Msg{Kind: MsgThreadExit, outcome: &taskOutcome{
			id: id, kind: xact.KindDistribute, name: result.Name, success: result.Success, err: result.Err,
			fileSize: result.FileSize, blockNumber: result.BlockNumber,
			duplicationLevel: req.DuplicationLevel, validationLevel: req.ValidationLevel, key: key,
		}}
	}()
}

func (c *Coordinator) handleRestore(req RestoreRequest) {
	if c.reconstructRunning {
		c.notifyUI(UIEvent{Kind: "error", Message: "restore: reconstruct is running, try again once it finishes"})
		return
	}
	rec, err := c.store.Query(req.Name)
	if err != nil {
		c.notifyUI(UIEvent{Kind: "error", Message: "restore " + req.Name + ": " + err.Error()})
		return
	}
	if rec == nil {
		c.notifyUI(UIEvent{Kind: "error", Message: "restore " + req.Name + ": no such file"})
		return
	}

	id := newTaskID()
	task := restore.New(id, restore.Request{
		DestinationPath: req.DestinationPath,
		Name:            rec.Name,
		BlockNumber:     rec.BlockNumber,
		ValidationLevel: rec.ValidationLevel,
		Peers:           c.peerList(),
		Key:             rec.Key,
		TempDir:         c.tempDir,
	})

	c.tasks[id] = &taskHandle{kind: xact.KindRestore, name: task.Name(), cancel: task.Cancel, ref: restoreTaskRef{task: task}}
	c.stats.Start(id, string(xact.KindRestore), task.Name(), time.Now())

	go func() {
		result := task.Run()
		c.inbox <- Msg{Kind: MsgThreadExit, outcome: &taskOutcome{
			id: id, kind: xact.KindRestore, name: result.Name, success: result.Success, err: result.Err,
		}}
	}()

	if err := c.hub.Send(AllPeers, wire.AskBlock(rec.Name, cmn.AnyType, cmn.AnyNumber)); err != nil {
		glog.Warningf("coordinator: broadcast ask_block for %s: %v", rec.Name, err)
	}
}

// handleReconstruct kicks off spec.md section 4.8: restore every known
// file into {temp}/reconstruct, wipe the cluster, then redistribute
// whichever files survived. The three phases run across several
// handleThreadExit calls rather than in one synchronous function: each
// per-record restore (then distribute) is a real task registered in
// c.tasks, just like a plain `restore`/`distribute` command, so the
// same ask_block broadcast and handleReceived routing serves them with
// no special-cased message path.
func (c *Coordinator) handleReconstruct() {
	if c.reconstructRunning {
		c.notifyUI(UIEvent{Kind: "error", Message: "reconstruct already running"})
		return
	}
	records, err := c.store.QueryAll()
	if err != nil {
		c.notifyUI(UIEvent{Kind: "error", Message: "reconstruct: " + err.Error()})
		return
	}

	c.reconstructRunning = true
	id := newTaskID()
	c.tasks[id] = &taskHandle{kind: xact.KindReconstruct, name: "reconstruct", cancel: func() {}}
	c.stats.Start(id, string(xact.KindReconstruct), "reconstruct", time.Now())

	if len(records) == 0 {
		c.finishReconstruct(id, reconstruct.Result{})
		return
	}

	c.batch = &reconstructBatch{id: id, phase: reconstructPhaseRestore, pending: len(records)}
	scratchRoot := reconstruct.ScratchDir(c.tempDir)
	peers := c.peerList()
	for _, rec := range records {
		rec := rec
		taskID := newTaskID()
		task := restore.New(taskID, restore.Request{
			DestinationPath: reconstruct.StagedPath(scratchRoot, rec.Name),
			Name:            rec.Name,
			BlockNumber:     rec.BlockNumber,
			ValidationLevel: rec.ValidationLevel,
			Peers:           peers,
			Key:             rec.Key,
			TempDir:         scratchRoot,
		})
		c.tasks[taskID] = &taskHandle{kind: xact.KindRestore, name: task.Name(), cancel: task.Cancel, ref: restoreTaskRef{task: task}}

		go func(rec store.FileRecord) {
			result := task.Run()
			c.inbox <- Msg{Kind: MsgThreadExit, outcome: &taskOutcome{
				id: taskID, kind: xact.KindRestore, name: result.Name, success: result.Success, err: result.Err,
				batchID: id, record: rec,
			}}
		}(rec)

		if err := c.hub.Send(AllPeers, wire.AskBlock(rec.Name, cmn.AnyType, cmn.AnyNumber)); err != nil {
			glog.Warningf("coordinator: reconstruct: broadcast ask_block for %s: %v", rec.Name, err)
		}
	}
}

// handleBatchTaskExit routes one reconstruct sub-task's completion
// into its batch and advances the phase once every sub-task currently
// in flight has reported in.
func (c *Coordinator) handleBatchTaskExit(o *taskOutcome) {
	b := c.batch
	if b == nil || b.id != o.batchID {
		return
	}
	b.pending--

	switch b.phase {
	case reconstructPhaseRestore:
		if o.success {
			b.restored = append(b.restored, o.record)
		} else {
			glog.Warningf("coordinator: reconstruct: restore of %s failed: %v", o.name, o.err)
		}
		if b.pending <= 0 {
			c.advanceReconstructToDistribute(b)
		}
	case reconstructPhaseDistribute:
		if o.success {
			rec := store.FileRecord{
				Name: o.name, FileSize: o.fileSize, BlockNumber: o.blockNumber,
				DuplicationLevel: o.record.DuplicationLevel, ValidationLevel: o.record.ValidationLevel, Key: o.record.Key,
			}
			if err := c.store.Insert(rec); err != nil {
				glog.Errorf("coordinator: reconstruct: persist record %s: %v", o.name, err)
			} else {
				b.result.FilesRedistributed++
			}
		} else {
			glog.Warningf("coordinator: reconstruct: redistribute of %s failed: %v", o.name, o.err)
		}
		if b.pending <= 0 {
			c.finishReconstruct(b.id, b.result)
		}
	}
}

// advanceReconstructToDistribute runs the phase between restore and
// redistribute: a global delete(*), then spawn a fresh distribute per
// surviving record (spec.md section 4.8).
func (c *Coordinator) advanceReconstructToDistribute(b *reconstructBatch) {
	b.result.FilesRestored = len(b.restored)

	for peer := range c.peers {
		if err := c.hub.Send(peer, wire.DeleteBlock(cmn.AnyType, cmn.AnyType, cmn.AnyNumber)); err != nil {
			glog.Warningf("coordinator: reconstruct: delete-all to %s: %v", peer, err)
		}
	}
	if err := c.store.DeleteAll(); err != nil {
		glog.Errorf("coordinator: reconstruct: delete metadata store: %v", err)
	}

	scratchRoot := reconstruct.ScratchDir(c.tempDir)
	var surviving []store.FileRecord
	for _, rec := range b.restored {
		if reconstruct.Surviving(scratchRoot, rec.Name) {
			surviving = append(surviving, rec)
		}
	}

	if len(surviving) == 0 {
		c.finishReconstruct(b.id, b.result)
		return
	}

	b.phase = reconstructPhaseDistribute
	b.pending = len(surviving)
	peers := c.peerList()
	for _, rec := range surviving {
		rec := rec
		taskID := newTaskID()
		task := distribute.New(taskID, distribute.Request{
			FilePath:         reconstruct.StagedPath(scratchRoot, rec.Name),
			BlockSize:        reconstruct.RedistributeBlockSize(rec),
			DuplicationLevel: rec.DuplicationLevel,
			ValidationLevel:  rec.ValidationLevel,
			Key:              rec.Key,
			Peers:            peers,
		}, func(peer string, msg cmn.SimpleKVs) error { return c.hub.Send(peer, msg) })

		c.tasks[taskID] = &taskHandle{kind: xact.KindDistribute, name: task.Name(), cancel: task.Cancel}
		go func(rec store.FileRecord) {
			result := task.Run()
			c.inbox <- Msg{Kind: MsgThreadExit, outcome: &taskOutcome{
				id: taskID, kind: xact.KindDistribute, name: result.Name, success: result.Success, err: result.Err,
				fileSize: result.FileSize, blockNumber: result.BlockNumber,
				batchID: b.id, record: rec,
			}}
		}(rec)
	}
}

// finishReconstruct tears down the scratch directory and releases the
// UI lock; called whether the batch had zero records, zero survivors,
// or ran both phases to completion.
func (c *Coordinator) finishReconstruct(id string, result reconstruct.Result) {
	os.RemoveAll(reconstruct.ScratchDir(c.tempDir))
	delete(c.tasks, id)
	c.stats.Finish(id, result.FilesRestored+result.FilesRedistributed, 0, true, time.Now())
	c.reconstructRunning = false
	c.batch = nil
	c.notifyUI(UIEvent{Kind: "reconstruct_done", Message: fmt.Sprintf(
		"reconstruct: restored %d file(s), redistributed %d file(s)", result.FilesRestored, result.FilesRedistributed)})
}

func (c *Coordinator) handleDelete(name string) {
	if c.reconstructRunning {
		c.notifyUI(UIEvent{Kind: "error", Message: "delete: reconstruct is running, try again once it finishes"})
		return
	}
	for peer := range c.peers {
		if err := c.hub.Send(peer, wire.DeleteBlock(name, cmn.AnyType, cmn.AnyNumber)); err != nil {
			glog.Warningf("coordinator: delete_block %s on %s: %v", name, peer, err)
		}
	}
	var err error
	if name == AllPeers {
		err = c.store.DeleteAll()
	} else {
		err = c.store.Delete(name)
	}
	if err != nil {
		glog.Errorf("coordinator: delete %s from metadata store: %v", name, err)
	}
	c.notifyUI(UIEvent{Kind: "refresh"})
}

func (c *Coordinator) handleThreadExit(o *taskOutcome) {
	h, tracked := c.tasks[o.id]
	delete(c.tasks, o.id)
	c.stats.Finish(o.id, o.blockNumber, o.fileSize, o.success, time.Now())

	if o.batchID != "" {
		c.handleBatchTaskExit(o)
	} else {
		switch {
		case tracked && h.kind == xact.KindDistribute && o.success:
			rec := store.FileRecord{
				Name: o.name, FileSize: o.fileSize, BlockNumber: o.blockNumber,
				DuplicationLevel: o.duplicationLevel, ValidationLevel: o.validationLevel, Key: o.key,
			}
			if err := c.store.Insert(rec); err != nil {
				glog.Errorf("coordinator: persist record %s: %v", o.name, err)
			}
		case tracked && h.kind == xact.KindDistribute && !o.success:
			c.handleDelete(o.name)
		}
	}

	if o.err != nil {
		glog.Warningf("coordinator: task %s (%s) ended: %v", o.name, o.kind, o.err)
	}
	c.notifyUI(UIEvent{Kind: "refresh"})
}

func (c *Coordinator) handleKillThread(name string) {
	for _, h := range c.tasks {
		if h.name == name {
			h.cancel()
		}
	}
}

func (c *Coordinator) handleExit() {
	for _, h := range c.tasks {
		h.cancel()
	}
	c.hub.Stop()
	c.stopped = true
}

func (c *Coordinator) updateStorageState() {
	if err := c.hub.Send(AllPeers, wire.AskStorageState()); err != nil {
		glog.Warningf("coordinator: broadcast ask_storage_state: %v", err)
	}
}

func (c *Coordinator) broadcastClients() {
	c.notifyUI(UIEvent{Kind: "clients", Peers: c.peerList()})
}

func (c *Coordinator) notifyUI(evt UIEvent) {
	if c.ui == nil {
		return
	}
	select {
	case c.ui <- evt:
	default:
		glog.Warningf("coordinator: UI channel full, dropping %s event", evt.Kind)
	}
}

func (c *Coordinator) peerList() []string {
	out := make([]string, 0, len(c.peers))
	for p := range c.peers {
		out = append(out, p)
	}
	return out
}

func newTaskID() string {
	raw := make([]byte, 8)
	_, _ = rand.Read(raw) // crypto/rand.Read only fails if the OS entropy source is broken
	return hex.EncodeToString(raw)
}

func joinNames(names []string) string {
	out := ""
	for i, n := range names {
		if i > 0 {
			out += ", "
		}
		out += n
	}
	return out
}
