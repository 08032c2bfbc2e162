package coordinator

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/shardkeep/shardkeep/cluster"
	"github.com/shardkeep/shardkeep/cmn"
	"github.com/shardkeep/shardkeep/store"
)

type fakeHub struct {
	mu      sync.Mutex
	sent    []sentMsg
	stopped bool
}

type sentMsg struct {
	target string
	msg    cmn.SimpleKVs
}

func (f *fakeHub) Send(target string, msg cmn.SimpleKVs) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, sentMsg{target: target, msg: msg})
	return nil
}

func (f *fakeHub) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
}

func (f *fakeHub) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.sent)
}

func (f *fakeHub) isStopped() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.stopped
}

func newTestCoordinator() (*Coordinator, *fakeHub, chan cluster.Event, chan UIEvent, string) {
	hub := &fakeHub{}
	hubEvents := make(chan cluster.Event, 64)
	ui := make(chan UIEvent, 64)
	dir, err := os.MkdirTemp("", "shardkeep-coordinator-test")
	Expect(err).NotTo(HaveOccurred())
	st, err := store.Open(dir)
	Expect(err).NotTo(HaveOccurred())
	c := New(hub, hubEvents, st, ui, dir)
	go c.Run()
	return c, hub, hubEvents, ui, dir
}

// waitUIEvent drains ui until it sees one of kind, failing the spec if
// none arrives within the deadline. Mirrors the teacher's waiter_test.go
// use of Eventually for asynchronous state.
func waitUIEvent(ui chan UIEvent, kind string) UIEvent {
	var found UIEvent
	Eventually(func() string {
		select {
		case evt := <-ui:
			if evt.Kind == kind {
				found = evt
			}
			return evt.Kind
		default:
			return ""
		}
	}, 2*time.Second, 10*time.Millisecond).Should(Equal(kind))
	return found
}

var _ = Describe("Coordinator", func() {
	var tmpDirs []string

	AfterEach(func() {
		for _, d := range tmpDirs {
			os.RemoveAll(d)
		}
		tmpDirs = nil
	})

	spin := func() (*Coordinator, *fakeHub, chan cluster.Event, chan UIEvent) {
		c, hub, hubEvents, ui, dir := newTestCoordinator()
		tmpDirs = append(tmpDirs, dir)
		return c, hub, hubEvents, ui
	}

	It("broadcasts the connected peer list on connect", func() {
		_, _, hubEvents, ui := spin()

		hubEvents <- cluster.Event{Kind: cluster.EventConnected, Peer: "p0"}

		evt := waitUIEvent(ui, "clients")
		Expect(evt.Peers).To(Equal([]string{"p0"}))
	})

	It("removes a peer on disconnect", func() {
		_, _, hubEvents, ui := spin()

		hubEvents <- cluster.Event{Kind: cluster.EventConnected, Peer: "p0"}
		waitUIEvent(ui, "clients")

		hubEvents <- cluster.Event{Kind: cluster.EventDisconnected, Peer: "p0"}
		evt := waitUIEvent(ui, "clients")
		Expect(evt.Peers).To(BeEmpty())
	})

	It("reports an error restoring an unknown record", func() {
		c, _, _, ui := spin()

		c.Restore(RestoreRequest{DestinationPath: "/tmp/out.bin", Name: "nope.bin"})

		evt := waitUIEvent(ui, "error")
		Expect(evt.Message).NotTo(BeEmpty())
	})

	It("persists the metadata record after a successful distribute", func() {
		c, hub, hubEvents, ui := spin()

		hubEvents <- cluster.Event{Kind: cluster.EventConnected, Peer: "p0"}
		waitUIEvent(ui, "clients")

		fileDir, err := os.MkdirTemp("", "shardkeep-distribute-src")
		Expect(err).NotTo(HaveOccurred())
		tmpDirs = append(tmpDirs, fileDir)
		tmpFile := filepath.Join(fileDir, "f.bin")
		Expect(os.WriteFile(tmpFile, []byte("hello world, this is a test file"), 0o644)).To(Succeed())

		c.Distribute(DistributeRequest{FilePath: tmpFile, BlockSize: 8, DuplicationLevel: 1, ValidationLevel: 2})

		waitUIEvent(ui, "refresh")
		Expect(hub.sentCount()).To(BeNumerically(">", 0))

		rec, err := c.store.Query("f.bin")
		Expect(err).NotTo(HaveOccurred())
		Expect(rec).NotTo(BeNil())
		Expect(rec.BlockNumber).To(Equal(4))
	})

	It("forwards a wildcard delete to every connected peer and the store", func() {
		c, hub, hubEvents, ui := spin()

		hubEvents <- cluster.Event{Kind: cluster.EventConnected, Peer: "p0"}
		waitUIEvent(ui, "clients")

		c.Delete(AllPeers)
		waitUIEvent(ui, "refresh")

		Expect(hub.sentCount()).To(BeNumerically(">", 0))
	})

	It("finishes immediately when reconstruct has no known files", func() {
		c, _, _, ui := spin()

		c.Reconstruct()

		evt := waitUIEvent(ui, "reconstruct_done")
		Expect(evt.Message).NotTo(BeEmpty())

		// a second call must be accepted right away, proving the first
		// run cleared reconstructRunning instead of leaving it stuck
		c.Reconstruct()
		waitUIEvent(ui, "reconstruct_done")
	})

	It("rejects distribute while a reconstruct batch is in flight", func() {
		c, _, _, ui := spin()

		rec := store.FileRecord{Name: "f.bin", FileSize: 16, BlockNumber: 2, ValidationLevel: 1}
		Expect(c.store.Insert(rec)).To(Succeed())

		// Both calls only enqueue onto the single-consumer inbox, so
		// handleReconstruct runs to completion (setting
		// reconstructRunning) before handleDistribute is processed,
		// regardless of how long the spawned restore sub-task itself
		// takes to finish in the background.
		c.Reconstruct()
		c.Distribute(DistributeRequest{FilePath: "/tmp/doesnotmatter.bin", BlockSize: 8})

		evt := waitUIEvent(ui, "error")
		Expect(evt.Message).NotTo(BeEmpty())
	})

	It("stops the hub when exiting", func() {
		c, hub, _, _ := spin()

		c.Exit()

		Eventually(hub.isStopped, 2*time.Second, 10*time.Millisecond).Should(BeTrue())
	})
})
