// Package cluster implements the server-side peer session layer
// (spec.md section 4.4 / SPEC_FULL.md section 4.4): accept
// connections, multiplex receive across all peers, dispatch inbound
// frames to the coordinator, and send frames to a named peer or
// broadcast.
//
// The source material runs one receiver worker doing readiness
// multiplexing over every peer socket with a ~0.6s select timeout, and
// one sender worker that is the sole writer and closer of the peer
// table. Go has no portable way to select() over an arbitrary set of
// net.Conn, so this package uses the goroutine-per-connection idiom
// permitted by spec.md section 5 instead: each accepted connection
// gets its own reader goroutine and its own sender goroutine. The
// ordering guarantee ("messages to a given peer are delivered in
// submit order") and the "sender is sole writer/closer" rule are kept
// exactly; only the multiplexing mechanism changes. A single Hub
// goroutine, grounded on transport/collect.go's ctrlCh-plus-select
// event loop, remains the sole owner of the peer table, so no locks
// guard it.
package cluster

import (
	"bufio"
	"net"
	"sync"

	"github.com/golang/glog"
	"go.uber.org/atomic"

	"github.com/shardkeep/shardkeep/cmn"
	"github.com/shardkeep/shardkeep/wire"
)

// EventKind tags the events the Hub publishes to the coordinator.
type EventKind string

const (
	EventConnected    EventKind = "connected"
	EventDisconnected EventKind = "disconnected"
	EventReceived     EventKind = "received"
)

// Event is one occurrence on the peer session layer, posted to the
// coordinator's inbox (spec.md section 4.9).
type Event struct {
	Kind    EventKind
	Peer    string
	Payload cmn.SimpleKVs
}

// peer is one live connection. sendLoop is its sole writer and closer.
// closed guards against both halves racing to tear down the same
// socket: a write failure in sendLoop and a read failure in recvLoop
// can fire within the same instant of a real disconnect.
type peer struct {
	id     string
	conn   net.Conn
	outbox *cmn.FrameQueue
	closed atomic.Bool
}

func (p *peer) closeOnce() {
	if p.closed.CAS(false, true) {
		p.conn.Close()
	}
}

type ctrlMsg struct {
	add  bool
	peer *peer
}

type sendReq struct {
	target string // peer id, or "*" for broadcast
	frame  []byte
}

// Hub owns the listening socket and the peer table. Run must execute
// in its own goroutine; it is the single writer of the peer map.
type Hub struct {
	events   chan<- Event
	ctrlCh   chan ctrlMsg
	sendCh   chan sendReq
	stopCh   chan struct{}
	stopOnce sync.Once

	peers map[string]*peer

	mu        sync.Mutex
	boundAddr string
}

// NewHub creates a Hub that publishes session events to events.
func NewHub(events chan<- Event) *Hub {
	return &Hub{
		events: events,
		ctrlCh: make(chan ctrlMsg, 64),
		sendCh: make(chan sendReq, 256),
		stopCh: make(chan struct{}),
		peers:  make(map[string]*peer, 16),
	}
}

// Listen starts accepting connections on addr. It spawns the accept
// loop in its own goroutine and returns once the listener is bound.
func (h *Hub) Listen(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return cmn.WrapError(cmn.ErrStorageFailure, "listen "+addr, err)
	}
	h.mu.Lock()
	h.boundAddr = ln.Addr().String()
	h.mu.Unlock()
	go h.acceptLoop(ln)
	return nil
}

func (h *Hub) acceptLoop(ln net.Listener) {
	defer ln.Close()
	go func() {
		<-h.stopCh
		ln.Close()
	}()
	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-h.stopCh:
				return
			default:
				glog.Errorf("cluster: accept: %v", err)
				return
			}
		}
		p := &peer{
			id:     conn.RemoteAddr().String(),
			conn:   conn,
			outbox: cmn.NewFrameQueue(),
		}
		h.ctrlCh <- ctrlMsg{add: true, peer: p}
		go h.recvLoop(p)
		go h.sendLoop(p)
	}
}

// Run is the Hub's single-consumer event loop: it is the only
// goroutine that mutates h.peers. Grounded on transport/collect.go's
// collector.run, minus the idle-tick heap (no per-peer idle teardown
// in this protocol; peer death is detected by read/write errors).
func (h *Hub) Run() {
	for {
		select {
		case ctrl := <-h.ctrlCh:
			if ctrl.add {
				h.peers[ctrl.peer.id] = ctrl.peer
				h.events <- Event{Kind: EventConnected, Peer: ctrl.peer.id}
			} else {
				if _, ok := h.peers[ctrl.peer.id]; ok {
					delete(h.peers, ctrl.peer.id)
					h.events <- Event{Kind: EventDisconnected, Peer: ctrl.peer.id}
				}
			}
		case req := <-h.sendCh:
			if req.target == "*" {
				for _, p := range h.peers {
					enqueue(p, req.frame)
				}
				continue
			}
			if p, ok := h.peers[req.target]; ok {
				enqueue(p, req.frame)
			}
		case <-h.stopCh:
			for _, p := range h.peers {
				p.outbox.Close()
			}
			return
		}
	}
}

func enqueue(p *peer, frame []byte) {
	p.outbox.Enqueue(frame)
}

// Send encodes msg and queues it for delivery to target ("*" for
// every live peer, or a specific peer id).
func (h *Hub) Send(target string, msg cmn.SimpleKVs) error {
	frame, err := wire.Encode(msg)
	if err != nil {
		return err
	}
	h.sendCh <- sendReq{target: target, frame: frame}
	return nil
}

// Stop tears down the listener and every peer connection.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.stopCh) })
}

// recvLoop is the reader half of one peer connection. It frames and
// decodes inbound bytes and posts RECEIVED/DISCONNECTED events
// straight to the coordinator inbox (spec.md section 4.4).
func (h *Hub) recvLoop(p *peer) {
	r := bufio.NewReader(p.conn)
	header := make([]byte, wire.HeaderLen)
	for {
		if _, err := readFull(r, header); err != nil {
			h.disconnect(p)
			return
		}
		length := wire.SplitHeader(header)
		payload := make([]byte, length)
		if _, err := readFull(r, payload); err != nil {
			h.disconnect(p)
			return
		}
		msg, err := wire.Decode(payload)
		if err != nil {
			glog.Warningf("cluster: malformed frame from %s: %v", p.id, err)
			continue
		}
		h.events <- Event{Kind: EventReceived, Peer: p.id, Payload: msg}
	}
}

func (h *Hub) disconnect(p *peer) {
	h.ctrlCh <- ctrlMsg{add: false, peer: p}
}

// sendLoop is the writer half of one peer connection; it is the sole
// writer and closer of p.conn, matching the source's sender-owns-the-
// socket rule.
func (h *Hub) sendLoop(p *peer) {
	defer p.closeOnce()
	for {
		frame, ok := p.outbox.Dequeue()
		if !ok {
			return
		}
		if _, err := p.conn.Write(frame); err != nil {
			glog.Warningf("cluster: write to %s failed: %v", p.id, err)
			h.disconnect(p)
			return
		}
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
