package cmn

import "sync"

// FrameQueue is an unbounded, single-consumer FIFO of already-framed
// bytes (spec.md section 5: "single-producer/multi-producer,
// single-consumer unbounded FIFO queues", "no busy loops"). Enqueue
// never blocks and, until Close, never drops a frame; Dequeue parks on a condition
// variable instead of polling until a frame is ready or the queue is
// closed. cluster and daemon both use it as a peer connection's
// outbound queue.
type FrameQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  [][]byte
	closed bool
}

// NewFrameQueue returns an open, empty queue.
func NewFrameQueue() *FrameQueue {
	q := &FrameQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Enqueue appends frame to the tail; once the queue is closed, frame
// is discarded.
func (q *FrameQueue) Enqueue(frame []byte) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.items = append(q.items, frame)
	q.cond.Signal()
}

// Dequeue blocks until a frame is available or the queue closes. ok is
// false once the queue is closed and every queued frame has been
// drained by prior Dequeue calls.
func (q *FrameQueue) Dequeue() (frame []byte, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 && !q.closed {
		q.cond.Wait()
	}
	if len(q.items) == 0 {
		return nil, false
	}
	frame, q.items = q.items[0], q.items[1:]
	return frame, true
}

// Close wakes any goroutine blocked in Dequeue. Frames already queued
// are still delivered to Dequeue calls made before it returns
// len(items)==0; afterwards Dequeue always returns ok=false.
func (q *FrameQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.cond.Broadcast()
}
