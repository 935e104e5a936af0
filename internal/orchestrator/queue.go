package orchestrator

import "sync"

// Intent is a message the control queue carries into the orchestrator's
// single goroutine: an OSC-derived command, an audio-engine lifecycle
// event, or a worker's buffer-complete notification.
type Intent interface {
	isIntent()
}

// intentQueue is an unbounded multi-producer single-consumer FIFO. A
// plain buffered channel would impose a capacity and could block a
// producer (the OSC receiver, the audio event bridge, or any decoder
// worker); none of those may block on handing off a message, so the queue
// grows instead of applying backpressure.
type intentQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []Intent
	closed bool
}

func newIntentQueue() *intentQueue {
	q := &intentQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Send enqueues an intent. Never blocks.
func (q *intentQueue) Send(i Intent) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.items = append(q.items, i)
	q.mu.Unlock()
	q.cond.Signal()
}

// Recv blocks until an intent is available or the queue is closed. The
// second return value is false once the queue is closed and drained.
func (q *intentQueue) Recv() (Intent, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 && !q.closed {
		q.cond.Wait()
	}
	if len(q.items) == 0 {
		return nil, false
	}
	item := q.items[0]
	q.items = q.items[1:]
	return item, true
}

// Close causes pending and future Recv calls to return once drained, and
// future Send calls to be silently dropped.
func (q *intentQueue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
	q.cond.Broadcast()
}
