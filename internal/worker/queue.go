package worker

import (
	"sync"

	"github.com/pluginhost/validatorctl/internal/envelope"
)

// RequestQueue is the dispatcher's inbound FIFO: an unbounded slice
// guarded by a mutex and condition variable. Drain swaps the whole
// backing slice out atomically so a single drain pass processes every
// request that was queued up to that instant to completion before the
// queue is re-examined, preserving invariant 2 (no batch interleaving).
type RequestQueue struct {
	mu     sync.Mutex
	cond   *sync.Cond
	items  []envelope.PluginsRequest
	closed bool
}

func NewRequestQueue() *RequestQueue {
	q := &RequestQueue{}
	q.cond = sync.NewCond(&q.mu)
	return q
}

// Push appends req and wakes one waiting drainer.
func (q *RequestQueue) Push(req envelope.PluginsRequest) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return
	}
	q.items = append(q.items, req)
	q.cond.Signal()
}

// Drain blocks until at least one item is queued or the queue is
// closed, then swaps out and returns the entire backing slice,
// resetting it to empty. Returns ok=false once closed with nothing left
// to drain.
func (q *RequestQueue) Drain() (items []envelope.PluginsRequest, ok bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	for len(q.items) == 0 && !q.closed {
		q.cond.Wait()
	}
	if len(q.items) == 0 {
		return nil, false
	}
	items = q.items
	q.items = nil
	return items, true
}

// Close unblocks any pending Drain permanently.
func (q *RequestQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
	q.cond.Broadcast()
}
