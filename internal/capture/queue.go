package capture

import (
	"sync"
	"sync/atomic"

	"github.com/petems/micbridge/internal/frame"
)

// DefaultQueueCapacity absorbs roughly ten seconds of 10 ms frames before
// the drop policy kicks in.
const DefaultQueueCapacity = 1024

// Queue is the bounded conduit between the capture goroutine and the relay.
// Single producer, single consumer. TrySend never blocks: when the queue is
// full the new frame is dropped and everything already queued is preserved,
// so the consumer sees a gapped prefix of production order, never a reorder.
type Queue struct {
	ch        chan frame.Frame
	done      chan struct{}
	closeOnce sync.Once
	dropped   atomic.Uint64
}

func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = DefaultQueueCapacity
	}
	return &Queue{
		ch:   make(chan frame.Frame, capacity),
		done: make(chan struct{}),
	}
}

// TrySend enqueues f without blocking. It reports false when the frame was
// dropped, either because the queue is full or already closed.
func (q *Queue) TrySend(f frame.Frame) bool {
	select {
	case <-q.done:
		return false
	default:
	}
	select {
	case q.ch <- f:
		return true
	default:
		q.dropped.Add(1)
		return false
	}
}

// Close marks the queue as finished. Already-queued frames remain receivable;
// safe to call more than once and from either side.
func (q *Queue) Close() {
	q.closeOnce.Do(func() {
		close(q.done)
	})
}

// Receive blocks until a frame arrives or the queue is closed and drained.
// ok is false only once no further frames will be delivered.
func (q *Queue) Receive() (frame.Frame, bool) {
	// Drain queued frames ahead of a close so nothing is lost.
	select {
	case f := <-q.ch:
		return f, true
	default:
	}
	select {
	case f := <-q.ch:
		return f, true
	case <-q.done:
	}
	select {
	case f := <-q.ch:
		return f, true
	default:
		return frame.Frame{}, false
	}
}

// Dropped returns how many frames the full or closed queue refused.
func (q *Queue) Dropped() uint64 {
	return q.dropped.Load()
}

func (q *Queue) Len() int {
	return len(q.ch)
}
