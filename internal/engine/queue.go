package engine

import "sync"

// reloadQueue is a thread-safe FIFO of refs awaiting resync.
//
// A ref already waiting is not queued twice. Dequeue clears the pending
// mark, so a reload that arrives while its ref is being synced queues it
// again and the newer config is never lost to an in-flight fetch.
//
// The queue uses a channel for signaling to enable context-aware waiting
// in the sync worker.
type reloadQueue struct {
	mu      sync.Mutex
	refs    []string
	pending map[string]bool
	closed  bool
	signal  chan struct{} // Signals ref availability (buffered, size 1)
}

func newReloadQueue() *reloadQueue {
	return &reloadQueue{
		pending: make(map[string]bool),
		signal:  make(chan struct{}, 1),
	}
}

// Enqueue adds ref to the back of the queue unless it is already waiting.
// Returns false if the queue is closed.
func (q *reloadQueue) Enqueue(ref string) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return false
	}
	if q.pending[ref] {
		return true
	}
	q.pending[ref] = true
	q.refs = append(q.refs, ref)

	// Signal availability (non-blocking - buffer of 1 coalesces multiple signals)
	select {
	case q.signal <- struct{}{}:
	default:
	}
	return true
}

// TryDequeue removes and returns the front ref without blocking.
func (q *reloadQueue) TryDequeue() (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.refs) == 0 {
		return "", false
	}
	ref := q.refs[0]
	if len(q.refs) == 1 {
		q.refs = q.refs[:0]
	} else {
		q.refs = q.refs[1:]
	}
	delete(q.pending, ref)
	return ref, true
}

// Wait returns a channel that signals when refs may be available. It is
// closed by Close.
func (q *reloadQueue) Wait() <-chan struct{} {
	return q.signal
}

// Len returns the number of waiting refs.
func (q *reloadQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.refs)
}

// Close stops accepting refs and wakes any waiter.
func (q *reloadQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.signal)
}
