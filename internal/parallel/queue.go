package parallel

import "sync"

// TaskQueue is a FIFO of closures posted from any goroutine and run on the
// goroutine that owns the rendering device.
//
// Post never blocks on the consumer. Drain runs everything posted before
// the call, in post order; tasks posted while draining wait for the next
// Drain.
type TaskQueue struct {
	mu      sync.Mutex
	pending []func()
	spare   []func()
	closed  bool
}

// NewTaskQueue creates an empty queue.
func NewTaskQueue() *TaskQueue {
	return &TaskQueue{}
}

// Post appends fn. Returns false if the queue is closed.
func (q *TaskQueue) Post(fn func()) bool {
	if fn == nil {
		return false
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return false
	}
	q.pending = append(q.pending, fn)
	return true
}

// Drain runs queued tasks on the calling goroutine and returns how many ran.
func (q *TaskQueue) Drain() int {
	q.mu.Lock()
	batch := q.pending
	q.pending = q.spare[:0]
	q.spare = nil
	q.mu.Unlock()

	for i, fn := range batch {
		fn()
		batch[i] = nil
	}

	q.mu.Lock()
	q.spare = batch[:0]
	q.mu.Unlock()
	return len(batch)
}

// Len returns the number of tasks waiting.
func (q *TaskQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}

// Close rejects further posts. Tasks already queued are still returned by
// Drain.
func (q *TaskQueue) Close() {
	q.mu.Lock()
	q.closed = true
	q.mu.Unlock()
}
