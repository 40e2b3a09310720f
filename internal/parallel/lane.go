package parallel

import "sync"

// Job is a unit of background work with a follow-up that must run on the
// device goroutine. Any func may be nil.
//
// Cancel runs instead of Apply when the lane drops the job because the
// pool or queue has shut down. It runs on the goroutine that found the
// shutdown: the Enqueue caller, the drainer of the previous job's Apply,
// or the worker whose Post failed.
type Job struct {
	Work   func()
	Apply  func()
	Cancel func()
}

// Lane serializes jobs that belong to one owner. The next job's Work does
// not start until the previous job's Apply has run on the TaskQueue, so
// jobs on the same lane are observed strictly in enqueue order.
// Different lanes sharing a pool run independently.
type Lane struct {
	pool  *WorkerPool
	queue *TaskQueue

	mu   sync.Mutex
	busy bool
	jobs []Job
}

// NewLane creates a lane that runs Work on pool and Apply via queue.
func NewLane(pool *WorkerPool, queue *TaskQueue) *Lane {
	return &Lane{pool: pool, queue: queue}
}

// Enqueue schedules job behind any jobs already on the lane.
// Returns false if the pool or queue has shut down; job's Cancel has run
// by then.
func (l *Lane) Enqueue(job Job) bool {
	l.mu.Lock()
	if l.busy {
		l.jobs = append(l.jobs, job)
		l.mu.Unlock()
		return true
	}
	l.busy = true
	l.mu.Unlock()
	return l.start(job)
}

// Pending returns the number of jobs not yet applied, including the one in flight.
func (l *Lane) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := len(l.jobs)
	if l.busy {
		n++
	}
	return n
}

func (l *Lane) start(job Job) bool {
	ok := l.pool.Submit(func() {
		if job.Work != nil {
			job.Work()
		}
		posted := l.queue.Post(func() {
			if job.Apply != nil {
				job.Apply()
			}
			l.next()
		})
		if !posted {
			l.abandon(job)
		}
	})
	if !ok {
		l.abandon(job)
	}
	return ok
}

func (l *Lane) next() {
	l.mu.Lock()
	if len(l.jobs) == 0 {
		l.busy = false
		l.mu.Unlock()
		return
	}
	job := l.jobs[0]
	l.jobs[0] = Job{}
	l.jobs = l.jobs[1:]
	l.mu.Unlock()
	l.start(job)
}

// abandon cancels failed and everything queued behind it, in order, once
// the lane can no longer make progress.
func (l *Lane) abandon(failed Job) {
	l.mu.Lock()
	dropped := l.jobs
	l.jobs = nil
	l.busy = false
	l.mu.Unlock()

	if failed.Cancel != nil {
		failed.Cancel()
	}
	for _, job := range dropped {
		if job.Cancel != nil {
			job.Cancel()
		}
	}
}
