// Package bulkjobs runs long operations in the background on a small
// worker pool and keeps their outcome in memory for polling.
//
// A job is a func(ctx) (T, error). Submit returns a job id at once; Get
// reports the job's status and, once finished, its result or error.
// Finished jobs are dropped after the retention window.
package bulkjobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Status is the lifecycle state of a job.
type Status string

const (
	StatusPending Status = "pending"
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusFailed  Status = "failed"
)

var (
	// ErrQueueFull is returned by Submit when no more jobs can be queued.
	ErrQueueFull = errors.New("bulk job queue is full")

	// ErrStopped is returned by Submit after Stop.
	ErrStopped = errors.New("bulk job queue is stopped")

	// ErrNotFound is returned by Wait for an unknown or expired job id.
	ErrNotFound = errors.New("bulk job not found")
)

// Func is the work of one job.
type Func[T any] func(ctx context.Context) (T, error)

// Job is a snapshot of a job's state.
type Job[T any] struct {
	ID         string     `json:"job_id"`
	Status     Status     `json:"status"`
	Result     *T         `json:"result,omitempty"`
	Error      string     `json:"error,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Options configure a Queue. Zero values take the defaults below.
type Options struct {
	Workers   int           // default 2
	Capacity  int           // pending jobs, default 64
	Timeout   time.Duration // per job, default 10m
	Retention time.Duration // finished jobs, default 1h
}

type entry[T any] struct {
	job  Job[T]
	fn   Func[T]
	done chan struct{}
}

// Queue is an in-memory job queue with a fixed worker pool.
type Queue[T any] struct {
	log       *zap.Logger
	workers   int
	timeout   time.Duration
	retention time.Duration
	newID     func() string
	now       func() time.Time

	mu      sync.Mutex
	jobs    map[string]*entry[T]
	stopped bool

	pending  chan *entry[T]
	ctx      context.Context
	cancel   context.CancelFunc
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// New creates a Queue. Call Start to begin processing.
func New[T any](logger *zap.Logger, opts Options) *Queue[T] {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.Workers <= 0 {
		opts.Workers = 2
	}
	if opts.Capacity <= 0 {
		opts.Capacity = 64
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Minute
	}
	if opts.Retention <= 0 {
		opts.Retention = time.Hour
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Queue[T]{
		log:       logger,
		workers:   opts.Workers,
		timeout:   opts.Timeout,
		retention: opts.Retention,
		newID:     uuid.NewString,
		now:       time.Now,
		jobs:      make(map[string]*entry[T]),
		pending:   make(chan *entry[T], opts.Capacity),
		ctx:       ctx,
		cancel:    cancel,
		stopCh:    make(chan struct{}),
	}
}

// Start launches the workers and the retention janitor.
func (q *Queue[T]) Start() {
	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.work()
	}
	q.wg.Add(1)
	go q.janitor()
	q.log.Info("bulk job workers started",
		zap.Int("workers", q.workers),
		zap.Int("capacity", cap(q.pending)),
		zap.Duration("timeout", q.timeout),
		zap.Duration("retention", q.retention))
}

// Stop cancels running jobs, waits for the workers to exit and fails any
// job still queued. Safe to call more than once.
func (q *Queue[T]) Stop() {
	q.stopOnce.Do(func() {
		q.mu.Lock()
		q.stopped = true
		q.mu.Unlock()
		close(q.stopCh)
		q.cancel()
	})
	q.wg.Wait()

	for {
		select {
		case e := <-q.pending:
			q.finish(e, nil, errors.New("shutting down"))
		default:
			q.log.Info("bulk job workers stopped")
			return
		}
	}
}

// Submit queues fn and returns the new job id.
func (q *Queue[T]) Submit(fn Func[T]) (string, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.stopped {
		return "", ErrStopped
	}
	e := &entry[T]{
		job:  Job[T]{ID: q.newID(), Status: StatusPending, CreatedAt: q.now().UTC()},
		fn:   fn,
		done: make(chan struct{}),
	}
	select {
	case q.pending <- e:
	default:
		return "", ErrQueueFull
	}
	q.jobs[e.job.ID] = e
	return e.job.ID, nil
}

// Get returns a snapshot of job id.
func (q *Queue[T]) Get(id string) (Job[T], bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	e, ok := q.jobs[id]
	if !ok {
		return Job[T]{}, false
	}
	return e.job, true
}

// Wait blocks until job id finishes or ctx is done.
func (q *Queue[T]) Wait(ctx context.Context, id string) (Job[T], error) {
	q.mu.Lock()
	e, ok := q.jobs[id]
	q.mu.Unlock()
	if !ok {
		return Job[T]{}, ErrNotFound
	}
	select {
	case <-e.done:
		j, _ := q.Get(id)
		return j, nil
	case <-ctx.Done():
		return Job[T]{}, ctx.Err()
	}
}

// Sweep drops finished jobs older than the retention window and returns
// how many were removed.
func (q *Queue[T]) Sweep() int {
	cutoff := q.now().UTC().Add(-q.retention)
	q.mu.Lock()
	defer q.mu.Unlock()
	n := 0
	for id, e := range q.jobs {
		if f := e.job.FinishedAt; f != nil && f.Before(cutoff) {
			delete(q.jobs, id)
			n++
		}
	}
	return n
}

func (q *Queue[T]) work() {
	defer q.wg.Done()
	for {
		select {
		case <-q.stopCh:
			return
		case e := <-q.pending:
			q.run(e)
		}
	}
}

func (q *Queue[T]) run(e *entry[T]) {
	q.mu.Lock()
	e.job.Status = StatusRunning
	id := e.job.ID
	q.mu.Unlock()

	ctx, cancel := context.WithTimeout(q.ctx, q.timeout)
	defer cancel()

	start := q.now()
	res, err := q.safeCall(ctx, e.fn)
	q.finish(e, &res, err)

	if err != nil {
		q.log.Error("bulk job failed", zap.String("job_id", id), zap.Duration("took", q.now().Sub(start)), zap.Error(err))
		return
	}
	q.log.Info("bulk job done", zap.String("job_id", id), zap.Duration("took", q.now().Sub(start)))
}

func (q *Queue[T]) safeCall(ctx context.Context, fn Func[T]) (res T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return fn(ctx)
}

func (q *Queue[T]) finish(e *entry[T], res *T, err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	now := q.now().UTC()
	e.job.FinishedAt = &now
	if err != nil {
		e.job.Status = StatusFailed
		e.job.Error = err.Error()
	} else {
		e.job.Status = StatusDone
		e.job.Result = res
	}
	close(e.done)
}

func (q *Queue[T]) janitor() {
	defer q.wg.Done()
	interval := q.retention / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-q.stopCh:
			return
		case <-ticker.C:
			if n := q.Sweep(); n > 0 {
				q.log.Debug("expired bulk jobs removed", zap.Int("count", n))
			}
		}
	}
}
