package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrNotRunning is returned when submitting to a queue that is not started or already stopped.
var ErrNotRunning = errors.New("queue is not running")

// Task identifies one unit of background work.
type Task struct {
	ID       string
	Kind     string
	Attempt  int
	QueuedAt time.Time
}

// HandlerFunc processes a task. A returned error schedules a retry until
// the retry budget is spent.
type HandlerFunc func(ctx context.Context, task Task) error

// Options tunes the worker pool.
type Options struct {
	Workers    int
	Buffer     int
	MaxRetries int
	Backoff    time.Duration
	// OnGiveUp is called once a task exhausted its retries.
	OnGiveUp func(task Task, err error)
	Logger   *zap.Logger
}

// Queue runs tasks on a fixed pool of goroutines.
type Queue struct {
	name    string
	handler HandlerFunc
	opts    Options

	tasks chan Task

	mu      sync.RWMutex
	ctx     context.Context
	cancel  context.CancelFunc
	running bool
	workers sync.WaitGroup
	retries sync.WaitGroup
}

// NewQueue builds a stopped queue.
func NewQueue(name string, handler HandlerFunc, opts Options) *Queue {
	if opts.Workers <= 0 {
		opts.Workers = 1
	}
	if opts.Buffer <= 0 {
		opts.Buffer = 16 * opts.Workers
	}
	if opts.MaxRetries < 0 {
		opts.MaxRetries = 0
	}
	if opts.Backoff <= 0 {
		opts.Backoff = time.Second
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Queue{
		name:    name,
		handler: handler,
		opts:    opts,
		tasks:   make(chan Task, opts.Buffer),
	}
}

// Start launches the workers. Calling Start on a running queue is a no-op.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.running {
		return
	}
	q.ctx, q.cancel = context.WithCancel(ctx)
	q.running = true
	for i := 0; i < q.opts.Workers; i++ {
		q.workers.Add(1)
		go q.work()
	}
	q.opts.Logger.Info("queue started", zap.String("queue", q.name), zap.Int("workers", q.opts.Workers))
}

// Stop cancels in-flight work and waits for workers and pending retries to exit.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return
	}
	q.running = false
	q.cancel()
	q.mu.Unlock()

	q.workers.Wait()
	q.retries.Wait()
	q.opts.Logger.Info("queue stopped", zap.String("queue", q.name))
}

// Submit enqueues task. It blocks while the buffer is full.
func (q *Queue) Submit(task Task) error {
	q.mu.RLock()
	running, ctx := q.running, q.ctx
	q.mu.RUnlock()
	if !running {
		return fmt.Errorf("%s: %w", q.name, ErrNotRunning)
	}
	if task.QueuedAt.IsZero() {
		task.QueuedAt = time.Now().UTC()
	}

	select {
	case q.tasks <- task:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", q.name, ErrNotRunning)
	}
}

// Pending reports the number of buffered tasks.
func (q *Queue) Pending() int {
	return len(q.tasks)
}

func (q *Queue) work() {
	defer q.workers.Done()
	for {
		select {
		case <-q.ctx.Done():
			return
		case task := <-q.tasks:
			q.run(task)
		}
	}
}

func (q *Queue) run(task Task) {
	defer func() {
		if r := recover(); r != nil {
			q.fail(task, fmt.Errorf("panic: %v", r))
		}
	}()
	if err := q.handler(q.ctx, task); err != nil {
		q.fail(task, err)
	}
}

func (q *Queue) fail(task Task, err error) {
	log := q.opts.Logger.With(zap.String("queue", q.name), zap.String("task_id", task.ID), zap.String("kind", task.Kind))
	if q.ctx.Err() != nil {
		log.Warn("task interrupted by shutdown", zap.Error(err))
		return
	}
	if task.Attempt >= q.opts.MaxRetries {
		log.Error("task gave up", zap.Int("attempts", task.Attempt+1), zap.Error(err))
		if q.opts.OnGiveUp != nil {
			q.opts.OnGiveUp(task, err)
		}
		return
	}

	task.Attempt++
	delay := q.opts.Backoff * time.Duration(task.Attempt)
	log.Warn("task failed, retrying", zap.Int("attempt", task.Attempt), zap.Duration("delay", delay), zap.Error(err))

	q.retries.Add(1)
	go func() {
		defer q.retries.Done()
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-q.ctx.Done():
		case <-timer.C:
			if err := q.Submit(task); err != nil {
				log.Warn("requeue failed", zap.Error(err))
			}
		}
	}()
}
