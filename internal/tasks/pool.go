// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jeranaias/joat/internal/logging"
)

// Pool errors.
var (
	ErrQueueFull = errors.New("task queue is full")
	ErrStopped   = errors.New("task pool is stopped")
)

// =============================================================================
// POOL
// =============================================================================

// Options configures a Pool. Zero values take defaults.
type Options struct {
	// Workers is the number of concurrent tasks (default: 4)
	Workers int
	// QueueSize bounds waiting tasks; Submit fails beyond it (default: 64)
	QueueSize int
	// MaxHistory is how many finished tasks Get can still find (default: 256)
	MaxHistory int
	// TaskTimeout bounds each run (0 = none)
	TaskTimeout time.Duration

	Logger *slog.Logger
}

// Pool runs submitted tasks on a fixed set of workers.
type Pool struct {
	opts   Options
	logger *slog.Logger

	queue chan *Task
	quit  chan struct{}
	wg    sync.WaitGroup

	baseCtx    context.Context
	cancelBase context.CancelFunc

	// mu guards stopped, tasks and order; Submit holds it while enqueueing
	// so nothing is enqueued after Stop begins.
	mu      sync.Mutex
	stopped bool
	started bool
	tasks   map[string]*Task
	order   []string

	running atomic.Int64
}

// NewPool creates a pool. Call Start before submitting work.
func NewPool(opts Options) *Pool {
	if opts.Workers <= 0 {
		opts.Workers = 4
	}
	if opts.QueueSize <= 0 {
		opts.QueueSize = 64
	}
	if opts.MaxHistory <= 0 {
		opts.MaxHistory = 256
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Pool{
		opts:       opts,
		logger:     logging.OrDiscard(opts.Logger),
		queue:      make(chan *Task, opts.QueueSize),
		quit:       make(chan struct{}),
		baseCtx:    ctx,
		cancelBase: cancel,
		tasks:      make(map[string]*Task),
	}
}

// Start launches the workers. Calling it more than once has no effect.
func (p *Pool) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.started || p.stopped {
		return
	}
	p.started = true
	for i := 0; i < p.opts.Workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

// Submit enqueues fn without blocking.
func (p *Pool) Submit(description string, fn Func) (*Task, error) {
	task := NewTask(description, fn)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.stopped {
		return nil, ErrStopped
	}
	select {
	case p.queue <- task:
	default:
		return nil, ErrQueueFull
	}
	p.tasks[task.ID] = task
	p.order = append(p.order, task.ID)
	p.trimLocked()
	return task, nil
}

// Get returns a task that is pending or still in history.
func (p *Pool) Get(id string) (*Task, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	t, ok := p.tasks[id]
	return t, ok
}

// Stop refuses new work, lets running tasks finish until ctx ends (then
// cancels them), and cancels anything still queued.
func (p *Pool) Stop(ctx context.Context) error {
	p.mu.Lock()
	if p.stopped {
		p.mu.Unlock()
		return nil
	}
	p.stopped = true
	p.mu.Unlock()

	close(p.quit)

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	var err error
	select {
	case <-done:
	case <-ctx.Done():
		p.cancelBase()
		<-done
		err = ctx.Err()
	}
	p.cancelBase()

	for {
		select {
		case t := <-p.queue:
			t.Cancel()
		default:
			return err
		}
	}
}

// trimLocked drops the oldest finished tasks beyond MaxHistory.
func (p *Pool) trimLocked() {
	excess := len(p.order) - p.opts.MaxHistory
	if excess <= 0 {
		return
	}
	kept := p.order[:0]
	for _, id := range p.order {
		if excess > 0 && p.tasks[id].Status().Terminal() {
			delete(p.tasks, id)
			excess--
			continue
		}
		kept = append(kept, id)
	}
	p.order = kept
}

// =============================================================================
// WORKERS
// =============================================================================

func (p *Pool) worker() {
	defer p.wg.Done()
	for {
		select {
		case <-p.quit:
			return
		case t := <-p.queue:
			p.run(t)
		}
	}
}

// run executes one task, converting panics into task failures.
func (p *Pool) run(t *Task) {
	var ctx context.Context
	var cancel context.CancelFunc
	if p.opts.TaskTimeout > 0 {
		ctx, cancel = context.WithTimeout(p.baseCtx, p.opts.TaskTimeout)
	} else {
		ctx, cancel = context.WithCancel(p.baseCtx)
	}
	defer cancel()

	if !t.start(cancel) {
		return
	}
	p.running.Add(1)
	defer p.running.Add(-1)

	result, err := p.call(ctx, t)

	canceled := false
	if err != nil {
		switch {
		case errors.Is(ctx.Err(), context.DeadlineExceeded):
			err = fmt.Errorf("task timeout after %v: %w", p.opts.TaskTimeout, err)
		case errors.Is(ctx.Err(), context.Canceled):
			canceled = true
		}
		p.logger.Debug("task ended with error", "task", t.ID, "description", t.Description, "error", err)
	}
	t.finish(result, err, canceled)
}

func (p *Pool) call(ctx context.Context, t *Task) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("task panicked", "task", t.ID, "panic", r)
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return t.fn(ctx)
}

// =============================================================================
// STATISTICS
// =============================================================================

// Stats counts tasks by status across the retained history.
type Stats struct {
	Workers  int `json:"workers"`
	Queued   int `json:"queued"`
	Running  int `json:"running"`
	Complete int `json:"complete"`
	Failed   int `json:"failed"`
	Canceled int `json:"canceled"`
}

// Stats returns current counts.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()

	s := Stats{Workers: p.opts.Workers, Running: int(p.running.Load())}
	for _, t := range p.tasks {
		switch t.Status() {
		case TaskStatusQueued:
			s.Queued++
		case TaskStatusComplete:
			s.Complete++
		case TaskStatusFailed:
			s.Failed++
		case TaskStatusCanceled:
			s.Canceled++
		}
	}
	return s
}

// Summary returns a formatted summary of the pool.
func (p *Pool) Summary() string {
	s := p.Stats()
	return fmt.Sprintf("Running: %d | Queued: %d | Completed: %d | Failed: %d",
		s.Running, s.Queued, s.Complete, s.Failed)
}
