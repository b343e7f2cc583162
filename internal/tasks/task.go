// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tasks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// TASK STATUS
// =============================================================================

// TaskStatus represents the current state of a task.
type TaskStatus string

const (
	TaskStatusQueued   TaskStatus = "queued"
	TaskStatusRunning  TaskStatus = "running"
	TaskStatusComplete TaskStatus = "complete"
	TaskStatusFailed   TaskStatus = "failed"
	TaskStatusCanceled TaskStatus = "canceled"
)

// String returns the string representation of the task status.
func (s TaskStatus) String() string {
	return string(s)
}

// Terminal reports whether no further transitions are possible.
func (s TaskStatus) Terminal() bool {
	return s == TaskStatusComplete || s == TaskStatusFailed || s == TaskStatusCanceled
}

// Func is the work a task performs. It must honor ctx.
type Func func(ctx context.Context) (any, error)

// =============================================================================
// TASK STRUCTURE
// =============================================================================

// Task is a unit of work submitted to a Pool.
type Task struct {
	ID          string
	Description string
	CreatedAt   time.Time

	fn Func

	mu        sync.RWMutex
	status    TaskStatus
	startTime time.Time
	endTime   time.Time
	result    any
	err       error
	cancel    context.CancelFunc

	done chan struct{}
}

// NewTask creates a queued task.
func NewTask(description string, fn Func) *Task {
	return &Task{
		ID:          uuid.New().String(),
		Description: description,
		CreatedAt:   time.Now(),
		fn:          fn,
		status:      TaskStatusQueued,
		done:        make(chan struct{}),
	}
}

// =============================================================================
// STATE TRANSITIONS
// =============================================================================

// validTransitions lists the allowed moves: queued -> running -> terminal,
// and queued -> canceled.
var validTransitions = map[TaskStatus][]TaskStatus{
	TaskStatusQueued:  {TaskStatusRunning, TaskStatusCanceled},
	TaskStatusRunning: {TaskStatusComplete, TaskStatusFailed, TaskStatusCanceled},
}

// transition moves to status; must be called with t.mu held.
func (t *Task) transition(to TaskStatus) error {
	for _, allowed := range validTransitions[t.status] {
		if allowed == to {
			t.status = to
			if to.Terminal() {
				t.endTime = time.Now()
				close(t.done)
			}
			return nil
		}
	}
	return fmt.Errorf("invalid status transition from %s to %s", t.status, to)
}

// start marks the task running and records its cancel func. It returns false
// when the task was canceled while queued.
func (t *Task) start(cancel context.CancelFunc) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.transition(TaskStatusRunning); err != nil {
		return false
	}
	t.startTime = time.Now()
	t.cancel = cancel
	return true
}

// finish records the outcome of a run.
func (t *Task) finish(result any, err error, canceled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.result = result
	t.err = err
	t.cancel = nil
	switch {
	case canceled:
		_ = t.transition(TaskStatusCanceled)
	case err != nil:
		_ = t.transition(TaskStatusFailed)
	default:
		_ = t.transition(TaskStatusComplete)
	}
}

// Cancel stops a queued or running task. Returns true if it had not finished.
func (t *Task) Cancel() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch t.status {
	case TaskStatusQueued:
		t.err = context.Canceled
		_ = t.transition(TaskStatusCanceled)
		return true
	case TaskStatusRunning:
		if t.cancel != nil {
			t.cancel()
		}
		return true
	}
	return false
}

// =============================================================================
// ACCESSORS
// =============================================================================

// Status returns the current status.
func (t *Task) Status() TaskStatus {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.status
}

// Done is closed when the task reaches a terminal status.
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the task finishes or ctx is done. When ctx ends first
// the task keeps running and ctx.Err() is returned.
func (t *Task) Wait(ctx context.Context) (any, error) {
	select {
	case <-t.done:
		t.mu.RLock()
		defer t.mu.RUnlock()
		return t.result, t.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Err returns the task error, if any.
func (t *Task) Err() error {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.err
}

// Duration returns the run time so far, or the total once finished.
func (t *Task) Duration() time.Duration {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if t.startTime.IsZero() {
		return 0
	}
	if t.endTime.IsZero() {
		return time.Since(t.startTime)
	}
	return t.endTime.Sub(t.startTime)
}

// Info is a read-only snapshot of a task.
type Info struct {
	ID          string        `json:"id"`
	Description string        `json:"description"`
	Status      TaskStatus    `json:"status"`
	Duration    time.Duration `json:"duration_ns"`
	Error       string        `json:"error,omitempty"`
}

// Info returns a snapshot of the task.
func (t *Task) Info() Info {
	info := Info{ID: t.ID, Description: t.Description, Status: t.Status(), Duration: t.Duration()}
	if err := t.Err(); err != nil {
		info.Error = err.Error()
	}
	return info
}
