// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package tasks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestNewTask(t *testing.T) {
	task := NewTask("Test task", nil)

	if task.ID == "" {
		t.Error("Task ID should not be empty")
	}
	if task.Status() != TaskStatusQueued {
		t.Errorf("Status() = %s, want queued", task.Status())
	}
	if task.Duration() != 0 {
		t.Errorf("Duration() = %v, want 0 before start", task.Duration())
	}
}

func TestTask_Transitions(t *testing.T) {
	task := NewTask("t", nil)

	require.True(t, task.start(func() {}))
	if task.start(func() {}) {
		t.Error("start() succeeded twice")
	}

	task.finish("ok", nil, false)
	if task.Status() != TaskStatusComplete {
		t.Errorf("Status() = %s, want complete", task.Status())
	}
	if task.Cancel() {
		t.Error("Cancel() = true on a finished task")
	}

	select {
	case <-task.Done():
	default:
		t.Error("Done() not closed after finish")
	}
}

func TestTask_CancelQueued(t *testing.T) {
	task := NewTask("t", nil)
	require.True(t, task.Cancel())
	if task.Status() != TaskStatusCanceled {
		t.Errorf("Status() = %s, want canceled", task.Status())
	}
	if task.start(func() {}) {
		t.Error("canceled task started")
	}
	_, err := task.Wait(context.Background())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Wait() err = %v, want context.Canceled", err)
	}
}

func TestTaskStatus_Terminal(t *testing.T) {
	tests := []struct {
		s    TaskStatus
		want bool
	}{
		{TaskStatusQueued, false},
		{TaskStatusRunning, false},
		{TaskStatusComplete, true},
		{TaskStatusFailed, true},
		{TaskStatusCanceled, true},
	}
	for _, tc := range tests {
		if got := tc.s.Terminal(); got != tc.want {
			t.Errorf("%s.Terminal() = %v, want %v", tc.s, got, tc.want)
		}
	}
}

// =============================================================================
// POOL TESTS
// =============================================================================

func TestPool_RunsTasks(t *testing.T) {
	pool := NewPool(Options{Workers: 2, QueueSize: 8})
	pool.Start()
	defer pool.Stop(context.Background())

	task, err := pool.Submit("double", func(ctx context.Context) (any, error) {
		return 42, nil
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	got, err := task.Wait(ctx)
	require.NoError(t, err)
	if got != 42 {
		t.Errorf("result = %v, want 42", got)
	}
	if task.Status() != TaskStatusComplete {
		t.Errorf("Status() = %s, want complete", task.Status())
	}

	found, ok := pool.Get(task.ID)
	require.True(t, ok)
	if found != task {
		t.Error("Get() returned a different task")
	}
}

func TestPool_Failure(t *testing.T) {
	pool := NewPool(Options{Workers: 1})
	pool.Start()
	defer pool.Stop(context.Background())

	boom := errors.New("boom")
	task, err := pool.Submit("fail", func(ctx context.Context) (any, error) {
		return nil, boom
	})
	require.NoError(t, err)

	_, err = task.Wait(context.Background())
	if !errors.Is(err, boom) {
		t.Errorf("Wait() err = %v, want boom", err)
	}
	if task.Status() != TaskStatusFailed {
		t.Errorf("Status() = %s, want failed", task.Status())
	}
}

func TestPool_Panic(t *testing.T) {
	pool := NewPool(Options{Workers: 1})
	pool.Start()
	defer pool.Stop(context.Background())

	task, err := pool.Submit("panic", func(ctx context.Context) (any, error) {
		panic("bad")
	})
	require.NoError(t, err)

	_, err = task.Wait(context.Background())
	require.Error(t, err)
	if task.Status() != TaskStatusFailed {
		t.Errorf("Status() = %s, want failed", task.Status())
	}
}

func TestPool_Timeout(t *testing.T) {
	pool := NewPool(Options{Workers: 1, TaskTimeout: 20 * time.Millisecond})
	pool.Start()
	defer pool.Stop(context.Background())

	task, err := pool.Submit("slow", func(ctx context.Context) (any, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})
	require.NoError(t, err)

	_, err = task.Wait(context.Background())
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait() err = %v, want deadline exceeded", err)
	}
	if task.Status() != TaskStatusFailed {
		t.Errorf("Status() = %s, want failed", task.Status())
	}
}

func TestPool_QueueFull(t *testing.T) {
	// Not started: nothing drains the queue.
	pool := NewPool(Options{Workers: 1, QueueSize: 1})

	_, err := pool.Submit("a", func(ctx context.Context) (any, error) { return nil, nil })
	require.NoError(t, err)
	_, err = pool.Submit("b", func(ctx context.Context) (any, error) { return nil, nil })
	if !errors.Is(err, ErrQueueFull) {
		t.Errorf("Submit() err = %v, want ErrQueueFull", err)
	}

	require.NoError(t, pool.Stop(context.Background()))
	if s := pool.Stats(); s.Canceled != 1 {
		t.Errorf("Canceled = %d, want 1 after Stop", s.Canceled)
	}
}

func TestPool_SubmitAfterStop(t *testing.T) {
	pool := NewPool(Options{})
	pool.Start()
	require.NoError(t, pool.Stop(context.Background()))

	_, err := pool.Submit("late", func(ctx context.Context) (any, error) { return nil, nil })
	if !errors.Is(err, ErrStopped) {
		t.Errorf("Submit() err = %v, want ErrStopped", err)
	}
}

func TestPool_WaitHonorsContext(t *testing.T) {
	pool := NewPool(Options{Workers: 1})
	pool.Start()

	release := make(chan struct{})
	task, err := pool.Submit("block", func(ctx context.Context) (any, error) {
		select {
		case <-release:
		case <-ctx.Done():
		}
		return nil, nil
	})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := task.Wait(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Wait() err = %v, want deadline exceeded", err)
	}

	close(release)
	_, err = task.Wait(context.Background())
	require.NoError(t, err)
	require.NoError(t, pool.Stop(context.Background()))
}

func TestPool_Summary(t *testing.T) {
	pool := NewPool(Options{Workers: 3})
	if got := pool.Summary(); got != "Running: 0 | Queued: 0 | Completed: 0 | Failed: 0" {
		t.Errorf("Summary() = %q", got)
	}
	if pool.Stats().Workers != 3 {
		t.Errorf("Workers = %d, want 3", pool.Stats().Workers)
	}
}
