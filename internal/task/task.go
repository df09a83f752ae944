package task

import (
	"context"
	"fmt"
	"sync"
)

// Task is the future result of a function running on a Pool. It can be
// cancelled, and awaited either by channel or by Wait.
type Task[T any] struct {
	cancel context.CancelFunc
	done   chan struct{}

	once   sync.Once
	result T
	err    error
}

// Go schedules fn on pool with a context derived from ctx. It never blocks:
// when the queue is full the job is handed over from a separate goroutine.
// The task settles with ctx's error as soon as ctx ends, even while still
// queued, and with ErrPoolClosed if the pool is closed.
func Go[T any](pool *Pool, ctx context.Context, fn func(context.Context) (T, error)) *Task[T] {
	taskCtx, cancel := context.WithCancel(ctx)
	t := &Task[T]{
		cancel: cancel,
		done:   make(chan struct{}),
	}
	var zero T
	stop := context.AfterFunc(taskCtx, func() {
		t.settle(zero, taskCtx.Err())
	})

	job := func() {
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				t.settle(zero, fmt.Errorf("task panicked: %v", r))
			}
		}()
		if err := taskCtx.Err(); err != nil {
			t.settle(zero, err)
			return
		}
		v, err := fn(taskCtx)
		stop()
		t.settle(v, err)
	}
	closed := func() {
		stop()
		cancel()
		t.settle(zero, ErrPoolClosed)
	}

	queued, err := pool.TrySubmit(job)
	switch {
	case err != nil:
		closed()
	case !queued:
		go func() {
			if !pool.Submit(job) {
				closed()
			}
		}()
	}
	return t
}

func (t *Task[T]) settle(v T, err error) {
	t.once.Do(func() {
		t.result = v
		t.err = err
		close(t.done)
	})
}

// Cancel asks the task to stop. A task that has already settled keeps its result.
func (t *Task[T]) Cancel() {
	t.cancel()
}

// Done is closed once the task has settled
func (t *Task[T]) Done() <-chan struct{} {
	return t.done
}

// Pending reports whether the task has not settled yet
func (t *Task[T]) Pending() bool {
	select {
	case <-t.done:
		return false
	default:
		return true
	}
}

// Result blocks until the task settles and returns its value
func (t *Task[T]) Result() (T, error) {
	<-t.done
	return t.result, t.err
}

// Wait blocks until the task settles or ctx ends. Ending ctx does not cancel the task.
func (t *Task[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-t.done:
		return t.result, t.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
