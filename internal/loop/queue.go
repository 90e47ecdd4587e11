package loop

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/oshokin/device-core/internal/logger"
)

// Task is a deferred closure run on the control loop.
type Task func(ctx context.Context)

// Queue is a mutex-guarded FIFO of tasks.
type Queue struct {
	// mu guards tasks.
	mu sync.Mutex
	// tasks holds pending tasks in submission order.
	tasks []Task
}

// Push appends a task. Nil tasks are ignored.
func (q *Queue) Push(task Task) {
	if task == nil {
		return
	}

	q.mu.Lock()
	q.tasks = append(q.tasks, task)
	q.mu.Unlock()
}

// Swap takes every pending task, leaving the queue empty.
func (q *Queue) Swap() []Task {
	q.mu.Lock()
	tasks := q.tasks
	q.tasks = nil
	q.mu.Unlock()

	return tasks
}

// Len returns the number of pending tasks.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()

	return len(q.tasks)
}

// Drain swaps the queue out and runs each task in order.
// Tasks pushed while draining wait for the next call.
// It returns the number of tasks run.
func (q *Queue) Drain(ctx context.Context) int {
	tasks := q.Swap()
	for i, task := range tasks {
		runSafely(ctx, "task", task)
		tasks[i] = nil
	}

	return len(tasks)
}

// runSafely runs fn and turns a panic into an error log line.
func runSafely(ctx context.Context, what string, fn func(ctx context.Context)) {
	defer func() {
		if r := recover(); r != nil {
			logger.ErrorKV(ctx, "recovered panic on control loop",
				"source", what,
				"panic", fmt.Sprint(r),
				"stack", string(debug.Stack()),
			)
		}
	}()

	fn(ctx)
}
