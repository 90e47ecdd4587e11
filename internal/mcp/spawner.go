package mcp

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/oshokin/device-core/internal/logger"
)

const (
	// DefaultStackSize is the budget of a call that does not ask for one.
	DefaultStackSize = 6144
	// DefaultWorkerCapacity is the total budget shared by running workers.
	DefaultWorkerCapacity = 16 * DefaultStackSize
)

// Job is a unit of work handed to a Spawner.
type Job interface {
	// Run executes the job on its worker goroutine.
	Run(ctx context.Context)
	// Reject is called instead of Run when the job cannot be admitted.
	Reject(err error)
}

// Spawner runs jobs off the control loop.
type Spawner interface {
	// Spawn starts job on its own goroutine, weighing budget against the spawner's capacity.
	Spawn(ctx context.Context, budget int, job Job)
}

// WorkerPool spawns one goroutine per job and bounds the summed budget of running jobs.
type WorkerPool struct {
	// sem holds the remaining budget.
	sem *semaphore.Weighted
	// capacity is the total budget.
	capacity int64
	// wg tracks running workers.
	wg sync.WaitGroup
}

// NewWorkerPool returns a pool with the given total budget.
func NewWorkerPool(capacity int) *WorkerPool {
	if capacity <= 0 {
		capacity = DefaultWorkerCapacity
	}

	return &WorkerPool{
		sem:      semaphore.NewWeighted(int64(capacity)),
		capacity: int64(capacity),
	}
}

// Spawn implements Spawner. A budget above capacity is clamped to capacity;
// a non-positive budget uses DefaultStackSize.
func (p *WorkerPool) Spawn(ctx context.Context, budget int, job Job) {
	weight := int64(budget)
	if weight <= 0 {
		weight = DefaultStackSize
	}

	weight = min(weight, p.capacity)

	p.wg.Go(func() {
		if err := p.sem.Acquire(ctx, weight); err != nil {
			logger.WarnKV(ctx, "tool worker not admitted", "budget", weight, "error", err)
			job.Reject(err)

			return
		}

		defer p.sem.Release(weight)

		job.Run(ctx)
	})
}

// Wait blocks until every spawned worker has returned.
func (p *WorkerPool) Wait() {
	p.wg.Wait()
}
