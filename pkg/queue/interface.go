package queue

import (
	"context"

	"github.com/voidshard/taskqueue/pkg/structs"
	"github.com/voidshard/taskqueue/pkg/task"
)

// Queue is the task lifecycle every kind of queue supports.
//
// Operations a kind can't honour return ErrNotSupported.
type Queue interface {
	// Insert a task. Depending on the queue this may happen in the background (see Wait),
	// immediately, or when the queue is drained.
	Insert(ctx context.Context, r task.Runnable) error

	// Lease a task for the given number of seconds, optionally only tasks with the given tag.
	//
	// Up to numTasks may be leased from the backend, only the first is returned.
	// Returns ErrQueueEmpty if there is nothing to lease.
	Lease(ctx context.Context, seconds, numTasks int, tag string) (*task.Task, error)

	// Delete a task, by task or ID.
	Delete(ctx context.Context, ref task.Ref) error

	// Acknowledge a task is complete (Delete it).
	Acknowledge(ctx context.Context, ref task.Ref) error

	// RenewLease sets the lease on a task to expire in seconds from now.
	RenewLease(ctx context.Context, ref task.Ref, seconds int) error

	// CancelLease releases the lease on a task.
	CancelLease(ctx context.Context, ref task.Ref) error

	// List up to 100 tasks in the queue.
	List(ctx context.Context) ([]*task.Task, error)

	// GetTask returns a single task.
	GetTask(ctx context.Context, id string) (*task.Task, error)

	// Status returns queue statistics.
	Status(ctx context.Context) (*structs.Stats, error)

	// Purge deletes every task in the queue.
	Purge(ctx context.Context) error

	// Enqueued is an approximate count of tasks in the queue.
	Enqueued(ctx context.Context) (int64, error)

	// Poll leases, executes & acknowledges tasks until stopped. Returns the number of tasks
	// executed & acknowledged.
	Poll(ctx context.Context, opts *PollOptions) (int, error)

	// Wait for outstanding work to finish, returning any errors it raised.
	Wait(ctx context.Context) error

	// Close waits for outstanding work and releases the queue.
	Close() error
}

var (
	_ Queue = &TaskQueue{}
	_ Queue = &LocalQueue{}
	_ Queue = &MockQueue{}
)
