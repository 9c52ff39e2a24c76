package backend

import (
	"context"

	"github.com/voidshard/taskqueue/pkg/structs"
)

//go:generate mockgen -source interface.go -destination ../../internal/mocks/pkg/backend_mock/backend.go -package backend_mock

// maxList is the most records List will return.
const maxList = 100

var (
	_ Backend = &Postgres{}
	_ Backend = &Redis{}
	_ Backend = &Asynq{}
)

// Backend is a client for one queue on one queue service.
//
// Implementations must be safe for concurrent use; the TaskQueue shares one Backend between
// all of its dispatcher goroutines.
type Backend interface {
	// Insert a task.
	Insert(ctx context.Context, in *structs.InsertRequest) error

	// Lease up to NumTasks unowned tasks for Seconds each.
	//
	// An empty slice (and nil error) means the queue has nothing to lease.
	Lease(ctx context.Context, in *structs.LeaseRequest) ([]*structs.Record, error)

	// Delete (acknowledge) a task by ID. Deleting a task that no longer exists is not an error.
	Delete(ctx context.Context, id string) error

	// List up to 100 non-deleted tasks, leased or not.
	List(ctx context.Context) ([]*structs.Record, error)

	// Get a single task by ID. Returns ErrNotFound if it doesn't exist.
	Get(ctx context.Context, id string) (*structs.Record, error)

	// Stats returns (approximate) queue statistics.
	Stats(ctx context.Context) (*structs.Stats, error)

	// Purge deletes all tasks. Returns ErrNotSupported if there is no native way to do this,
	// in which case callers are expected to list & delete.
	Purge(ctx context.Context) error

	// RenewLease sets the lease on a task to expire in the given number of seconds from now.
	RenewLease(ctx context.Context, id string, seconds int) error

	// CancelLease releases the lease on a task so it can be leased again immediately.
	CancelLease(ctx context.Context, id string) error

	// Enqueued is the approximate number of tasks in the queue.
	Enqueued(ctx context.Context) (int64, error)

	// Close the connection to the queue service.
	Close() error
}
