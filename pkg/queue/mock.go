package queue

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	ie "github.com/voidshard/taskqueue/pkg/errors"
	"github.com/voidshard/taskqueue/pkg/structs"
	"github.com/voidshard/taskqueue/pkg/task"
)

// MockQueue runs tasks the moment they're inserted, in the caller's goroutine.
// It holds nothing, so every other operation does nothing.
type MockQueue struct {
	opts *Options
	log  zerolog.Logger
}

func NewMockQueue(opts *Options) *MockQueue {
	if opts == nil {
		opts = &Options{}
	}
	opts.SetDefaults()
	return &MockQueue{
		opts: opts,
		log:  opts.Logger.With().Str("queue", opts.Name).Str("kind", string(structs.KindMock)).Logger(),
	}
}

// Insert executes the task and returns its error.
func (m *MockQueue) Insert(ctx context.Context, r task.Runnable) error {
	if r == nil {
		return fmt.Errorf("%w cannot run nil task", ie.ErrInvalidArg)
	}
	t := task.New(r)
	m.log.Debug().Str("tag", t.Tag()).Msg("executing task")
	return t.Execute(ctx)
}

func (m *MockQueue) Lease(ctx context.Context, seconds, numTasks int, tag string) (*task.Task, error) {
	return nil, ie.ErrQueueEmpty
}

func (m *MockQueue) Delete(ctx context.Context, ref task.Ref) error {
	return nil
}

func (m *MockQueue) Acknowledge(ctx context.Context, ref task.Ref) error {
	return nil
}

func (m *MockQueue) RenewLease(ctx context.Context, ref task.Ref, seconds int) error {
	return nil
}

func (m *MockQueue) CancelLease(ctx context.Context, ref task.Ref) error {
	return nil
}

func (m *MockQueue) List(ctx context.Context) ([]*task.Task, error) {
	return []*task.Task{}, nil
}

func (m *MockQueue) GetTask(ctx context.Context, id string) (*task.Task, error) {
	return nil, fmt.Errorf("%w task %s", ie.ErrNotFound, id)
}

func (m *MockQueue) Status(ctx context.Context) (*structs.Stats, error) {
	return &structs.Stats{Queue: m.opts.Name, Kind: structs.KindMock}, nil
}

func (m *MockQueue) Purge(ctx context.Context) error {
	return nil
}

func (m *MockQueue) Enqueued(ctx context.Context) (int64, error) {
	return 0, nil
}

func (m *MockQueue) Poll(ctx context.Context, opts *PollOptions) (int, error) {
	return 0, nil
}

func (m *MockQueue) Wait(ctx context.Context) error {
	return nil
}

func (m *MockQueue) Close() error {
	return nil
}
