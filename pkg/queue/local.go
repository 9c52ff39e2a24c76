package queue

import (
	"context"
	"fmt"
	"runtime"
	"runtime/debug"
	"sync"
	"sync/atomic"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	ie "github.com/voidshard/taskqueue/pkg/errors"
	"github.com/voidshard/taskqueue/pkg/structs"
	"github.com/voidshard/taskqueue/pkg/task"
)

// LocalQueue buffers tasks in memory and runs them all, in parallel, when drained (Wait / Close).
//
// There is no lease, retry or acknowledgement; if any task fails the caller is expected to run
// the batch again.
type LocalQueue struct {
	opts *Options
	reg  *task.Registry
	log  zerolog.Logger

	lock   sync.Mutex
	buffer [][]byte
}

func NewLocalQueue(opts *Options) *LocalQueue {
	if opts == nil {
		opts = &Options{}
	}
	opts.SetDefaults()
	return &LocalQueue{
		opts: opts,
		reg:  opts.Registry,
		log:  opts.Logger.With().Str("queue", opts.Name).Str("kind", string(structs.KindLocal)).Logger(),
	}
}

// Insert serializes the task into the buffer. Nothing is run until the queue is drained.
func (l *LocalQueue) Insert(ctx context.Context, r task.Runnable) error {
	payload, err := l.reg.Serialize(task.New(r))
	if err != nil {
		return err
	}
	l.lock.Lock()
	defer l.lock.Unlock()
	l.buffer = append(l.buffer, payload)
	return nil
}

// Wait runs every buffered task, Parallel at a time, and returns once they've all finished.
// Errors from all failed tasks are returned together. The buffer is empty afterwards.
func (l *LocalQueue) Wait(ctx context.Context) error {
	l.lock.Lock()
	batch := l.buffer
	l.buffer = nil
	l.lock.Unlock()

	if len(batch) == 0 {
		return nil
	}

	parallel := l.opts.Parallel
	if parallel <= 0 {
		parallel = runtime.NumCPU()
	}
	l.log.Debug().Int("tasks", len(batch)).Int("parallel", parallel).Msg("draining")

	var (
		grp     errgroup.Group
		errLock sync.Mutex
		errs    *multierror.Error
		done    int64
	)
	grp.SetLimit(parallel)

	for i, payload := range batch {
		i, payload := i, payload
		grp.Go(func() error {
			err := l.run(ctx, payload)
			if err != nil {
				errLock.Lock()
				errs = multierror.Append(errs, fmt.Errorf("task %d: %w", i, err))
				errLock.Unlock()
			}
			n := atomic.AddInt64(&done, 1)
			if l.opts.Progress {
				l.log.Info().Int64("done", n).Int("total", len(batch)).Msg("progress")
			}
			return nil
		})
	}
	grp.Wait()

	return errs.ErrorOrNil()
}

// run rebuilds a task from its payload & executes it
func (l *LocalQueue) run(ctx context.Context, payload []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			l.log.Error().Str("stack", string(debug.Stack())).Msgf("task panicked: %v", r)
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()

	t, err := l.reg.Deserialize(payload)
	if err != nil {
		return err
	}
	return t.Execute(ctx)
}

// Close drains the queue.
func (l *LocalQueue) Close() error {
	return l.Wait(context.Background())
}

// List returns the buffered tasks. None of them have IDs.
func (l *LocalQueue) List(ctx context.Context) ([]*task.Task, error) {
	l.lock.Lock()
	defer l.lock.Unlock()

	out := make([]*task.Task, 0, len(l.buffer))
	for _, payload := range l.buffer {
		t, err := l.reg.Deserialize(payload)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func (l *LocalQueue) Status(ctx context.Context) (*structs.Stats, error) {
	n, _ := l.Enqueued(ctx)
	return &structs.Stats{Queue: l.opts.Name, Kind: structs.KindLocal, Enqueued: n, Available: n}, nil
}

func (l *LocalQueue) Enqueued(ctx context.Context) (int64, error) {
	l.lock.Lock()
	defer l.lock.Unlock()
	return int64(len(l.buffer)), nil
}

// Purge drops the buffer without running anything.
func (l *LocalQueue) Purge(ctx context.Context) error {
	l.lock.Lock()
	defer l.lock.Unlock()
	l.buffer = nil
	return nil
}

func (l *LocalQueue) Lease(ctx context.Context, seconds, numTasks int, tag string) (*task.Task, error) {
	return nil, fmt.Errorf("%w local queue cannot lease", ie.ErrNotSupported)
}

func (l *LocalQueue) Delete(ctx context.Context, ref task.Ref) error {
	return fmt.Errorf("%w local queue cannot delete", ie.ErrNotSupported)
}

func (l *LocalQueue) Acknowledge(ctx context.Context, ref task.Ref) error {
	return l.Delete(ctx, ref)
}

func (l *LocalQueue) RenewLease(ctx context.Context, ref task.Ref, seconds int) error {
	return fmt.Errorf("%w local queue cannot lease", ie.ErrNotSupported)
}

func (l *LocalQueue) CancelLease(ctx context.Context, ref task.Ref) error {
	return fmt.Errorf("%w local queue cannot lease", ie.ErrNotSupported)
}

func (l *LocalQueue) GetTask(ctx context.Context, id string) (*task.Task, error) {
	return nil, fmt.Errorf("%w local tasks have no ids", ie.ErrNotSupported)
}

func (l *LocalQueue) Poll(ctx context.Context, opts *PollOptions) (int, error) {
	return 0, fmt.Errorf("%w local queue cannot be polled, use Wait", ie.ErrNotSupported)
}
