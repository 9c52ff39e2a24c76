package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"

	"github.com/voidshard/taskqueue/pkg/backend"
	"github.com/voidshard/taskqueue/pkg/dispatch"
	ie "github.com/voidshard/taskqueue/pkg/errors"
	"github.com/voidshard/taskqueue/pkg/structs"
	"github.com/voidshard/taskqueue/pkg/task"
)

// TaskQueue is a client for one queue held by a networked backend.
//
// If Threads > 0 inserts & deletes are handed to a pool of goroutines and return immediately;
// call Wait before relying on their effect (or to see their errors). Leases are always synchronous.
type TaskQueue struct {
	opts *Options
	api  backend.Backend
	reg  *task.Registry
	pool *dispatch.Dispatcher
	log  zerolog.Logger

	// sleep & random are swapped out in tests
	sleep  func(ctx context.Context, d time.Duration) error
	random func() float64
}

// NewTaskQueue returns a TaskQueue over the given backend.
func NewTaskQueue(api backend.Backend, opts *Options) *TaskQueue {
	if opts == nil {
		opts = &Options{}
	}
	opts.SetDefaults()

	q := &TaskQueue{
		opts:   opts,
		api:    api,
		reg:    opts.Registry,
		log:    opts.Logger.With().Str("queue", opts.Name).Logger(),
		sleep:  sleepContext,
		random: randomFloat,
	}
	if opts.Threads > 0 {
		q.pool = dispatch.New(opts.Threads, opts.Threads*4)
	}
	return q
}

// Insert serializes a task and adds it to the queue, tagged with its type name.
func (q *TaskQueue) Insert(ctx context.Context, r task.Runnable) error {
	t := task.New(r)
	payload, err := q.reg.Serialize(t)
	if err != nil {
		return err
	}
	in := &structs.InsertRequest{
		Payload:    payload,
		QueueName:  q.opts.Name,
		GroupByTag: true,
		Tag:        t.Tag(),
	}
	return q.do(ctx, func(ctx context.Context) error {
		return q.api.Insert(ctx, in)
	})
}

// Lease a single task. Returns ErrQueueEmpty if the backend has nothing for us.
func (q *TaskQueue) Lease(ctx context.Context, seconds, numTasks int, tag string) (*task.Task, error) {
	recs, err := q.api.Lease(ctx, &structs.LeaseRequest{
		NumTasks:   numTasks,
		Seconds:    seconds,
		GroupByTag: tag != "",
		Tag:        tag,
	})
	if err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, ie.ErrQueueEmpty
	}
	if len(recs) > 1 {
		q.log.Debug().Int("leased", len(recs)).Msg("only the first leased task is returned")
	}
	return q.toTask(recs[0])
}

// Delete a task, in the background if we have Threads.
func (q *TaskQueue) Delete(ctx context.Context, ref task.Ref) error {
	id, err := refID(ref)
	if err != nil {
		return err
	}
	return q.do(ctx, func(ctx context.Context) error {
		return q.api.Delete(ctx, id)
	})
}

// Acknowledge a task is done. This is Delete.
func (q *TaskQueue) Acknowledge(ctx context.Context, ref task.Ref) error {
	return q.Delete(ctx, ref)
}

func (q *TaskQueue) RenewLease(ctx context.Context, ref task.Ref, seconds int) error {
	id, err := refID(ref)
	if err != nil {
		return err
	}
	return q.api.RenewLease(ctx, id, seconds)
}

func (q *TaskQueue) CancelLease(ctx context.Context, ref task.Ref) error {
	id, err := refID(ref)
	if err != nil {
		return err
	}
	return q.api.CancelLease(ctx, id)
}

// List up to 100 tasks. Tasks we can't deserialize (ie. unregistered tags) are skipped.
func (q *TaskQueue) List(ctx context.Context) ([]*task.Task, error) {
	recs, err := q.api.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]*task.Task, 0, len(recs))
	for _, rec := range recs {
		t, err := q.toTask(rec)
		if err != nil {
			q.log.Warn().Err(err).Str("id", rec.ID).Msg("skipping task")
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (q *TaskQueue) GetTask(ctx context.Context, id string) (*task.Task, error) {
	rec, err := q.api.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return q.toTask(rec)
}

func (q *TaskQueue) Status(ctx context.Context) (*structs.Stats, error) {
	return q.api.Stats(ctx)
}

// Purge deletes all tasks.
//
// If the backend can't purge we list & delete until the queue lists empty. This races with
// anyone inserting at the same time.
func (q *TaskQueue) Purge(ctx context.Context) error {
	err := q.api.Purge(ctx)
	if !errors.Is(err, ie.ErrNotSupported) {
		return err
	}

	q.log.Debug().Msg("backend cannot purge, deleting tasks one by one")
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		recs, err := q.api.List(ctx)
		if err != nil {
			return err
		}
		if len(recs) == 0 {
			return nil
		}

		for _, rec := range recs {
			id := rec.ID
			err = q.do(ctx, func(ctx context.Context) error {
				return q.api.Delete(ctx, id)
			})
			if err != nil {
				return err
			}
		}
		if err := q.Wait(ctx); err != nil {
			return err
		}
	}
}

// Enqueued returns roughly how many tasks are in the queue. Don't expect it to be exact.
func (q *TaskQueue) Enqueued(ctx context.Context) (int64, error) {
	return q.api.Enqueued(ctx)
}

// BlockUntilEmpty checks Enqueued every interval until it reports zero.
func (q *TaskQueue) BlockUntilEmpty(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Second
	}
	for {
		n, err := q.Enqueued(ctx)
		if err != nil {
			return err
		}
		if n <= 0 {
			return nil
		}
		q.log.Debug().Int64("enqueued", n).Msg("waiting for queue to empty")
		if err := q.sleep(ctx, interval); err != nil {
			return err
		}
	}
}

// Wait blocks until background inserts & deletes have finished and returns their errors.
// Background calls aren't cancelled by ctx.
func (q *TaskQueue) Wait(ctx context.Context) error {
	if q.pool == nil {
		return nil
	}
	return q.pool.Wait()
}

// Close waits for background calls, then closes the backend.
func (q *TaskQueue) Close() error {
	var errs *multierror.Error
	if q.pool != nil {
		if err := q.pool.Close(); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	if err := q.api.Close(); err != nil {
		errs = multierror.Append(errs, err)
	}
	return errs.ErrorOrNil()
}

// do runs the call now, or hands it to the pool if we have one
func (q *TaskQueue) do(ctx context.Context, c dispatch.Call) error {
	if q.pool == nil {
		return c(ctx)
	}
	return q.pool.Submit(c)
}

func (q *TaskQueue) toTask(rec *structs.Record) (*task.Task, error) {
	t, err := q.reg.Deserialize(rec.Payload)
	if err != nil {
		return nil, fmt.Errorf("task %s: %w", rec.ID, err)
	}
	t.SetID(rec.ID)
	return t, nil
}

func refID(ref task.Ref) (string, error) {
	if ref == nil || ref.TaskID() == "" {
		return "", ie.ErrNoTaskID
	}
	return ref.TaskID(), nil
}
