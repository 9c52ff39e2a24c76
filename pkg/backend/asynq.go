package backend

import (
	"context"
	"errors"
	"fmt"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	ie "github.com/voidshard/taskqueue/pkg/errors"
	"github.com/voidshard/taskqueue/pkg/structs"
)

// Asynq is a producer side adapter onto an asynq queue.
//
// Asynq pushes work to its own servers, so there is no lease to take, renew or cancel; tasks
// inserted here are picked up by asynq workers registered for the task tag.
type Asynq struct {
	opts *Options
	cli  *asynq.Client
	ins  *asynq.Inspector
	log  zerolog.Logger
}

// NewAsynq connects to the redis instance backing asynq, opts.URL is a redis:// URI.
func NewAsynq(opts *Options) (*Asynq, error) {
	opts.SetDefaults()

	conn, err := asynq.ParseRedisURI(opts.expandURL())
	if err != nil {
		return nil, fmt.Errorf("%w parse asynq url: %v", ie.ErrInvalidArg, err)
	}
	if opts.TLSConfig != nil {
		switch c := conn.(type) {
		case asynq.RedisClientOpt:
			c.TLSConfig = opts.TLSConfig
			conn = c
		case asynq.RedisFailoverClientOpt:
			c.TLSConfig = opts.TLSConfig
			conn = c
		}
	}

	return &Asynq{
		opts: opts,
		cli:  asynq.NewClient(conn),
		ins:  asynq.NewInspector(conn),
		log:  opts.Logger.With().Str("backend", string(structs.KindAsynq)).Str("queue", opts.Name).Logger(),
	}, nil
}

// Close the asynq client & inspector
func (a *Asynq) Close() error {
	cerr := a.cli.Close()
	ierr := a.ins.Close()
	if cerr != nil {
		return cerr
	}
	return ierr
}

// Insert enqueues a task with the tag as the asynq task type
func (a *Asynq) Insert(ctx context.Context, in *structs.InsertRequest) error {
	if in.Tag == "" {
		return fmt.Errorf("%w asynq requires a task tag", ie.ErrInvalidArg)
	}
	info, err := a.cli.EnqueueContext(ctx, asynq.NewTask(in.Tag, in.Payload), asynq.Queue(a.opts.Name))
	if err != nil {
		return fmt.Errorf("enqueue task: %w", err)
	}
	a.log.Debug().Str("id", info.ID).Str("tag", in.Tag).Msg("enqueued task")
	return nil
}

func (a *Asynq) Lease(ctx context.Context, in *structs.LeaseRequest) ([]*structs.Record, error) {
	return nil, fmt.Errorf("%w asynq does not support lease", ie.ErrNotSupported)
}

func (a *Asynq) RenewLease(ctx context.Context, id string, seconds int) error {
	return fmt.Errorf("%w asynq does not support lease renewal", ie.ErrNotSupported)
}

func (a *Asynq) CancelLease(ctx context.Context, id string) error {
	return fmt.Errorf("%w asynq does not support lease cancel", ie.ErrNotSupported)
}

// Delete removes a task that isn't currently being processed
func (a *Asynq) Delete(ctx context.Context, id string) error {
	err := a.ins.DeleteTask(a.opts.Name, id)
	if errors.Is(err, asynq.ErrTaskNotFound) || errors.Is(err, asynq.ErrQueueNotFound) {
		return nil
	}
	return err
}

// List returns up to 100 pending tasks
func (a *Asynq) List(ctx context.Context) ([]*structs.Record, error) {
	infos, err := a.ins.ListPendingTasks(a.opts.Name, asynq.PageSize(maxList))
	if errors.Is(err, asynq.ErrQueueNotFound) {
		return []*structs.Record{}, nil
	} else if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	out := make([]*structs.Record, len(infos))
	for i, info := range infos {
		out[i] = toRecord(info)
	}
	return out, nil
}

// Get returns a single task in any state
func (a *Asynq) Get(ctx context.Context, id string) (*structs.Record, error) {
	info, err := a.ins.GetTaskInfo(a.opts.Name, id)
	if errors.Is(err, asynq.ErrTaskNotFound) || errors.Is(err, asynq.ErrQueueNotFound) {
		return nil, fmt.Errorf("%w task %s", ie.ErrNotFound, id)
	} else if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return toRecord(info), nil
}

// Stats reports asynq's view of the queue. Active tasks count as leased.
func (a *Asynq) Stats(ctx context.Context) (*structs.Stats, error) {
	info, err := a.ins.GetQueueInfo(a.opts.Name)
	if errors.Is(err, asynq.ErrQueueNotFound) {
		return &structs.Stats{Queue: a.opts.Name, Kind: structs.KindAsynq}, nil
	} else if err != nil {
		return nil, fmt.Errorf("queue stats: %w", err)
	}
	return toStats(a.opts.Name, info), nil
}

// Enqueued returns the total tasks asynq holds for the queue
func (a *Asynq) Enqueued(ctx context.Context) (int64, error) {
	st, err := a.Stats(ctx)
	if err != nil {
		return 0, err
	}
	return st.Enqueued, nil
}

// Purge deletes all tasks that aren't in flight
func (a *Asynq) Purge(ctx context.Context) error {
	for _, fn := range []func(string) (int, error){
		a.ins.DeleteAllPendingTasks,
		a.ins.DeleteAllScheduledTasks,
		a.ins.DeleteAllRetryTasks,
		a.ins.DeleteAllArchivedTasks,
	} {
		n, err := fn(a.opts.Name)
		if errors.Is(err, asynq.ErrQueueNotFound) {
			return nil
		} else if err != nil {
			return fmt.Errorf("purge queue: %w", err)
		}
		a.log.Debug().Int("deleted", n).Msg("purged tasks")
	}
	return nil
}

func toRecord(info *asynq.TaskInfo) *structs.Record {
	return &structs.Record{ID: info.ID, Tag: info.Type, Payload: info.Payload}
}

func toStats(queue string, info *asynq.QueueInfo) *structs.Stats {
	return &structs.Stats{
		Queue:     queue,
		Kind:      structs.KindAsynq,
		Enqueued:  int64(info.Size),
		Leased:    int64(info.Active),
		Available: int64(info.Pending),
	}
}
