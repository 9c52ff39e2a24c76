package queue

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	ie "github.com/voidshard/taskqueue/pkg/errors"
	"github.com/voidshard/taskqueue/pkg/structs"
	"github.com/voidshard/taskqueue/pkg/task"
)

const (
	defaultLeaseSeconds     = 300
	defaultMinBackoffWindow = 30
	defaultMaxBackoffWindow = 120
)

// LogFn is handed everything Poll has to say. t may be nil.
type LogFn func(level zerolog.Level, t *task.Task, msg string)

// PollOptions configure a Poll loop.
type PollOptions struct {
	// LeaseSeconds is how long each task is leased for.
	// Defaults to 300.
	LeaseSeconds int

	// Tag, if set, limits the worker to tasks with this tag.
	Tag string

	// Verbose reports every lease, execution & acknowledgement (otherwise only problems).
	Verbose bool

	// LogFn, if set, is called instead of logging.
	LogFn LogFn

	// ExecuteArgs are passed to every task's Execute.
	ExecuteArgs []interface{}

	// StopFn is called after every iteration; returning true stops the loop.
	StopFn func() bool

	// BackoffErrors are errors (matched with errors.Is) that cause us to back off rather than
	// return. ErrQueueEmpty always backs off.
	BackoffErrors []error

	// Retryable, if set, is also asked whether an error should cause a back off.
	Retryable func(error) bool

	// MinBackoffWindow caps the exponent of the backoff window (seconds, 2^n).
	// Defaults to 30.
	MinBackoffWindow int

	// MaxBackoffWindow caps the backoff window, in seconds.
	// Defaults to 120.
	MaxBackoffWindow int

	// Signals that stop the loop once the current task is acknowledged.
	// Defaults to SIGINT & SIGTERM.
	Signals []os.Signal

	// Monitor, if set, is kept up to date with what the loop is doing.
	Monitor *Monitor
}

func (p *PollOptions) SetDefaults() error {
	if p.MinBackoffWindow < 0 || p.MaxBackoffWindow < 0 {
		return fmt.Errorf("%w backoff windows must be >= 0", ie.ErrInvalidArg)
	}
	if p.LeaseSeconds <= 0 {
		p.LeaseSeconds = defaultLeaseSeconds
	}
	if p.MinBackoffWindow == 0 {
		p.MinBackoffWindow = defaultMinBackoffWindow
	}
	if p.MaxBackoffWindow == 0 {
		p.MaxBackoffWindow = defaultMaxBackoffWindow
	}
	if len(p.Signals) == 0 {
		p.Signals = []os.Signal{os.Interrupt, syscall.SIGTERM}
	}
	return nil
}

// retryable reports if we should back off on err
func (p *PollOptions) retryable(err error) bool {
	if errors.Is(err, ie.ErrQueueEmpty) {
		return true
	}
	for _, e := range p.BackoffErrors {
		if errors.Is(err, e) {
			return true
		}
	}
	return p.Retryable != nil && p.Retryable(err)
}

// Poll leases, executes & acknowledges tasks one at a time until
//   - StopFn returns true
//   - ctx is done or one of opts.Signals arrives
//   - an error that isn't retryable is raised, which is returned
//
// Stopping is only noticed between tasks or while backing off, a task that has been leased is
// always executed & acknowledged first. Signals are only listened for while Poll runs.
//
// Returns the number of tasks executed & acknowledged.
func (q *TaskQueue) Poll(ctx context.Context, opts *PollOptions) (int, error) {
	if opts == nil {
		opts = &PollOptions{}
	}
	if err := opts.SetDefaults(); err != nil {
		return 0, err
	}

	ctx, stop := signal.NotifyContext(ctx, opts.Signals...)
	defer stop()

	w := &worker{q: q, opts: opts, mon: opts.Monitor}
	return w.run(ctx)
}

// worker is the state of one Poll loop
type worker struct {
	q    *TaskQueue
	opts *PollOptions
	mon  *Monitor

	executed int
	tries    int
}

func (w *worker) run(ctx context.Context) (int, error) {
	w.mon.setState(structs.IDLE, nil)
	defer w.mon.setState(structs.STOPPED, nil)

	for {
		if ctx.Err() != nil {
			w.logf(zerolog.InfoLevel, nil, "stopping")
			return w.executed, nil
		}

		backoff, err := w.iterate(ctx)
		if err != nil {
			w.mon.setError(err)
			w.logf(zerolog.ErrorLevel, nil, err.Error())
			return w.executed, err
		}

		if backoff {
			w.tries++
		} else {
			w.executed++
			w.tries = 0
		}
		w.mon.setCounts(w.executed, w.tries)

		if w.opts.StopFn != nil && w.opts.StopFn() {
			w.logf(zerolog.InfoLevel, nil, "stop requested")
			return w.executed, nil
		}

		if !backoff {
			w.mon.setState(structs.IDLE, nil)
			continue
		}

		d := backoffDuration(w.tries, w.opts.MinBackoffWindow, w.opts.MaxBackoffWindow, w.q.random)
		w.logf(zerolog.DebugLevel, nil, fmt.Sprintf("backing off for %s", d))
		if err := w.q.sleep(ctx, d); err != nil {
			w.logf(zerolog.InfoLevel, nil, "stopping")
			return w.executed, nil
		}
	}
}

// iterate leases, executes & acknowledges a single task.
// Returns true if we should back off.
func (w *worker) iterate(parent context.Context) (bool, error) {
	// once we've started an iteration we see it through
	ctx := context.WithoutCancel(parent)

	w.mon.setState(structs.LEASING, nil)
	w.logf(zerolog.DebugLevel, nil, "leasing task")
	t, err := w.q.Lease(ctx, w.opts.LeaseSeconds, 1, w.opts.Tag)
	if err != nil {
		return w.backoff(nil, fmt.Errorf("lease: %w", err))
	}

	w.mon.setState(structs.EXECUTING, t)
	w.logf(zerolog.DebugLevel, t, "executing task")
	err = t.Execute(ctx, w.opts.ExecuteArgs...)
	if err != nil {
		return w.backoff(t, fmt.Errorf("execute %s: %w", t, err))
	}

	// always synchronous, the next lease must see this task gone
	w.mon.setState(structs.ACKNOWLEDGING, t)
	err = w.q.api.Delete(ctx, t.ID())
	if err != nil {
		return w.backoff(t, fmt.Errorf("acknowledge %s: %w", t, err))
	}

	w.logf(zerolog.InfoLevel, t, "task complete")
	return false, nil
}

// backoff decides if err means we back off, or stop
func (w *worker) backoff(t *task.Task, err error) (bool, error) {
	if !w.opts.retryable(err) {
		return false, err
	}
	if !errors.Is(err, ie.ErrQueueEmpty) {
		w.mon.setError(err)
		w.logf(zerolog.WarnLevel, t, err.Error())
	}
	w.mon.setState(structs.BACKOFF, t)
	return true, nil
}

func (w *worker) logf(level zerolog.Level, t *task.Task, msg string) {
	if !w.opts.Verbose && level < zerolog.WarnLevel {
		return
	}
	if w.opts.LogFn != nil {
		w.opts.LogFn(level, t, msg)
		return
	}
	evt := w.q.log.WithLevel(level)
	if t != nil {
		evt = evt.Str("task", t.ID()).Str("tag", t.Tag())
	}
	evt.Msg(msg)
}
