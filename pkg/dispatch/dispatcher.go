// Package dispatch runs backend calls on a bounded pool of goroutines so callers don't block on them.
package dispatch

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/voidshard/taskqueue/pkg/errors"
)

// Call is a unit of work for the Dispatcher.
type Call func(ctx context.Context) error

// Dispatcher is a fixed size pool of goroutines executing submitted Calls.
//
// Submission is fire & forget; errors are held until Wait (or Close) is called.
type Dispatcher struct {
	workers int
	calls   chan Call
	ctx     context.Context
	cancel  context.CancelFunc
	log     zerolog.Logger

	workerGroup  sync.WaitGroup
	pendingGroup sync.WaitGroup

	// held (read) while sending, so Close can't close calls under a sender
	sendLock sync.RWMutex
	closed   bool

	errLock sync.Mutex
	errs    *multierror.Error
}

// New starts a Dispatcher with the given number of goroutines, each pulling from a queue
// of size queueSize.
func New(workers, queueSize int) *Dispatcher {
	if workers <= 0 {
		workers = 1
	}
	if queueSize <= 0 {
		queueSize = workers * 4
	}

	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		workers: workers,
		calls:   make(chan Call, queueSize),
		ctx:     ctx,
		cancel:  cancel,
		log:     log.With().Str("component", "dispatch").Logger(),
	}

	for i := 0; i < workers; i++ {
		d.workerGroup.Add(1)
		go d.worker()
	}

	return d
}

// Workers returns the size of the pool.
func (d *Dispatcher) Workers() int {
	return d.workers
}

// Submit queues a call. It blocks only if the queue is full.
func (d *Dispatcher) Submit(c Call) error {
	if c == nil {
		return nil
	}

	d.sendLock.RLock()
	defer d.sendLock.RUnlock()
	if d.closed {
		return fmt.Errorf("%w dispatcher", errors.ErrClosed)
	}

	d.pendingGroup.Add(1)
	d.calls <- c
	return nil
}

// Wait blocks until every submitted call has finished and returns (then forgets) their errors.
func (d *Dispatcher) Wait() error {
	d.pendingGroup.Wait()

	d.errLock.Lock()
	defer d.errLock.Unlock()
	err := d.errs.ErrorOrNil()
	d.errs = nil
	return err
}

// Close stops accepting calls, lets queued calls finish and stops the pool.
// Any errors not yet collected by Wait are returned.
func (d *Dispatcher) Close() error {
	d.sendLock.Lock()
	if d.closed {
		d.sendLock.Unlock()
		return nil
	}
	d.closed = true
	close(d.calls)
	d.sendLock.Unlock()

	d.workerGroup.Wait()
	d.cancel()
	return d.Wait()
}

func (d *Dispatcher) worker() {
	defer d.workerGroup.Done()
	for c := range d.calls {
		d.run(c)
	}
}

func (d *Dispatcher) run(c Call) {
	defer d.pendingGroup.Done()

	var err error
	func() {
		defer func() {
			if r := recover(); r != nil {
				d.log.Error().Str("stack", string(debug.Stack())).Msgf("call panicked: %v", r)
				err = fmt.Errorf("call panicked: %v", r)
			}
		}()
		err = c(d.ctx)
	}()
	if err == nil {
		return
	}

	d.log.Debug().Err(err).Msg("call failed")
	d.errLock.Lock()
	d.errs = multierror.Append(d.errs, err)
	d.errLock.Unlock()
}
