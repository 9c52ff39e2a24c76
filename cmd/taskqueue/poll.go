package main

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/voidshard/taskqueue/pkg/api/http/server"
	"github.com/voidshard/taskqueue/pkg/queue"
)

const (
	docPoll     = `Run a worker that polls a queue`
	docPollLong = `Run a worker that leases, executes & acknowledges tasks until interrupted.

Errors that aren't retryable stop the worker with a non zero exit code.`
)

type optsPoll struct {
	optsGeneral
	optsQueue

	LeaseSeconds     int    `long:"lease-seconds" env:"LEASE_SECONDS" default:"300" description:"Seconds to lease each task for"`
	Tag              string `long:"tag" env:"TAG" description:"Only lease tasks with this tag"`
	MinBackoffWindow int    `long:"min-backoff" env:"MIN_BACKOFF" default:"30" description:"Cap on the backoff exponent"`
	MaxBackoffWindow int    `long:"max-backoff" env:"MAX_BACKOFF" default:"120" description:"Cap on the backoff window in seconds"`
	MaxTasks         int    `long:"max-tasks" env:"MAX_TASKS" default:"0" description:"Stop after this many tasks (0 for no limit)"`
	Verbose          bool   `long:"verbose" env:"VERBOSE" description:"Log every lease & execution"`

	StatusAddr string `long:"status-addr" env:"STATUS_ADDR" description:"Serve worker status over HTTP on this address"`
}

func (c *optsPoll) Execute(args []string) error {
	c.setup()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	q, err := c.open(ctx)
	if err != nil {
		return err
	}
	defer q.Close()

	mon := queue.NewMonitor()
	opts := &queue.PollOptions{
		LeaseSeconds:     c.LeaseSeconds,
		Tag:              c.Tag,
		Verbose:          c.Verbose || c.Debug,
		MinBackoffWindow: c.MinBackoffWindow,
		MaxBackoffWindow: c.MaxBackoffWindow,
		Monitor:          mon,
	}
	if c.MaxTasks > 0 {
		opts.StopFn = func() bool {
			return mon.Snapshot().Executed >= int64(c.MaxTasks)
		}
	}

	served := make(chan error, 1)
	if c.StatusAddr != "" {
		srv := server.NewServer(c.StatusAddr, c.Debug, q, mon)
		go func() { served <- srv.Serve(ctx) }()
	}

	start := time.Now()
	n, err := q.Poll(ctx, opts)
	log.Info().Int("executed", n).Dur("elapsed", time.Since(start)).Msg("worker stopped")

	cancel()
	if c.StatusAddr != "" {
		if serr := <-served; serr != nil && !errors.Is(serr, context.Canceled) {
			log.Warn().Err(serr).Msg("status server")
		}
	}
	return err
}
