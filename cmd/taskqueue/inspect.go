package main

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/voidshard/taskqueue/pkg/api/http/client"
	"github.com/voidshard/taskqueue/pkg/queue"
)

const (
	docList    = `List up to 100 tasks in a queue`
	docStatus  = `Print queue statistics`
	docPurge   = `Delete every task in a queue`
	docInspect = `Query the status server of a running worker`
)

type taskView struct {
	ID   string `json:"id"`
	Tag  string `json:"tag"`
	Task string `json:"task"`
}

type optsList struct {
	optsGeneral
	optsQueue
}

func (c *optsList) Execute(args []string) error {
	c.setup()
	ctx := context.Background()

	q, err := c.open(ctx)
	if err != nil {
		return err
	}
	defer q.Close()

	tasks, err := q.List(ctx)
	if err != nil {
		return err
	}

	out := make([]*taskView, len(tasks))
	for i, t := range tasks {
		out[i] = &taskView{ID: t.ID(), Tag: t.Tag(), Task: t.String()}
	}
	return printJSON(out)
}

type optsStatus struct {
	optsGeneral
	optsQueue
}

func (c *optsStatus) Execute(args []string) error {
	c.setup()
	ctx := context.Background()

	q, err := c.open(ctx)
	if err != nil {
		return err
	}
	defer q.Close()

	st, err := q.Status(ctx)
	if err != nil {
		return err
	}
	return printJSON(st)
}

type optsPurge struct {
	optsGeneral
	optsQueue

	Wait    bool          `long:"wait" description:"Block until the queue reports empty"`
	Timeout time.Duration `long:"timeout" default:"5m" description:"Give up after this long"`
}

func (c *optsPurge) Execute(args []string) error {
	c.setup()
	ctx, cancel := context.WithTimeout(context.Background(), c.Timeout)
	defer cancel()

	q, err := c.open(ctx)
	if err != nil {
		return err
	}
	defer q.Close()

	if err := q.Purge(ctx); err != nil {
		return err
	}
	if tq, ok := q.(*queue.TaskQueue); ok && c.Wait {
		if err := tq.BlockUntilEmpty(ctx, time.Second); err != nil {
			return err
		}
	}

	log.Info().Str("queue", c.Name).Msg("purged")
	return nil
}

type optsInspect struct {
	optsGeneral

	Addr string `long:"addr" env:"STATUS_ADDR" default:"http://localhost:8100" description:"Status server address"`
	Tag  string `long:"tag" description:"Only list tasks with this tag"`
}

func (c *optsInspect) Execute(args []string) error {
	c.setup()

	cli, err := client.New(c.Addr)
	if err != nil {
		return err
	}

	worker, err := cli.Worker()
	if err != nil {
		return err
	}
	stats, err := cli.Queue()
	if err != nil {
		return err
	}
	tasks, err := cli.Tasks(c.Tag, 0)
	if err != nil {
		return err
	}

	return printJSON(map[string]interface{}{
		"worker": worker,
		"queue":  stats,
		"tasks":  tasks,
	})
}
