package main

import (
	"bufio"
	"context"
	"io"
	"os"

	"github.com/rs/zerolog/log"

	"github.com/voidshard/taskqueue/pkg/queue"
	"github.com/voidshard/taskqueue/pkg/task"
)

const (
	docLocal     = `Run a batch of tasks in parallel, without a queue`
	docLocalLong = `Run a batch of tasks in parallel, without a queue.

Tasks are read one per line as {"tag": "PrintTask", "args": {...}} from the given file, or stdin.`
)

type optsLocal struct {
	optsGeneral

	Parallel int    `long:"parallel" env:"PARALLEL" default:"0" description:"Tasks to run at once (0 for one per CPU)"`
	Progress bool   `long:"progress" description:"Log progress as tasks finish"`
	File     string `long:"file" description:"File to read tasks from, defaults to stdin"`
}

func (c *optsLocal) Execute(args []string) error {
	c.setup()
	ctx := context.Background()

	var in io.Reader = os.Stdin
	if c.File != "" {
		f, err := os.Open(c.File)
		if err != nil {
			return err
		}
		defer f.Close()
		in = f
	}

	q := queue.NewLocalQueue(&queue.Options{Parallel: c.Parallel, Progress: c.Progress})

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		t, err := task.Deserialize(line)
		if err != nil {
			return err
		}
		if err := q.Insert(ctx, t); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	n, _ := q.Enqueued(ctx)
	log.Info().Int64("tasks", n).Msg("running batch")
	return q.Close()
}
