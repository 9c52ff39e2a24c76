package main

import (
	"context"

	"github.com/rs/zerolog/log"
)

const (
	docInsert     = `Insert tasks into a queue`
	docInsertLong = `Insert tasks into a queue.

The tag must be a registered task type (ie. PrintTask) and args the JSON of its fields.`
)

type optsInsert struct {
	optsGeneral
	optsQueue

	Tag   string `long:"tag" required:"true" description:"Task type to insert"`
	Args  string `long:"args" default:"{}" description:"JSON encoded task fields"`
	Count int    `long:"count" default:"1" description:"Number of copies to insert"`
}

func (c *optsInsert) Execute(args []string) error {
	c.setup()
	ctx := context.Background()

	t, err := buildTask(c.Tag, c.Args)
	if err != nil {
		return err
	}

	q, err := c.open(ctx)
	if err != nil {
		return err
	}
	defer q.Close()

	for i := 0; i < c.Count; i++ {
		if err := q.Insert(ctx, t); err != nil {
			return err
		}
	}
	if err := q.Wait(ctx); err != nil {
		return err
	}

	log.Info().Int("count", c.Count).Str("tag", c.Tag).Str("queue", c.Name).Msg("inserted tasks")
	return nil
}
