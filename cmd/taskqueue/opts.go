package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/voidshard/taskqueue/internal/utils"
	"github.com/voidshard/taskqueue/pkg/queue"
	"github.com/voidshard/taskqueue/pkg/task"
)

type optsGeneral struct {
	Debug bool `long:"debug" env:"DEBUG" description:"Enable debug logging"`
	JSON  bool `long:"json-logs" env:"JSON_LOGS" description:"Log as json rather than for a console"`
}

// setup configures the global logger
func (o *optsGeneral) setup() {
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if o.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	if !o.JSON {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}
}

type optsQueue struct {
	Server string `long:"server" env:"QUEUE_SERVER" default:"redis" description:"Queue kind: postgres, redis, asynq, local or mock"`
	URL    string `long:"url" env:"QUEUE_URL" default:"redis://localhost:6379/0" description:"Queue connection string, $DATABASE_USER & $DATABASE_PASSWORD are substituted"`
	Name   string `long:"queue" env:"QUEUE_NAME" default:"default" description:"Queue name"`

	Threads int `long:"threads" env:"QUEUE_THREADS" default:"0" description:"Goroutines used to insert & delete in the background"`

	QueueTLSCaCert     string `long:"queue-tls-ca-cert" env:"QUEUE_TLS_CA_CERT" description:"Path to queue CA certificate"`
	QueueTLSCert       string `long:"queue-tls-cert" env:"QUEUE_TLS_CERT" description:"Path to queue client certificate"`
	QueueTLSKey        string `long:"queue-tls-key" env:"QUEUE_TLS_KEY" description:"Path to queue client key"`
	QueueTLSServerName string `long:"queue-tls-server-name" env:"QUEUE_TLS_SERVER_NAME" description:"Server name to verify the queue certificate against"`
}

func (o *optsQueue) options() (*queue.Options, error) {
	tlsCfg, err := utils.TLSConfig(&utils.TLSFiles{
		CACert:     o.QueueTLSCaCert,
		Cert:       o.QueueTLSCert,
		Key:        o.QueueTLSKey,
		ServerName: o.QueueTLSServerName,
	})
	if err != nil {
		return nil, err
	}
	return &queue.Options{
		Name:      o.Name,
		Server:    o.Server,
		URL:       o.URL,
		Threads:   o.Threads,
		TLSConfig: tlsCfg,
	}, nil
}

func (o *optsQueue) open(ctx context.Context) (queue.Queue, error) {
	opts, err := o.options()
	if err != nil {
		return nil, err
	}
	return queue.New(ctx, opts)
}

// buildTask makes a task from a registered tag & the json of its fields
func buildTask(tag, args string) (*task.Task, error) {
	if args == "" {
		args = "{}"
	}
	payload, err := json.Marshal(map[string]interface{}{"tag": tag, "args": json.RawMessage(args)})
	if err != nil {
		return nil, fmt.Errorf("bad task args: %w", err)
	}
	return task.Deserialize(payload)
}

// printJSON writes v to stdout
func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
