package queue

import (
	"crypto/tls"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/voidshard/taskqueue/pkg/backend"
	"github.com/voidshard/taskqueue/pkg/task"
)

// Options are options for the queue.
type Options struct {
	// Name of the queue.
	// Defaults to "default".
	Name string

	// Server is the kind of queue; postgres (pg), redis, asynq, local or mock.
	Server string

	// URL encodes how we'll connect to the queue (networked kinds only).
	URL string

	// TLSConfig needed to connect to the queue (optional).
	TLSConfig *tls.Config

	// PasswordEnvVar & UsernameEnvVar are substituted into the URL, see backend.Options.
	PasswordEnvVar string
	UsernameEnvVar string

	// Threads is the number of goroutines used to insert & delete tasks in the background.
	// If <= 0 inserts & deletes are synchronous.
	Threads int

	// Parallel is the number of tasks a local queue runs at once.
	// If <= 0 the number of CPUs is used.
	Parallel int

	// Progress logs how far through its buffer a local queue is as it drains.
	Progress bool

	// Registry used to (de)serialize tasks.
	// Defaults to task.DefaultRegistry.
	Registry *task.Registry

	// Logger to use, defaults to the global zerolog logger
	Logger *zerolog.Logger
}

func (o *Options) SetDefaults() {
	if o.Name == "" {
		o.Name = "default"
	}
	if o.Registry == nil {
		o.Registry = task.DefaultRegistry
	}
	if o.Logger == nil {
		l := log.Logger
		o.Logger = &l
	}
}

func (o *Options) backendOptions() *backend.Options {
	return &backend.Options{
		Name:           o.Name,
		URL:            o.URL,
		TLSConfig:      o.TLSConfig,
		PasswordEnvVar: o.PasswordEnvVar,
		UsernameEnvVar: o.UsernameEnvVar,
		Logger:         o.Logger,
	}
}
