package queue

import (
	"context"
	"fmt"

	"github.com/voidshard/taskqueue/pkg/backend"
	ie "github.com/voidshard/taskqueue/pkg/errors"
	"github.com/voidshard/taskqueue/pkg/structs"
)

// New returns the Queue named by opts.Server.
func New(ctx context.Context, opts *Options) (Queue, error) {
	if opts == nil {
		opts = &Options{}
	}
	opts.SetDefaults()

	var (
		api backend.Backend
		err error
	)

	kind := structs.ToKind(opts.Server)
	switch kind {
	case structs.KindLocal:
		return NewLocalQueue(opts), nil
	case structs.KindMock:
		return NewMockQueue(opts), nil
	case structs.KindPostgres:
		api, err = backend.NewPostgres(ctx, opts.backendOptions())
	case structs.KindRedis:
		api, err = backend.NewRedis(ctx, opts.backendOptions())
	case structs.KindAsynq:
		api, err = backend.NewAsynq(opts.backendOptions())
	default:
		return nil, fmt.Errorf("%w %q", ie.ErrUnknownBackend, opts.Server)
	}
	if err != nil {
		return nil, err
	}

	opts.Logger.Debug().Str("kind", string(kind)).Str("queue", opts.Name).Msg("connected to queue")
	return NewTaskQueue(api, opts), nil
}
