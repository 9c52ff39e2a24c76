package backend

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	ie "github.com/voidshard/taskqueue/pkg/errors"
	"github.com/voidshard/taskqueue/pkg/structs"
)

var (
	//go:embed scripts/lease.lua
	leaseSrc string

	//go:embed scripts/set_lease.lua
	setLeaseSrc string

	scriptLease    = redis.NewScript(leaseSrc)
	scriptSetLease = redis.NewScript(setLeaseSrc)
)

// redisKeys are the keys of one queue. They share a hash tag so a cluster keeps them on one slot.
type redisKeys struct {
	schedule string
	payloads string
	tags     string
}

func newRedisKeys(queue string) redisKeys {
	base := queueBase(queue)
	return redisKeys{
		schedule: base + ":schedule",
		payloads: base + ":payloads",
		tags:     base + ":tags",
	}
}

// queueBase wraps the queue name in a hash tag, unless it already has one
func queueBase(queue string) string {
	open := strings.Index(queue, "{")
	if open >= 0 && strings.Index(queue[open:], "}") > 1 {
		return queue
	}
	return "{" + queue + "}"
}

// Redis is a lease queue held in redis.
//
// Every task has a score in a sorted set; the time (ms) at which it may next be leased.
// Inserting scores a task 'now', leasing pushes the score to the lease expiry and deleting
// removes it. Leasing runs as a single script so two workers can't lease the same task.
type Redis struct {
	opts *Options
	rdb  *redis.Client
	keys redisKeys
	log  zerolog.Logger

	now func() time.Time
}

// NewRedis connects to redis at opts.URL (redis:// or rediss://).
func NewRedis(ctx context.Context, opts *Options) (*Redis, error) {
	opts.SetDefaults()

	ropts, err := redis.ParseURL(opts.expandURL())
	if err != nil {
		return nil, fmt.Errorf("%w parse redis url: %v", ie.ErrInvalidArg, err)
	}
	if opts.TLSConfig != nil {
		ropts.TLSConfig = opts.TLSConfig
	}

	rdb := redis.NewClient(ropts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis connection failed: %w", err)
	}

	return &Redis{
		opts: opts,
		rdb:  rdb,
		keys: newRedisKeys(opts.Name),
		log:  opts.Logger.With().Str("backend", string(structs.KindRedis)).Str("queue", opts.Name).Logger(),
		now:  time.Now,
	}, nil
}

// Close the redis client
func (r *Redis) Close() error {
	return r.rdb.Close()
}

// Insert adds a task, immediately leasable
func (r *Redis) Insert(ctx context.Context, in *structs.InsertRequest) error {
	id := uuid.NewString()
	now := r.now().UnixMilli()
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, r.keys.payloads, id, in.Payload)
		pipe.HSet(ctx, r.keys.tags, id, in.Tag)
		pipe.ZAdd(ctx, r.keys.schedule, redis.Z{Score: float64(now), Member: id})
		return nil
	})
	if err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	return nil
}

// Lease up to in.NumTasks tasks whose score has passed
func (r *Redis) Lease(ctx context.Context, in *structs.LeaseRequest) ([]*structs.Record, error) {
	in.Sanitize()
	now := r.now()
	expires := now.Add(time.Duration(in.Seconds) * time.Second)

	res, err := scriptLease.Run(
		ctx,
		r.rdb,
		[]string{r.keys.schedule, r.keys.payloads, r.keys.tags},
		strconv.FormatInt(now.UnixMilli(), 10),
		strconv.FormatInt(expires.UnixMilli(), 10),
		in.NumTasks,
		in.Tag,
	).Slice()
	if err != nil {
		return nil, fmt.Errorf("lease tasks: %w", err)
	}
	return parseLeased(res)
}

// Delete removes a task
func (r *Redis) Delete(ctx context.Context, id string) error {
	_, err := r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.ZRem(ctx, r.keys.schedule, id)
		pipe.HDel(ctx, r.keys.payloads, id)
		pipe.HDel(ctx, r.keys.tags, id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	return nil
}

// List returns up to 100 tasks, in the order they'd next be leased
func (r *Redis) List(ctx context.Context) ([]*structs.Record, error) {
	ids, err := r.rdb.ZRange(ctx, r.keys.schedule, 0, maxList-1).Result()
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	if len(ids) == 0 {
		return []*structs.Record{}, nil
	}

	var payloads, tags *redis.SliceCmd
	_, err = r.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		payloads = pipe.HMGet(ctx, r.keys.payloads, ids...)
		tags = pipe.HMGet(ctx, r.keys.tags, ids...)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("fetch tasks: %w", err)
	}

	out := make([]*structs.Record, 0, len(ids))
	for i, id := range ids {
		body := payloads.Val()[i]
		if body == nil {
			continue // deleted between calls
		}
		out = append(out, &structs.Record{ID: id, Tag: asStr(tags.Val()[i]), Payload: []byte(asStr(body))})
	}
	return out, nil
}

// Get returns a single task
func (r *Redis) Get(ctx context.Context, id string) (*structs.Record, error) {
	body, err := r.rdb.HGet(ctx, r.keys.payloads, id).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w task %s", ie.ErrNotFound, id)
	} else if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	tag, err := r.rdb.HGet(ctx, r.keys.tags, id).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return &structs.Record{ID: id, Tag: tag, Payload: body}, nil
}

// Stats returns counts of all, leased & available tasks
func (r *Redis) Stats(ctx context.Context) (*structs.Stats, error) {
	var total, available *redis.IntCmd
	_, err := r.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		total = pipe.ZCard(ctx, r.keys.schedule)
		available = pipe.ZCount(ctx, r.keys.schedule, "-inf", strconv.FormatInt(r.now().UnixMilli(), 10))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("queue stats: %w", err)
	}
	return &structs.Stats{
		Queue:     r.opts.Name,
		Kind:      structs.KindRedis,
		Enqueued:  total.Val(),
		Available: available.Val(),
		Leased:    total.Val() - available.Val(),
	}, nil
}

// Enqueued returns the number of tasks in the queue
func (r *Redis) Enqueued(ctx context.Context) (int64, error) {
	return r.rdb.ZCard(ctx, r.keys.schedule).Result()
}

// Purge deletes the queue
func (r *Redis) Purge(ctx context.Context) error {
	return r.rdb.Del(ctx, r.keys.schedule, r.keys.payloads, r.keys.tags).Err()
}

// RenewLease sets a task's lease to expire seconds from now
func (r *Redis) RenewLease(ctx context.Context, id string, seconds int) error {
	if seconds <= 0 {
		return fmt.Errorf("%w lease seconds must be > 0", ie.ErrInvalidArg)
	}
	return r.setLease(ctx, id, r.now().Add(time.Duration(seconds)*time.Second))
}

// CancelLease makes a task leasable now
func (r *Redis) CancelLease(ctx context.Context, id string) error {
	return r.setLease(ctx, id, r.now())
}

func (r *Redis) setLease(ctx context.Context, id string, at time.Time) error {
	n, err := scriptSetLease.Run(ctx, r.rdb, []string{r.keys.schedule}, id, strconv.FormatInt(at.UnixMilli(), 10)).Int()
	if err != nil {
		return fmt.Errorf("set lease: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w task %s", ie.ErrNotFound, id)
	}
	return nil
}

// parseLeased reads the flat [id, payload, tag, ...] reply of the lease script
func parseLeased(res []interface{}) ([]*structs.Record, error) {
	if len(res)%3 != 0 {
		return nil, fmt.Errorf("unexpected lease response of length %d", len(res))
	}
	out := make([]*structs.Record, 0, len(res)/3)
	for i := 0; i < len(res); i += 3 {
		out = append(out, &structs.Record{
			ID:      asStr(res[i]),
			Payload: []byte(asStr(res[i+1])),
			Tag:     asStr(res[i+2]),
		})
	}
	return out, nil
}

func asStr(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []byte:
		return string(t)
	default:
		return fmt.Sprint(v)
	}
}
