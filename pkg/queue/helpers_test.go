package queue

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/voidshard/taskqueue/pkg/structs"
	"github.com/voidshard/taskqueue/pkg/task"
)

var (
	counter int64

	errTransient = fmt.Errorf("transient")
	errFatal     = fmt.Errorf("fatal")
)

type counterTask struct {
	Name string `json:"name"`
}

func (c *counterTask) Execute(ctx context.Context, args ...interface{}) error {
	atomic.AddInt64(&counter, 1)
	return nil
}

type failTask struct {
	Transient bool `json:"transient"`
}

func (f *failTask) Execute(ctx context.Context, args ...interface{}) error {
	if f.Transient {
		return errTransient
	}
	return errFatal
}

type panicTask struct{}

func (p *panicTask) Execute(ctx context.Context, args ...interface{}) error {
	panic("oh no")
}

func newRegistry(t *testing.T) *task.Registry {
	reg := task.NewRegistry()
	require.NoError(t, reg.Register(&counterTask{}))
	require.NoError(t, reg.Register(&failTask{}))
	require.NoError(t, reg.Register(&panicTask{}))
	return reg
}

func resetCounter() {
	atomic.StoreInt64(&counter, 0)
}

func count() int64 {
	return atomic.LoadInt64(&counter)
}

func record(t *testing.T, reg *task.Registry, id string, r task.Runnable) *structs.Record {
	payload, err := reg.Serialize(task.New(r))
	require.NoError(t, err)
	return &structs.Record{ID: id, Tag: task.TagOf(r), Payload: payload}
}

// stopAfter returns a StopFn that reports true on its nth call
func stopAfter(n int) func() bool {
	calls := 0
	return func() bool {
		calls++
		return calls >= n
	}
}

// fakeSleep records sleeps rather than sleeping
type fakeSleep struct {
	slept []time.Duration
}

func (f *fakeSleep) sleep(ctx context.Context, d time.Duration) error {
	f.slept = append(f.slept, d)
	return ctx.Err()
}
