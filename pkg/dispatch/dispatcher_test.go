package dispatch

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	ie "github.com/voidshard/taskqueue/pkg/errors"
)

func TestDispatcherRunsEverything(t *testing.T) {
	d := New(3, 0)
	defer d.Close()

	var count int64
	for i := 0; i < 50; i++ {
		err := d.Submit(func(ctx context.Context) error {
			time.Sleep(time.Millisecond)
			atomic.AddInt64(&count, 1)
			return nil
		})
		assert.Nil(t, err)
	}

	assert.Nil(t, d.Wait())
	assert.Equal(t, int64(50), atomic.LoadInt64(&count))
	assert.Equal(t, 3, d.Workers())
}

func TestDispatcherWaitSurfacesErrors(t *testing.T) {
	d := New(2, 0)
	defer d.Close()

	errA := errors.New("a")
	errB := errors.New("b")
	d.Submit(func(ctx context.Context) error { return errA })
	d.Submit(func(ctx context.Context) error { return nil })
	d.Submit(func(ctx context.Context) error { return errB })

	err := d.Wait()

	assert.ErrorIs(t, err, errA)
	assert.ErrorIs(t, err, errB)

	// errors are only reported once
	assert.Nil(t, d.Wait())
}

func TestDispatcherRecoversPanics(t *testing.T) {
	d := New(1, 0)
	defer d.Close()

	d.Submit(func(ctx context.Context) error { panic("boom") })
	var ran bool
	d.Submit(func(ctx context.Context) error { ran = true; return nil })

	err := d.Wait()

	assert.ErrorContains(t, err, "boom")
	assert.True(t, ran)
}

func TestDispatcherCloseDrains(t *testing.T) {
	d := New(2, 10)

	var lock sync.Mutex
	done := []int{}
	for i := 0; i < 10; i++ {
		i := i
		d.Submit(func(ctx context.Context) error {
			lock.Lock()
			defer lock.Unlock()
			done = append(done, i)
			return nil
		})
	}

	assert.Nil(t, d.Close())
	assert.Len(t, done, 10)

	err := d.Submit(func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, ie.ErrClosed)
	assert.Nil(t, d.Close())
}

func TestDispatcherNilCall(t *testing.T) {
	d := New(0, 0)
	defer d.Close()

	assert.Nil(t, d.Submit(nil))
	assert.Nil(t, d.Wait())
	assert.Equal(t, 1, d.Workers())
}
