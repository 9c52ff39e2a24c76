package queue

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	ie "github.com/voidshard/taskqueue/pkg/errors"
	"github.com/voidshard/taskqueue/pkg/task"
)

func TestMockQueueExecutesOnInsert(t *testing.T) {
	resetCounter()
	q := NewMockQueue(nil)
	ctx := context.Background()

	assert.NoError(t, q.Insert(ctx, &counterTask{}))
	assert.Equal(t, int64(1), count())

	assert.NoError(t, q.Insert(ctx, &counterTask{}))
	assert.Equal(t, int64(2), count())

	n, err := q.Enqueued(ctx)
	assert.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestMockQueueInsertReturnsTaskError(t *testing.T) {
	q := NewMockQueue(nil)

	err := q.Insert(context.Background(), &failTask{})

	assert.ErrorIs(t, err, errFatal)
}

func TestMockQueueNoops(t *testing.T) {
	q := NewMockQueue(nil)
	ctx := context.Background()

	_, err := q.Lease(ctx, 10, 1, "")
	assert.ErrorIs(t, err, ie.ErrQueueEmpty)

	n, err := q.Poll(ctx, nil)
	assert.NoError(t, err)
	assert.Equal(t, 0, n)

	tasks, err := q.List(ctx)
	assert.NoError(t, err)
	assert.Len(t, tasks, 0)

	assert.NoError(t, q.Delete(ctx, task.ID("1")))
	assert.NoError(t, q.Acknowledge(ctx, task.ID("1")))
	assert.NoError(t, q.RenewLease(ctx, task.ID("1"), 1))
	assert.NoError(t, q.CancelLease(ctx, task.ID("1")))
	assert.NoError(t, q.Purge(ctx))
	assert.NoError(t, q.Wait(ctx))
	assert.NoError(t, q.Close())
	assert.ErrorIs(t, q.Insert(ctx, nil), ie.ErrInvalidArg)
}
