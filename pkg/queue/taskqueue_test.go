package queue

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gomock "go.uber.org/mock/gomock"

	"github.com/voidshard/taskqueue/internal/mocks/pkg/backend_mock"
	ie "github.com/voidshard/taskqueue/pkg/errors"
	"github.com/voidshard/taskqueue/pkg/structs"
	"github.com/voidshard/taskqueue/pkg/task"
)

func newTestQueue(t *testing.T, threads int) (*TaskQueue, *backend_mock.MockBackend, *task.Registry, *fakeSleep) {
	api := backend_mock.NewMockBackend(gomock.NewController(t))
	reg := newRegistry(t)
	q := NewTaskQueue(api, &Options{Registry: reg, Threads: threads})

	sl := &fakeSleep{}
	q.sleep = sl.sleep
	q.random = func() float64 { return 1 }

	resetCounter()
	return q, api, reg, sl
}

func TestInsert(t *testing.T) {
	q, api, reg, _ := newTestQueue(t, 0)

	api.EXPECT().Insert(gomock.Any(), gomock.Any()).DoAndReturn(func(ctx context.Context, in *structs.InsertRequest) error {
		assert.Equal(t, "default", in.QueueName)
		assert.Equal(t, "counterTask", in.Tag)
		assert.True(t, in.GroupByTag)

		got, err := reg.Deserialize(in.Payload)
		assert.NoError(t, err)
		assert.Equal(t, &counterTask{Name: "a"}, got.Runnable)
		return nil
	})

	err := q.Insert(context.Background(), &counterTask{Name: "a"})

	assert.NoError(t, err)
}

func TestInsertUnregistered(t *testing.T) {
	q, _, _, _ := newTestQueue(t, 0)

	err := q.Insert(context.Background(), task.New(&unregisteredTask{}))

	assert.ErrorIs(t, err, ie.ErrUnknownTag)
}

type unregisteredTask struct{}

func (u *unregisteredTask) Execute(ctx context.Context, args ...interface{}) error { return nil }

func TestInsertThreadedSurfacesErrorsOnWait(t *testing.T) {
	q, api, _, _ := newTestQueue(t, 2)
	defer q.pool.Close()

	boom := fmt.Errorf("boom")
	api.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(nil).Times(3)
	api.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(boom)

	for i := 0; i < 4; i++ {
		assert.NoError(t, q.Insert(context.Background(), &counterTask{}))
	}
	err := q.Wait(context.Background())

	assert.ErrorIs(t, err, boom)
	assert.NoError(t, q.Wait(context.Background()))
}

func TestLease(t *testing.T) {
	q, api, reg, _ := newTestQueue(t, 0)

	api.EXPECT().Lease(gomock.Any(), &structs.LeaseRequest{NumTasks: 2, Seconds: 60, GroupByTag: true, Tag: "counterTask"}).Return([]*structs.Record{
		record(t, reg, "1", &counterTask{Name: "first"}),
		record(t, reg, "2", &counterTask{Name: "second"}),
	}, nil)

	got, err := q.Lease(context.Background(), 60, 2, "counterTask")

	require.NoError(t, err)
	assert.Equal(t, "1", got.ID())
	assert.Equal(t, &counterTask{Name: "first"}, got.Runnable)
}

func TestLeaseEmpty(t *testing.T) {
	q, api, _, _ := newTestQueue(t, 0)

	api.EXPECT().Lease(gomock.Any(), &structs.LeaseRequest{NumTasks: 1, Seconds: 60}).Return([]*structs.Record{}, nil)

	_, err := q.Lease(context.Background(), 60, 1, "")

	assert.ErrorIs(t, err, ie.ErrQueueEmpty)
}

func TestDelete(t *testing.T) {
	q, api, _, _ := newTestQueue(t, 0)
	ctx := context.Background()

	tsk := task.New(&counterTask{})
	tsk.SetID("abc")

	api.EXPECT().Delete(gomock.Any(), "abc").Return(nil).Times(2)
	api.EXPECT().Delete(gomock.Any(), "xyz").Return(nil)

	assert.NoError(t, q.Delete(ctx, tsk))
	assert.NoError(t, q.Acknowledge(ctx, tsk))
	assert.NoError(t, q.Acknowledge(ctx, task.ID("xyz")))
}

func TestDeleteNoID(t *testing.T) {
	q, _, _, _ := newTestQueue(t, 0)
	ctx := context.Background()

	var nilTask *task.Task

	assert.ErrorIs(t, q.Delete(ctx, task.New(&counterTask{})), ie.ErrNoTaskID)
	assert.ErrorIs(t, q.Delete(ctx, task.ID("")), ie.ErrNoTaskID)
	assert.ErrorIs(t, q.Delete(ctx, nil), ie.ErrNoTaskID)
	assert.ErrorIs(t, q.Delete(ctx, nilTask), ie.ErrNoTaskID)
	assert.ErrorIs(t, q.RenewLease(ctx, task.ID(""), 10), ie.ErrNoTaskID)
	assert.ErrorIs(t, q.CancelLease(ctx, task.ID("")), ie.ErrNoTaskID)
}

func TestRenewAndCancelLease(t *testing.T) {
	q, api, _, _ := newTestQueue(t, 0)
	ctx := context.Background()

	api.EXPECT().RenewLease(gomock.Any(), "abc", 30).Return(nil)
	api.EXPECT().CancelLease(gomock.Any(), "abc").Return(ie.ErrNotSupported)

	assert.NoError(t, q.RenewLease(ctx, task.ID("abc"), 30))
	assert.ErrorIs(t, q.CancelLease(ctx, task.ID("abc")), ie.ErrNotSupported)
}

func TestListSkipsUnknownTags(t *testing.T) {
	q, api, reg, _ := newTestQueue(t, 0)

	api.EXPECT().List(gomock.Any()).Return([]*structs.Record{
		record(t, reg, "1", &counterTask{}),
		&structs.Record{ID: "2", Tag: "other", Payload: []byte(`{"tag":"other","args":{}}`)},
		record(t, reg, "3", &failTask{}),
	}, nil)

	got, err := q.List(context.Background())

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "1", got[0].ID())
	assert.Equal(t, "3", got[1].ID())
}

func TestGetTask(t *testing.T) {
	q, api, reg, _ := newTestQueue(t, 0)

	api.EXPECT().Get(gomock.Any(), "1").Return(record(t, reg, "1", &counterTask{Name: "x"}), nil)
	api.EXPECT().Get(gomock.Any(), "2").Return(nil, ie.ErrNotFound)

	got, err := q.GetTask(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, "1", got.ID())

	_, err = q.GetTask(context.Background(), "2")
	assert.ErrorIs(t, err, ie.ErrNotFound)
}

func TestPurgeNative(t *testing.T) {
	q, api, _, _ := newTestQueue(t, 0)

	api.EXPECT().Purge(gomock.Any()).Return(nil)

	assert.NoError(t, q.Purge(context.Background()))
}

func TestPurgeFallback(t *testing.T) {
	q, api, reg, _ := newTestQueue(t, 2)
	defer q.pool.Close()

	gomock.InOrder(
		api.EXPECT().Purge(gomock.Any()).Return(ie.ErrNotSupported),
		api.EXPECT().List(gomock.Any()).Return([]*structs.Record{
			record(t, reg, "1", &counterTask{}),
			record(t, reg, "2", &counterTask{}),
		}, nil),
		api.EXPECT().List(gomock.Any()).Return([]*structs.Record{}, nil),
	)
	api.EXPECT().Delete(gomock.Any(), "1").Return(nil)
	api.EXPECT().Delete(gomock.Any(), "2").Return(nil)

	assert.NoError(t, q.Purge(context.Background()))
}

func TestPurgeFallbackStopsWithContext(t *testing.T) {
	q, api, _, _ := newTestQueue(t, 0)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	api.EXPECT().Purge(gomock.Any()).Return(ie.ErrNotSupported)

	assert.ErrorIs(t, q.Purge(ctx), context.Canceled)
}

func TestBlockUntilEmpty(t *testing.T) {
	q, api, _, sl := newTestQueue(t, 0)

	gomock.InOrder(
		api.EXPECT().Enqueued(gomock.Any()).Return(int64(2), nil),
		api.EXPECT().Enqueued(gomock.Any()).Return(int64(1), nil),
		api.EXPECT().Enqueued(gomock.Any()).Return(int64(0), nil),
	)

	err := q.BlockUntilEmpty(context.Background(), time.Millisecond)

	assert.NoError(t, err)
	assert.Equal(t, []time.Duration{time.Millisecond, time.Millisecond}, sl.slept)
}

func TestStatus(t *testing.T) {
	q, api, _, _ := newTestQueue(t, 0)

	expect := &structs.Stats{Queue: "default", Kind: structs.KindRedis, Enqueued: 3}
	api.EXPECT().Stats(gomock.Any()).Return(expect, nil)

	got, err := q.Status(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, expect, got)
}

func TestClose(t *testing.T) {
	q, api, _, _ := newTestQueue(t, 1)

	api.EXPECT().Insert(gomock.Any(), gomock.Any()).Return(nil)
	api.EXPECT().Close().Return(nil)

	assert.NoError(t, q.Insert(context.Background(), &counterTask{}))
	assert.NoError(t, q.Close())
	assert.ErrorIs(t, q.Insert(context.Background(), &counterTask{}), ie.ErrClosed)
}

func TestNewUnknownBackend(t *testing.T) {
	_, err := New(context.Background(), &Options{Server: "rabbit"})

	assert.ErrorIs(t, err, ie.ErrUnknownBackend)
}

func TestNewLocalAndMock(t *testing.T) {
	q, err := New(context.Background(), &Options{Server: "local"})
	require.NoError(t, err)
	assert.IsType(t, &LocalQueue{}, q)

	q, err = New(context.Background(), &Options{Server: " Mock "})
	require.NoError(t, err)
	assert.IsType(t, &MockQueue{}, q)
}
