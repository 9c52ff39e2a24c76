package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voidshard/taskqueue/pkg/api/http/common"
	ie "github.com/voidshard/taskqueue/pkg/errors"
	"github.com/voidshard/taskqueue/pkg/queue"
	"github.com/voidshard/taskqueue/pkg/structs"
	"github.com/voidshard/taskqueue/pkg/task"
)

type brokenQueue struct {
	err error
}

func (b *brokenQueue) Status(ctx context.Context) (*structs.Stats, error) {
	return nil, b.err
}

func (b *brokenQueue) List(ctx context.Context) ([]*task.Task, error) {
	return nil, b.err
}

func newLocalQueue(t *testing.T) *queue.LocalQueue {
	q := queue.NewLocalQueue(&queue.Options{Name: "test"})
	ctx := context.Background()
	require.NoError(t, q.Insert(ctx, &task.PrintTask{Message: "a"}))
	require.NoError(t, q.Insert(ctx, &task.MockTask{}))
	require.NoError(t, q.Insert(ctx, &task.PrintTask{Message: "b"}))
	return q
}

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestHealth(t *testing.T) {
	s := NewServer("", true, newLocalQueue(t), nil)

	w := get(t, s.Router(), common.API_HEALTH)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok": true}`, w.Body.String())
}

func TestWorker(t *testing.T) {
	mon := queue.NewMonitor()
	s := NewServer("", false, newLocalQueue(t), mon)

	w := get(t, s.Router(), common.API_WORKER)

	require.Equal(t, http.StatusOK, w.Code)
	out := &structs.WorkerStats{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out))
	assert.Equal(t, structs.IDLE, out.State)
}

func TestWorkerNoMonitor(t *testing.T) {
	s := NewServer("", false, newLocalQueue(t), nil)

	w := get(t, s.Router(), common.API_WORKER)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestQueue(t *testing.T) {
	s := NewServer("", false, newLocalQueue(t), nil)

	w := get(t, s.Router(), common.API_QUEUE)

	require.Equal(t, http.StatusOK, w.Code)
	out := &structs.Stats{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), out))
	assert.Equal(t, &structs.Stats{Queue: "test", Kind: structs.KindLocal, Enqueued: 3, Available: 3}, out)
}

func TestTasks(t *testing.T) {
	cases := []struct {
		Name   string
		Path   string
		Code   int
		Expect int
	}{
		{"All", common.API_TASKS, http.StatusOK, 3},
		{"ByTag", common.API_TASKS + "?tag=PrintTask", http.StatusOK, 2},
		{"Limit", common.API_TASKS + "?limit=1", http.StatusOK, 1},
		{"UnknownTag", common.API_TASKS + "?tag=nope", http.StatusOK, 0},
		{"BadLimit", common.API_TASKS + "?limit=x", http.StatusBadRequest, 0},
	}

	for _, c := range cases {
		t.Run(c.Name, func(t *testing.T) {
			s := NewServer("", false, newLocalQueue(t), nil)

			w := get(t, s.Router(), c.Path)

			require.Equal(t, c.Code, w.Code)
			if c.Code != http.StatusOK {
				return
			}
			out := []*common.TaskInfo{}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
			assert.Len(t, out, c.Expect)
		})
	}
}

func TestMapError(t *testing.T) {
	cases := []struct {
		Err  error
		Code int
	}{
		{nil, http.StatusOK},
		{fmt.Errorf("%w x", ie.ErrInvalidArg), http.StatusBadRequest},
		{fmt.Errorf("%w x", ie.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("%w x", ie.ErrNotSupported), http.StatusNotImplemented},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
	}

	for _, c := range cases {
		assert.Equal(t, c.Code, mapError(c.Err), c.Err)
	}
}

func TestQueueError(t *testing.T) {
	s := NewServer("", false, &brokenQueue{err: fmt.Errorf("%w no lease", ie.ErrNotSupported)}, nil)

	assert.Equal(t, http.StatusNotImplemented, get(t, s.Router(), common.API_QUEUE).Code)
	assert.Equal(t, http.StatusNotImplemented, get(t, s.Router(), common.API_TASKS).Code)
}

func TestServeStopsWithContext(t *testing.T) {
	s := NewServer("127.0.0.1:0", false, newLocalQueue(t), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.NoError(t, s.Serve(ctx))
}
