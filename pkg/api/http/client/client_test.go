package client

import (
	"context"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voidshard/taskqueue/pkg/api/http/server"
	"github.com/voidshard/taskqueue/pkg/queue"
	"github.com/voidshard/taskqueue/pkg/structs"
	"github.com/voidshard/taskqueue/pkg/task"
)

func newTestClient(t *testing.T, mon server.Monitor) *Client {
	q := queue.NewLocalQueue(&queue.Options{Name: "test"})
	require.NoError(t, q.Insert(context.Background(), &task.PrintTask{Message: "hi"}))
	require.NoError(t, q.Insert(context.Background(), &task.MockTask{}))

	srv := httptest.NewServer(server.NewServer("", false, q, mon).Router())
	t.Cleanup(srv.Close)

	c, err := New(srv.URL)
	require.NoError(t, err)
	return c
}

func TestClient(t *testing.T) {
	c := newTestClient(t, queue.NewMonitor())

	ok, err := c.Healthy()
	require.NoError(t, err)
	assert.True(t, ok)

	w, err := c.Worker()
	require.NoError(t, err)
	assert.Equal(t, structs.IDLE, w.State)

	st, err := c.Queue()
	require.NoError(t, err)
	assert.Equal(t, int64(2), st.Enqueued)

	tasks, err := c.Tasks("MockTask", 0)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "MockTask", tasks[0].Tag)
}

func TestClientErrorStatus(t *testing.T) {
	c := newTestClient(t, nil)

	_, err := c.Worker()

	assert.Error(t, err)
}
