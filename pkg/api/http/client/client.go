package client

import (
	"net/url"
	"strconv"

	"github.com/voidshard/taskqueue/pkg/api/http/common"
	"github.com/voidshard/taskqueue/pkg/structs"
)

// Client reads from a status server.
type Client struct {
	url *url.URL
}

func New(address string) (*Client, error) {
	u, err := url.Parse(address)
	return &Client{url: u}, err
}

// Healthy reports if the server says it is ok
func (c *Client) Healthy() (bool, error) {
	var out common.HealthResponse
	return out.OK, genericGet(c.addr(common.API_HEALTH), &out)
}

// Worker returns the state of the polling worker
func (c *Client) Worker() (*structs.WorkerStats, error) {
	var out structs.WorkerStats
	return &out, genericGet(c.addr(common.API_WORKER), &out)
}

// Queue returns statistics of the queue the worker polls
func (c *Client) Queue() (*structs.Stats, error) {
	var out structs.Stats
	return &out, genericGet(c.addr(common.API_QUEUE), &out)
}

// Tasks lists tasks in the queue, optionally only those with the given tag
func (c *Client) Tasks(tag string, limit int) ([]*common.TaskInfo, error) {
	addr := c.addr(common.API_TASKS)
	values := addr.Query()
	if tag != "" {
		values.Set("tag", tag)
	}
	if limit > 0 {
		values.Set("limit", strconv.Itoa(limit))
	}
	addr.RawQuery = values.Encode()

	var out []*common.TaskInfo
	return out, genericGet(addr, &out)
}

func (c *Client) addr(path string) *url.URL {
	return &url.URL{Scheme: c.url.Scheme, Host: c.url.Host, Path: path}
}
