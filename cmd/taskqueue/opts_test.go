package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voidshard/taskqueue/pkg/errors"
	"github.com/voidshard/taskqueue/pkg/task"
)

func TestBuildTask(t *testing.T) {
	got, err := buildTask("PrintTask", `{"message": "hi"}`)

	require.NoError(t, err)
	assert.Equal(t, &task.PrintTask{Message: "hi"}, got.Runnable)
	assert.Equal(t, "", got.ID())
}

func TestBuildTaskNoArgs(t *testing.T) {
	got, err := buildTask("MockTask", "")

	require.NoError(t, err)
	assert.Equal(t, "MockTask", got.Tag())
}

func TestBuildTaskErrors(t *testing.T) {
	_, err := buildTask("Nope", "{}")
	assert.ErrorIs(t, err, errors.ErrUnknownTag)

	_, err = buildTask("PrintTask", "{not json")
	assert.Error(t, err)
}

func TestQueueOptions(t *testing.T) {
	o := &optsQueue{Server: "pg", URL: "postgres://x", Name: "jobs", Threads: 3}

	opts, err := o.options()

	require.NoError(t, err)
	assert.Equal(t, "pg", opts.Server)
	assert.Equal(t, "jobs", opts.Name)
	assert.Equal(t, 3, opts.Threads)
	assert.Nil(t, opts.TLSConfig)
}

func TestQueueOptionsBadTLS(t *testing.T) {
	o := &optsQueue{QueueTLSCert: "cert.pem"}

	_, err := o.options()

	assert.ErrorIs(t, err, errors.ErrInvalidArg)
}
