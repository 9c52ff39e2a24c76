package task

import (
	"context"
	"fmt"
)

// Runnable is the work a Task carries.
//
// Implementations must be registered (see Register) so that they can be rebuilt from a payload,
// and their exported fields must hold everything needed to run. Queues deliver at least once,
// so Execute may be called more than once for the same task & must be safe to repeat.
type Runnable interface {
	Execute(ctx context.Context, args ...interface{}) error
}

// Ref is anything that names a task in a queue.
type Ref interface {
	TaskID() string
}

// ID is a raw task id as assigned by a backend.
type ID string

// TaskID implements Ref
func (i ID) TaskID() string {
	return string(i)
}

// Task is a Runnable plus the identity a backend gives it.
//
// A Task has no ID until it has been leased or listed back from a queue.
type Task struct {
	Runnable

	id string
}

// New wraps a Runnable in a Task.
func New(r Runnable) *Task {
	if t, ok := r.(*Task); ok {
		return t
	}
	return &Task{Runnable: r}
}

// ID returns the backend assigned id, if any.
func (t *Task) ID() string {
	return t.id
}

// SetID sets the backend assigned id.
func (t *Task) SetID(id string) {
	t.id = id
}

// TaskID implements Ref
func (t *Task) TaskID() string {
	if t == nil {
		return ""
	}
	return t.id
}

// Tag is the registered type name of the work, used to group tasks in a queue.
func (t *Task) Tag() string {
	return TagOf(t.Runnable)
}

// Payload serializes the task so that Deserialize can rebuild it.
func (t *Task) Payload() ([]byte, error) {
	return DefaultRegistry.Serialize(t)
}

func (t *Task) String() string {
	if t.id == "" {
		return fmt.Sprintf("%s(unqueued)", t.Tag())
	}
	return fmt.Sprintf("%s(%s)", t.Tag(), t.id)
}
