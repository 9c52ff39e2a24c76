package errors

import (
	"fmt"
)

var (
	ErrQueueEmpty     = fmt.Errorf("queue empty")
	ErrNotSupported   = fmt.Errorf("not supported")
	ErrUnknownBackend = fmt.Errorf("unknown backend")
	ErrInvalidArg     = fmt.Errorf("invalid arg")
	ErrNotFound       = fmt.Errorf("not found")
	ErrUnknownTag     = fmt.Errorf("unknown task tag")
	ErrNoTaskID       = fmt.Errorf("task has no id")
	ErrClosed         = fmt.Errorf("closed")
)
