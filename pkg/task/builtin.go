package task

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
)

func init() {
	Register(&PrintTask{})
	Register(&MockTask{})
}

// PrintTask logs its message. Useful for checking a queue end to end.
type PrintTask struct {
	Message string `json:"message"`
}

func (p *PrintTask) Execute(ctx context.Context, args ...interface{}) error {
	evt := log.Info().Str("tag", "PrintTask")
	if len(args) > 0 {
		evt = evt.Str("args", fmt.Sprint(args...))
	}
	evt.Msg(p.Message)
	return nil
}

// MockTask does nothing.
type MockTask struct{}

func (m *MockTask) Execute(ctx context.Context, args ...interface{}) error {
	return nil
}
