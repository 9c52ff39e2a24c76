package queue

import (
	"sync"
	"time"

	"github.com/voidshard/taskqueue/pkg/structs"
	"github.com/voidshard/taskqueue/pkg/task"
)

// Monitor records what a polling worker is doing, for anyone that wants to look.
//
// A nil *Monitor is valid and records nothing.
type Monitor struct {
	lock  sync.RWMutex
	stats structs.WorkerStats
}

func NewMonitor() *Monitor {
	now := time.Now().Unix()
	return &Monitor{stats: structs.WorkerStats{State: structs.IDLE, StartedAt: now, UpdatedAt: now}}
}

// Snapshot returns a copy of the current worker stats.
func (m *Monitor) Snapshot() *structs.WorkerStats {
	if m == nil {
		return &structs.WorkerStats{State: structs.STOPPED}
	}
	m.lock.RLock()
	defer m.lock.RUnlock()
	cpy := m.stats
	return &cpy
}

func (m *Monitor) setState(st structs.State, t *task.Task) {
	m.update(func(s *structs.WorkerStats) {
		s.State = st
		if t != nil {
			s.LastTask = t.ID()
		}
	})
}

func (m *Monitor) setCounts(executed, tries int) {
	m.update(func(s *structs.WorkerStats) {
		s.Executed = int64(executed)
		s.Tries = int64(tries)
	})
}

func (m *Monitor) setError(err error) {
	if err == nil {
		return
	}
	m.update(func(s *structs.WorkerStats) {
		s.LastError = err.Error()
	})
}

func (m *Monitor) update(fn func(s *structs.WorkerStats)) {
	if m == nil {
		return
	}
	m.lock.Lock()
	defer m.lock.Unlock()
	fn(&m.stats)
	m.stats.UpdatedAt = time.Now().Unix()
}
