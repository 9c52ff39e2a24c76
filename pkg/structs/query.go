package structs

const (
	leaseSecondsDefault = 600
	leaseTasksMax       = 1000
)

// LeaseRequest asks a backend for up to NumTasks unowned tasks.
type LeaseRequest struct {
	// NumTasks is the max number of tasks to lease
	NumTasks int `json:"numTasks"`

	// Seconds each task is leased for
	Seconds int `json:"seconds"`

	// GroupByTag restricts the lease to tasks with the given Tag
	GroupByTag bool   `json:"groupByTag"`
	Tag        string `json:"tag,omitempty"`
}

func (q *LeaseRequest) Sanitize() {
	if q.NumTasks <= 0 {
		q.NumTasks = 1
	}
	if q.NumTasks > leaseTasksMax {
		q.NumTasks = leaseTasksMax
	}
	if q.Seconds <= 0 {
		q.Seconds = leaseSecondsDefault
	}
	if q.Tag == "" {
		q.GroupByTag = false
	}
	if !q.GroupByTag {
		q.Tag = ""
	}
}
