package structs

// State is the state of a polling worker.
type State string

const (
	IDLE          State = "IDLE"
	LEASING       State = "LEASING"
	EXECUTING     State = "EXECUTING"
	ACKNOWLEDGING State = "ACKNOWLEDGING"
	BACKOFF       State = "BACKOFF"

	// end state
	STOPPED State = "STOPPED"
)

// WorkerStats is a point in time view of a polling worker.
type WorkerStats struct {
	// State the worker is currently in
	State State `json:"state"`

	// Executed is the number of tasks executed & acknowledged
	Executed int64 `json:"executed"`

	// Tries is the number of consecutive backoffs since the last success
	Tries int64 `json:"tries"`

	// LastTask is the ID of the last task leased
	LastTask string `json:"last_task,omitempty"`

	// LastError is the last error seen, retryable or not
	LastError string `json:"last_error,omitempty"`

	// StartedAt is when polling began, unix time in seconds
	StartedAt int64 `json:"started_at"`

	// UpdatedAt is when the state last changed, unix time in seconds
	UpdatedAt int64 `json:"updated_at"`
}

// Stats are queue statistics as reported by a backend.
//
// Counts from networked queues are approximate & eventually consistent.
type Stats struct {
	// Queue is the name of the queue
	Queue string `json:"queue"`

	// Kind of queue
	Kind Kind `json:"kind"`

	// Enqueued is the number of tasks not yet deleted (leased or not)
	Enqueued int64 `json:"enqueued"`

	// Leased is the number of tasks currently under a lease
	Leased int64 `json:"leased"`

	// Available is the number of tasks that could be leased right now
	Available int64 `json:"available"`
}
