package structs

// InsertRequest is the body we hand to a backend to enqueue a task.
type InsertRequest struct {
	// Payload is the serialized task
	Payload []byte `json:"payload"`

	// QueueName is the queue we're inserting into
	QueueName string `json:"queueName"`

	// GroupByTag indicates the task may be leased by tag
	GroupByTag bool `json:"groupByTag"`

	// Tag is the registered type name of the task
	Tag string `json:"tag"`
}

// Record is a raw task as returned by a backend.
type Record struct {
	// ID is assigned by the backend
	ID string `json:"id"`

	// Tag the task was inserted with
	Tag string `json:"tag"`

	// Payload is the serialized task
	Payload []byte `json:"payload"`
}
