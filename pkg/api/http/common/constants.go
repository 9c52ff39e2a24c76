package common

const (
	// API_HEALTH reports the server is up
	API_HEALTH = "/healthz"

	// API_WORKER is used to get the state of the polling worker
	API_WORKER = "/api/v1/worker"

	// API_QUEUE is used to get queue statistics
	API_QUEUE = "/api/v1/queue"

	// API_TASKS is used to list tasks in the queue
	API_TASKS = "/api/v1/tasks"
)
