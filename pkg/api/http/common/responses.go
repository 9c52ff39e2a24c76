package common

// HealthResponse is returned by API_HEALTH
type HealthResponse struct {
	OK bool `json:"ok"`
}

// TaskInfo is a task as listed by API_TASKS.
type TaskInfo struct {
	ID  string `json:"id"`
	Tag string `json:"tag"`
}
