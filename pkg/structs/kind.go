package structs

import (
	"strings"
)

// Kind is the type of queue a client talks to.
//
// Networked kinds are served by a backend adapter; Local and Mock never leave the process.
type Kind string

const (
	// KindPostgres is a lease queue held in a postgres table
	KindPostgres Kind = "postgres"

	// KindRedis is a lease queue held in redis
	KindRedis Kind = "redis"

	// KindAsynq enqueues into (and inspects) an asynq queue
	KindAsynq Kind = "asynq"

	// KindLocal buffers tasks and runs them in parallel in this process
	KindLocal Kind = "local"

	// KindMock runs tasks as soon as they're inserted
	KindMock Kind = "mock"
)

// IsNetworked reports whether the kind talks to a backend service.
func IsNetworked(k Kind) bool {
	switch k {
	case KindPostgres, KindRedis, KindAsynq:
		return true
	default:
		return false
	}
}

// ToKind returns the Kind for the given server name, or "" if it isn't one we know.
func ToKind(s string) Kind {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "postgres", "pg", "postgresql":
		return KindPostgres
	case "redis":
		return KindRedis
	case "asynq":
		return KindAsynq
	case "local":
		return KindLocal
	case "mock":
		return KindMock
	default:
		return ""
	}
}
