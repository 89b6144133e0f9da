package beanstalk

import (
	"context"
	"errors"
	"time"
)

var (
	ErrPoolClosed = errors.New("beanstalk: pool closed")
	ErrNotPooled  = errors.New("beanstalk: client is not attached to a pool")
)

// Pool holds idle connections to a single beanstalkd server.
// Implementations must be safe for concurrent use.
type Pool interface {
	// Acquire returns an idle connection or creates one, waiting while the
	// pool is at MaxSize.
	Acquire(ctx context.Context) (Resource, error)

	// AcquireAllIdle takes every idle connection at once (health checks).
	AcquireAllIdle() []Resource

	// Stats returns a snapshot of pool statistics.
	Stats() PoolStats

	// Close destroys idle connections and rejects further acquires.
	Close() error
}

// Resource is a connection checked out of a Pool.
type Resource interface {
	Value() *Connection

	// Release returns the connection to the pool and marks it as used.
	Release()

	// ReleaseUnused returns the connection without refreshing its idle time.
	ReleaseUnused()

	// Destroy closes the connection and frees its slot.
	Destroy()

	CreationTime() time.Time
	IdleDuration() time.Duration
}

// PoolFactory creates a Pool around a connection constructor.
type PoolFactory func(constructor func(ctx context.Context) (*Connection, error), maxSize int32) (Pool, error)
