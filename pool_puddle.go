package beanstalk

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/jackc/puddle/v2"
)

// NewPuddlePool creates a Pool backed by puddle. It is the default.
func NewPuddlePool(constructor func(ctx context.Context) (*Connection, error), maxSize int32) (Pool, error) {
	p := &puddlePool{}

	pool, err := puddle.NewPool(&puddle.Config[*Connection]{
		Constructor: func(ctx context.Context) (*Connection, error) {
			conn, err := constructor(ctx)
			if err == nil {
				p.created.Add(1)
			}
			return conn, err
		},
		Destructor: p.destruct,
		MaxSize:    maxSize,
	})
	if err != nil {
		return nil, err
	}

	p.pool = pool
	return p, nil
}

type puddlePool struct {
	pool               *puddle.Pool[*Connection]
	created, destroyed atomic.Uint64
}

// destruct runs in a puddle goroutine once a resource is destroyed.
func (p *puddlePool) destruct(conn *Connection) {
	_ = conn.Close()
	p.destroyed.Add(1)
}

func (p *puddlePool) Acquire(ctx context.Context) (Resource, error) {
	res, err := p.pool.Acquire(ctx)
	if errors.Is(err, puddle.ErrClosedPool) {
		return nil, ErrPoolClosed
	}
	if err != nil {
		return nil, err
	}
	return puddleResource{res}, nil
}

func (p *puddlePool) AcquireAllIdle() []Resource {
	idle := p.pool.AcquireAllIdle()
	if len(idle) == 0 {
		return nil
	}

	all := make([]Resource, 0, len(idle))
	for _, res := range idle {
		all = append(all, puddleResource{res})
	}
	return all
}

// Close waits for checked out connections to come back before returning.
func (p *puddlePool) Close() error {
	p.pool.Close()
	return nil
}

func (p *puddlePool) Stats() PoolStats {
	stat := p.pool.Stat()

	return PoolStats{
		AcquireCount:      uint64(stat.AcquireCount() + stat.CanceledAcquireCount()),
		AcquireWaitCount:  uint64(stat.EmptyAcquireCount()),
		AcquireWaitTimeNs: uint64(stat.EmptyAcquireWaitTime()),
		AcquireErrors:     uint64(stat.CanceledAcquireCount()),
		CreatedConns:      p.created.Load(),
		DestroyedConns:    p.destroyed.Load(),
		TotalConns:        stat.TotalResources(),
		IdleConns:         stat.IdleResources(),
		ActiveConns:       stat.AcquiredResources(),
	}
}

// puddleResource keeps connections that failed out of the idle set.
type puddleResource struct {
	*puddle.Resource[*Connection]
}

func (r puddleResource) Release() {
	if r.Value().IsClosed() {
		r.Destroy()
		return
	}
	r.Resource.Release()
}

func (r puddleResource) ReleaseUnused() {
	if r.Value().IsClosed() {
		r.Destroy()
		return
	}
	r.Resource.ReleaseUnused()
}

var _ Resource = puddleResource{}
