package beanstalk

import (
	"context"
	"sync"
	"time"

	"go.uber.org/multierr"
)

// NewChannelPool creates a pool that keeps its own bookkeeping instead of
// relying on puddle.
//
// Idle connections are reused most recent first, so the ones left unused age
// out through MaxConnIdleTime. Callers blocked on a full pool are served in
// arrival order: a released connection, or the slot of a destroyed one, is
// handed to the oldest waiter over its own channel.
func NewChannelPool(constructor func(ctx context.Context) (*Connection, error), maxSize int32) (Pool, error) {
	return &channelPool{
		constructor: constructor,
		maxSize:     maxSize,
	}, nil
}

type channelPool struct {
	constructor func(ctx context.Context) (*Connection, error)
	maxSize     int32

	mu      sync.Mutex
	idle    []*channelResource // stack, top is the most recently released
	waiters []chan *channelResource
	size    int32 // connections counted against maxSize, including ones being dialed
	closed  bool

	stats poolStatsCollector
}

// channelResource is a connection checked out of a channelPool.
type channelResource struct {
	conn     *Connection
	pool     *channelPool
	created  time.Time
	lastUsed time.Time
}

func (r *channelResource) Value() *Connection { return r.conn }

func (r *channelResource) Release() {
	r.lastUsed = time.Now()
	r.ReleaseUnused()
}

// ReleaseUnused parks the connection, or destroys it if it failed.
func (r *channelResource) ReleaseUnused() {
	if r.conn.IsClosed() {
		r.Destroy()
		return
	}
	r.pool.put(r)
}

func (r *channelResource) Destroy() {
	_ = r.conn.Close()
	r.pool.stats.dropped(true)
	r.pool.freeSlot()
}

func (r *channelResource) CreationTime() time.Time { return r.created }

func (r *channelResource) IdleDuration() time.Duration { return time.Since(r.lastUsed) }

func (p *channelPool) Acquire(ctx context.Context) (Resource, error) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		p.stats.failed()
		return nil, ErrPoolClosed
	}

	if n := len(p.idle); n > 0 {
		res := p.idle[n-1]
		p.idle[n-1] = nil
		p.idle = p.idle[:n-1]
		p.mu.Unlock()
		p.stats.acquired(true, 0)
		return res, nil
	}

	if p.size < p.maxSize {
		p.size++
		p.mu.Unlock()
		return p.open(ctx, 0)
	}

	wait := make(chan *channelResource, 1)
	p.waiters = append(p.waiters, wait)
	p.mu.Unlock()

	start := time.Now()

	select {
	case res, ok := <-wait:
		return p.handed(ctx, res, ok, time.Since(start))

	case <-ctx.Done():
		p.mu.Lock()
		queued := p.dequeue(wait)
		p.mu.Unlock()

		if !queued {
			// Handed over while giving up: pass it on.
			if res, ok := <-wait; ok {
				if res != nil {
					p.stats.unparked()
					p.put(res)
				} else {
					p.freeSlot()
				}
			}
		}
		p.stats.failed()
		return nil, ctx.Err()
	}
}

// handed completes an Acquire that waited. A nil resource is a free slot.
func (p *channelPool) handed(ctx context.Context, res *channelResource, ok bool, waited time.Duration) (Resource, error) {
	if !ok {
		p.stats.failed()
		return nil, ErrPoolClosed
	}
	if res == nil {
		return p.open(ctx, waited)
	}
	p.stats.acquired(true, waited)
	return res, nil
}

// open dials a connection in a slot already counted in size.
func (p *channelPool) open(ctx context.Context, waited time.Duration) (Resource, error) {
	conn, err := p.constructor(ctx)
	if err != nil {
		p.freeSlot()
		p.stats.failed()
		return nil, err
	}

	p.stats.opened()
	p.stats.acquired(false, waited)

	now := time.Now()
	return &channelResource{conn: conn, pool: p, created: now, lastUsed: now}, nil
}

// put parks res, or hands it to the oldest waiter.
func (p *channelPool) put(res *channelResource) {
	p.mu.Lock()

	if p.closed {
		p.size--
		p.mu.Unlock()
		_ = res.conn.Close()
		p.stats.dropped(true)
		return
	}

	p.stats.parked()

	if len(p.waiters) > 0 {
		wait := p.waiters[0]
		p.waiters = p.waiters[1:]
		p.mu.Unlock()
		wait <- res
		return
	}

	p.idle = append(p.idle, res)
	p.mu.Unlock()
}

// freeSlot gives the slot of a closed connection to the oldest waiter, who
// dials a replacement.
func (p *channelPool) freeSlot() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.closed && len(p.waiters) > 0 {
		wait := p.waiters[0]
		p.waiters = p.waiters[1:]
		wait <- nil
		return
	}
	p.size--
}

// dequeue removes wait from the waiters. It reports false when wait was
// already handed something. Must be called with lock held.
func (p *channelPool) dequeue(wait chan *channelResource) bool {
	for i, w := range p.waiters {
		if w == wait {
			p.waiters = append(p.waiters[:i], p.waiters[i+1:]...)
			return true
		}
	}
	return false
}

func (p *channelPool) AcquireAllIdle() []Resource {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed || len(p.idle) == 0 {
		return nil
	}

	all := make([]Resource, len(p.idle))
	for i, res := range p.idle {
		all[i] = res
		p.stats.unparked()
	}
	p.idle = nil
	return all
}

// Close closes idle connections and fails pending acquires. Connections
// still checked out are closed when released.
func (p *channelPool) Close() error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true

	idle := p.idle
	p.idle = nil
	p.size -= int32(len(idle))

	for _, wait := range p.waiters {
		close(wait)
	}
	p.waiters = nil
	p.mu.Unlock()

	var err error
	for _, res := range idle {
		err = multierr.Append(err, res.conn.Close())
		p.stats.dropped(false)
	}
	return err
}

func (p *channelPool) Stats() PoolStats {
	return p.stats.snapshot()
}
