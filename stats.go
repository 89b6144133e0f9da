package beanstalk

import (
	"errors"
	"sync/atomic"
	"time"

	"github.com/pior/beanstalk/wire"
)

// PoolStats is a snapshot of a Pool.
type PoolStats struct {
	AcquireCount      uint64 // calls to Acquire
	AcquireWaitCount  uint64 // acquires that blocked on a full pool
	AcquireWaitTimeNs uint64 // time spent blocked, in nanoseconds
	AcquireErrors     uint64 // acquires that failed (dial, closed pool, ctx)
	CreatedConns      uint64
	DestroyedConns    uint64

	TotalConns  int32 // open connections, idle or checked out
	IdleConns   int32
	ActiveConns int32 // checked out
}

// ClientStats contains counters of a single Client.
// All fields are safe for concurrent access.
type ClientStats struct {
	Commands        uint64 // Exchanges completed with a success reply
	Puts            uint64 // Jobs inserted (or buried on insert)
	Reserves        uint64 // Jobs reserved
	Deletes         uint64 // Jobs deleted
	Releases        uint64 // Jobs released
	Buries          uint64 // Jobs buried
	Mismatches      uint64 // Replies that did not match the command grammar
	TransportErrors uint64 // Failed exchanges (I/O, timeout, truncated reply)
}

// poolStatsCollector is updated by pools that do not keep their own stats.
// Each method describes a transition of one connection.
type poolStatsCollector struct {
	acquires, waits, waitNs, acquireErrors atomic.Uint64
	created, destroyed                     atomic.Uint64
	idle, active                           atomic.Int32
}

// acquired counts an Acquire. fromIdle is set when an idle connection was
// handed out, waited is how long the caller blocked.
func (c *poolStatsCollector) acquired(fromIdle bool, waited time.Duration) {
	c.acquires.Add(1)
	if waited > 0 {
		c.waits.Add(1)
		c.waitNs.Add(uint64(waited))
	}
	if fromIdle {
		c.unparked()
	} else {
		c.active.Add(1)
	}
}

// unparked counts an idle connection being checked out.
func (c *poolStatsCollector) unparked() {
	c.idle.Add(-1)
	c.active.Add(1)
}

func (c *poolStatsCollector) failed() {
	c.acquires.Add(1)
	c.acquireErrors.Add(1)
}

func (c *poolStatsCollector) opened() {
	c.created.Add(1)
}

// parked counts a checked out connection going back to the idle set.
func (c *poolStatsCollector) parked() {
	c.active.Add(-1)
	c.idle.Add(1)
}

// dropped counts a closed connection, checked out (active) or idle.
func (c *poolStatsCollector) dropped(active bool) {
	c.destroyed.Add(1)
	if active {
		c.active.Add(-1)
	} else {
		c.idle.Add(-1)
	}
}

func (c *poolStatsCollector) snapshot() PoolStats {
	s := PoolStats{
		AcquireCount:      c.acquires.Load(),
		AcquireWaitCount:  c.waits.Load(),
		AcquireWaitTimeNs: c.waitNs.Load(),
		AcquireErrors:     c.acquireErrors.Load(),
		CreatedConns:      c.created.Load(),
		DestroyedConns:    c.destroyed.Load(),
		IdleConns:         c.idle.Load(),
		ActiveConns:       c.active.Load(),
	}
	s.TotalConns = s.IdleConns + s.ActiveConns
	return s
}

// clientStatsCollector provides internal methods for updating client stats.
// Not exported - client updates its own stats.
type clientStatsCollector struct {
	stats ClientStats
}

func (c *clientStatsCollector) recordCommand(cmd wire.Command) {
	atomic.AddUint64(&c.stats.Commands, 1)

	switch cmd {
	case wire.CmdPut:
		atomic.AddUint64(&c.stats.Puts, 1)
	case wire.CmdReserve, wire.CmdReserveWithTimeout:
		atomic.AddUint64(&c.stats.Reserves, 1)
	case wire.CmdDelete:
		atomic.AddUint64(&c.stats.Deletes, 1)
	case wire.CmdRelease:
		atomic.AddUint64(&c.stats.Releases, 1)
	case wire.CmdBury:
		atomic.AddUint64(&c.stats.Buries, 1)
	}
}

// recordError classifies err as a mismatch or a transport failure.
// Client-side rejections (invalid names) are not counted.
func (c *clientStatsCollector) recordError(err error) {
	var mismatch *wire.MismatchError
	var connErr *wire.ConnectionError

	switch {
	case errors.As(err, &mismatch):
		atomic.AddUint64(&c.stats.Mismatches, 1)
	case errors.As(err, &connErr), errors.Is(err, ErrConnectionClosed):
		atomic.AddUint64(&c.stats.TransportErrors, 1)
	}
}

func (c *clientStatsCollector) snapshot() ClientStats {
	return ClientStats{
		Commands:        atomic.LoadUint64(&c.stats.Commands),
		Puts:            atomic.LoadUint64(&c.stats.Puts),
		Reserves:        atomic.LoadUint64(&c.stats.Reserves),
		Deletes:         atomic.LoadUint64(&c.stats.Deletes),
		Releases:        atomic.LoadUint64(&c.stats.Releases),
		Buries:          atomic.LoadUint64(&c.stats.Buries),
		Mismatches:      atomic.LoadUint64(&c.stats.Mismatches),
		TransportErrors: atomic.LoadUint64(&c.stats.TransportErrors),
	}
}
