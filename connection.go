package beanstalk

import (
	"bufio"
	"context"
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/pior/beanstalk/wire"
)

var (
	ErrConnectionClosed = errors.New("beanstalk: connection closed")
)

// aLongTimeAgo is used as deadline to abort a pending read or write.
var aLongTimeAgo = time.Unix(1, 0)

// NoWait marks an exchange that may block as long as the server wants
// (reserve without timeout). Only the context bounds it.
const NoWait time.Duration = -1

// Connection is a single beanstalkd connection.
// It performs one request/response exchange at a time.
type Connection struct {
	conn    net.Conn
	reader  *bufio.Reader
	writer  *bufio.Writer
	timeout atomic.Int64
	log     *zap.Logger

	mu     sync.Mutex // serializes exchanges
	closed atomic.Bool
}

// NewConnection wraps an established network connection.
// A timeout of 0 disables I/O deadlines.
func NewConnection(conn net.Conn, timeout time.Duration, log *zap.Logger) *Connection {
	if log == nil {
		log = zap.NewNop()
	}
	c := &Connection{
		conn:   conn,
		reader: bufio.NewReader(conn),
		writer: bufio.NewWriter(conn),
		log:    log,
	}
	c.timeout.Store(int64(timeout))
	return c
}

// SetTimeout changes the deadline applied to each following exchange.
func (c *Connection) SetTimeout(timeout time.Duration) {
	c.timeout.Store(int64(timeout))
}

// Timeout returns the current per-exchange timeout.
func (c *Connection) Timeout() time.Duration {
	return time.Duration(c.timeout.Load())
}

// Send writes req and reads its response, including any data chunk.
//
// The exchange must complete within Timeout plus wait, where wait is the time
// the server itself may hold the reply (reserve-with-timeout). A negative
// wait removes the deadline. The context deadline applies when it is
// earlier, and cancelling ctx aborts a pending read.
//
// On a ConnectionError the connection is closed: the position in the stream
// is unknown and it cannot be used again.
func (c *Connection) Send(ctx context.Context, req *wire.Request, wait time.Duration) (*wire.Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return nil, ErrConnectionClosed
	}

	stop := c.watch(ctx, wait)
	defer stop()

	if err := wire.WriteRequest(c.writer, req); err != nil {
		return nil, c.fail(ctx, req, &wire.ConnectionError{Op: "write", Err: err})
	}

	resp, err := wire.ReadResponse(c.reader, req.Command)
	if err != nil {
		var connErr *wire.ConnectionError
		if errors.As(err, &connErr) {
			return nil, c.fail(ctx, req, connErr)
		}
		c.log.Debug("unexpected reply", zap.String("cmd", string(req.Command)), zap.Error(err))
		return nil, err
	}

	c.log.Debug("exchange", zap.String("cmd", string(req.Command)), zap.String("status", string(resp.Status)))
	return resp, nil
}

// SendNoReply writes req without reading anything back (quit).
func (c *Connection) SendNoReply(ctx context.Context, req *wire.Request) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed.Load() {
		return ErrConnectionClosed
	}

	stop := c.watch(ctx, 0)
	defer stop()

	if err := wire.WriteRequest(c.writer, req); err != nil {
		return c.fail(ctx, req, &wire.ConnectionError{Op: "write", Err: err})
	}
	return nil
}

// watch sets the exchange deadline and aborts I/O when ctx is done.
// stop returns once no abort is pending. Must be called with lock held.
func (c *Connection) watch(ctx context.Context, wait time.Duration) (stop func() bool) {
	var deadline time.Time
	if timeout := c.Timeout(); timeout > 0 && wait >= 0 {
		deadline = time.Now().Add(timeout + wait)
	}
	if ctxDeadline, ok := ctx.Deadline(); ok && (deadline.IsZero() || ctxDeadline.Before(deadline)) {
		deadline = ctxDeadline
	}
	c.conn.SetDeadline(deadline)

	aborted := make(chan struct{})
	stopAbort := context.AfterFunc(ctx, func() {
		defer close(aborted)
		c.conn.SetDeadline(aLongTimeAgo)
	})

	// An abort that already started must land before the next exchange sets
	// its own deadline.
	return func() bool {
		if stopAbort() {
			return true
		}
		<-aborted
		return false
	}
}

// fail closes the connection after a transport error (must be called with lock held)
func (c *Connection) fail(ctx context.Context, req *wire.Request, connErr *wire.ConnectionError) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		connErr.Err = ctxErr
	}

	c.log.Warn("beanstalk transport error",
		zap.String("cmd", string(req.Command)),
		zap.String("op", connErr.Op),
		zap.Int("partial", len(connErr.Partial)),
		zap.Error(connErr.Err))

	c.Close()
	return connErr
}

// Ping checks that the server answers on this connection.
// It uses list-tube-used, which has no side effect on the session.
func (c *Connection) Ping(ctx context.Context) error {
	_, err := c.Send(ctx, wire.NewRequest(wire.CmdListTubeUsed), 0)
	return err
}

// IsClosed returns whether the connection is closed
func (c *Connection) IsClosed() bool {
	return c.closed.Load()
}

// Addr returns the remote address
func (c *Connection) Addr() string {
	return c.conn.RemoteAddr().String()
}

// Close closes the connection.
// It does not wait for an exchange in progress: a blocked reserve fails with
// a ConnectionError.
func (c *Connection) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	return c.conn.Close()
}
