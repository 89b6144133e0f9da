package beanstalk

import (
	"context"
	"net"
	"strconv"
	"sync/atomic"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/pior/beanstalk/wire"
)

// Client issues beanstalk commands over a single connection.
//
// A Client performs one exchange at a time; concurrent calls are serialized.
// It never retries and never reconnects: after a transport error every call
// returns ErrConnectionClosed.
type Client struct {
	conn atomic.Pointer[Connection]
	res  Resource // set when obtained from a ConnectionPool
	log  *zap.Logger

	stats clientStatsCollector
}

// Dial connects to the server described by config.
// An invalid config returns a *ConfigError without dialing.
func Dial(ctx context.Context, config Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	config = config.withDefaults()

	netConn, err := config.Dialer.DialContext(ctx, "tcp", config.Addr())
	if err != nil {
		config.Logger.Warn("beanstalk dial failed", zap.String("addr", config.Addr()), zap.Error(err))
		return nil, &wire.ConnectionError{Op: "dial", Err: err}
	}

	return newClient(NewConnection(netConn, config.Timeout, config.Logger), nil, config.Logger), nil
}

// NewClient wraps an established connection, for instance a TLS connection
// or one end of a net.Pipe. Host and Port of config are not used.
func NewClient(conn net.Conn, config Config) (*Client, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	config = config.withDefaults()

	return newClient(NewConnection(conn, config.Timeout, config.Logger), nil, config.Logger), nil
}

func newClient(conn *Connection, res Resource, log *zap.Logger) *Client {
	c := &Client{res: res, log: log}
	c.conn.Store(conn)
	return c
}

// SetTimeout changes the timeout applied to each following exchange.
func (c *Client) SetTimeout(timeout time.Duration) {
	if conn := c.conn.Load(); conn != nil {
		conn.SetTimeout(timeout)
	}
}

// Counters returns a snapshot of the client counters.
func (c *Client) Counters() ClientStats {
	return c.stats.snapshot()
}

// exec performs one exchange and records its outcome.
func (c *Client) exec(ctx context.Context, req *wire.Request, wait time.Duration) (*wire.Response, error) {
	conn := c.conn.Load()
	if conn == nil {
		c.stats.recordError(ErrConnectionClosed)
		return nil, ErrConnectionClosed
	}

	resp, err := conn.Send(ctx, req, wait)
	if err != nil {
		c.stats.recordError(err)
		return nil, err
	}

	c.stats.recordCommand(req.Command)
	return resp, nil
}

// execTube validates the tube name before sending req.
func (c *Client) execTube(ctx context.Context, tube string, req *wire.Request) (*wire.Response, error) {
	if err := wire.ValidateName(tube); err != nil {
		return nil, err
	}
	return c.exec(ctx, req, 0)
}

// Put inserts a job into the used tube and returns its id.
// buried is true when the server could not grow its priority queue and buried
// the job on insert.
func (c *Client) Put(ctx context.Context, body []byte, pri uint32, delay, ttr time.Duration) (id uint64, buried bool, err error) {
	resp, err := c.exec(ctx, wire.NewPutRequest(body, pri, delay, ttr), 0)
	if err != nil {
		return 0, false, err
	}
	return resp.ID, resp.Status == wire.StatusBuried, nil
}

// Use selects the tube that following puts go to.
// The tube echoed by the server must be the requested one.
func (c *Client) Use(ctx context.Context, tube string) (string, error) {
	resp, err := c.execTube(ctx, tube, wire.NewTubeRequest(wire.CmdUse, tube))
	if err != nil {
		return "", err
	}

	if resp.Tube != tube {
		err := &wire.MismatchError{
			Command:  wire.CmdUse,
			Expected: []wire.Status{wire.StatusUsing},
			Line:     resp.Line,
		}
		c.stats.recordError(err)
		return "", err
	}
	return resp.Tube, nil
}

// Reserve waits for a job on the watched tubes. It blocks until a job is
// ready or ctx is done; no I/O timeout applies.
func (c *Client) Reserve(ctx context.Context) (Job, error) {
	resp, err := c.exec(ctx, wire.NewRequest(wire.CmdReserve), NoWait)
	if err != nil {
		return Job{}, err
	}
	return jobFromResponse(resp), nil
}

// ReserveWithTimeout waits up to timeout for a job. When none arrives the
// server answers TIMED_OUT, returned as a *wire.MismatchError.
func (c *Client) ReserveWithTimeout(ctx context.Context, timeout time.Duration) (Job, error) {
	wait := max(timeout, 0)
	resp, err := c.exec(ctx, wire.NewReserveWithTimeoutRequest(timeout), wait)
	if err != nil {
		return Job{}, err
	}
	return jobFromResponse(resp), nil
}

func (c *Client) Delete(ctx context.Context, id uint64) error {
	_, err := c.exec(ctx, wire.NewJobRequest(wire.CmdDelete, id), 0)
	return err
}

// Release puts a reserved job back in the ready queue, or the delayed queue
// when delay is positive.
func (c *Client) Release(ctx context.Context, id uint64, pri uint32, delay time.Duration) error {
	_, err := c.exec(ctx, wire.NewReleaseRequest(id, pri, delay), 0)
	return err
}

func (c *Client) Bury(ctx context.Context, id uint64, pri uint32) error {
	_, err := c.exec(ctx, wire.NewBuryRequest(id, pri), 0)
	return err
}

// Touch asks for more time to work on a reserved job.
func (c *Client) Touch(ctx context.Context, id uint64) error {
	_, err := c.exec(ctx, wire.NewJobRequest(wire.CmdTouch, id), 0)
	return err
}

// Watch adds tube to the watch list and returns the number of watched tubes.
func (c *Client) Watch(ctx context.Context, tube string) (int, error) {
	resp, err := c.execTube(ctx, tube, wire.NewTubeRequest(wire.CmdWatch, tube))
	if err != nil {
		return 0, err
	}
	return int(resp.Count), nil
}

// Ignore removes tube from the watch list and returns the number of watched
// tubes. Ignoring the last watched tube fails with NOT_IGNORED.
func (c *Client) Ignore(ctx context.Context, tube string) (int, error) {
	resp, err := c.execTube(ctx, tube, wire.NewTubeRequest(wire.CmdIgnore, tube))
	if err != nil {
		return 0, err
	}
	return int(resp.Count), nil
}

// Peek returns the job with the given id, whatever its state.
func (c *Client) Peek(ctx context.Context, id uint64) (Job, error) {
	return c.peek(ctx, wire.NewJobRequest(wire.CmdPeek, id))
}

// PeekReady returns the next ready job of the used tube.
func (c *Client) PeekReady(ctx context.Context) (Job, error) {
	return c.PeekState(ctx, StateReady)
}

// PeekDelayed returns the delayed job of the used tube with the shortest delay left.
func (c *Client) PeekDelayed(ctx context.Context) (Job, error) {
	return c.PeekState(ctx, StateDelayed)
}

// PeekBuried returns the next buried job of the used tube.
func (c *Client) PeekBuried(ctx context.Context) (Job, error) {
	return c.PeekState(ctx, StateBuried)
}

func (c *Client) PeekState(ctx context.Context, state JobState) (Job, error) {
	cmd, err := state.peekCommand()
	if err != nil {
		return Job{}, err
	}
	return c.peek(ctx, wire.NewRequest(cmd))
}

// PeekArg peeks by a job id in decimal, or by one of the states "ready",
// "delayed" and "buried". Any other argument is rejected before sending.
func (c *Client) PeekArg(ctx context.Context, arg string) (Job, error) {
	if id, err := strconv.ParseUint(arg, 10, 64); err == nil {
		return c.Peek(ctx, id)
	}
	return c.PeekState(ctx, JobState(arg))
}

func (c *Client) peek(ctx context.Context, req *wire.Request) (Job, error) {
	resp, err := c.exec(ctx, req, 0)
	if err != nil {
		return Job{}, err
	}
	return jobFromResponse(resp), nil
}

// Kick moves up to bound jobs of the used tube to the ready queue: buried
// jobs if there are any, delayed jobs otherwise. It returns the number of
// jobs kicked.
func (c *Client) Kick(ctx context.Context, bound int) (int, error) {
	resp, err := c.exec(ctx, wire.NewKickRequest(bound), 0)
	if err != nil {
		return 0, err
	}
	return int(resp.Count), nil
}

// KickJob moves a single buried or delayed job to the ready queue.
func (c *Client) KickJob(ctx context.Context, id uint64) error {
	_, err := c.exec(ctx, wire.NewJobRequest(wire.CmdKickJob, id), 0)
	return err
}

// Stats returns the server statistics as a raw YAML document.
func (c *Client) Stats(ctx context.Context) ([]byte, error) {
	return c.data(ctx, wire.NewRequest(wire.CmdStats))
}

// StatsJob returns the statistics of a job as a raw YAML document.
func (c *Client) StatsJob(ctx context.Context, id uint64) ([]byte, error) {
	return c.data(ctx, wire.NewJobRequest(wire.CmdStatsJob, id))
}

// StatsTube returns the statistics of a tube as a raw YAML document.
func (c *Client) StatsTube(ctx context.Context, tube string) ([]byte, error) {
	if err := wire.ValidateName(tube); err != nil {
		return nil, err
	}
	return c.data(ctx, wire.NewTubeRequest(wire.CmdStatsTube, tube))
}

// ListTubes returns the existing tubes as a raw YAML list.
func (c *Client) ListTubes(ctx context.Context) ([]byte, error) {
	return c.data(ctx, wire.NewRequest(wire.CmdListTubes))
}

// ListTubesWatched returns the watched tubes as a raw YAML list.
func (c *Client) ListTubesWatched(ctx context.Context) ([]byte, error) {
	return c.data(ctx, wire.NewRequest(wire.CmdListTubesWatched))
}

func (c *Client) data(ctx context.Context, req *wire.Request) ([]byte, error) {
	resp, err := c.exec(ctx, req, 0)
	if err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// ListTubeUsed returns the tube that puts go to.
func (c *Client) ListTubeUsed(ctx context.Context) (string, error) {
	resp, err := c.exec(ctx, wire.NewRequest(wire.CmdListTubeUsed), 0)
	if err != nil {
		return "", err
	}
	return resp.Tube, nil
}

// PauseTube delays any new job reservation in tube for delay.
func (c *Client) PauseTube(ctx context.Context, tube string, delay time.Duration) error {
	_, err := c.execTube(ctx, tube, wire.NewPauseTubeRequest(tube, delay))
	return err
}

// Quit sends quit and closes the connection. No reply is read.
func (c *Client) Quit() error {
	conn := c.conn.Load()
	if conn == nil {
		return ErrConnectionClosed
	}

	ctx, cancel := context.WithTimeout(context.Background(), max(conn.Timeout(), time.Second))
	defer cancel()

	err := conn.SendNoReply(ctx, wire.NewRequest(wire.CmdQuit))
	return multierr.Append(err, c.Close())
}

// Close closes the connection. A pooled connection is destroyed, not
// returned to its pool.
func (c *Client) Close() error {
	conn := c.conn.Swap(nil)
	if conn == nil {
		return nil
	}
	if c.res != nil {
		c.res.Destroy()
		return nil
	}
	return conn.Close()
}

// KeepAlive hands the connection back to the ConnectionPool it came from.
// The client is unusable afterwards. A connection broken by a transport error
// is destroyed instead of being returned.
//
// The session state (used tube, watch list) stays with the connection.
func (c *Client) KeepAlive() error {
	if c.res == nil {
		return ErrNotPooled
	}

	conn := c.conn.Swap(nil)
	if conn == nil {
		return ErrConnectionClosed
	}

	if conn.IsClosed() {
		c.res.Destroy()
		return ErrConnectionClosed
	}
	c.res.Release()
	return nil
}
