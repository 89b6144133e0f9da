package beanstalk

import (
	"context"
	"sync"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/pior/beanstalk/wire"
)

// PoolConfig configures a ConnectionPool.
type PoolConfig struct {
	// MaxSize caps the connections open to the server, idle or checked out.
	// Get blocks while the cap is reached.
	// Default: 4
	MaxSize int32

	// MaxConnLifetime closes idle connections older than this, dropping
	// their used tube and watch list with them.
	// Zero keeps connections forever.
	MaxConnLifetime time.Duration

	// MaxConnIdleTime closes connections unused for this long.
	// Zero keeps idle connections.
	MaxConnIdleTime time.Duration

	// HealthCheckInterval is how often idle connections are checked against
	// the limits above and pinged with list-tube-used.
	// Zero disables the check loop.
	HealthCheckInterval time.Duration

	// NewPool is the pool factory.
	// If nil, NewPuddlePool is used.
	NewPool PoolFactory

	// NewCircuitBreaker creates the circuit breaker guarding dials.
	// Nil dials without one.
	NewCircuitBreaker func(serverAddr string) *CircuitBreaker

	// replaces the dialer in tests
	constructor func(ctx context.Context) (*Connection, error)
}

// ConnectionPool keeps idle connections to one server. Clients obtained with
// Get go back to the pool with Client.KeepAlive.
//
// Connections keep their session state (used tube, watch list) across
// clients.
type ConnectionPool struct {
	addr           string
	config         Config
	poolConfig     PoolConfig
	pool           Pool
	circuitBreaker *CircuitBreaker // nil if not configured

	stopHealthCheck chan struct{}
	wg              sync.WaitGroup
	closeOnce       sync.Once
}

// ConnectionPoolStats contains stats of a ConnectionPool.
type ConnectionPoolStats struct {
	Addr                 string
	PoolStats            PoolStats
	CircuitBreakerState  gobreaker.State
	CircuitBreakerCounts gobreaker.Counts
}

// NewConnectionPool creates a pool of connections to config.Addr().
// No connection is opened until the first Get.
func NewConnectionPool(config Config, poolConfig PoolConfig) (*ConnectionPool, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	config = config.withDefaults()

	if poolConfig.MaxSize < 0 {
		return nil, &ConfigError{Field: "max_size", Message: "negative pool size"}
	}
	if poolConfig.MaxSize == 0 {
		poolConfig.MaxSize = 4
	}
	if poolConfig.NewPool == nil {
		poolConfig.NewPool = NewPuddlePool
	}

	p := &ConnectionPool{
		addr:            config.Addr(),
		config:          config,
		poolConfig:      poolConfig,
		stopHealthCheck: make(chan struct{}),
	}
	if poolConfig.NewCircuitBreaker != nil {
		p.circuitBreaker = poolConfig.NewCircuitBreaker(p.addr)
	}

	pool, err := poolConfig.NewPool(p.dial, poolConfig.MaxSize)
	if err != nil {
		return nil, err
	}
	p.pool = pool

	if poolConfig.HealthCheckInterval > 0 {
		p.wg.Add(1)
		go p.healthCheckLoop()
	}

	return p, nil
}

// Address returns the server address of the pool.
func (p *ConnectionPool) Address() string {
	return p.addr
}

// dial creates a new connection, through the circuit breaker when configured.
func (p *ConnectionPool) dial(ctx context.Context) (*Connection, error) {
	if p.circuitBreaker == nil {
		return p.dialDirect(ctx)
	}
	return p.circuitBreaker.Execute(func() (*Connection, error) {
		return p.dialDirect(ctx)
	})
}

func (p *ConnectionPool) dialDirect(ctx context.Context) (*Connection, error) {
	if p.poolConfig.constructor != nil {
		return p.poolConfig.constructor(ctx)
	}

	netConn, err := p.config.Dialer.DialContext(ctx, "tcp", p.addr)
	if err != nil {
		p.config.Logger.Warn("beanstalk dial failed", zap.String("addr", p.addr), zap.Error(err))
		return nil, &wire.ConnectionError{Op: "dial", Err: err}
	}
	return NewConnection(netConn, p.config.Timeout, p.config.Logger), nil
}

// Get returns a client on an idle connection, or on a new one.
// The client must be handed back with KeepAlive, or closed.
func (p *ConnectionPool) Get(ctx context.Context) (*Client, error) {
	res, err := p.pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	conn := res.Value()
	if conn.IsClosed() {
		res.Destroy()
		return nil, ErrConnectionClosed
	}
	conn.SetTimeout(p.config.Timeout)

	return newClient(conn, res, p.config.Logger), nil
}

// Stats returns a snapshot of the pool statistics.
func (p *ConnectionPool) Stats() ConnectionPoolStats {
	stats := ConnectionPoolStats{
		Addr:      p.addr,
		PoolStats: p.pool.Stats(),
	}
	if p.circuitBreaker != nil {
		stats.CircuitBreakerState = p.circuitBreaker.State()
		stats.CircuitBreakerCounts = p.circuitBreaker.Counts()
	}
	return stats
}

// Close stops health checks and destroys idle connections.
// With the puddle pool it waits for clients still out to be handed back or closed.
func (p *ConnectionPool) Close() error {
	var err error
	p.closeOnce.Do(func() {
		close(p.stopHealthCheck)
		p.wg.Wait()
		err = multierr.Append(err, p.pool.Close())
	})
	return err
}

// healthCheckLoop runs checkConnections every HealthCheckInterval until Close.
func (p *ConnectionPool) healthCheckLoop() {
	defer p.wg.Done()

	ticker := time.NewTicker(p.poolConfig.HealthCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopHealthCheck:
			return
		case <-ticker.C:
			p.checkConnections()
		}
	}
}

// checkConnections destroys idle connections that are stale or unhealthy.
func (p *ConnectionPool) checkConnections() {
	now := time.Now()

	for _, res := range p.pool.AcquireAllIdle() {
		if p.poolConfig.MaxConnLifetime > 0 && now.Sub(res.CreationTime()) > p.poolConfig.MaxConnLifetime {
			res.Destroy()
			continue
		}

		if p.poolConfig.MaxConnIdleTime > 0 && res.IdleDuration() > p.poolConfig.MaxConnIdleTime {
			res.Destroy()
			continue
		}

		if err := p.healthCheck(res.Value()); err != nil {
			p.config.Logger.Info("beanstalk health check failed", zap.String("addr", p.addr), zap.Error(err))
			res.Destroy()
			continue
		}

		res.ReleaseUnused()
	}
}

// healthCheck pings the connection with list-tube-used.
func (p *ConnectionPool) healthCheck(conn *Connection) error {
	ctx, cancel := context.WithTimeout(context.Background(), p.config.Timeout)
	defer cancel()

	return conn.Ping(ctx)
}
