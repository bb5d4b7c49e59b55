package db

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	validateTimeout = 2 * time.Second
	releaseTimeout  = 5 * time.Second
)

// PoolConfig controls the size and acquire behavior of a Pool.
type PoolConfig struct {
	// InitialSize connections are dialed eagerly at construction.
	InitialSize int
	// MaxSize bounds the number of live connections (idle plus in-use).
	MaxSize int
	// AcquireTimeout is how long Acquire blocks waiting for a connection
	// before failing with ErrPoolExhausted.
	AcquireTimeout time.Duration
}

// Pool is a bounded pool of reusable backing-store connections. Acquire
// blocks with a timeout when the pool is saturated; connections are
// re-validated on both checkout and checkin and discarded when dead.
type Pool struct {
	dial Dialer
	cfg  PoolConfig
	log  zerolog.Logger

	// slots is a counting semaphore over live connections: one token is
	// held per connection that exists, so total live never exceeds MaxSize.
	slots chan struct{}
	idle  chan Conn
	done  chan struct{}

	mu     sync.Mutex
	inUse  map[Conn]struct{}
	closed bool
}

// NewPool dials cfg.InitialSize connections and returns the pool. The caller
// owns the pool's lifecycle and must call Shutdown when done.
func NewPool(ctx context.Context, dial Dialer, cfg PoolConfig, log zerolog.Logger) (*Pool, error) {
	if cfg.MaxSize < 1 {
		return nil, fmt.Errorf("pool max size must be at least 1, got %d", cfg.MaxSize)
	}
	if cfg.InitialSize > cfg.MaxSize {
		return nil, fmt.Errorf("pool initial size %d exceeds max %d", cfg.InitialSize, cfg.MaxSize)
	}
	if cfg.AcquireTimeout <= 0 {
		cfg.AcquireTimeout = 30 * time.Second
	}

	p := &Pool{
		dial:  dial,
		cfg:   cfg,
		log:   log,
		slots: make(chan struct{}, cfg.MaxSize),
		idle:  make(chan Conn, cfg.MaxSize),
		done:  make(chan struct{}),
		inUse: make(map[Conn]struct{}),
	}

	for i := 0; i < cfg.InitialSize; i++ {
		conn, err := dial(ctx)
		if err != nil {
			p.Shutdown(ctx)
			return nil, fmt.Errorf("dial initial connection %d: %w", i+1, err)
		}
		p.slots <- struct{}{}
		p.idle <- conn
	}

	log.Info().Int("initial", cfg.InitialSize).Int("max", cfg.MaxSize).Msg("connection pool initialized")
	return p, nil
}

// Acquire checks a connection out of the pool, blocking up to the configured
// timeout when all connections are busy. An idle connection that fails its
// liveness check is discarded and replaced if the pool is below its maximum;
// otherwise the caller keeps waiting for one to free up.
func (p *Pool) Acquire(ctx context.Context) (Conn, error) {
	p.mu.Lock()
	closed := p.closed
	p.mu.Unlock()
	if closed {
		return nil, ErrPoolClosed
	}

	deadline := time.NewTimer(p.cfg.AcquireTimeout)
	defer deadline.Stop()

	for {
		// Prefer an idle connection over dialing a fresh one.
		select {
		case conn := <-p.idle:
			if c, ok := p.checkout(ctx, conn); ok {
				return c, nil
			}
			continue
		default:
		}

		select {
		case conn := <-p.idle:
			if c, ok := p.checkout(ctx, conn); ok {
				return c, nil
			}
		case p.slots <- struct{}{}:
			conn, err := p.dial(ctx)
			if err != nil {
				<-p.slots
				return nil, fmt.Errorf("dial connection: %w", err)
			}
			p.markInUse(conn)
			return conn, nil
		case <-deadline.C:
			return nil, ErrPoolExhausted
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-p.done:
			return nil, ErrPoolClosed
		}
	}
}

// checkout validates an idle connection and marks it in-use. Returns false
// when the connection was dead and has been discarded.
func (p *Pool) checkout(ctx context.Context, conn Conn) (Conn, bool) {
	pingCtx, cancel := context.WithTimeout(ctx, validateTimeout)
	err := conn.Ping(pingCtx)
	cancel()
	if err != nil {
		p.log.Warn().Err(err).Msg("discarding dead connection on checkout")
		p.discard(conn)
		return nil, false
	}
	p.markInUse(conn)
	return conn, true
}

func (p *Pool) markInUse(conn Conn) {
	p.mu.Lock()
	p.inUse[conn] = struct{}{}
	p.mu.Unlock()
}

// discard closes a connection and frees its slot so a replacement can be
// dialed.
func (p *Pool) discard(conn Conn) {
	ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
	defer cancel()
	_ = conn.Close(ctx)
	<-p.slots
}

// Release returns a connection to the pool. Any transaction the holder left
// open is rolled back; a connection that fails its liveness check on the way
// back is discarded instead of recycled. Releasing a connection the pool does
// not consider in-use is a no-op.
func (p *Pool) Release(conn Conn) {
	if conn == nil {
		return
	}

	p.mu.Lock()
	if _, ok := p.inUse[conn]; !ok {
		p.mu.Unlock()
		return
	}
	delete(p.inUse, conn)
	closed := p.closed
	p.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
	defer cancel()

	if closed {
		_ = conn.Close(ctx)
		<-p.slots
		return
	}

	if err := conn.Reset(ctx); err != nil {
		p.log.Warn().Err(err).Msg("discarding connection: reset failed")
		p.discard(conn)
		return
	}
	if err := conn.Ping(ctx); err != nil {
		p.log.Warn().Err(err).Msg("discarding dead connection on checkin")
		p.discard(conn)
		return
	}

	select {
	case p.idle <- conn:
	default:
		// Cannot happen while the slot invariant holds, but never block.
		p.discard(conn)
	}
}

// Shutdown marks the pool closed and closes every connection, idle or in-use.
// Subsequent Acquire calls fail with ErrPoolClosed.
func (p *Pool) Shutdown(ctx context.Context) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.done)
	held := make([]Conn, 0, len(p.inUse))
	for conn := range p.inUse {
		held = append(held, conn)
	}
	p.inUse = make(map[Conn]struct{})
	p.mu.Unlock()

	for _, conn := range held {
		_ = conn.Close(ctx)
		<-p.slots
	}
	for {
		select {
		case conn := <-p.idle:
			_ = conn.Close(ctx)
			<-p.slots
		default:
			p.log.Info().Msg("connection pool shutdown complete")
			return
		}
	}
}

// Stats reports the pool's current occupancy.
func (p *Pool) Stats() (idle, inUse int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.idle), len(p.inUse)
}

// MaxSize reports the configured ceiling on live connections.
func (p *Pool) MaxSize() int {
	return p.cfg.MaxSize
}

// WithConn acquires a connection, runs fn with it, and releases it on every
// exit path.
func WithConn(ctx context.Context, p *Pool, fn func(Conn) error) error {
	conn, err := p.Acquire(ctx)
	if err != nil {
		return err
	}
	defer p.Release(conn)
	return fn(conn)
}
