package db

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
)

// -- Fake connections --

type fakeConn struct {
	mu      sync.Mutex
	pingErr error
	resetEr error
	closed  bool
	resets  int
	inTx    bool
}

func (c *fakeConn) Query(_ context.Context, _ string, _ ...interface{}) (pgx.Rows, error) {
	return nil, nil
}

func (c *fakeConn) QueryRow(_ context.Context, _ string, _ ...interface{}) pgx.Row {
	return nil
}

func (c *fakeConn) Exec(_ context.Context, _ string, _ ...interface{}) (pgconn.CommandTag, error) {
	return pgconn.CommandTag{}, nil
}

func (c *fakeConn) Begin(_ context.Context) (pgx.Tx, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inTx = true
	return nil, nil
}

func (c *fakeConn) Ping(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pingErr
}

func (c *fakeConn) Reset(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.resets++
	if c.resetEr != nil {
		return c.resetEr
	}
	c.inTx = false
	return nil
}

func (c *fakeConn) Close(_ context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func (c *fakeConn) failPing(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pingErr = err
}

type fakeDialer struct {
	mu    sync.Mutex
	conns []*fakeConn
	err   error
}

func (d *fakeDialer) dial(_ context.Context) (Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	c := &fakeConn{}
	d.conns = append(d.conns, c)
	return c, nil
}

func (d *fakeDialer) dialed() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.conns)
}

func (d *fakeDialer) live() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := 0
	for _, c := range d.conns {
		if !c.isClosed() {
			n++
		}
	}
	return n
}

func newTestPool(t *testing.T, cfg PoolConfig) (*Pool, *fakeDialer) {
	t.Helper()
	d := &fakeDialer{}
	p, err := NewPool(context.Background(), d.dial, cfg, zerolog.Nop())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	t.Cleanup(func() { p.Shutdown(context.Background()) })
	return p, d
}

// -- Tests --

func TestAcquireRelease(t *testing.T) {
	p, d := newTestPool(t, PoolConfig{InitialSize: 2, MaxSize: 4, AcquireTimeout: time.Second})

	conn, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.dialed() != 2 {
		t.Errorf("expected 2 initial dials, got %d", d.dialed())
	}

	idle, inUse := p.Stats()
	if idle != 1 || inUse != 1 {
		t.Errorf("expected 1 idle / 1 in-use, got %d / %d", idle, inUse)
	}

	p.Release(conn)
	idle, inUse = p.Stats()
	if idle != 2 || inUse != 0 {
		t.Errorf("expected 2 idle / 0 in-use after release, got %d / %d", idle, inUse)
	}
}

func TestAcquireDialsUpToMax(t *testing.T) {
	p, d := newTestPool(t, PoolConfig{InitialSize: 1, MaxSize: 3, AcquireTimeout: time.Second})

	var conns []Conn
	for i := 0; i < 3; i++ {
		conn, err := p.Acquire(context.Background())
		if err != nil {
			t.Fatalf("acquire %d: %v", i, err)
		}
		conns = append(conns, conn)
	}
	if d.dialed() != 3 {
		t.Errorf("expected 3 dials total, got %d", d.dialed())
	}
	for _, c := range conns {
		p.Release(c)
	}
}

func TestAcquireTimesOutWhenExhausted(t *testing.T) {
	p, _ := newTestPool(t, PoolConfig{InitialSize: 1, MaxSize: 1, AcquireTimeout: 50 * time.Millisecond})

	conn, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer p.Release(conn)

	_, err = p.Acquire(context.Background())
	if !errors.Is(err, ErrPoolExhausted) {
		t.Fatalf("expected ErrPoolExhausted, got %v", err)
	}
}

func TestAcquireUnblocksOnRelease(t *testing.T) {
	p, _ := newTestPool(t, PoolConfig{InitialSize: 1, MaxSize: 1, AcquireTimeout: 2 * time.Second})

	conn, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := make(chan error, 1)
	go func() {
		c, err := p.Acquire(context.Background())
		if err == nil {
			p.Release(c)
		}
		got <- err
	}()

	time.Sleep(20 * time.Millisecond)
	p.Release(conn)

	if err := <-got; err != nil {
		t.Fatalf("waiter should have acquired after release, got %v", err)
	}
}

func TestPoolNeverExceedsMax(t *testing.T) {
	const max = 3
	p, d := newTestPool(t, PoolConfig{InitialSize: 1, MaxSize: max, AcquireTimeout: 2 * time.Second})

	var current, peak int64
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			conn, err := p.Acquire(context.Background())
			if err != nil {
				t.Errorf("acquire: %v", err)
				return
			}
			n := atomic.AddInt64(&current, 1)
			for {
				old := atomic.LoadInt64(&peak)
				if n <= old || atomic.CompareAndSwapInt64(&peak, old, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			atomic.AddInt64(&current, -1)
			p.Release(conn)
		}()
	}
	wg.Wait()

	if peak > max {
		t.Errorf("observed %d concurrent checkouts, max is %d", peak, max)
	}
	if d.live() > max {
		t.Errorf("dialer reports %d live connections, max is %d", d.live(), max)
	}
}

func TestDeadConnectionDiscardedOnCheckout(t *testing.T) {
	p, d := newTestPool(t, PoolConfig{InitialSize: 1, MaxSize: 2, AcquireTimeout: time.Second})

	dead := d.conns[0]
	dead.failPing(errors.New("server closed the connection"))

	conn, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer p.Release(conn)

	if !dead.isClosed() {
		t.Error("expected dead connection to be closed")
	}
	if conn == Conn(dead) {
		t.Error("dead connection was handed out again")
	}
	if d.dialed() != 2 {
		t.Errorf("expected a replacement dial, got %d dials", d.dialed())
	}
}

func TestDeadConnectionDiscardedOnCheckin(t *testing.T) {
	p, d := newTestPool(t, PoolConfig{InitialSize: 1, MaxSize: 2, AcquireTimeout: time.Second})

	conn, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	fc := conn.(*fakeConn)
	fc.failPing(errors.New("connection reset by peer"))
	p.Release(conn)

	if !fc.isClosed() {
		t.Error("expected invalid connection to be closed on release")
	}
	idle, _ := p.Stats()
	if idle != 0 {
		t.Errorf("release of an invalid connection must not grow the available set, got %d idle", idle)
	}

	// The freed slot allows a fresh connection in its place.
	replacement, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer p.Release(replacement)
	if d.dialed() != 2 {
		t.Errorf("expected replacement dial, got %d dials", d.dialed())
	}
}

func TestReleaseRollsBackOpenTransaction(t *testing.T) {
	p, _ := newTestPool(t, PoolConfig{InitialSize: 1, MaxSize: 1, AcquireTimeout: time.Second})

	conn, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	fc := conn.(*fakeConn)
	fc.Begin(context.Background())
	p.Release(conn)

	fc.mu.Lock()
	defer fc.mu.Unlock()
	if fc.resets == 0 {
		t.Error("expected Reset to be called on release")
	}
	if fc.inTx {
		t.Error("expected open transaction to be rolled back")
	}
}

func TestReleaseOfForeignConnectionIgnored(t *testing.T) {
	p, _ := newTestPool(t, PoolConfig{InitialSize: 1, MaxSize: 1, AcquireTimeout: time.Second})

	stray := &fakeConn{}
	p.Release(stray)

	idle, inUse := p.Stats()
	if idle != 1 || inUse != 0 {
		t.Errorf("foreign release changed pool state: %d idle / %d in-use", idle, inUse)
	}
}

func TestShutdownClosesEverything(t *testing.T) {
	p, d := newTestPool(t, PoolConfig{InitialSize: 2, MaxSize: 4, AcquireTimeout: time.Second})

	conn, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_ = conn

	p.Shutdown(context.Background())

	for i, c := range d.conns {
		if !c.isClosed() {
			t.Errorf("connection %d left open after shutdown", i)
		}
	}

	if _, err := p.Acquire(context.Background()); !errors.Is(err, ErrPoolClosed) {
		t.Fatalf("expected ErrPoolClosed after shutdown, got %v", err)
	}
}

func TestShutdownFailsWaiters(t *testing.T) {
	p, _ := newTestPool(t, PoolConfig{InitialSize: 1, MaxSize: 1, AcquireTimeout: 5 * time.Second})

	conn, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_ = conn

	got := make(chan error, 1)
	go func() {
		_, err := p.Acquire(context.Background())
		got <- err
	}()

	time.Sleep(20 * time.Millisecond)
	p.Shutdown(context.Background())

	if err := <-got; !errors.Is(err, ErrPoolClosed) {
		t.Fatalf("expected waiter to fail with ErrPoolClosed, got %v", err)
	}
}

func TestAcquireHonorsContextCancel(t *testing.T) {
	p, _ := newTestPool(t, PoolConfig{InitialSize: 1, MaxSize: 1, AcquireTimeout: 5 * time.Second})

	conn, err := p.Acquire(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer p.Release(conn)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := p.Acquire(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected context deadline error, got %v", err)
	}
}
