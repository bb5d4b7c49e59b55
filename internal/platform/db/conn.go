package db

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Conn is a single backing-store connection owned by the Pool. It is the
// query surface handed to record stores; *pgx.Conn satisfies it through the
// pgxConn adapter below.
type Conn interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Begin(ctx context.Context) (pgx.Tx, error)

	// Ping reports whether the connection is still live.
	Ping(ctx context.Context) error
	// Reset rolls back any transaction left open by the previous holder so
	// the connection can be recycled.
	Reset(ctx context.Context) error
	Close(ctx context.Context) error
}

// Dialer creates a new backing-store connection. The pool calls it during
// construction and whenever a discarded connection needs replacing.
type Dialer func(ctx context.Context) (Conn, error)

// PgxDialer returns a Dialer that opens individual pgx connections against
// the given database URL.
func PgxDialer(databaseURL string) Dialer {
	return func(ctx context.Context) (Conn, error) {
		c, err := pgx.Connect(ctx, databaseURL)
		if err != nil {
			return nil, err
		}
		return &pgxConn{c}, nil
	}
}

type pgxConn struct {
	*pgx.Conn
}

func (c *pgxConn) Reset(ctx context.Context) error {
	// TxStatus 'I' means idle outside a transaction; anything else is an
	// open or failed transaction that must not leak to the next holder.
	if status := c.Conn.PgConn().TxStatus(); status != 'I' {
		_, err := c.Conn.Exec(ctx, "ROLLBACK")
		return err
	}
	return nil
}
