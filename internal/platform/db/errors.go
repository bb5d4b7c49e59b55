package db

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrPoolClosed is returned by Acquire after Shutdown.
	ErrPoolClosed = errors.New("connection pool is closed")
	// ErrPoolExhausted is returned when no connection becomes available
	// within the acquire timeout.
	ErrPoolExhausted = errors.New("connection pool exhausted")
	// ErrNotFound is returned by stores when no row matches the given id.
	ErrNotFound = errors.New("record not found")
)

// DuplicateEntryError reports a violated uniqueness precondition, naming the
// logical field that collided and the offending value so callers can render a
// field-specific message.
type DuplicateEntryError struct {
	Field string
	Value string
}

func (e *DuplicateEntryError) Error() string {
	return fmt.Sprintf("duplicate entry for %s: %q already exists", e.Field, e.Value)
}

// IsDuplicate reports whether err carries a DuplicateEntryError.
func IsDuplicate(err error) bool {
	var dup *DuplicateEntryError
	return errors.As(err, &dup)
}

// UniqueViolation returns the violated constraint name when err is a Postgres
// unique-constraint violation (SQLSTATE 23505). Stores use it as the second
// line of defense behind their application-level pre-checks, covering the
// race between the pre-check and the insert.
func UniqueViolation(err error) (constraint string, ok bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return pgErr.ConstraintName, true
	}
	return "", false
}

// NoRows reports whether err is the driver's empty-result sentinel.
func NoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}
