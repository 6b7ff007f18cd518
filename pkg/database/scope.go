package database

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Querier is the subset of pgx used by repositories. It is satisfied by a
// pooled connection and by a transaction, so repository code runs unchanged
// inside InTx.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Scope holds the connection a request uses for all of its queries.
type Scope struct {
	Conn *pgxpool.Conn
	tx   pgx.Tx
}

// Close releases the connection back to the pool. Safe to call on a nil Conn.
func (s *Scope) Close() {
	if s.Conn == nil {
		return
	}
	s.Conn.Release()
	s.Conn = nil
}

// Q returns the active transaction if one is open on the scope, else the connection.
func (s *Scope) Q() Querier {
	if s.tx != nil {
		return s.tx
	}
	return s.Conn
}

// InTx runs fn inside a transaction on the scope's connection. Queries issued
// through Q() during fn join the transaction. Nested calls reuse the outer one.
func (s *Scope) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if s.tx != nil {
		return fn(ctx)
	}

	tx, err := s.Conn.Begin(ctx)
	if err != nil {
		return err
	}
	s.tx = tx
	defer func() { s.tx = nil }()

	if err := fn(ctx); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

// Acquire takes a connection from the pool for one unit of work.
// The returned Scope MUST be closed with defer scope.Close().
func (db *DB) Acquire(ctx context.Context) (*Scope, error) {
	conn, err := db.Pool.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	return &Scope{Conn: conn}, nil
}
