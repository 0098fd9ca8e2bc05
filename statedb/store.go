package statedb

import (
	"context"
	"database/sql"
)

// Store is the restricted data handle passed to Database.Transact callbacks.
// It defers beginning the underlying transaction until the first operation
// is actually issued: a callback which performs no data operations incurs no
// transaction at all. The first operation binds the Store to one envelope,
// which all further operations reuse.
//
// A Store is valid only for the duration of its Transact call. It must not
// be retained: operations issued after the call completes fail with
// ErrStoreClosed.
type Store struct {
	open   bool
	opener func(context.Context) (*txn, error)
	txn    *txn
}

func newStore(opener func(context.Context) (*txn, error)) *Store {
	return &Store{open: true, opener: opener}
}

// tx returns the bound transaction, beginning it on first use.
func (s *Store) tx(ctx context.Context) (*sql.Tx, error) {
	if !s.open {
		return nil, ErrStoreClosed
	}
	if s.txn == nil {
		var t, err = s.opener(ctx)
		if err != nil {
			return nil, err
		}
		s.txn = t
	}
	return s.txn.tx, nil
}

// Exec issues an INSERT, UPDATE, or DELETE statement within the bound
// transaction.
func (s *Store) Exec(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	var tx, err = s.tx(ctx)
	if err != nil {
		return nil, err
	}
	return tx.ExecContext(ctx, query, args...)
}

// Query issues a SELECT statement within the bound transaction.
func (s *Store) Query(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error) {
	var tx, err = s.tx(ctx)
	if err != nil {
		return nil, err
	}
	return tx.QueryContext(ctx, query, args...)
}

// QueryRow issues a SELECT statement expected to return at most one row.
func (s *Store) QueryRow(ctx context.Context, query string, args ...interface{}) (*sql.Row, error) {
	var tx, err = s.tx(ctx)
	if err != nil {
		return nil, err
	}
	return tx.QueryRowContext(ctx, query, args...), nil
}

func (s *Store) close() { s.open = false }
