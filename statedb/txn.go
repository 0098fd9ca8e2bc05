package statedb

import (
	"context"
	"database/sql"

	"github.com/pkg/errors"
)

type txnState int

const (
	txnActive txnState = iota
	txnCommitted
	txnRolledBack
)

// txn is a single-use transaction envelope. It is owned by exactly one
// Transact attempt, and transitions once from active to committed or
// rolledBack. Transitions out of a terminal state panic: the coordinator
// invokes exactly one of commit or rollback per envelope.
type txn struct {
	tx    *sql.Tx
	state txnState
}

// begin opens an envelope at the configured isolation level, or at the
// engine default where the engine doesn't honor isolation options.
func (d *db) begin(ctx context.Context) (*txn, error) {
	if d.conn == nil {
		return nil, ErrNotConnected
	}
	var level = d.cfg.isolation()
	if !d.dialect.isolationLevels {
		level = sql.LevelDefault
	}
	var tx, err = d.conn.BeginTx(ctx, &sql.TxOptions{Isolation: level})
	if err != nil {
		return nil, errors.WithMessage(err, "begin transaction")
	}
	return &txn{tx: tx}, nil
}

func (t *txn) commit() error {
	if t.state != txnActive {
		panic("commit of a finalized transaction envelope")
	}
	t.state = txnCommitted
	return t.tx.Commit()
}

func (t *txn) rollback() error {
	if t.state != txnActive {
		panic("rollback of a finalized transaction envelope")
	}
	t.state = txnRolledBack
	return t.tx.Rollback()
}
