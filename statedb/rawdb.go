package statedb

import (
	"context"
	"database/sql"
)

// RawDatabase is the full-access coordinator variant. Transact callbacks
// receive the raw *sql.Tx with full query capability, and an envelope is
// always opened — even when the callback performs no writes. Choose it when
// caller logic needs more than the Store primitives, at the cost of a
// transaction per call.
type RawDatabase struct{ db }

// NewRawDatabase returns a RawDatabase over the validated Config. The
// RawDatabase must be Connect-ed before use.
func NewRawDatabase(cfg Config) (*RawDatabase, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &RawDatabase{db: db{cfg: cfg, dialect: dialects[cfg.Engine], lastCommitted: -1}}, nil
}

// Transact opens a transaction, advances the checkpoint from |from| to |to|
// within it, runs |callback| against it, and commits. On callback failure
// the transaction is rolled back and the callback's error is returned
// unchanged.
func (d *RawDatabase) Transact(ctx context.Context, from, to int64, callback func(*sql.Tx) error) error {
	return d.transact(ctx, from, to, func(ctx context.Context, open opener) error {
		var t, err = open(ctx)
		if err != nil {
			return err
		}
		return callback(t.tx)
	})
}
