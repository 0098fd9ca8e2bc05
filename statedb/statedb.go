// Package statedb implements a checkpointed transaction coordinator over a
// relational database. Each processed range of source-chain blocks is
// applied together with an advancement of a persistent checkpoint row, as
// one atomic transaction: after a crash and restart, a range either fully
// committed (checkpoint and writes together) or left no trace. The
// coordinator additionally retries engine-signaled serialization conflicts
// from a fresh transaction, and detects a second processor racing on the
// same checkpoint row.
package statedb

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"go.blockline.dev/core/metrics"
)

// db is the coordinator core shared by the Database and RawDatabase
// variants: connection lifecycle, the checkpoint update protocol, and the
// retrying transaction loop. The variants differ only in the transactBody
// strategy they supply to transact.
//
// A db owns a single physical connection and supports one in-flight Transact
// call at a time. Overlapping calls must be serialized by the caller.
type db struct {
	cfg           Config
	dialect       dialect
	conn          *sql.DB
	lastCommitted int64
}

// Connect establishes the database connection, ensures the checkpoint
// schema and status table exist, and returns the last committed height
// (-1 if this store has never been processed). It fails with
// ErrAlreadyConnected if invoked while connected. On any setup failure the
// partially-established connection is torn down, and the setup error is
// returned as the visible cause.
func (d *db) Connect(ctx context.Context) (int64, error) {
	if d.conn != nil {
		return -1, ErrAlreadyConnected
	}
	var conn, err = sql.Open(d.dialect.driver, d.cfg.DSN)
	if err != nil {
		return -1, errors.WithMessage(err, "open database")
	}
	if d.dialect.singleConn {
		conn.SetMaxOpenConns(1)
	}

	var height int64
	if height, err = d.setup(ctx, conn); err != nil {
		_ = conn.Close()
		return -1, err
	}
	d.conn = conn
	d.lastCommitted = height

	log.WithFields(log.Fields{"engine": d.cfg.Engine, "height": height}).
		Info("connected to state database")
	metrics.CheckpointHeight.Set(float64(height))
	return height, nil
}

// setup ensures the status table exists and reads the singleton checkpoint
// row, inserting height=-1 if absent. The read-or-init runs inside one
// SERIALIZABLE transaction so that racing processes cannot both insert.
func (d *db) setup(ctx context.Context, conn *sql.DB) (int64, error) {
	if err := conn.PingContext(ctx); err != nil {
		return -1, errors.WithMessage(err, "ping database")
	}
	var table = d.dialect.statusTable(d.cfg)

	if d.dialect.schemaNamespace {
		if _, err := conn.ExecContext(ctx,
			"CREATE SCHEMA IF NOT EXISTS "+d.cfg.StateSchema); err != nil {
			return -1, errors.WithMessage(err, "create state schema")
		}
	}
	if _, err := conn.ExecContext(ctx, fmt.Sprintf(
		"CREATE TABLE IF NOT EXISTS %s (id integer primary key, height bigint not null)",
		table)); err != nil {
		return -1, errors.WithMessage(err, "create status table")
	}

	var level = sql.LevelSerializable
	if !d.dialect.isolationLevels {
		level = sql.LevelDefault
	}
	var tx, err = conn.BeginTx(ctx, &sql.TxOptions{Isolation: level})
	if err != nil {
		return -1, errors.WithMessage(err, "begin setup transaction")
	}

	var height int64
	err = tx.QueryRowContext(ctx,
		fmt.Sprintf("SELECT height FROM %s WHERE id = 0", table)).Scan(&height)
	if err == sql.ErrNoRows {
		height = -1
		_, err = tx.ExecContext(ctx,
			fmt.Sprintf("INSERT INTO %s (id, height) VALUES (0, -1)", table))
	}
	if err != nil {
		_ = tx.Rollback()
		return -1, errors.WithMessage(err, "read status row")
	}
	if err = tx.Commit(); err != nil {
		return -1, errors.WithMessage(err, "commit setup transaction")
	}
	return height, nil
}

// Close releases the connection. It fails with ErrNotConnected if the
// database is not connected.
func (d *db) Close() error {
	if d.conn == nil {
		return ErrNotConnected
	}
	var err = d.conn.Close()
	d.conn = nil
	d.lastCommitted = -1
	return err
}

// updateHeight conditionally advances the checkpoint row within |tx|:
//
//	UPDATE status SET height = |to| WHERE id = 0 AND height < |from|
//
// For engines with reliable affected-row counts, anything other than exactly
// one affected row means a foreign process has advanced the row past |from|,
// and ErrForeignWriter is returned. Engines without reliable counts issue
// the same conditional update but skip verification.
func (d *db) updateHeight(ctx context.Context, tx *sql.Tx, from, to int64) error {
	var result, err = tx.ExecContext(ctx, fmt.Sprintf(
		"UPDATE %s SET height = $1 WHERE id = 0 AND height < $2",
		d.dialect.statusTable(d.cfg)), to, from)
	if err != nil {
		return errors.WithMessage(err, "update checkpoint height")
	}
	if !d.dialect.reliableRowCount {
		return nil
	}
	if n, err := result.RowsAffected(); err != nil {
		return errors.WithMessage(err, "rows affected of checkpoint update")
	} else if n != 1 {
		metrics.ForeignWriterTotal.Inc()
		return ErrForeignWriter
	}
	return nil
}

// opener begins a transaction envelope bound to a height range.
type opener func(context.Context) (*txn, error)

// transactBody is the strategy which runs caller logic for one Transact
// attempt. It is given an opener which begins the attempt's envelope and,
// within it, immediately advances the checkpoint — so the checkpoint write
// always orders before any caller-issued writes of the range.
type transactBody func(ctx context.Context, open opener) error

// transact runs |body| for the range [from, to], committing the envelope it
// opened (if any) on success. Serialization conflicts discard the attempt,
// envelope and all, and retry from scratch up to the retry budget.
func (d *db) transact(ctx context.Context, from, to int64, body transactBody) error {
	if d.conn == nil {
		return ErrNotConnected
	}
	return retrySerializationFailure(ctx, func(ctx context.Context) error {
		var opened *txn

		var open opener = func(ctx context.Context) (*txn, error) {
			var t, err = d.begin(ctx)
			if err != nil {
				return nil, err
			}
			if err = d.updateHeight(ctx, t.tx, from, to); err != nil {
				_ = t.rollback()
				return nil, err
			}
			opened = t
			return t, nil
		}

		if err := body(ctx, open); err != nil {
			if opened != nil {
				// Suppressed: the body error is the visible cause.
				_ = opened.rollback()
				metrics.TxRollbackTotal.Inc()
			}
			return err
		}
		if opened == nil {
			return nil // No writes were issued, and nothing commits.
		}
		if err := opened.commit(); err != nil {
			return errors.WithMessage(err, "commit transaction")
		}
		d.lastCommitted = to
		metrics.CheckpointHeight.Set(float64(to))
		metrics.TxCommittedTotal.Inc()
		return nil
	})
}

// Advance bumps the checkpoint to |height| with no payload. It is a no-op
// if |height| is the last height committed by this instance.
func (d *db) Advance(ctx context.Context, height int64) error {
	if d.lastCommitted == height {
		return nil
	}
	return d.transact(ctx, height, height, func(ctx context.Context, open opener) error {
		var _, err = open(ctx)
		return err
	})
}

// Database is the restricted coordinator variant. Transact callbacks
// receive a Store handle exposing primitive data operations, and the
// underlying transaction is begun lazily upon the first such operation.
type Database struct{ db }

// NewDatabase returns a Database over the validated Config. The Database
// must be Connect-ed before use.
func NewDatabase(cfg Config) (*Database, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Database{db: db{cfg: cfg, dialect: dialects[cfg.Engine], lastCommitted: -1}}, nil
}

// Transact applies |callback| along with a checkpoint advancement from
// |from| to |to|, as one atomic transaction. The transaction is begun only
// when |callback| issues its first data operation: a callback which writes
// nothing commits nothing, and the checkpoint does not advance. On callback
// failure any opened transaction is rolled back and the callback's error is
// returned unchanged.
func (d *Database) Transact(ctx context.Context, from, to int64, callback func(*Store) error) error {
	return d.transact(ctx, from, to, func(ctx context.Context, open opener) error {
		var store = newStore(open)
		defer store.close()
		return callback(store)
	})
}
