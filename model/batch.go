package model

import (
	"context"

	"github.com/pkg/errors"

	"go.blockline.dev/core/statedb"
)

// Schema holds the DDL of the entity tables, applied out-of-band of the
// coordinator (schema migration is not a coordinator concern). Statements
// are portable across the supported engines.
var Schema = []string{
	`CREATE TABLE IF NOT EXISTS block (
		id          text PRIMARY KEY,
		height      bigint NOT NULL,
		hash        text NOT NULL,
		parent_hash text NOT NULL,
		timestamp   timestamp NOT NULL,
		spec_id     text NOT NULL,
		validator   text
	)`,
	`CREATE TABLE IF NOT EXISTS extrinsic (
		id             text PRIMARY KEY,
		block_id       text NOT NULL,
		index_in_block integer NOT NULL,
		version        integer NOT NULL,
		signature      text,
		hash           text NOT NULL,
		fee            bigint NOT NULL,
		tip            bigint NOT NULL,
		success        boolean NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS call (
		id           text PRIMARY KEY,
		block_id     text NOT NULL,
		extrinsic_id text NOT NULL,
		parent_id    text,
		name         text NOT NULL,
		args         text,
		success      boolean NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS event (
		id             text PRIMARY KEY,
		block_id       text NOT NULL,
		index_in_block integer NOT NULL,
		phase          text NOT NULL,
		extrinsic_id   text,
		call_id        text,
		name           text NOT NULL,
		args           text
	)`,
	`CREATE TABLE IF NOT EXISTS metadata (
		id           text PRIMARY KEY,
		spec_name    text NOT NULL,
		spec_version integer NOT NULL,
		block_height bigint NOT NULL,
		block_hash   text NOT NULL,
		hex          text NOT NULL
	)`,
}

// Batch is a contiguous run of decoded blocks together with their derived
// entities, to be applied as one checkpointed transaction.
type Batch struct {
	Blocks     []BlockHeader
	Extrinsics []Extrinsic
	Calls      []Call
	Events     []Event
}

// Insert writes the Batch through the restricted store handle, row by row.
// An empty Batch issues no operations, and so begins no transaction.
func (b *Batch) Insert(ctx context.Context, s *statedb.Store) error {
	for i := range b.Blocks {
		var blk = &b.Blocks[i]
		if _, err := s.Exec(ctx,
			`INSERT INTO block (id, height, hash, parent_hash, timestamp, spec_id, validator)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			blk.ID, blk.Height, blk.Hash, blk.ParentHash, blk.Timestamp, blk.SpecID, blk.Validator,
		); err != nil {
			return errors.WithMessagef(err, "insert block %s", blk.ID)
		}
	}
	for i := range b.Extrinsics {
		var ex = &b.Extrinsics[i]
		if _, err := s.Exec(ctx,
			`INSERT INTO extrinsic (id, block_id, index_in_block, version, signature, hash, fee, tip, success)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			ex.ID, ex.BlockID, ex.IndexInBlock, ex.Version, string(ex.Signature), ex.Hash, ex.Fee, ex.Tip, ex.Success,
		); err != nil {
			return errors.WithMessagef(err, "insert extrinsic %s", ex.ID)
		}
	}
	for i := range b.Calls {
		var c = &b.Calls[i]
		if _, err := s.Exec(ctx,
			`INSERT INTO call (id, block_id, extrinsic_id, parent_id, name, args, success)
			 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			c.ID, c.BlockID, c.ExtrinsicID, c.ParentID, c.Name, string(c.Args), c.Success,
		); err != nil {
			return errors.WithMessagef(err, "insert call %s", c.ID)
		}
	}
	for i := range b.Events {
		var ev = &b.Events[i]
		if _, err := s.Exec(ctx,
			`INSERT INTO event (id, block_id, index_in_block, phase, extrinsic_id, call_id, name, args)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			ev.ID, ev.BlockID, ev.IndexInBlock, ev.Phase, ev.ExtrinsicID, ev.CallID, ev.Name, string(ev.Args),
		); err != nil {
			return errors.WithMessagef(err, "insert event %s", ev.ID)
		}
	}
	return nil
}
