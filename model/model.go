// Package model declares the descriptive entity shapes produced by decoding
// source-chain blocks: headers, extrinsics, calls, events, and runtime
// metadata. They are payload contracts consumed by Transact callbacks; the
// statedb coordinator itself is agnostic to them.
package model

import (
	"encoding/json"
	"time"
)

// BlockHeader describes one source-chain block.
type BlockHeader struct {
	ID         string
	Height     int64
	Hash       string
	ParentHash string
	Timestamp  time.Time
	SpecID     string
	Validator  string
}

// Extrinsic is a signed or unsigned transaction carried by a block.
type Extrinsic struct {
	ID           string
	BlockID      string
	IndexInBlock int
	Version      int
	Signature    json.RawMessage
	Hash         string
	Fee          int64
	Tip          int64
	Success      bool
}

// Call is one (possibly nested) runtime call of an extrinsic.
type Call struct {
	ID          string
	BlockID     string
	ExtrinsicID string
	ParentID    string
	Name        string
	Args        json.RawMessage
	Success     bool
}

// Event is a runtime event emitted while executing a block.
type Event struct {
	ID           string
	BlockID      string
	IndexInBlock int
	Phase        string
	ExtrinsicID  string
	CallID       string
	Name         string
	Args         json.RawMessage
}

// Metadata describes a runtime spec version observed on chain.
type Metadata struct {
	ID          string
	SpecName    string
	SpecVersion int
	BlockHeight int64
	BlockHash   string
	Hex         string
}
