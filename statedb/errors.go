package statedb

import "github.com/pkg/errors"

var (
	// ErrAlreadyConnected is returned by Connect of an already-connected
	// Database.
	ErrAlreadyConnected = errors.New("database is already connected")
	// ErrNotConnected is returned by transactional operations attempted
	// before Connect, or after Close.
	ErrNotConnected = errors.New("database is not connected")
	// ErrForeignWriter is returned when the conditional checkpoint update
	// affected an unexpected number of rows, indicating another process is
	// concurrently advancing the same status row.
	ErrForeignWriter = errors.New("status table was updated by foreign process, make sure no other processor is running")
	// ErrStoreClosed is returned by Store operations issued after the
	// enclosing Transact call has completed.
	ErrStoreClosed = errors.New("store is closed: its Transact call has completed")
)
