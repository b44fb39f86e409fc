package client

import (
	"iter"

	"github.com/ValentinKolb/bronzeKV/lib/kv"
)

// IConnection is a single client connection to a bronzeKV server.
// Failure statuses are returned as *status.Error.
//
// Thread-safety: Not thread-safe. Use an IPool to share a server between goroutines.
type IConnection interface {

	// --------------------------------------------------------------------------
	// Key-Value Operations
	// --------------------------------------------------------------------------

	// Set stores value under key
	Set(key kv.Key, value kv.Value) error

	// Get returns the value stored under key, a missing key is reported with found == false
	Get(key kv.Key) (value kv.Value, found bool, err error)

	// Delete removes key, deleting a missing key is not an error
	Delete(key kv.Key) error

	// Scan returns the entries with lower <= key <= upper in ascending order.
	// The sequence reads lazily from the connection and can be ranged over once.
	// The next request on the connection discards whatever was not consumed.
	Scan(lower, upper kv.Bound) (iter.Seq2[kv.Entry, error], error)

	// --------------------------------------------------------------------------
	// Connection Management
	// --------------------------------------------------------------------------

	// Ping checks the server answers with OK
	Ping() error

	// NoResponse sends a one-way request the server never answers
	NoResponse() error

	// IsValid reports whether a Ping succeeds
	IsValid() bool

	// HasBroken reports whether the connection is known to be unusable. It sends
	// a NoResponse request and treats a write failure as broken.
	HasBroken() bool

	// Close closes the underlying connection
	Close() error
}

// IPool holds idle connections to a single server.
//
// Thread-safety: All methods are safe for concurrent use.
type IPool interface {
	// Get returns an idle connection or dials a new one. Idle connections that
	// have broken in the meantime are closed and skipped.
	Get() (IConnection, error)

	// Put returns a connection to the pool. It is closed instead if the pool is full or closed.
	Put(conn IConnection)

	// Close closes all idle connections. Connections that are checked out are
	// closed when they are put back.
	Close() error
}
