package db

import (
	"iter"

	"github.com/ValentinKolb/bronzeKV/lib/kv"
	"github.com/cockroachdb/errors"
)

// ErrClosed is returned by every operation on an engine after Close.
var ErrClosed = errors.New("db: engine is closed")

// --------------------------------------------------------------------------
// Helper Types
// --------------------------------------------------------------------------

type Implementation string

const (
	ImplMemory Implementation = "memory"
	ImplPebble Implementation = "pebble"
)

// Feature represents engine features as bit flags
type Feature uint64

const (
	FeatureSet     Feature = 1 << iota // Support for Set operations
	FeatureGet                         // Support for Get operations
	FeatureDelete                      // Support for Delete operations
	FeatureScan                        // Support for Scan operations
	FeatureDurable                     // Data survives a restart of the process
	FeatureSnapshot                    // A scan observes no concurrent writes
)

func (f Feature) String() string {
	switch f {
	case FeatureSet:
		return "Set"
	case FeatureGet:
		return "Get"
	case FeatureDelete:
		return "Delete"
	case FeatureScan:
		return "Scan"
	case FeatureDurable:
		return "Durable"
	case FeatureSnapshot:
		return "Snapshot"
	default:
		return "Unknown"
	}
}

// AllFeatures lists every single feature flag, in declaration order
var AllFeatures = []Feature{FeatureSet, FeatureGet, FeatureDelete, FeatureScan, FeatureDurable, FeatureSnapshot}

// SupportedFeatures expands the feature set of an engine into a list
func SupportedFeatures(e Engine) []Feature {
	var features []Feature
	for _, f := range AllFeatures {
		if e.SupportsFeature(f) {
			features = append(features, f)
		}
	}
	return features
}

type DatabaseInfo struct {
	Keys              int            `json:"keys"`
	SizeBytes         int            `json:"size_bytes"`
	DbType            Implementation `json:"db_type"`
	SupportedFeatures []Feature      `json:"supported_features"`
	Metadata          interface{}    `json:"metadata"`
}

// --------------------------------------------------------------------------
// Engine Interface
// --------------------------------------------------------------------------

// Engine is the contract every storage backend of the server satisfies.
// A single Engine is shared by all connections, so every method must be
// safe for concurrent use.
//
// Keys and values passed in are copied by the engine. Keys and values
// returned are owned by the caller.
type Engine interface {

	// --------------------------------------------------------------------------
	// Write Operations
	// --------------------------------------------------------------------------

	// Set inserts or overwrites the value stored under key.
	// Setting the same pair twice is equivalent to setting it once.
	Set(key kv.Key, value kv.Value) error

	// Delete removes key. Deleting an absent key is a no-op and not an error.
	Delete(key kv.Key) error

	// --------------------------------------------------------------------------
	// Query Operations
	// --------------------------------------------------------------------------

	// Get returns the value stored under key.
	// Absence is reported with found == false, not with an error.
	Get(key kv.Key) (value kv.Value, found bool, err error)

	// Scan returns a one-shot handle over all entries with lower <= key <= upper.
	// Both bounds are inclusive and only apply when set.
	Scan(lower, upper kv.Bound) (Scanner, error)

	// --------------------------------------------------------------------------
	// Feature Support
	// --------------------------------------------------------------------------

	// SupportsFeature checks if the engine supports the specified feature.
	// Multiple features can be checked at once using bitwise OR (|) operator.
	SupportsFeature(feature Feature) (ok bool)

	// GetInfo returns information about the engine.
	GetInfo() (info DatabaseInfo)

	// Close releases all resources. Every call after Close fails with ErrClosed.
	Close() (err error)
}

// Scanner is the result of Engine.Scan.
//
// Entries can be ranged over once. Iteration order is fixed for the lifetime
// of the scanner (both bundled engines iterate in ascending key order).
// Close releases everything the scanner holds. It is idempotent and runs
// automatically once iteration ends, including an early break.
type Scanner interface {
	Entries() iter.Seq2[kv.Entry, error]
	Close() error
}
