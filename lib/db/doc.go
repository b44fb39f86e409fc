// Package db defines the storage engine contract of bronzeKV.
//
// The server only talks to storage through the Engine interface, so any
// backing store can be plugged in as long as it provides:
//   - point operations: Set (upsert), Get (absence is not an error), Delete (idempotent)
//   - range scans with inclusive, optional bounds returning a one-shot Scanner
//   - feature discovery (SupportsFeature) and metadata reporting (GetInfo)
//
// Key Components:
//
//   - Engine: The interface all storage backends implement. A single engine
//     instance is shared by every connection of the server and must be safe
//     for concurrent use.
//
//   - Scanner: A lazy, finite sequence of entries (iter.Seq2[kv.Entry, error])
//     plus a Close method. A scanner may hold locks or iterators of its
//     engine until it is closed or fully consumed.
//
//   - Feature Flags: Bit flags engines advertise through SupportsFeature,
//     e.g. FeatureDurable for engines that survive a restart.
//
// Failures of an engine are reported as errors. The server maps every engine
// error to the EngineError status. Using an engine after Close returns
// ErrClosed.
//
// Related Packages:
//
// The engines/memory package provides the concurrent in-memory reference
// engine (ordered btree guarded by a RWMutex). The engines/pebble package
// provides a persistent engine on top of cockroachdb/pebble. The engines
// package opens either one by name.
//
// The testing package (github.com/ValentinKolb/bronzeKV/lib/db/testing) provides
// the shared conformance tests and benchmarks every engine runs:
//   - RunEngineTests: Runs the conformance suite against an engine factory
//   - RunEngineBenchmarks: Provides performance benchmarks for comparing engines
package db
