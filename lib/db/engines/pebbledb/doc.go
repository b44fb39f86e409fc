// Package pebbledb implements a persistent bronzeKV engine on top of
// github.com/cockroachdb/pebble.
//
// Keys are stored as-is, so pebble's default bytewise comparer yields the same
// ascending order as the in-memory engine. Scans read from the implicit
// snapshot of a pebble iterator and never observe writes issued after the
// scan started. Inclusive upper bounds are translated to pebble's exclusive
// bound by appending a zero byte.
//
// Writes are not fsynced by default (pebble.NoSync). Set DBOptions.SyncWrites
// to make every write durable before it is acknowledged.
package pebbledb
