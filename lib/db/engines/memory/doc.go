// Package memory implements the concurrent in-memory reference engine of bronzeKV.
//
// All entries live in a single ordered btree (github.com/google/btree) keyed
// by kv.Key and guarded by one sync.RWMutex:
//
//   - Set and Delete take the write lock for the duration of the mutation.
//   - Get takes the read lock.
//   - Scan takes the read lock and keeps it until the returned scanner is
//     closed or fully consumed. Writers wait for open scans, so every scan
//     observes one consistent state of the map.
//
// Keys and values are copied on the way in and on the way out, callers never
// share memory with the engine.
//
// Nothing is persisted, all data is lost on Close. Use the pebble engine
// for durable storage.
package memory
