// Package cmd implements the command-line interface bkv for the bronzeKV
// key-value store. It provides a hierarchical command structure with operations
// for running the server and interacting with it as a client.
//
// The package is organized into several subpackages:
//
//   - kv: Commands for key-value operations (set, get, del, scan, ping) and the perf load generator
//   - serve: Commands for starting and configuring the bronzeKV server
//   - util: Shared utilities for command-line processing and configuration (internal use)
//
// Every flag can also be set as environment variable BKV_<FLAG> (dashes become
// underscores) or in a .env / .env.local file.
//
// See bkv -help for a list of all commands.
package cmd
