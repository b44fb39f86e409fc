// Package engines opens a db.Engine implementation by name.
package engines

import (
	"github.com/ValentinKolb/bronzeKV/lib/db"
	"github.com/ValentinKolb/bronzeKV/lib/db/engines/memory"
	"github.com/ValentinKolb/bronzeKV/lib/db/engines/pebbledb"
	"github.com/cockroachdb/errors"
)

// Options selects and configures an engine
type Options struct {
	Impl       db.Implementation
	DataDir    string // Only used by persistent engines
	SyncWrites bool   // Only used by persistent engines
}

// Open creates the engine named by opts.Impl
func Open(opts Options) (db.Engine, error) {
	switch opts.Impl {
	case db.ImplMemory, "":
		return memory.NewMemoryDB(nil), nil
	case db.ImplPebble:
		pebbleOpts := pebbledb.DefaultOptions(opts.DataDir)
		pebbleOpts.SyncWrites = opts.SyncWrites
		return pebbledb.NewPebbleDB(pebbleOpts)
	default:
		return nil, errors.Newf("unknown engine implementation %q, must be one of %s, %s", opts.Impl, db.ImplMemory, db.ImplPebble)
	}
}
