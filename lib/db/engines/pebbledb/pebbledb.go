package pebbledb

import (
	"iter"
	"sync"

	"github.com/ValentinKolb/bronzeKV/lib/db"
	"github.com/ValentinKolb/bronzeKV/lib/db/util"
	"github.com/ValentinKolb/bronzeKV/lib/kv"
	"github.com/cockroachdb/errors"
	"github.com/cockroachdb/pebble"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("db")

// ErrScannerConsumed is yielded when the entries of a scanner are ranged over twice
var ErrScannerConsumed = errors.New("pebbledb: scanner already consumed")

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

const (
	defaultCacheSize = 64 << 20 // Default block cache size (64MB)
	infoSampleLimit  = 1000     // Max entries sampled by GetInfo for the size histograms
)

// --------------------------------------------------------------------------
// Core pebble engine structure
// --------------------------------------------------------------------------

// pebbleImpl stores all entries in a pebble LSM tree on disk.
//
// pebble itself is safe for concurrent use. The RWMutex only guards the
// handle against Close: every operation and every open scanner holds the
// read lock, Close takes the write lock.
type pebbleImpl struct {
	mu     sync.RWMutex
	db     *pebble.DB
	dir    string
	write  *pebble.WriteOptions
	closed bool
}

// DBOptions configures the pebble engine during initialization
type DBOptions struct {
	Dir        string // Data directory, created if missing
	SyncWrites bool   // fsync the WAL on every write
	CacheSize  int64  // Block cache size in bytes (0 = use default)
}

// DefaultOptions returns the default pebble engine options for dir
func DefaultOptions(dir string) *DBOptions {
	return &DBOptions{
		Dir:        dir,
		SyncWrites: false,
		CacheSize:  defaultCacheSize,
	}
}

// pebbleLogger forwards pebble's log output to the db logger
type pebbleLogger struct{}

func (pebbleLogger) Infof(format string, args ...interface{}) {
	Logger.Debugf(format, args...)
}

func (pebbleLogger) Errorf(format string, args ...interface{}) {
	Logger.Errorf(format, args...)
}

func (pebbleLogger) Fatalf(format string, args ...interface{}) {
	Logger.Panicf(format, args...)
}

// --------------------------------------------------------------------------
// Initialization and Setup
// --------------------------------------------------------------------------

// NewPebbleDB opens (or creates) a pebble engine in opts.Dir
func NewPebbleDB(opts *DBOptions) (db.Engine, error) {
	if opts == nil || opts.Dir == "" {
		return nil, errors.New("pebbledb: a data directory is required")
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = defaultCacheSize
	}

	cache := pebble.NewCache(opts.CacheSize)
	defer cache.Unref()

	handle, err := pebble.Open(opts.Dir, &pebble.Options{
		Cache:  cache,
		Logger: pebbleLogger{},
	})
	if err != nil {
		return nil, errors.Wrapf(err, "pebbledb: open %s", opts.Dir)
	}

	write := pebble.NoSync
	if opts.SyncWrites {
		write = pebble.Sync
	}

	Logger.Infof("pebble engine opened in %s (sync writes: %v)", opts.Dir, opts.SyncWrites)
	return &pebbleImpl{
		db:    handle,
		dir:   opts.Dir,
		write: write,
	}, nil
}

// --------------------------------------------------------------------------
// Write Operations
// --------------------------------------------------------------------------

// Set inserts or overwrites the value for key.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (p *pebbleImpl) Set(key kv.Key, value kv.Value) error {
	if err := key.Validate(); err != nil {
		return err
	}
	if err := value.Validate(); err != nil {
		return err
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return db.ErrClosed
	}

	if err := p.db.Set(key, value, p.write); err != nil {
		return errors.Wrapf(err, "pebbledb: set %s", key)
	}
	return nil
}

// Delete removes key. pebble writes a tombstone, deleting an absent key is fine.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (p *pebbleImpl) Delete(key kv.Key) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return db.ErrClosed
	}

	if err := p.db.Delete(key, p.write); err != nil {
		return errors.Wrapf(err, "pebbledb: delete %s", key)
	}
	return nil
}

// --------------------------------------------------------------------------
// Query Operations
// --------------------------------------------------------------------------

// Get returns a copy of the value stored under key.
//
// Thread-safety: This method is thread-safe and can be called concurrently.
func (p *pebbleImpl) Get(key kv.Key) (kv.Value, bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return nil, false, db.ErrClosed
	}

	data, closer, err := p.db.Get(key)
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Wrapf(err, "pebbledb: get %s", key)
	}
	defer closer.Close()

	return kv.Value(data).Clone(), true, nil
}

// Scan returns a scanner over lower <= key <= upper in ascending order.
// The scanner reads from an implicit pebble snapshot taken here, writes
// after this call are not visible to it.
func (p *pebbleImpl) Scan(lower, upper kv.Bound) (db.Scanner, error) {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return nil, db.ErrClosed
	}

	s := &scanner{engine: p}

	// an inverted range is empty, pebble must not see lower > upper
	if lower.Set && upper.Set && upper.Key.Less(lower.Key) {
		return s, nil
	}

	opts := &pebble.IterOptions{}
	if lower.Set {
		opts.LowerBound = lower.Key.Clone()
	}
	if upper.Set {
		// pebble's upper bound is exclusive, key+0x00 is the smallest key after upper
		opts.UpperBound = append(upper.Key.Clone(), 0x00)
	}

	it, err := p.db.NewIter(opts)
	if err != nil {
		p.mu.RUnlock()
		return nil, errors.Wrap(err, "pebbledb: new iterator")
	}
	s.iter = it
	return s, nil
}

// --------------------------------------------------------------------------
// Scanner
// --------------------------------------------------------------------------

// scanner wraps a pebble iterator. It keeps the engine's read lock so the
// engine cannot be closed underneath it.
//
// Thread-safety: Not thread-safe, a scanner belongs to one goroutine.
type scanner struct {
	engine    *pebbleImpl
	iter      *pebble.Iterator // nil for an empty range
	consumed  bool
	closeOnce sync.Once
	closeErr  error
}

func (s *scanner) Entries() iter.Seq2[kv.Entry, error] {
	return func(yield func(kv.Entry, error) bool) {
		if s.consumed {
			yield(kv.Entry{}, ErrScannerConsumed)
			return
		}
		s.consumed = true
		defer s.Close()

		if s.iter == nil {
			return
		}

		for valid := s.iter.First(); valid; valid = s.iter.Next() {
			entry := kv.Entry{
				Key:   kv.Key(s.iter.Key()).Clone(),
				Value: kv.Value(s.iter.Value()).Clone(),
			}
			if !yield(entry, nil) {
				return
			}
		}
		if err := s.iter.Error(); err != nil {
			yield(kv.Entry{}, errors.Wrap(err, "pebbledb: iterate"))
		}
	}
}

// Close releases the iterator and the read lock. Only the first call has an effect.
func (s *scanner) Close() error {
	s.closeOnce.Do(func() {
		s.consumed = true
		if s.iter != nil {
			s.closeErr = s.iter.Close()
		}
		s.engine.mu.RUnlock()
	})
	return s.closeErr
}

// --------------------------------------------------------------------------
// Feature Support and Info
// --------------------------------------------------------------------------

// SupportsFeature checks if this implementation supports a specific feature
func (p *pebbleImpl) SupportsFeature(feature db.Feature) bool {
	supportedFeatures := db.FeatureSet |
		db.FeatureGet |
		db.FeatureDelete |
		db.FeatureScan |
		db.FeatureDurable |
		db.FeatureSnapshot
	return supportedFeatures&feature == feature
}

// pebbleMetadata is reported as DatabaseInfo.Metadata
type pebbleMetadata struct {
	Dir        string           `json:"dir"`
	SyncWrites bool             `json:"sync_writes"`
	KeySizes   util.SizeSummary `json:"key_sizes"`
	ValueSizes util.SizeSummary `json:"value_sizes"`
}

// GetInfo returns statistics about the engine. The key count requires a
// full iteration, size distributions are sampled from the first entries.
func (p *pebbleImpl) GetInfo() db.DatabaseInfo {
	info := db.DatabaseInfo{
		DbType:            db.ImplPebble,
		SupportedFeatures: db.SupportedFeatures(p),
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return info
	}

	keySizes := util.NewSizeHistogram()
	valueSizes := util.NewSizeHistogram()
	if it, err := p.db.NewIter(nil); err == nil {
		for valid := it.First(); valid; valid = it.Next() {
			if info.Keys < infoSampleLimit {
				keySizes.AddSample(len(it.Key()))
				valueSizes.AddSample(len(it.Value()))
			}
			info.Keys++
		}
		_ = it.Close()
	} else {
		Logger.Warningf("failed to count keys: %v", err)
	}

	info.SizeBytes = int(p.db.Metrics().DiskSpaceUsage())
	info.Metadata = pebbleMetadata{
		Dir:        p.dir,
		SyncWrites: p.write == pebble.Sync,
		KeySizes:   keySizes.Summary(),
		ValueSizes: valueSizes.Summary(),
	}
	return info
}

// Close flushes and closes the pebble handle. It waits for open scanners to finish.
func (p *pebbleImpl) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true

	if err := p.db.Close(); err != nil {
		return errors.Wrap(err, "pebbledb: close")
	}
	Logger.Infof("pebble engine in %s closed", p.dir)
	return nil
}
