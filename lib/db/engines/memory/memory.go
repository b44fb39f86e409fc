package memory

import (
	"iter"
	"sync"

	"github.com/ValentinKolb/bronzeKV/lib/db"
	"github.com/ValentinKolb/bronzeKV/lib/db/util"
	"github.com/ValentinKolb/bronzeKV/lib/kv"
	"github.com/cockroachdb/errors"
	"github.com/google/btree"
	"github.com/lni/dragonboat/v4/logger"
)

var Logger = logger.GetLogger("db")

// ErrScannerConsumed is yielded when the entries of a scanner are ranged over twice
var ErrScannerConsumed = errors.New("memory: scanner already consumed")

// --------------------------------------------------------------------------
// Constants
// --------------------------------------------------------------------------

const (
	defaultDegree   = 32   // Default btree degree
	infoSampleLimit = 1000 // Max entries sampled by GetInfo for the size histograms
)

// --------------------------------------------------------------------------
// Core memory engine structure
// --------------------------------------------------------------------------

// memoryImpl is an ordered in-memory engine. All entries live in a single
// btree guarded by one RWMutex.
type memoryImpl struct {
	mu     sync.RWMutex
	tree   *btree.BTreeG[kv.Entry]
	degree int
	size   int  // Sum of all key and value lengths
	closed bool // Set by Close, every operation after that fails
}

// DBOptions configures the memory engine during initialization
type DBOptions struct {
	Degree int // Degree of the btree (0 = use default)
}

// DefaultOptions returns the default memory engine options
func DefaultOptions() *DBOptions {
	return &DBOptions{
		Degree: defaultDegree,
	}
}

// lessEntry orders entries by key
func lessEntry(a, b kv.Entry) bool {
	return a.Key.Less(b.Key)
}

// --------------------------------------------------------------------------
// Initialization and Setup
// --------------------------------------------------------------------------

// NewMemoryDB creates a new empty in-memory engine with the specified options (optional)
func NewMemoryDB(opts *DBOptions) db.Engine {
	if opts == nil {
		opts = DefaultOptions()
	}
	if opts.Degree < 2 {
		opts.Degree = defaultDegree
	}

	return &memoryImpl{
		tree:   btree.NewG[kv.Entry](opts.Degree, lessEntry),
		degree: opts.Degree,
	}
}

// --------------------------------------------------------------------------
// Write Operations
// --------------------------------------------------------------------------

// Set inserts or overwrites the value for key. Key and value are copied.
//
// Thread-safety: This method is thread-safe and holds the write lock only for the mutation.
func (m *memoryImpl) Set(key kv.Key, value kv.Value) error {
	if err := key.Validate(); err != nil {
		return err
	}
	if err := value.Validate(); err != nil {
		return err
	}
	entry := kv.Entry{Key: key.Clone(), Value: value.Clone()}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return db.ErrClosed
	}

	if old, replaced := m.tree.ReplaceOrInsert(entry); replaced {
		m.size -= len(old.Key) + len(old.Value)
	}
	m.size += len(entry.Key) + len(entry.Value)
	return nil
}

// Delete removes key if present.
//
// Thread-safety: This method is thread-safe and holds the write lock only for the mutation.
func (m *memoryImpl) Delete(key kv.Key) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return db.ErrClosed
	}

	if old, removed := m.tree.Delete(kv.Entry{Key: key}); removed {
		m.size -= len(old.Key) + len(old.Value)
	}
	return nil
}

// --------------------------------------------------------------------------
// Query Operations
// --------------------------------------------------------------------------

// Get returns a copy of the value stored under key.
//
// Thread-safety: This method is thread-safe, it holds the read lock.
func (m *memoryImpl) Get(key kv.Key) (kv.Value, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed {
		return nil, false, db.ErrClosed
	}

	entry, found := m.tree.Get(kv.Entry{Key: key})
	if !found {
		return nil, false, nil
	}
	return entry.Value.Clone(), true, nil
}

// Scan returns a scanner over lower <= key <= upper in ascending order.
//
// The read lock is taken here and held until the scanner is closed or fully
// consumed. Writers block for that whole time, so a scan never observes a
// concurrent mutation. A caller must not write to the engine from the
// goroutine that holds an open scanner.
func (m *memoryImpl) Scan(lower, upper kv.Bound) (db.Scanner, error) {
	m.mu.RLock()
	if m.closed {
		m.mu.RUnlock()
		return nil, db.ErrClosed
	}

	return &scanner{
		engine: m,
		lower:  lower.Key.Clone(),
		hasLow: lower.Set,
		upper:  upper,
	}, nil
}

// --------------------------------------------------------------------------
// Scanner
// --------------------------------------------------------------------------

// scanner walks the btree while holding the engine's read lock.
//
// Thread-safety: Not thread-safe, a scanner belongs to one goroutine.
type scanner struct {
	engine    *memoryImpl
	lower     kv.Key
	hasLow    bool
	upper     kv.Bound
	consumed  bool
	closeOnce sync.Once
}

func (s *scanner) Entries() iter.Seq2[kv.Entry, error] {
	return func(yield func(kv.Entry, error) bool) {
		if s.consumed {
			yield(kv.Entry{}, ErrScannerConsumed)
			return
		}
		s.consumed = true
		defer s.Close()

		visit := func(e kv.Entry) bool {
			if s.upper.Set && s.upper.Key.Less(e.Key) {
				return false
			}
			return yield(e.Clone(), nil)
		}

		if s.hasLow {
			s.engine.tree.AscendGreaterOrEqual(kv.Entry{Key: s.lower}, visit)
		} else {
			s.engine.tree.Ascend(visit)
		}
	}
}

// Close releases the read lock. Only the first call has an effect.
func (s *scanner) Close() error {
	s.closeOnce.Do(func() {
		s.consumed = true
		s.engine.mu.RUnlock()
	})
	return nil
}

// --------------------------------------------------------------------------
// Feature Support and Info
// --------------------------------------------------------------------------

// SupportsFeature checks if this implementation supports a specific feature
func (m *memoryImpl) SupportsFeature(feature db.Feature) bool {
	supportedFeatures := db.FeatureSet |
		db.FeatureGet |
		db.FeatureDelete |
		db.FeatureScan |
		db.FeatureSnapshot
	return supportedFeatures&feature == feature
}

// memoryMetadata is reported as DatabaseInfo.Metadata
type memoryMetadata struct {
	Degree     int              `json:"degree"`
	KeySizes   util.SizeSummary `json:"key_sizes"`
	ValueSizes util.SizeSummary `json:"value_sizes"`
}

// GetInfo returns statistics about the engine. Key and value size
// distributions are estimated from the first entries in key order.
func (m *memoryImpl) GetInfo() db.DatabaseInfo {
	keySizes := util.NewSizeHistogram()
	valueSizes := util.NewSizeHistogram()

	m.mu.RLock()
	count := m.tree.Len()
	size := m.size
	sampled := 0
	m.tree.Ascend(func(e kv.Entry) bool {
		keySizes.AddSample(len(e.Key))
		valueSizes.AddSample(len(e.Value))
		sampled++
		return sampled < infoSampleLimit
	})
	m.mu.RUnlock()

	return db.DatabaseInfo{
		Keys:              count,
		SizeBytes:         size,
		DbType:            db.ImplMemory,
		SupportedFeatures: db.SupportedFeatures(m),
		Metadata: memoryMetadata{
			Degree:     m.degree,
			KeySizes:   keySizes.Summary(),
			ValueSizes: valueSizes.Summary(),
		},
	}
}

// Close drops all entries. It waits for open scanners to finish.
func (m *memoryImpl) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true
	m.tree.Clear(false)
	m.size = 0
	Logger.Debugf("memory engine closed")
	return nil
}
