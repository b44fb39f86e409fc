package testing

import (
	"bytes"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/ValentinKolb/bronzeKV/lib/db"
	"github.com/ValentinKolb/bronzeKV/lib/kv"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// DBFactory is a function that creates a new, empty instance of an Engine implementation
type DBFactory func(t testing.TB) db.Engine

// RunEngineTests runs the conformance test suite for an Engine implementation.
func RunEngineTests(t *testing.T, name string, factory DBFactory) {
	t.Run(name, func(t *testing.T) {
		t.Run("Set&Get", func(t *testing.T) {
			testSetGet(t, factory(t))
		})

		t.Run("CopySemantics", func(t *testing.T) {
			testCopySemantics(t, factory(t))
		})

		t.Run("Delete", func(t *testing.T) {
			testDelete(t, factory(t))
		})

		t.Run("Bounds", func(t *testing.T) {
			testBounds(t, factory(t))
		})

		t.Run("ScanFilter", func(t *testing.T) {
			testScanFilter(t, factory(t))
		})

		t.Run("ScanUnbounded", func(t *testing.T) {
			testScanUnbounded(t, factory(t))
		})

		t.Run("ScanEarlyBreak", func(t *testing.T) {
			testScanEarlyBreak(t, factory(t))
		})

		t.Run("ScanSnapshot", func(t *testing.T) {
			testScanSnapshot(t, factory(t))
		})

		t.Run("Concurrent", func(t *testing.T) {
			testConcurrent(t, factory(t))
		})

		t.Run("Info", func(t *testing.T) {
			testInfo(t, factory(t))
		})

		t.Run("Closed", func(t *testing.T) {
			testClosed(t, factory(t))
		})
	})
}

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

// Checks if the engine supports the specified feature
// Skip the test if it is not supported
func requireFeature(t testing.TB, engine db.Engine, feature db.Feature) {
	if !engine.SupportsFeature(feature) {
		t.Skipf("engine does not support %s", feature)
	}
}

// scanKeys runs a scan and returns the keys as strings
func scanKeys(t testing.TB, engine db.Engine, lower, upper kv.Bound) []string {
	t.Helper()
	scanner, err := engine.Scan(lower, upper)
	require.NoError(t, err)
	defer scanner.Close()

	keys := []string{}
	for entry, err := range scanner.Entries() {
		require.NoError(t, err)
		keys = append(keys, string(entry.Key))
	}
	return keys
}

func mustSet(t testing.TB, engine db.Engine, key, value string) {
	t.Helper()
	require.NoError(t, engine.Set(kv.Key(key), kv.Value(value)))
}

// --------------------------------------------------------------------------
// Test functions
// --------------------------------------------------------------------------

func testSetGet(t *testing.T, engine db.Engine) {
	defer engine.Close()

	requireFeature(t, engine, db.FeatureSet|db.FeatureGet)

	mustSet(t, engine, "name", "Hexi")
	value, found, err := engine.Get(kv.Key("name"))
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "Hexi", string(value))

	// overwrite
	mustSet(t, engine, "name", "Lee")
	value, found, err = engine.Get(kv.Key("name"))
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "Lee", string(value))

	// idempotent
	mustSet(t, engine, "name", "Lee")
	value, _, err = engine.Get(kv.Key("name"))
	require.NoError(t, err)
	assert.Equal(t, "Lee", string(value))

	// absence is not an error
	value, found, err = engine.Get(kv.Key("nonexistent-key"))
	require.NoError(t, err)
	assert.False(t, found)
	assert.Nil(t, value)

	// empty key and empty value are valid
	mustSet(t, engine, "", "")
	value, found, err = engine.Get(kv.Key(""))
	require.NoError(t, err)
	assert.True(t, found)
	assert.Empty(t, value)

	// binary keys
	binKey := kv.Key{0x00, 0xff, 0x10}
	require.NoError(t, engine.Set(binKey, kv.Value{0x01}))
	value, found, err = engine.Get(binKey)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, []byte{0x01}, []byte(value))
}

func testCopySemantics(t *testing.T, engine db.Engine) {
	defer engine.Close()

	requireFeature(t, engine, db.FeatureSet|db.FeatureGet)

	key := kv.Key("key")
	value := kv.Value("value")
	require.NoError(t, engine.Set(key, value))

	// mutating the inputs after Set must not change the stored entry
	key[0] = 'X'
	value[0] = 'X'

	stored, found, err := engine.Get(kv.Key("key"))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "value", string(stored))

	// mutating a returned value must not change the stored entry
	stored[0] = 'Y'
	again, _, err := engine.Get(kv.Key("key"))
	require.NoError(t, err)
	assert.Equal(t, "value", string(again))
}

func testDelete(t *testing.T, engine db.Engine) {
	defer engine.Close()

	requireFeature(t, engine, db.FeatureSet|db.FeatureGet|db.FeatureDelete)

	mustSet(t, engine, "name", "Hexi")
	require.NoError(t, engine.Delete(kv.Key("name")))

	_, found, err := engine.Get(kv.Key("name"))
	require.NoError(t, err)
	assert.False(t, found)

	// deleting again, or deleting something that never existed, is a no-op
	assert.NoError(t, engine.Delete(kv.Key("name")))
	assert.NoError(t, engine.Delete(kv.Key("never-set")))

	// set after delete works
	mustSet(t, engine, "name", "Lee")
	_, found, err = engine.Get(kv.Key("name"))
	require.NoError(t, err)
	assert.True(t, found)
}

func testBounds(t *testing.T, engine db.Engine) {
	defer engine.Close()

	requireFeature(t, engine, db.FeatureSet|db.FeatureGet)

	maxKey := kv.Key(bytes.Repeat([]byte{'k'}, kv.MaxKeyLen))
	maxValue := kv.Value(bytes.Repeat([]byte{'v'}, kv.MaxValueLen))
	require.NoError(t, engine.Set(maxKey, maxValue))

	value, found, err := engine.Get(maxKey)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Len(t, value, kv.MaxValueLen)

	err = engine.Set(append(maxKey.Clone(), 'k'), kv.Value("v"))
	assert.True(t, errors.Is(err, kv.ErrKeyTooLong))

	err = engine.Set(kv.Key("k"), append(maxValue.Clone(), 'v'))
	assert.True(t, errors.Is(err, kv.ErrValueTooLong))
}

func testScanFilter(t *testing.T, engine db.Engine) {
	defer engine.Close()

	requireFeature(t, engine, db.FeatureSet|db.FeatureScan)

	for _, k := range []string{"d", "b", "a", "c"} {
		mustSet(t, engine, k, "v-"+k)
	}

	// both bounds are inclusive
	assert.Equal(t, []string{"b", "c"}, scanKeys(t, engine, kv.Inclusive(kv.Key("b")), kv.Inclusive(kv.Key("c"))))

	// bounds between keys
	assert.Equal(t, []string{"b", "c"}, scanKeys(t, engine, kv.Inclusive(kv.Key("aa")), kv.Inclusive(kv.Key("cc"))))

	// single key range
	assert.Equal(t, []string{"c"}, scanKeys(t, engine, kv.Inclusive(kv.Key("c")), kv.Inclusive(kv.Key("c"))))

	// inverted range is empty
	assert.Empty(t, scanKeys(t, engine, kv.Inclusive(kv.Key("c")), kv.Inclusive(kv.Key("b"))))

	// one sided
	assert.Equal(t, []string{"c", "d"}, scanKeys(t, engine, kv.Inclusive(kv.Key("c")), kv.Unbounded()))
	assert.Equal(t, []string{"a", "b"}, scanKeys(t, engine, kv.Unbounded(), kv.Inclusive(kv.Key("b"))))

	// values travel with their keys
	scanner, err := engine.Scan(kv.Inclusive(kv.Key("d")), kv.Unbounded())
	require.NoError(t, err)
	for entry, err := range scanner.Entries() {
		require.NoError(t, err)
		assert.Equal(t, "v-d", string(entry.Value))
	}
}

func testScanUnbounded(t *testing.T, engine db.Engine) {
	defer engine.Close()

	requireFeature(t, engine, db.FeatureSet|db.FeatureScan)

	assert.Empty(t, scanKeys(t, engine, kv.Unbounded(), kv.Unbounded()))

	// prefix keys order before their extensions
	for _, k := range []string{"hexi", "haha", "hahah", "", "a"} {
		mustSet(t, engine, k, k)
	}
	assert.Equal(t,
		[]string{"", "a", "haha", "hahah", "hexi"},
		scanKeys(t, engine, kv.Unbounded(), kv.Unbounded()),
	)

	// the empty key is a real lower bound
	assert.Equal(t,
		[]string{"", "a", "haha", "hahah", "hexi"},
		scanKeys(t, engine, kv.Inclusive(kv.Key("")), kv.Unbounded()),
	)
}

func testScanEarlyBreak(t *testing.T, engine db.Engine) {
	defer engine.Close()

	requireFeature(t, engine, db.FeatureSet|db.FeatureScan)

	for i := 0; i < 10; i++ {
		mustSet(t, engine, fmt.Sprintf("key-%02d", i), "v")
	}

	scanner, err := engine.Scan(kv.Unbounded(), kv.Unbounded())
	require.NoError(t, err)
	seen := 0
	for _, err := range scanner.Entries() {
		require.NoError(t, err)
		seen++
		if seen == 3 {
			break
		}
	}
	assert.Equal(t, 3, seen)
	assert.NoError(t, scanner.Close(), "close after an early break is allowed")
	assert.NoError(t, scanner.Close(), "close is idempotent")

	// an early break must release the scanner, writes go through again
	mustSet(t, engine, "key-99", "v")

	// a consumed scanner does not yield entries again
	for _, err := range scanner.Entries() {
		assert.Error(t, err)
	}

	// closing without iterating releases it as well
	scanner, err = engine.Scan(kv.Unbounded(), kv.Unbounded())
	require.NoError(t, err)
	require.NoError(t, scanner.Close())
	require.NoError(t, engine.Delete(kv.Key("key-99")))
}

func testScanSnapshot(t *testing.T, engine db.Engine) {
	defer engine.Close()

	requireFeature(t, engine, db.FeatureSet|db.FeatureDelete|db.FeatureScan|db.FeatureSnapshot)

	const n = 100
	for i := 0; i < n; i++ {
		mustSet(t, engine, fmt.Sprintf("key-%03d", i), "old")
	}

	scanner, err := engine.Scan(kv.Unbounded(), kv.Unbounded())
	require.NoError(t, err)

	writerStarted := make(chan struct{})
	writerDone := make(chan error, 1)

	count := 0
	for entry, err := range scanner.Entries() {
		require.NoError(t, err)
		assert.Equal(t, "old", string(entry.Value), "scan observed a concurrent write at %s", entry.Key)
		count++

		if count == 1 {
			// overwrite and delete everything while the scan is in flight
			go func() {
				close(writerStarted)
				for i := 0; i < n; i++ {
					key := kv.Key(fmt.Sprintf("key-%03d", i))
					if err := engine.Set(key, kv.Value("new")); err != nil {
						writerDone <- err
						return
					}
					if i%2 == 0 {
						if err := engine.Delete(key); err != nil {
							writerDone <- err
							return
						}
					}
				}
				if err := engine.Set(kv.Key("key-999"), kv.Value("new")); err != nil {
					writerDone <- err
					return
				}
				writerDone <- nil
			}()
			<-writerStarted
			time.Sleep(20 * time.Millisecond)
		}
	}
	assert.Equal(t, n, count, "scan must see exactly the entries present when it started")

	require.NoError(t, <-writerDone)

	// after the scan the writes are visible
	keys := scanKeys(t, engine, kv.Unbounded(), kv.Unbounded())
	assert.Len(t, keys, n/2+1)
	value, found, err := engine.Get(kv.Key("key-001"))
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "new", string(value))
}

func testConcurrent(t *testing.T, engine db.Engine) {
	defer engine.Close()

	requireFeature(t, engine, db.FeatureSet|db.FeatureGet|db.FeatureDelete|db.FeatureScan)

	const workers = 8
	const perWorker = 200

	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				key := kv.Key(fmt.Sprintf("w%d-%04d", w, i))
				if err := engine.Set(key, kv.Value(key)); err != nil {
					errs <- err
					return
				}
				value, found, err := engine.Get(key)
				if err != nil || !found || !bytes.Equal(value, key) {
					errs <- errors.Newf("read back of %s failed: found=%v err=%v", key, found, err)
					return
				}
				if i%10 == 0 {
					scanner, err := engine.Scan(kv.Inclusive(kv.Key(fmt.Sprintf("w%d-", w))), kv.Inclusive(key))
					if err != nil {
						errs <- err
						return
					}
					for _, err := range scanner.Entries() {
						if err != nil {
							errs <- err
							return
						}
					}
				}
				if i%3 == 0 {
					if err := engine.Delete(key); err != nil {
						errs <- err
						return
					}
				}
			}
		}(w)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	keys := scanKeys(t, engine, kv.Unbounded(), kv.Unbounded())
	expected := workers * (perWorker - (perWorker+2)/3)
	assert.Len(t, keys, expected)
}

func testInfo(t *testing.T, engine db.Engine) {
	defer engine.Close()

	requireFeature(t, engine, db.FeatureSet)

	mustSet(t, engine, "a", "1")
	mustSet(t, engine, "b", "22")

	info := engine.GetInfo()
	assert.NotEmpty(t, info.DbType)
	assert.Contains(t, info.SupportedFeatures, db.FeatureSet)
	for _, f := range info.SupportedFeatures {
		assert.True(t, engine.SupportsFeature(f))
	}
}

func testClosed(t *testing.T, engine db.Engine) {
	requireFeature(t, engine, db.FeatureSet|db.FeatureGet|db.FeatureDelete|db.FeatureScan)

	mustSet(t, engine, "name", "Hexi")
	require.NoError(t, engine.Close())

	err := engine.Set(kv.Key("name"), kv.Value("Lee"))
	assert.True(t, errors.Is(err, db.ErrClosed), "set after close: %v", err)

	_, _, err = engine.Get(kv.Key("name"))
	assert.True(t, errors.Is(err, db.ErrClosed), "get after close: %v", err)

	err = engine.Delete(kv.Key("name"))
	assert.True(t, errors.Is(err, db.ErrClosed), "delete after close: %v", err)

	_, err = engine.Scan(kv.Unbounded(), kv.Unbounded())
	assert.True(t, errors.Is(err, db.ErrClosed), "scan after close: %v", err)

	assert.NoError(t, engine.Close(), "close is idempotent")
}
