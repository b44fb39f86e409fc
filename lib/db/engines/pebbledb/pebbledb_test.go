package pebbledb

import (
	"fmt"
	"testing"

	"github.com/ValentinKolb/bronzeKV/lib/db"
	"github.com/ValentinKolb/bronzeKV/lib/kv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequiresDir(t *testing.T) {
	_, err := NewPebbleDB(nil)
	assert.Error(t, err)

	_, err = NewPebbleDB(&DBOptions{})
	assert.Error(t, err)
}

func TestPersistence(t *testing.T) {
	dir := t.TempDir()

	engine, err := NewPebbleDB(&DBOptions{Dir: dir, SyncWrites: true})
	require.NoError(t, err)
	for i := 0; i < 20; i++ {
		require.NoError(t, engine.Set(kv.Key(fmt.Sprintf("key-%02d", i)), kv.Value(fmt.Sprintf("value-%d", i))))
	}
	require.NoError(t, engine.Delete(kv.Key("key-05")))
	require.NoError(t, engine.Close())

	engine, err = NewPebbleDB(DefaultOptions(dir))
	require.NoError(t, err)
	defer engine.Close()

	value, found, err := engine.Get(kv.Key("key-07"))
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "value-7", string(value))

	_, found, err = engine.Get(kv.Key("key-05"))
	require.NoError(t, err)
	assert.False(t, found)

	scanner, err := engine.Scan(kv.Inclusive(kv.Key("key-04")), kv.Inclusive(kv.Key("key-06")))
	require.NoError(t, err)
	var keys []string
	for entry, err := range scanner.Entries() {
		require.NoError(t, err)
		keys = append(keys, string(entry.Key))
	}
	assert.Equal(t, []string{"key-04", "key-06"}, keys)
}

func TestInclusiveUpperWithLongKey(t *testing.T) {
	engine := newTestDB(t)
	defer engine.Close()

	maxKey := make(kv.Key, kv.MaxKeyLen)
	for i := range maxKey {
		maxKey[i] = 0xff
	}
	require.NoError(t, engine.Set(maxKey, kv.Value("last")))
	require.NoError(t, engine.Set(kv.Key("a"), kv.Value("first")))

	scanner, err := engine.Scan(kv.Inclusive(kv.Key("b")), kv.Inclusive(maxKey))
	require.NoError(t, err)
	count := 0
	for entry, err := range scanner.Entries() {
		require.NoError(t, err)
		assert.Equal(t, "last", string(entry.Value))
		count++
	}
	assert.Equal(t, 1, count)
}

func TestInfo(t *testing.T) {
	engine := newTestDB(t)
	defer engine.Close()

	require.NoError(t, engine.Set(kv.Key("a"), kv.Value("1")))
	require.NoError(t, engine.Set(kv.Key("b"), kv.Value("2")))

	info := engine.GetInfo()
	assert.Equal(t, db.ImplPebble, info.DbType)
	assert.Equal(t, 2, info.Keys)
	assert.True(t, engine.SupportsFeature(db.FeatureDurable))

	meta, ok := info.Metadata.(pebbleMetadata)
	require.True(t, ok)
	assert.False(t, meta.SyncWrites)
	assert.EqualValues(t, 2, meta.KeySizes.Samples)
}
