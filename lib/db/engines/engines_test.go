package engines

import (
	"testing"

	"github.com/ValentinKolb/bronzeKV/lib/db"
	"github.com/ValentinKolb/bronzeKV/lib/kv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen(t *testing.T) {
	for _, impl := range []db.Implementation{"", db.ImplMemory, db.ImplPebble} {
		engine, err := Open(Options{Impl: impl, DataDir: t.TempDir()})
		require.NoError(t, err, impl)

		require.NoError(t, engine.Set(kv.Key("k"), kv.Value("v")))
		value, found, err := engine.Get(kv.Key("k"))
		require.NoError(t, err)
		assert.True(t, found)
		assert.Equal(t, "v", string(value))

		expected := impl
		if expected == "" {
			expected = db.ImplMemory
		}
		assert.Equal(t, expected, engine.GetInfo().DbType)
		require.NoError(t, engine.Close())
	}
}

func TestOpenUnknown(t *testing.T) {
	_, err := Open(Options{Impl: "maple"})
	assert.Error(t, err)
}

func TestOpenPebbleWithoutDir(t *testing.T) {
	_, err := Open(Options{Impl: db.ImplPebble})
	assert.Error(t, err)
}
