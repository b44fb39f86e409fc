package status

import (
	"io"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromByte(t *testing.T) {
	for b := 0; b <= 5; b++ {
		assert.Equal(t, Code(b), FromByte(byte(b)))
	}
	for b := 6; b <= 0xff; b++ {
		assert.Equal(t, UnknownStatusCode, FromByte(byte(b)), "byte %d", b)
	}
}

func TestCodeString(t *testing.T) {
	assert.Equal(t, "OK", OK.String())
	assert.Equal(t, "EngineError", EngineError.String())
	assert.Equal(t, "Complete", Complete.String())
	assert.Equal(t, "UnknownStatusCode", Code(42).String())
}

func TestError(t *testing.T) {
	err := New(UnknownAction, "action %d is unknown", 7)
	assert.Equal(t, "UnknownAction: action 7 is unknown", err.Error())
	assert.Equal(t, UnknownAction, CodeOf(err))
	assert.True(t, Is(err, UnknownAction))
	assert.False(t, Is(err, EngineError))
}

func TestConversions(t *testing.T) {
	t.Run("io", func(t *testing.T) {
		err := FromIO(io.ErrUnexpectedEOF)
		require.NotNil(t, err)
		assert.Equal(t, IOError, err.Code)
		assert.True(t, errors.Is(err, io.ErrUnexpectedEOF))
	})

	t.Run("engine", func(t *testing.T) {
		cause := errors.New("disk on fire")
		err := FromEngine(errors.Wrap(cause, "set"))
		require.NotNil(t, err)
		assert.Equal(t, EngineError, err.Code)
		assert.True(t, errors.Is(err, cause))
	})

	t.Run("keeps existing code", func(t *testing.T) {
		inner := New(NotFound, "missing")
		err := FromEngine(errors.Wrap(inner, "lookup"))
		assert.Equal(t, NotFound, err.Code)
	})

	t.Run("nil", func(t *testing.T) {
		assert.Nil(t, FromIO(nil))
		assert.Equal(t, OK, CodeOf(nil))
	})

	t.Run("plain error", func(t *testing.T) {
		assert.Equal(t, IOError, CodeOf(errors.New("boom")))
	})
}
