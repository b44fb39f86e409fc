package protocol

import (
	"bytes"
	"io"
	"iter"
	"testing"

	"github.com/ValentinKolb/bronzeKV/lib/kv"
	"github.com/ValentinKolb/bronzeKV/lib/status"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// entriesOf turns a fixed list into an entry sequence, optionally ending with an error
func entriesOf(entries []kv.Entry, tail error) iter.Seq2[kv.Entry, error] {
	return func(yield func(kv.Entry, error) bool) {
		for _, e := range entries {
			if !yield(e, nil) {
				return
			}
		}
		if tail != nil {
			yield(kv.Entry{}, tail)
		}
	}
}

func collect(t *testing.T, seq iter.Seq2[kv.Entry, error]) ([]kv.Entry, error) {
	t.Helper()
	var out []kv.Entry
	for e, err := range seq {
		if err != nil {
			return out, err
		}
		out = append(out, e)
	}
	return out, nil
}

func TestStatusResponse(t *testing.T) {
	for _, code := range []status.Code{status.OK, status.NotFound, status.EngineError, status.UnknownAction} {
		var buf bytes.Buffer
		n, err := StatusResponse(code).WriteTo(&buf)
		require.NoError(t, err)
		assert.EqualValues(t, 1, n)

		resp, err := ReadResponse(&buf, ActionDelete)
		require.NoError(t, err)
		assert.Equal(t, KindStatus, resp.Kind)
		assert.Equal(t, code, resp.Status)
	}
}

func TestValueResponse(t *testing.T) {
	var buf bytes.Buffer
	n, err := ValueResponse(kv.Value("Hexi")).WriteTo(&buf)
	require.NoError(t, err)
	assert.EqualValues(t, 1+2+4, n)
	assert.Equal(t, []byte{0, 0, 4, 'H', 'e', 'x', 'i'}, buf.Bytes())

	resp, err := ReadResponse(&buf, ActionGet)
	require.NoError(t, err)
	assert.Equal(t, KindSingleValue, resp.Kind)
	assert.Equal(t, "Hexi", string(resp.Value))
}

func TestNotFoundForGet(t *testing.T) {
	resp, err := ReadResponse(bytes.NewReader([]byte{byte(status.NotFound)}), ActionGet)
	require.NoError(t, err)
	assert.Equal(t, KindStatus, resp.Kind)
	assert.Equal(t, status.NotFound, resp.Status)
}

func TestScannerResponse(t *testing.T) {
	entries := []kv.Entry{
		{Key: kv.Key("a"), Value: kv.Value("1")},
		{Key: kv.Key("b"), Value: kv.Value("")},
		{Key: kv.Key("c"), Value: kv.Value("333")},
	}

	var buf bytes.Buffer
	n, err := ScannerResponse(entriesOf(entries, nil)).WriteTo(&buf)
	require.NoError(t, err)
	assert.EqualValues(t, buf.Len(), n)
	assert.Equal(t, byte(status.Complete), buf.Bytes()[buf.Len()-1])

	// trailing byte must not be consumed by the stream
	buf.WriteByte(0x99)

	resp, err := ReadResponse(&buf, ActionScan)
	require.NoError(t, err)
	require.Equal(t, KindScanner, resp.Kind)
	require.NotNil(t, resp.Stream)

	got, err := collect(t, resp.Stream.All())
	require.NoError(t, err)
	require.Len(t, got, len(entries))
	for i := range entries {
		assert.Equal(t, string(entries[i].Key), string(got[i].Key))
		assert.Equal(t, string(entries[i].Value), string(got[i].Value))
	}
	assert.True(t, resp.Stream.Done())
	assert.Equal(t, 1, buf.Len())
}

func TestEmptyScan(t *testing.T) {
	var buf bytes.Buffer
	_, err := ScannerResponse(entriesOf(nil, nil)).WriteTo(&buf)
	require.NoError(t, err)
	assert.Equal(t, []byte{byte(status.OK), byte(status.Complete)}, buf.Bytes())

	resp, err := ReadResponse(&buf, ActionScan)
	require.NoError(t, err)
	got, err := collect(t, resp.Stream.All())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestScannerErrorTerminatesStream(t *testing.T) {
	boom := errors.New("disk on fire")
	entries := []kv.Entry{{Key: kv.Key("a"), Value: kv.Value("1")}}

	var buf bytes.Buffer
	_, err := ScannerResponse(entriesOf(entries, boom)).WriteTo(&buf)
	require.Error(t, err)
	assert.True(t, errors.Is(err, boom))
	assert.Equal(t, byte(status.EngineError), buf.Bytes()[buf.Len()-1])

	resp, err := ReadResponse(&buf, ActionScan)
	require.NoError(t, err)
	got, err := collect(t, resp.Stream.All())
	assert.Len(t, got, 1)
	require.Error(t, err)
	assert.True(t, status.Is(err, status.EngineError))
	assert.Zero(t, buf.Len())
}

func TestScannerErrorKeepsCode(t *testing.T) {
	var buf bytes.Buffer
	_, err := ScannerResponse(entriesOf(nil, status.New(status.IOError, "gone"))).WriteTo(&buf)
	require.Error(t, err)
	assert.Equal(t, []byte{byte(status.OK), byte(status.IOError)}, buf.Bytes())

	// an error claiming success is still written as a failure
	buf.Reset()
	_, err = ScannerResponse(entriesOf(nil, status.New(status.Complete, "odd"))).WriteTo(&buf)
	require.Error(t, err)
	assert.Equal(t, []byte{byte(status.OK), byte(status.EngineError)}, buf.Bytes())
}

func TestEntryReaderConsumedOnce(t *testing.T) {
	var buf bytes.Buffer
	_, err := ScannerResponse(entriesOf([]kv.Entry{{Key: kv.Key("a"), Value: kv.Value("1")}}, nil)).WriteTo(&buf)
	require.NoError(t, err)

	resp, err := ReadResponse(&buf, ActionScan)
	require.NoError(t, err)
	_, err = collect(t, resp.Stream.All())
	require.NoError(t, err)

	count := 0
	for _, err := range resp.Stream.All() {
		count++
		assert.True(t, errors.Is(err, ErrStreamConsumed))
	}
	assert.Equal(t, 1, count)
}

func TestEntryReaderDrain(t *testing.T) {
	var entries []kv.Entry
	for _, k := range []string{"a", "b", "c", "d"} {
		entries = append(entries, kv.Entry{Key: kv.Key(k), Value: kv.Value(k + k)})
	}

	var buf bytes.Buffer
	_, err := ScannerResponse(entriesOf(entries, nil)).WriteTo(&buf)
	require.NoError(t, err)
	_, err = StatusResponse(status.OK).WriteTo(&buf)
	require.NoError(t, err)

	resp, err := ReadResponse(&buf, ActionScan)
	require.NoError(t, err)
	for range resp.Stream.All() {
		break
	}
	require.NoError(t, resp.Stream.Drain())

	// the next response is now at the head of the stream
	next, err := ReadResponse(&buf, ActionPing)
	require.NoError(t, err)
	assert.Equal(t, status.OK, next.Status)
}

func TestTruncatedStream(t *testing.T) {
	// OK, one entry header, then the connection drops
	r := bytes.NewReader([]byte{byte(status.OK), byte(status.OK), 0, 1})
	resp, err := ReadResponse(r, ActionScan)
	require.NoError(t, err)

	_, err = collect(t, resp.Stream.All())
	require.Error(t, err)
	assert.True(t, status.Is(err, status.IOError))
	assert.True(t, errors.Is(err, io.ErrUnexpectedEOF))
}

func TestUnknownStatusTerminatesStream(t *testing.T) {
	r := bytes.NewReader([]byte{byte(status.OK), 0x77, byte(status.OK)})
	resp, err := ReadResponse(r, ActionScan)
	require.NoError(t, err)

	_, err = collect(t, resp.Stream.All())
	assert.True(t, status.Is(err, status.UnknownStatusCode))
	assert.Equal(t, 1, r.Len(), "nothing after the terminal status is read")
}

func TestReadResponseEOF(t *testing.T) {
	_, err := ReadResponse(bytes.NewReader(nil), ActionPing)
	assert.Equal(t, io.EOF, err)
}
