package client

import (
	"context"
	"fmt"
	"iter"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ValentinKolb/bronzeKV/lib/db"
	"github.com/ValentinKolb/bronzeKV/lib/db/engines/memory"
	"github.com/ValentinKolb/bronzeKV/lib/kv"
	"github.com/ValentinKolb/bronzeKV/lib/status"
	"github.com/ValentinKolb/bronzeKV/rpc/common"
	"github.com/ValentinKolb/bronzeKV/rpc/protocol"
	"github.com/ValentinKolb/bronzeKV/rpc/server"
	"github.com/ValentinKolb/bronzeKV/rpc/transport"
	"github.com/ValentinKolb/bronzeKV/rpc/transport/tcp"
	"github.com/ValentinKolb/bronzeKV/rpc/transport/unix"
	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --------------------------------------------------------------------------
// Test Helpers
// --------------------------------------------------------------------------

// startServer serves engine and returns the client configuration and a stop function
func startServer(t *testing.T, engine db.Engine, tr transport.IRPCServerTransport, conf common.TransportConf) (common.ClientConfig, func()) {
	t.Helper()

	s := server.NewRPCServer(common.ServerConfig{Transport: conf}, tr, engine)
	require.NoError(t, s.Listen())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = s.Serve(ctx)
	}()

	stop := func() {
		cancel()
		<-done
	}
	t.Cleanup(stop)

	clientConf := conf
	clientConf.Endpoint = s.Addr().String()
	return common.ClientConfig{Transport: clientConf}, stop
}

func startTCPServer(t *testing.T, engine db.Engine) common.ClientConfig {
	conf, _ := startServer(t, engine, tcp.NewTCPServerTransport(), common.TransportConf{
		Type:          common.TransportTCP,
		Endpoint:      "127.0.0.1:0",
		TimeoutSecond: 5,
		TCPConf:       common.TCPConf{TCPNoDelay: true, TCPLingerSec: -1},
	})
	return conf
}

func connect(t *testing.T, conf common.ClientConfig) IConnection {
	t.Helper()
	conn, err := NewConnection(conf, tcp.NewTCPClientTransport())
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func collect(t *testing.T, seq iter.Seq2[kv.Entry, error]) []string {
	t.Helper()
	var keys []string
	for entry, err := range seq {
		require.NoError(t, err)
		keys = append(keys, string(entry.Key))
	}
	return keys
}

// failingEngine fails every Set
type failingEngine struct {
	db.Engine
}

func (e *failingEngine) Set(kv.Key, kv.Value) error {
	return errors.New("read-only")
}

// --------------------------------------------------------------------------
// Connection Tests
// --------------------------------------------------------------------------

func TestConnectionOperations(t *testing.T) {
	engine := memory.NewMemoryDB(nil)
	defer engine.Close()
	conn := connect(t, startTCPServer(t, engine))

	require.NoError(t, conn.Set(kv.Key("name"), kv.Value("bronze")))

	value, found, err := conn.Get(kv.Key("name"))
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, kv.Value("bronze"), value)

	// overwrite
	require.NoError(t, conn.Set(kv.Key("name"), kv.Value("copper")))
	value, _, err = conn.Get(kv.Key("name"))
	require.NoError(t, err)
	assert.Equal(t, kv.Value("copper"), value)

	require.NoError(t, conn.Delete(kv.Key("name")))
	_, found, err = conn.Get(kv.Key("name"))
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, conn.Delete(kv.Key("name")))
	require.NoError(t, conn.Ping())
	require.NoError(t, conn.NoResponse())
	require.NoError(t, conn.Ping())
	assert.True(t, conn.IsValid())
	assert.False(t, conn.HasBroken())
}

func TestEmptyKeyAndValue(t *testing.T) {
	engine := memory.NewMemoryDB(nil)
	defer engine.Close()
	conn := connect(t, startTCPServer(t, engine))

	require.NoError(t, conn.Set(kv.Key(""), kv.Value("")))
	value, found, err := conn.Get(kv.Key(""))
	require.NoError(t, err)
	assert.True(t, found)
	assert.Empty(t, value)
}

func TestLimitsRejectedLocally(t *testing.T) {
	engine := memory.NewMemoryDB(nil)
	defer engine.Close()
	conn := connect(t, startTCPServer(t, engine))

	err := conn.Set(kv.Key(strings.Repeat("k", kv.MaxKeyLen+1)), kv.Value("v"))
	assert.True(t, errors.Is(err, kv.ErrKeyTooLong))

	err = conn.Set(kv.Key("k"), kv.Value(strings.Repeat("v", kv.MaxValueLen+1)))
	assert.True(t, errors.Is(err, kv.ErrValueTooLong))

	// maximum sizes are accepted
	key := kv.Key(strings.Repeat("k", kv.MaxKeyLen))
	require.NoError(t, conn.Set(key, kv.Value(strings.Repeat("v", kv.MaxValueLen))))
	value, found, err := conn.Get(key)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Len(t, value, kv.MaxValueLen)

	assert.False(t, conn.HasBroken())
}

func TestScan(t *testing.T) {
	engine := memory.NewMemoryDB(nil)
	defer engine.Close()
	conn := connect(t, startTCPServer(t, engine))

	for i := 0; i < 10; i++ {
		require.NoError(t, conn.Set(kv.Key(fmt.Sprintf("key-%02d", i)), kv.Value("v")))
	}

	seq, err := conn.Scan(kv.Inclusive(kv.Key("key-03")), kv.Inclusive(kv.Key("key-05")))
	require.NoError(t, err)
	assert.Equal(t, []string{"key-03", "key-04", "key-05"}, collect(t, seq))

	seq, err = conn.Scan(kv.Unbounded(), kv.Unbounded())
	require.NoError(t, err)
	assert.Len(t, collect(t, seq), 10)

	seq, err = conn.Scan(kv.Inclusive(kv.Key("z")), kv.Unbounded())
	require.NoError(t, err)
	assert.Empty(t, collect(t, seq))
}

func TestUnconsumedScanIsDrained(t *testing.T) {
	engine := memory.NewMemoryDB(nil)
	defer engine.Close()
	conn := connect(t, startTCPServer(t, engine))

	for i := 0; i < 100; i++ {
		require.NoError(t, conn.Set(kv.Key(fmt.Sprintf("key-%03d", i)), kv.Value("v")))
	}

	// partially consumed
	seq, err := conn.Scan(kv.Unbounded(), kv.Unbounded())
	require.NoError(t, err)
	n := 0
	for _, err := range seq {
		require.NoError(t, err)
		if n++; n == 3 {
			break
		}
	}
	require.NoError(t, conn.Ping())

	// not consumed at all
	seq, err = conn.Scan(kv.Unbounded(), kv.Unbounded())
	require.NoError(t, err)
	_, found, err := conn.Get(kv.Key("key-050"))
	require.NoError(t, err)
	assert.True(t, found)

	// the stream is gone after the next request
	for _, err := range seq {
		assert.ErrorIs(t, err, protocol.ErrStreamConsumed)
	}
	assert.False(t, conn.HasBroken())
}

func TestEngineErrorBreaksConnection(t *testing.T) {
	memEngine := memory.NewMemoryDB(nil)
	defer memEngine.Close()
	conn := connect(t, startTCPServer(t, &failingEngine{Engine: memEngine}))

	err := conn.Set(kv.Key("k"), kv.Value("v"))
	require.Error(t, err)
	assert.True(t, status.Is(err, status.EngineError))

	assert.True(t, conn.HasBroken())
	assert.ErrorIs(t, conn.Ping(), ErrConnectionBroken)
}

func TestDialFailure(t *testing.T) {
	_, err := NewConnection(common.ClientConfig{Transport: common.TransportConf{
		Type:     common.TransportUnix,
		Endpoint: filepath.Join(t.TempDir(), "missing.sock"),
	}}, unix.NewUnixClientTransport())
	require.Error(t, err)
	assert.Equal(t, status.IOError, status.CodeOf(err))
}

// --------------------------------------------------------------------------
// Pool Tests
// --------------------------------------------------------------------------

func TestPoolReusesConnections(t *testing.T) {
	engine := memory.NewMemoryDB(nil)
	defer engine.Close()
	conf := startTCPServer(t, engine)
	conf.MaxIdle = 1

	p := NewPool(conf, tcp.NewTCPClientTransport())
	defer p.Close()

	first, err := p.Get()
	require.NoError(t, err)
	second, err := p.Get()
	require.NoError(t, err)
	assert.NotSame(t, first, second)

	p.Put(first)
	p.Put(second) // pool is full, second is closed
	assert.True(t, second.HasBroken())

	again, err := p.Get()
	require.NoError(t, err)
	assert.Same(t, first, again)
	require.NoError(t, again.Ping())
	p.Put(again)
}

func TestPooledConnectionOutlivesServerTimeout(t *testing.T) {
	engine := memory.NewMemoryDB(nil)
	defer engine.Close()
	conf, _ := startServer(t, engine, tcp.NewTCPServerTransport(), common.TransportConf{
		Type:          common.TransportTCP,
		Endpoint:      "127.0.0.1:0",
		TimeoutSecond: 1,
		TCPConf:       common.TCPConf{TCPNoDelay: true, TCPLingerSec: -1},
	})

	p := NewPool(conf, tcp.NewTCPClientTransport())
	defer p.Close()

	conn, err := p.Get()
	require.NoError(t, err)
	require.NoError(t, conn.Ping())
	p.Put(conn)

	// the idle connection stays open past the server timeout
	time.Sleep(1500 * time.Millisecond)

	again, err := p.Get()
	require.NoError(t, err)
	assert.Same(t, conn, again)

	_, found, err := again.Get(kv.Key("k"))
	require.NoError(t, err)
	assert.False(t, found)
	require.NoError(t, again.Set(kv.Key("k"), kv.Value("v")))
	p.Put(again)
}

func TestPoolDiscardsBrokenConnections(t *testing.T) {
	engine := memory.NewMemoryDB(nil)
	defer engine.Close()

	socket := filepath.Join(t.TempDir(), "bkv.sock")
	serverConf := common.TransportConf{Type: common.TransportUnix, Endpoint: socket}
	conf, stop := startServer(t, engine, unix.NewUnixServerTransport(), serverConf)

	p := NewPool(conf, unix.NewUnixClientTransport())
	defer p.Close()

	conn, err := p.Get()
	require.NoError(t, err)
	require.NoError(t, conn.Set(kv.Key("k"), kv.Value("v")))
	p.Put(conn)

	// restart the server, the pooled connection is closed by the shutdown
	stop()
	startServer(t, engine, unix.NewUnixServerTransport(), serverConf)

	fresh, err := p.Get()
	require.NoError(t, err)
	assert.NotSame(t, conn, fresh)

	value, found, err := fresh.Get(kv.Key("k"))
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, kv.Value("v"), value)
	p.Put(fresh)
}

func TestPoolClose(t *testing.T) {
	engine := memory.NewMemoryDB(nil)
	defer engine.Close()
	p := NewPool(startTCPServer(t, engine), tcp.NewTCPClientTransport())

	conn, err := p.Get()
	require.NoError(t, err)
	require.NoError(t, p.Close())

	// returned after close
	p.Put(conn)
	assert.True(t, conn.HasBroken())

	_, err = p.Get()
	assert.ErrorIs(t, err, ErrPoolClosed)
}

func TestPoolConcurrentUse(t *testing.T) {
	engine := memory.NewMemoryDB(nil)
	defer engine.Close()
	p := NewPool(startTCPServer(t, engine), tcp.NewTCPClientTransport())
	defer p.Close()

	const workers = 8
	errs := make(chan error, workers)
	for w := 0; w < workers; w++ {
		go func(w int) {
			conn, err := p.Get()
			if err != nil {
				errs <- err
				return
			}
			defer p.Put(conn)
			for i := 0; i < 50; i++ {
				if err := conn.Set(kv.Key(fmt.Sprintf("w%d-%d", w, i)), kv.Value("v")); err != nil {
					errs <- err
					return
				}
			}
			errs <- nil
		}(w)
	}

	for w := 0; w < workers; w++ {
		select {
		case err := <-errs:
			require.NoError(t, err)
		case <-time.After(10 * time.Second):
			t.Fatal("workers did not finish")
		}
	}
	assert.Equal(t, workers*50, engine.GetInfo().Keys)
}
