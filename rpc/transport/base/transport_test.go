package base_test

import (
	"bufio"
	"context"
	"io"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/ValentinKolb/bronzeKV/rpc/common"
	"github.com/ValentinKolb/bronzeKV/rpc/transport"
	"github.com/ValentinKolb/bronzeKV/rpc/transport/tcp"
	"github.com/ValentinKolb/bronzeKV/rpc/transport/unix"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// echoHandler echoes lines until the client disconnects
func echoHandler(_ context.Context, conn net.Conn) error {
	r := bufio.NewReader(conn)
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return err
		}
		if _, err := conn.Write([]byte(line)); err != nil {
			return err
		}
	}
}

func serve(t *testing.T, srv transport.IRPCServerTransport, conf common.TransportConf, handler transport.ConnHandler) (context.CancelFunc, <-chan error) {
	t.Helper()
	srv.RegisterHandler(handler)
	require.NoError(t, srv.Listen(conf))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()
	t.Cleanup(cancel)
	return cancel, done
}

func roundTrip(t *testing.T, conn net.Conn, msg string) {
	t.Helper()
	_, err := conn.Write([]byte(msg + "\n"))
	require.NoError(t, err)
	line, err := bufio.NewReader(conn).ReadString('\n')
	require.NoError(t, err)
	assert.Equal(t, msg+"\n", line)
}

func TestTransports(t *testing.T) {
	cases := []struct {
		name   string
		server func() transport.IRPCServerTransport
		client func() transport.IRPCClientTransport
		conf   func(t *testing.T) common.TransportConf
	}{
		{
			name:   "tcp",
			server: tcp.NewTCPServerTransport,
			client: tcp.NewTCPClientTransport,
			conf: func(t *testing.T) common.TransportConf {
				return common.TransportConf{
					Type:       common.TransportTCP,
					Endpoint:   "127.0.0.1:0",
					SocketConf: common.SocketConf{WriteBufferSize: 64 * 1024, ReadBufferSize: 64 * 1024},
					TCPConf:    common.TCPConf{TCPNoDelay: true, TCPKeepAliveSec: 30, TCPLingerSec: -1},
				}
			},
		},
		{
			name:   "unix",
			server: unix.NewUnixServerTransport,
			client: unix.NewUnixClientTransport,
			conf: func(t *testing.T) common.TransportConf {
				return common.TransportConf{
					Type:     common.TransportUnix,
					Endpoint: filepath.Join(t.TempDir(), "bkv.sock"),
				}
			},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := tc.server()
			conf := tc.conf(t)
			cancel, done := serve(t, srv, conf, echoHandler)

			// the client dials the bound address
			clientConf := conf
			clientConf.Endpoint = srv.Addr().String()
			client := tc.client()
			assert.Equal(t, tc.name, client.GetName())

			conn, err := client.Dial(clientConf)
			require.NoError(t, err)
			roundTrip(t, conn, "hello")

			require.Eventually(t, func() bool {
				return srv.ActiveConnections() == 1
			}, time.Second, 10*time.Millisecond)

			// shutdown closes the listener and the live connection
			cancel()
			select {
			case err := <-done:
				require.NoError(t, err)
			case <-time.After(5 * time.Second):
				t.Fatal("serve did not return after cancel")
			}
			assert.Equal(t, 0, srv.ActiveConnections())

			_, err = conn.Read(make([]byte, 1))
			assert.Error(t, err)
		})
	}
}

func TestListenTwice(t *testing.T) {
	srv := tcp.NewTCPServerTransport()
	conf := common.TransportConf{Type: common.TransportTCP, Endpoint: "127.0.0.1:0", TCPConf: common.TCPConf{TCPLingerSec: -1}}
	require.NoError(t, srv.Listen(conf))
	assert.Error(t, srv.Listen(conf))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	srv.RegisterHandler(echoHandler)
	assert.NoError(t, srv.Serve(ctx))
}

func TestServeRequiresHandler(t *testing.T) {
	srv := tcp.NewTCPServerTransport()
	require.NoError(t, srv.Listen(common.TransportConf{Type: common.TransportTCP, Endpoint: "127.0.0.1:0"}))
	assert.Error(t, srv.Serve(context.Background()))
}

func TestIdleConnectionTimesOut(t *testing.T) {
	srv := tcp.NewTCPServerTransport()
	conf := common.TransportConf{
		Type:          common.TransportTCP,
		Endpoint:      "127.0.0.1:0",
		TimeoutSecond: 1,
		TCPConf:       common.TCPConf{TCPLingerSec: -1},
	}
	handlerErr := make(chan error, 1)
	serve(t, srv, conf, func(ctx context.Context, conn net.Conn) error {
		_, err := io.ReadAll(conn)
		handlerErr <- err
		return err
	})

	conn, err := net.Dial("tcp", srv.Addr().String())
	require.NoError(t, err)
	defer conn.Close()

	select {
	case err := <-handlerErr:
		var netErr net.Error
		require.ErrorAs(t, err, &netErr)
		assert.True(t, netErr.Timeout())
	case <-time.After(5 * time.Second):
		t.Fatal("idle connection did not time out")
	}
}

func TestDialFailure(t *testing.T) {
	client := unix.NewUnixClientTransport()
	_, err := client.Dial(common.TransportConf{
		Type:     common.TransportUnix,
		Endpoint: filepath.Join(t.TempDir(), "missing.sock"),
	})
	assert.Error(t, err)

	_, err = client.Dial(common.TransportConf{Type: common.TransportUnix})
	assert.Error(t, err)
}
