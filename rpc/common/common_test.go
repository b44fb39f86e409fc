package common

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lni/dragonboat/v4/logger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLogLevel(t *testing.T) {
	tests := map[string]logger.LogLevel{
		"debug":   logger.DEBUG,
		"INFO":    logger.INFO,
		"":        logger.INFO,
		"warn":    logger.WARNING,
		"warning": logger.WARNING,
		"error":   logger.ERROR,
	}
	for in, expected := range tests {
		level, err := ParseLogLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, expected, level, in)
	}

	_, err := ParseLogLevel("loud")
	assert.Error(t, err)
}

func TestLoggerLevels(t *testing.T) {
	var console bytes.Buffer
	prev := sink.Load()
	sink.Store(newZapLogger(zapcore.AddSync(&console), nil))
	defer sink.Store(prev)

	l := CreateLogger("rpc")
	l.Debugf("hidden %d", 1)
	l.Infof("visible %d", 2)
	l.SetLevel(logger.ERROR)
	l.Warningf("hidden %d", 3)
	l.Errorf("visible %d", 4)

	out := console.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "visible 2")
	assert.Contains(t, out, "visible 4")
	assert.Contains(t, out, "rpc")
	assert.Contains(t, out, "ERROR")

	assert.Panics(t, func() {
		l.Panicf("boom")
	})
}

func TestLoggerFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bkv.log")
	var console bytes.Buffer

	prev := sink.Load()
	sink.Store(newZapLogger(zapcore.AddSync(&console), zapFileSyncer(path)))
	defer sink.Store(prev)

	CreateLogger("db").Infof("written to both")
	SyncLoggers()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"written to both"`)
	assert.Contains(t, console.String(), "written to both")
}

func TestTransportConfValidate(t *testing.T) {
	conf := TransportConf{Type: TransportTCP, Endpoint: "localhost:7878"}
	assert.NoError(t, conf.Validate())

	conf.Type = "http"
	assert.Error(t, conf.Validate())

	conf = TransportConf{Type: TransportUnix}
	assert.Error(t, conf.Validate())

	conf = TransportConf{Type: TransportTCP, Endpoint: "x", TimeoutSecond: -1}
	assert.Error(t, conf.Validate())
}

func TestServerConfigString(t *testing.T) {
	conf := &ServerConfig{
		Transport: TransportConf{
			Type:          TransportTCP,
			Endpoint:      "0.0.0.0:7878",
			TimeoutSecond: 5,
			TCPConf:       TCPConf{TCPNoDelay: true, TCPLingerSec: -1},
		},
		Engine:          "pebble",
		DataDir:         "/var/lib/bkv",
		MetricsEndpoint: ":9090",
		Log:             LogConf{Level: "info"},
	}
	require.NoError(t, conf.Validate())

	out := conf.String()
	for _, expected := range []string{"RPC SERVER", "0.0.0.0:7878", "5 sec", "STORAGE", "/var/lib/bkv", "METRICS", ":9090", "TCP No Delay"} {
		assert.True(t, strings.Contains(out, expected), "missing %q in\n%s", expected, out)
	}

	conf.Log.Level = "chatty"
	assert.Error(t, conf.Validate())
}

func TestClientConfigString(t *testing.T) {
	conf := &ClientConfig{
		Transport: TransportConf{Type: TransportUnix, Endpoint: "/tmp/bkv.sock"},
		MaxIdle:   4,
	}
	out := conf.String()
	assert.Contains(t, out, "/tmp/bkv.sock")
	assert.Contains(t, out, "Max Idle Connections")
	assert.NotContains(t, out, "TCP No Delay")
}
