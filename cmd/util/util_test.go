package util

import (
	"strings"
	"testing"

	"github.com/ValentinKolb/bronzeKV/rpc/common"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapString(t *testing.T) {
	text := strings.Repeat("word ", 30)
	for _, line := range strings.Split(WrapString(text), "\n") {
		assert.LessOrEqual(t, len(line), Wrap)
	}
	assert.Equal(t, "short text", WrapString("short   text"))
}

func TestGetTransportConfig(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	cmd := &cobra.Command{Use: "test"}
	SetupTransportFlags(cmd)
	require.NoError(t, cmd.PersistentFlags().Parse([]string{"--transport", "unix", "--endpoint", "/tmp/bkv.sock", "--read-buffer", "4"}))
	require.NoError(t, viper.BindPFlags(cmd.PersistentFlags()))

	conf := GetTransportConfig()
	assert.Equal(t, common.TransportUnix, conf.Type)
	assert.Equal(t, "/tmp/bkv.sock", conf.Endpoint)
	assert.Equal(t, int64(10), conf.TimeoutSecond)
	assert.Equal(t, 4*1024, conf.ReadBufferSize)
	assert.Equal(t, -1, conf.TCPLingerSec)
	assert.NoError(t, conf.Validate())
}

func TestGetClientConfig(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	cmd := &cobra.Command{Use: "test"}
	SetupTransportFlags(cmd)
	SetupClientFlags(cmd)
	require.NoError(t, viper.BindPFlags(cmd.PersistentFlags()))
	assert.Equal(t, 0, GetClientConfig().MaxIdle)

	require.NoError(t, cmd.PersistentFlags().Parse([]string{"--max-idle", "32"}))
	conf := GetClientConfig()
	assert.Equal(t, 32, conf.MaxIdle)
	assert.Equal(t, DefaultEndpoint, conf.Transport.Endpoint)
}

func TestEnvOverride(t *testing.T) {
	viper.Reset()
	defer viper.Reset()
	t.Setenv("BKV_ENDPOINT", "10.0.0.1:9000")
	t.Setenv("BKV_TCP_NODELAY", "false")

	InitConfig()
	conf := GetTransportConfig()
	assert.Equal(t, "10.0.0.1:9000", conf.Endpoint)
	assert.False(t, conf.TCPNoDelay)
}

func TestGetTransports(t *testing.T) {
	for _, tt := range []common.TransportType{common.TransportTCP, common.TransportUnix} {
		client, err := GetClientTransport(tt)
		require.NoError(t, err)
		assert.Equal(t, string(tt), client.GetName())

		_, err = GetServerTransport(tt)
		require.NoError(t, err)
	}

	_, err := GetClientTransport("http")
	assert.Error(t, err)
	_, err = GetServerTransport("http")
	assert.Error(t, err)
}
