package util

import (
	"strings"

	"github.com/ValentinKolb/bronzeKV/rpc/common"
	"github.com/ValentinKolb/bronzeKV/rpc/transport"
	"github.com/ValentinKolb/bronzeKV/rpc/transport/tcp"
	"github.com/ValentinKolb/bronzeKV/rpc/transport/unix"
	"github.com/cockroachdb/errors"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const (
	// Wrap is the number of characters to Wrap the help text at
	Wrap int = 50

	// DefaultEndpoint is the address the server listens on and the client connects to
	DefaultEndpoint = "127.0.0.1:8088"
)

// WrapString wraps a string at Wrap characters
func WrapString(text string) string {
	var wrappedLines []string
	var currentLine strings.Builder
	lineWidth := 0

	for _, word := range strings.Fields(text) {
		wordWidth := len(word)

		// Check if we need to wrap
		if lineWidth > 0 && lineWidth+1+wordWidth > Wrap {
			wrappedLines = append(wrappedLines, currentLine.String())
			currentLine.Reset()
			lineWidth = 0
		}

		// Add space before word (if not first word on line)
		if lineWidth > 0 {
			currentLine.WriteString(" ")
			lineWidth++
		}

		// Add the word
		currentLine.WriteString(word)
		lineWidth += wordWidth
	}

	// Add any remaining text
	if currentLine.Len() > 0 {
		wrappedLines = append(wrappedLines, currentLine.String())
	}

	return strings.Join(wrappedLines, "\n")
}

// --------------------------------------------------------------------------
// Flags
// --------------------------------------------------------------------------

// SetupTransportFlags adds the connection flags shared by server and client commands
func SetupTransportFlags(cmd *cobra.Command) {
	key := "transport"
	cmd.PersistentFlags().String(key, string(common.TransportTCP), WrapString("The transport to use (tcp, unix)"))

	key = "endpoint"
	cmd.PersistentFlags().String(key, DefaultEndpoint, WrapString("The address of the server: host:port for tcp, a socket path for unix (e.g. 127.0.0.1:8088, /tmp/bkv.sock)"))

	key = "timeout"
	cmd.PersistentFlags().Int64(key, 10, WrapString("Read and write timeout in seconds for every operation on a connection (0 = no timeout)"))

	key = "write-buffer"
	cmd.PersistentFlags().Int(key, 0, WrapString("The size of the socket write buffer in KB (0 = OS default)"))

	key = "read-buffer"
	cmd.PersistentFlags().Int(key, 0, WrapString("The size of the socket read buffer in KB (0 = OS default)"))

	key = "tcp-nodelay"
	cmd.PersistentFlags().Bool(key, true, WrapString("Whether to enable TCP_NODELAY (only for tcp)"))

	key = "tcp-keepalive"
	cmd.PersistentFlags().Int(key, 0, WrapString("The keepalive interval in seconds (0 = disabled, only for tcp)"))

	key = "tcp-linger"
	cmd.PersistentFlags().Int(key, -1, WrapString("The linger time in seconds (-1 = OS default, only for tcp)"))
}

// SetupClientFlags adds the flags of client commands that hold connections
func SetupClientFlags(cmd *cobra.Command) {
	key := "max-idle"
	cmd.PersistentFlags().Int(key, 0, WrapString("The number of idle connections a client pool keeps (0 = default of 8)"))
}

// BindCommandFlags binds a command's flags to viper
func BindCommandFlags(cmd *cobra.Command) error {
	return viper.BindPFlags(cmd.Flags())
}

// --------------------------------------------------------------------------
// Configuration
// --------------------------------------------------------------------------

// InitConfig loads .env files and enables BKV_ environment overrides
func InitConfig() {
	// load env files
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	// initialize viper
	viper.SetEnvPrefix("bkv")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // read in environment variables that match
}

// ReadConfigFile merges the config file given with --config, if any
func ReadConfigFile() error {
	path := viper.GetString("config")
	if path == "" {
		return nil
	}
	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		return errors.Wrapf(err, "failed to read config file %s", path)
	}
	return nil
}

// GetTransportConfig reads the transport configuration from viper
func GetTransportConfig() common.TransportConf {
	return common.TransportConf{
		Type:          common.TransportType(viper.GetString("transport")),
		Endpoint:      viper.GetString("endpoint"),
		TimeoutSecond: viper.GetInt64("timeout"),
		SocketConf: common.SocketConf{
			WriteBufferSize: viper.GetInt("write-buffer") * 1024,
			ReadBufferSize:  viper.GetInt("read-buffer") * 1024,
		},
		TCPConf: common.TCPConf{
			TCPNoDelay:      viper.GetBool("tcp-nodelay"),
			TCPKeepAliveSec: viper.GetInt("tcp-keepalive"),
			TCPLingerSec:    viper.GetInt("tcp-linger"),
		},
	}
}

// GetClientConfig reads the client configuration from viper
func GetClientConfig() *common.ClientConfig {
	return &common.ClientConfig{
		Transport: GetTransportConfig(),
		MaxIdle:   viper.GetInt("max-idle"),
	}
}

// --------------------------------------------------------------------------
// Transports
// --------------------------------------------------------------------------

// GetServerTransport creates the server transport for the configured type
func GetServerTransport(t common.TransportType) (transport.IRPCServerTransport, error) {
	switch t {
	case common.TransportTCP:
		return tcp.NewTCPServerTransport(), nil
	case common.TransportUnix:
		return unix.NewUnixServerTransport(), nil
	default:
		return nil, errors.Newf("invalid transport %s", t)
	}
}

// GetClientTransport creates the client transport for the configured type
func GetClientTransport(t common.TransportType) (transport.IRPCClientTransport, error) {
	switch t {
	case common.TransportTCP:
		return tcp.NewTCPClientTransport(), nil
	case common.TransportUnix:
		return unix.NewUnixClientTransport(), nil
	default:
		return nil, errors.Newf("invalid transport %s", t)
	}
}
