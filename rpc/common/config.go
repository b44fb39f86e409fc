package common

import (
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

// --------------------------------------------------------------------------
// Transport configuration
// --------------------------------------------------------------------------

type TransportType string

const (
	TransportTCP  TransportType = "tcp"
	TransportUnix TransportType = "unix"
)

// SocketConf holds socket level tuning shared by all stream transports
type SocketConf struct {
	WriteBufferSize int // SO_SNDBUF in bytes (0 = OS default)
	ReadBufferSize  int // SO_RCVBUF in bytes (0 = OS default)
}

// TCPConf holds TCP specific tuning, it is ignored by the unix transport
type TCPConf struct {
	TCPNoDelay      bool // Disable Nagle's algorithm
	TCPKeepAliveSec int  // Keep-alive period in seconds (0 = disabled)
	TCPLingerSec    int  // SO_LINGER in seconds (-1 = OS default)
}

// TransportConf describes one end of a connection
type TransportConf struct {
	Type          TransportType
	Endpoint      string // host:port for tcp, socket path for unix
	TimeoutSecond int64  // Read and write deadline per operation (0 = none)
	SocketConf
	TCPConf
}

// Timeout returns the per operation deadline as a duration
func (c TransportConf) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecond) * time.Second
}

// Validate checks the transport type and endpoint
func (c TransportConf) Validate() error {
	switch c.Type {
	case TransportTCP, TransportUnix:
	default:
		return errors.Newf("invalid transport %q, must be one of %s, %s", c.Type, TransportTCP, TransportUnix)
	}
	if c.Endpoint == "" {
		return errors.New("endpoint must not be empty")
	}
	if c.TimeoutSecond < 0 {
		return errors.Newf("timeout must not be negative, got %d", c.TimeoutSecond)
	}
	return nil
}

// --------------------------------------------------------------------------
// Logging configuration
// --------------------------------------------------------------------------

type LogConf struct {
	Level string // debug, info, warn, error
	File  string // Optional rotating JSON log file
}

// --------------------------------------------------------------------------
// RPC server configuration struct
// --------------------------------------------------------------------------

// ServerConfig holds all configuration parameters of a bronzeKV server.
type ServerConfig struct {
	Transport TransportConf

	// Storage engine
	Engine     string
	DataDir    string
	SyncWrites bool

	// Prometheus metrics, served over HTTP (empty = disabled)
	MetricsEndpoint string

	Log LogConf
}

// Validate checks the configuration for values the server cannot start with
func (c *ServerConfig) Validate() error {
	if err := c.Transport.Validate(); err != nil {
		return err
	}
	if _, err := ParseLogLevel(c.Log.Level); err != nil {
		return err
	}
	return nil
}

// String returns a formatted string representation of the configuration
func (c *ServerConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// RPC settings
	addSection("RPC Server")
	addField("Transport", string(c.Transport.Type))
	addField("Endpoint", c.Transport.Endpoint)
	addField("Timeout", fmt.Sprintf("%d sec", c.Transport.TimeoutSecond))
	addTransportFields(addField, c.Transport)

	// Storage
	addSection("Storage")
	addField("Engine", c.Engine)
	if c.Engine == "pebble" {
		addField("Data Directory", c.DataDir)
		addField("Sync Writes", fmt.Sprintf("%t", c.SyncWrites))
	}

	// Metrics
	if c.MetricsEndpoint != "" {
		addSection("Metrics")
		addField("Endpoint", c.MetricsEndpoint)
	}

	// Logging configuration
	addSection("Logging")
	addField("Log Level", c.Log.Level)
	if c.Log.File != "" {
		addField("Log File", c.Log.File)
	}

	return sb.String()
}

// --------------------------------------------------------------------------
// RPC client configuration struct
// --------------------------------------------------------------------------

type ClientConfig struct {
	Transport TransportConf

	// MaxIdle is the number of idle connections a Pool keeps (0 = default)
	MaxIdle int
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder

	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	addSection("Client Configuration")
	addField("Transport", string(c.Transport.Type))
	addField("Endpoint", c.Transport.Endpoint)
	addField("Timeout", fmt.Sprintf("%d sec", c.Transport.TimeoutSecond))
	addField("Max Idle Connections", fmt.Sprintf("%d", c.MaxIdle))
	addTransportFields(addField, c.Transport)

	return sb.String()
}

// addTransportFields prints the socket tuning, TCP options only for tcp
func addTransportFields(addField func(name, value string), t TransportConf) {
	if t.WriteBufferSize > 0 {
		addField("Write Buffer", fmt.Sprintf("%d bytes", t.WriteBufferSize))
	}
	if t.ReadBufferSize > 0 {
		addField("Read Buffer", fmt.Sprintf("%d bytes", t.ReadBufferSize))
	}
	if t.Type == TransportTCP {
		addField("TCP No Delay", fmt.Sprintf("%t", t.TCPNoDelay))
		addField("TCP Keep Alive", fmt.Sprintf("%d sec", t.TCPKeepAliveSec))
		addField("TCP Linger", fmt.Sprintf("%d sec", t.TCPLingerSec))
	}
}
