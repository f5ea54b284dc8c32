package common

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// --------------------------------------------------------------------------
// Shared transport tuning parameters
// --------------------------------------------------------------------------

// SocketConf holds low-level socket tuning parameters shared by the TCP based
// transports. A zero value means "leave the OS default in place".
type SocketConf struct {
	// Socket buffer sizes in bytes
	WriteBufferSize int
	ReadBufferSize  int

	// TCP specific settings (ignored by unix sockets)
	TCPNoDelay      bool
	TCPKeepAliveSec int
	TCPLingerSec    int
}

// --------------------------------------------------------------------------
// RPC server configuration struct
// --------------------------------------------------------------------------

// ServerTransportConf holds the transport layer settings of the server.
type ServerTransportConf struct {
	// Endpoint is the address the server listens on. Its format depends on
	// the transport: "host:port" for tcp/http, a socket path for unix.
	Endpoint string

	// MaxWorkersPerConn limits how many requests of a single connection may
	// be processed concurrently. Values < 1 are treated as 1.
	MaxWorkersPerConn int

	SocketConf
}

// ServerConfig holds all configuration parameters for the lock server.
type ServerConfig struct {
	// Shards lists the ids of the lock manager shards this server hosts.
	// Each shard is backed by an independent lock manager instance.
	Shards []uint64

	// Lock manager parameters
	SweepIntervalMS uint64 // Sweeper interval in milliseconds, 0 means default

	// Read/write timeout for client connections
	TimeoutSecond int64

	// Optional HTTP endpoint serving Prometheus metrics (empty = disabled)
	MetricsEndpoint string

	// Logging configuration
	LogLevel string

	// Transport layer settings
	Transport ServerTransportConf
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
	addField("Endpoint", c.Transport.Endpoint)
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Workers Per Conn", strconv.Itoa(int(math.Max(1, float64(c.Transport.MaxWorkersPerConn)))))

	// Lock manager settings
	addSection("Lock Manager")
	if c.SweepIntervalMS > 0 {
		addField("Sweep Interval", fmt.Sprintf("%d ms", c.SweepIntervalMS))
	} else {
		addField("Sweep Interval", "default")
	}

	// Shards
	addSection("Shards")
	for _, shardID := range c.Shards {
		addField(strconv.FormatUint(shardID, 10), "lock manager")
	}

	// Observability
	addSection("Observability")
	addField("Log Level", c.LogLevel)
	if c.MetricsEndpoint != "" {
		addField("Metrics Endpoint", c.MetricsEndpoint)
	} else {
		addField("Metrics Endpoint", "disabled")
	}

	return sb.String()
}

// --------------------------------------------------------------------------
// RPC client configuration struct
// --------------------------------------------------------------------------

// ClientTransportConf holds the transport layer settings of the client.
type ClientTransportConf struct {
	// Endpoints lists the server addresses the client connects to.
	Endpoints []string

	// RetryCount is the number of send attempts per request (min 1)
	RetryCount int

	// ConnectionsPerEndpoint controls how many connections are opened per
	// endpoint. Values < 1 are treated as 1.
	ConnectionsPerEndpoint int

	SocketConf
}

// ClientConfig holds all configuration parameters for the RPC client.
type ClientConfig struct {
	// Read/write timeout per request
	TimeoutSecond int

	// Transport layer settings
	Transport ClientTransportConf
}

// String returns a formatted string representation of the client configuration
func (c *ClientConfig) String() string {
	var sb strings.Builder

	// Create helper functions for consistent formatting
	addSection := func(title string) {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("%s\n", strings.ToUpper(title)))
	}

	addField := func(name, value string) {
		sb.WriteString(fmt.Sprintf("  %-22s: %s\n", name, value))
	}

	// General Client Settings
	addSection("Client Configuration")
	addField("Timeout", fmt.Sprintf("%d sec", c.TimeoutSecond))
	addField("Retry Count", strconv.Itoa(c.Transport.RetryCount))
	addField("Connections Per Endpoint", strconv.Itoa(int(math.Max(1, float64(c.Transport.ConnectionsPerEndpoint)))))

	// Endpoints
	addSection("Endpoints")
	for i, endpoint := range c.Transport.Endpoints {
		addField(strconv.Itoa(i), endpoint)
	}

	return sb.String()
}
