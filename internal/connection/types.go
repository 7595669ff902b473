package connection

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Errors
var (
	ErrNotConnected    = errors.New("not connected")
	ErrStaleConnection = errors.New("connection stale (no ping)")
	ErrAlreadyClosed   = errors.New("already closed")
	ErrInvalidConfig   = errors.New("invalid connection config")
)

// State is the lifecycle state of the producer connection.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	}
	return "unknown"
}

// MarshalText encodes the state name for logs and JSON.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// TimestampedMessage wraps raw message data with receive timestamp.
type TimestampedMessage struct {
	Data       []byte    // Raw message bytes from WebSocket
	ReceivedAt time.Time // Local timestamp when ReadMessage() returned
}

// RawMessage is a frame handed from the Connection Manager to its Listener.
type RawMessage struct {
	Data       []byte    // Raw message bytes from WebSocket
	Session    uuid.UUID // Connection this frame arrived on
	ReceivedAt time.Time // Local timestamp when WS Client received message
}

// ConnectivityChange reports a flip of the connected flag.
type ConnectivityChange struct {
	Connected bool
	Explicit  bool      // Caused by Disconnect() rather than the network
	Session   uuid.UUID // Session that opened or closed
	At        time.Time
	Cause     error // Why the connection dropped, nil on connect or clean close
}

// Listener receives every event of the Connection Manager. Calls are
// serialized: a callback never runs concurrently with another callback.
// Callbacks must not call Disconnect or Close.
type Listener interface {
	OnConnectivity(change ConnectivityChange)
	OnMessage(msg RawMessage)
	OnError(err error)
}

// DisconnectListener is optionally implemented by a Listener that must act on
// every Disconnect call, even one made while the socket was already down.
// OnDisconnect runs in the serialized callback sequence, after any callback of
// the abandoned connection and before any callback of a later Connect.
type DisconnectListener interface {
	OnDisconnect(session uuid.UUID)
}

// ClientConfig configures a WebSocket client.
type ClientConfig struct {
	URL              string        // WebSocket URL (e.g., ws://localhost:8765/)
	HandshakeTimeout time.Duration // Dial + upgrade deadline
	PingInterval     time.Duration // How often we ping the producer
	PingTimeout      time.Duration // Max time without ping/pong before considering connection stale
	WriteTimeout     time.Duration // Write deadline for sends
	BufferSize       int           // Message channel buffer size
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		HandshakeTimeout: 10 * time.Second,
		PingInterval:     30 * time.Second,
		PingTimeout:      90 * time.Second,
		WriteTimeout:     5 * time.Second,
		BufferSize:       1000,
	}
}

// RetryPolicy selects how the delay between reconnect attempts evolves.
type RetryPolicy string

const (
	RetryConstant    RetryPolicy = "constant"    // Same delay every attempt
	RetryExponential RetryPolicy = "exponential" // Doubles up to RetryMaxDelay
)

// ManagerConfig configures the Connection Manager.
type ManagerConfig struct {
	Scheme string // "ws" or "wss"
	Host   string
	Port   int
	Path   string

	RetryPolicy   RetryPolicy
	RetryDelay    time.Duration // Constant delay, or initial delay for exponential
	RetryMaxDelay time.Duration // Cap for exponential

	HandshakeTimeout time.Duration
	PingInterval     time.Duration
	PingTimeout      time.Duration
	WriteTimeout     time.Duration
	BufferSize       int

	// Handshake is written as the first frame of every connection, before
	// the state becomes Connected. Empty means no handshake.
	Handshake []byte
}

// DefaultManagerConfig returns the defaults for a local producer.
func DefaultManagerConfig() ManagerConfig {
	c := DefaultClientConfig()
	return ManagerConfig{
		Scheme:           "ws",
		Host:             "localhost",
		Port:             8765,
		Path:             "/",
		RetryPolicy:      RetryConstant,
		RetryDelay:       5 * time.Second,
		RetryMaxDelay:    60 * time.Second,
		HandshakeTimeout: c.HandshakeTimeout,
		PingInterval:     c.PingInterval,
		PingTimeout:      c.PingTimeout,
		WriteTimeout:     c.WriteTimeout,
		BufferSize:       c.BufferSize,
	}
}

// URL returns the producer endpoint.
func (c ManagerConfig) URL() string {
	u := url.URL{
		Scheme: c.Scheme,
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:   c.Path,
	}
	return u.String()
}

// Validate checks the endpoint and timing settings. Errors wrap ErrInvalidConfig.
func (c ManagerConfig) Validate() error {
	if c.Host == "" {
		return fmt.Errorf("%w: host is required", ErrInvalidConfig)
	}
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("%w: port must be between 1 and 65535, got %d", ErrInvalidConfig, c.Port)
	}
	if c.Scheme != "ws" && c.Scheme != "wss" {
		return fmt.Errorf("%w: scheme must be ws or wss, got %q", ErrInvalidConfig, c.Scheme)
	}
	if c.RetryDelay <= 0 {
		return fmt.Errorf("%w: retry delay must be positive, got %s", ErrInvalidConfig, c.RetryDelay)
	}
	switch c.RetryPolicy {
	case RetryConstant:
	case RetryExponential:
		if c.RetryMaxDelay < c.RetryDelay {
			return fmt.Errorf("%w: retry max delay (%s) cannot be below retry delay (%s)", ErrInvalidConfig, c.RetryMaxDelay, c.RetryDelay)
		}
	default:
		return fmt.Errorf("%w: unknown retry policy %q", ErrInvalidConfig, c.RetryPolicy)
	}
	return nil
}

func (c ManagerConfig) clientConfig() ClientConfig {
	return ClientConfig{
		URL:              c.URL(),
		HandshakeTimeout: c.HandshakeTimeout,
		PingInterval:     c.PingInterval,
		PingTimeout:      c.PingTimeout,
		WriteTimeout:     c.WriteTimeout,
		BufferSize:       c.BufferSize,
	}
}

// ManagerStats provides statistics about the connection manager.
type ManagerStats struct {
	State            State
	Session          uuid.UUID
	URL              string
	Connects         int64
	Disconnects      int64
	DialFailures     int64
	Retries          int64
	MessagesReceived int64
	MessagesSent     int64
	SendsDropped     int64
}
