package connection

import (
	"crypto/tls"
	"errors"
	"fmt"
	"time"

	"github.com/rickgao/camsync/internal/backoff"
	"github.com/rickgao/camsync/internal/event"
)

// Errors
var (
	ErrNotConnected    = errors.New("not connected")
	ErrStaleConnection = errors.New("connection stale (no ping)")
	ErrAlreadyClosed   = errors.New("already closed")
	ErrMaxAttempts     = errors.New("reconnect attempts exhausted")
)

// TransportError is a dial failure or an abrupt loss of the push channel.
type TransportError struct {
	Op      string // "dial", "read" or "heartbeat"
	Attempt int    // Consecutive failure count when the error happened
	Err     error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("push channel %s failed (attempt %d): %v", e.Op, e.Attempt, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// State is the lifecycle position of a Manager.
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateOpen
	StateClosing
	StateClosed
	StateReconnecting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	case StateReconnecting:
		return "reconnecting"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// MarshalText renders the state name in JSON and logs.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// TimestampedMessage wraps raw message data with receive timestamp.
type TimestampedMessage struct {
	Data       []byte    // Raw message bytes from WebSocket
	ReceivedAt time.Time // Local timestamp when ReadMessage() returned
}

// ReconnectAttempt describes one scheduled retry. Count is the number of
// consecutive failures so far; it starts again at zero after every Open.
type ReconnectAttempt struct {
	Count     int
	NextDelay time.Duration
	Err       error // Failure that triggered the retry
}

// ClientConfig configures a WebSocket client.
type ClientConfig struct {
	URL              string        // ws:// or wss:// push endpoint
	APIKey           string        // Bearer token (empty = no auth)
	UserAgent        string        // User-Agent on the handshake
	TLSConfig        *tls.Config   // Client certificates for wss (nil = system defaults)
	HandshakeTimeout time.Duration // Max time for the upgrade handshake
	PingInterval     time.Duration // How often we ping the server
	PingTimeout      time.Duration // Max time without ping/pong before considering connection stale
	WriteTimeout     time.Duration // Write deadline for sends
	BufferSize       int           // Message channel buffer size
}

// DefaultClientConfig returns sensible defaults.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		HandshakeTimeout: 10 * time.Second,
		PingInterval:     20 * time.Second,
		PingTimeout:      60 * time.Second,
		WriteTimeout:     5 * time.Second,
		BufferSize:       256,
	}
}

// ManagerConfig configures the Manager.
type ManagerConfig struct {
	Client      ClientConfig   // Template for every dial; URL is required
	MaxAttempts int            // Consecutive failures before giving up
	Backoff     backoff.Policy // Delay before retry n
	Bus         *event.Bus     // Optional; decoded events are published here before onEvent

	// OnStateChange is called after every transition, outside the manager lock.
	OnStateChange func(from, to State)

	// OnReconnect is called each time a retry is scheduled.
	OnReconnect func(ReconnectAttempt)
}

// DefaultManagerConfig returns sensible defaults.
func DefaultManagerConfig() ManagerConfig {
	return ManagerConfig{
		Client:      DefaultClientConfig(),
		MaxAttempts: 5,
		Backoff:     backoff.DefaultPolicy(),
	}
}

// ManagerStats provides statistics about the connection manager.
type ManagerStats struct {
	State        State
	Attempt      int
	Dials        int64
	Events       int64
	DecodeErrors int64
	Failures     int64
}
