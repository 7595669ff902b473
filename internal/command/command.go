package command

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync/atomic"
)

// Command types understood by the producer.
const (
	TypeSubscribe          = "subscribe"
	TypeGetStatus          = "get_status"
	TypeGetRecommendations = "get_recommendations"
	TypeGetSummary         = "get_summary"
	TypeLoadSetup          = "load_setup"
	TypePing               = "ping"
)

// DefaultChannels are the feeds requested by the connection handshake.
var DefaultChannels = []string{"telemetry", "analysis", "strategy", "recommendations", "live_timing"}

// ErrInvalidCommand is returned for commands the producer would reject.
var ErrInvalidCommand = errors.New("invalid command")

// Command is a request to the producer.
type Command struct {
	Type     string   `json:"type"`
	Channels []string `json:"channels,omitempty"` // subscribe
	Path     string   `json:"path,omitempty"`     // load_setup
}

// Subscribe requests the given feeds, or DefaultChannels when none are given.
func Subscribe(channels ...string) Command {
	if len(channels) == 0 {
		channels = DefaultChannels
	}
	return Command{Type: TypeSubscribe, Channels: slices.Clone(channels)}
}

func GetStatus() Command          { return Command{Type: TypeGetStatus} }
func GetRecommendations() Command { return Command{Type: TypeGetRecommendations} }
func GetSummary() Command         { return Command{Type: TypeGetSummary} }
func Ping() Command               { return Command{Type: TypePing} }

// LoadSetup asks the producer to load a setup file from path.
func LoadSetup(path string) Command {
	return Command{Type: TypeLoadSetup, Path: path}
}

// Validate checks required arguments.
func (c Command) Validate() error {
	switch c.Type {
	case TypeSubscribe:
		if len(c.Channels) == 0 {
			return fmt.Errorf("%w: subscribe needs at least one channel", ErrInvalidCommand)
		}
	case TypeLoadSetup:
		if c.Path == "" {
			return fmt.Errorf("%w: load_setup needs a path", ErrInvalidCommand)
		}
	case TypeGetStatus, TypeGetRecommendations, TypeGetSummary, TypePing:
	default:
		return fmt.Errorf("%w: unknown type %q", ErrInvalidCommand, c.Type)
	}
	return nil
}

// Marshal validates and encodes the command as a JSON text frame.
func (c Command) Marshal() ([]byte, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	data, err := json.Marshal(c)
	if err != nil {
		return nil, fmt.Errorf("marshal %s: %w", c.Type, err)
	}
	return data, nil
}

// Handshake returns the subscribe frame written first on every connection.
func Handshake(channels ...string) ([]byte, error) {
	return Subscribe(channels...).Marshal()
}

// Sender writes a frame to the producer and reports whether it was written.
type Sender interface {
	Send(data []byte) bool
}

// Stats contains command channel counters.
type Stats struct {
	Sent     int64
	Dropped  int64 // Not connected
	Rejected int64 // Failed validation
}

// Channel serializes commands onto a Sender.
type Channel struct {
	sender Sender
	logger *slog.Logger

	sent     atomic.Int64
	dropped  atomic.Int64
	rejected atomic.Int64
}

// NewChannel creates a command channel writing to sender.
func NewChannel(sender Sender, logger *slog.Logger) *Channel {
	if logger == nil {
		logger = slog.Default()
	}
	return &Channel{
		sender: sender,
		logger: logger,
	}
}

// Send writes cmd. It returns false without error when the producer is not
// connected; commands are never queued.
func (c *Channel) Send(cmd Command) (bool, error) {
	data, err := cmd.Marshal()
	if err != nil {
		c.rejected.Add(1)
		return false, err
	}

	if !c.sender.Send(data) {
		c.dropped.Add(1)
		c.logger.Debug("command dropped, not connected", "type", cmd.Type)
		return false, nil
	}

	c.sent.Add(1)
	c.logger.Debug("command sent", "type", cmd.Type)
	return true, nil
}

// Stats returns current counters.
func (c *Channel) Stats() Stats {
	return Stats{
		Sent:     c.sent.Load(),
		Dropped:  c.dropped.Load(),
		Rejected: c.rejected.Load(),
	}
}
