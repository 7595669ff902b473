package bridge

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/agpsuite/telemetry-bridge/internal/command"
	"github.com/agpsuite/telemetry-bridge/internal/connection"
	"github.com/agpsuite/telemetry-bridge/internal/decoder"
	"github.com/agpsuite/telemetry-bridge/internal/fanout"
	"github.com/agpsuite/telemetry-bridge/internal/metrics"
	"github.com/agpsuite/telemetry-bridge/internal/model"
	"github.com/agpsuite/telemetry-bridge/internal/snapshot"
)

const tracerName = "github.com/agpsuite/telemetry-bridge/internal/bridge"

// Config configures the bridge.
type Config struct {
	Connection connection.ManagerConfig
	Channels   []string // Handshake channels; empty means command.DefaultChannels
	Fanout     fanout.Config
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Connection: connection.DefaultManagerConfig(),
		Channels:   command.DefaultChannels,
		Fanout:     fanout.DefaultConfig(),
	}
}

// Stats aggregates component statistics.
type Stats struct {
	Connection connection.ManagerStats `json:"connection"`
	Decoder    decoder.Stats           `json:"decoder"`
	Aggregator snapshot.Stats          `json:"aggregator"`
	Publisher  fanout.Stats            `json:"publisher"`
	Commands   command.Stats           `json:"commands"`
	Errors     int64                   `json:"errors"`
}

// Bridge owns the pipeline. It is the Connection Manager's Listener.
type Bridge struct {
	logger *slog.Logger
	tracer trace.Tracer

	manager  connection.Manager
	decoder  *decoder.Decoder
	agg      *snapshot.Aggregator
	pub      *fanout.Publisher
	commands *command.Channel

	errors atomic.Int64
}

// New creates a bridge. Endpoint problems surface from Start or Connect.
func New(cfg Config, logger *slog.Logger) (*Bridge, error) {
	if logger == nil {
		logger = slog.Default()
	}

	handshake, err := command.Handshake(cfg.Channels...)
	if err != nil {
		return nil, fmt.Errorf("build handshake: %w", err)
	}
	cfg.Connection.Handshake = handshake

	b := &Bridge{
		logger:  logger.With("component", "bridge"),
		tracer:  otel.Tracer(tracerName),
		decoder: decoder.New(logger),
		agg:     snapshot.New(logger),
		pub:     fanout.New(cfg.Fanout, logger),
	}
	b.manager = connection.NewManager(cfg.Connection, b, logger)
	b.commands = command.NewChannel(b.manager, logger)

	return b, nil
}

// Start connects to the producer. Reconnection runs in the background until Stop.
func (b *Bridge) Start(ctx context.Context) error {
	if err := b.manager.Connect(); err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	b.logger.Info("bridge started", "url", b.manager.Stats().URL)
	return nil
}

// Stop closes the connection and drains subscribers.
func (b *Bridge) Stop(ctx context.Context) error {
	b.logger.Info("stopping bridge")

	if err := b.manager.Close(ctx); err != nil {
		b.logger.Warn("connection manager close timed out", "error", err)
	}
	if err := b.pub.Close(ctx); err != nil {
		return fmt.Errorf("close publisher: %w", err)
	}

	b.logger.Info("bridge stopped")
	return nil
}

// Connect (re)starts connecting after a Disconnect.
func (b *Bridge) Connect() error {
	return b.manager.Connect()
}

// Disconnect closes the socket, cancels any retry and clears the Snapshot.
// The reset runs through OnDisconnect so it is ordered against frames and
// events of any later Connect.
func (b *Bridge) Disconnect() {
	b.manager.Disconnect()
}

// SendCommand writes cmd to the producer. It returns false when not connected.
func (b *Bridge) SendCommand(cmd command.Command) (bool, error) {
	return b.commands.Send(cmd)
}

// Subscribe registers a consumer.
func (b *Bridge) Subscribe(name string, h fanout.Handler) (uuid.UUID, error) {
	return b.pub.Subscribe(name, h)
}

// Unsubscribe removes a consumer.
func (b *Bridge) Unsubscribe(id uuid.UUID) bool {
	return b.pub.Unsubscribe(id)
}

// Snapshot returns a copy of the current state and derived metrics.
func (b *Bridge) Snapshot() (*model.Snapshot, metrics.Values) {
	return b.agg.Current()
}

// State returns the connection state.
func (b *Bridge) State() connection.State {
	return b.manager.State()
}

// Stats returns pipeline statistics.
func (b *Bridge) Stats() Stats {
	return Stats{
		Connection: b.manager.Stats(),
		Decoder:    b.decoder.Stats(),
		Aggregator: b.agg.Stats(),
		Publisher:  b.pub.Stats(),
		Commands:   b.commands.Stats(),
		Errors:     b.errors.Load(),
	}
}

// ---- connection.Listener ----

var _ connection.DisconnectListener = (*Bridge)(nil)

// OnDisconnect implements connection.DisconnectListener.
func (b *Bridge) OnDisconnect(session uuid.UUID) {
	b.logger.Debug("clearing snapshot", "session", session)

	upd := b.agg.Reset()
	b.pub.PublishSnapshot(upd.Snapshot, upd.Derived, upd.Touched)
}

// OnConnectivity records the flag on the Snapshot and announces it.
func (b *Bridge) OnConnectivity(c connection.ConnectivityChange) {
	b.logger.Info("producer connectivity changed",
		"connected", c.Connected,
		"explicit", c.Explicit,
		"session", c.Session,
	)

	upd := b.agg.SetConnected(c.Connected)
	b.pub.PublishConnectivity(c.Connected, c.Explicit, c.Session)
	b.pub.PublishSnapshot(upd.Snapshot, upd.Derived, upd.Touched)
}

// OnMessage decodes, merges and publishes one frame.
func (b *Bridge) OnMessage(msg connection.RawMessage) {
	_, span := b.tracer.Start(context.Background(), "bridge.frame",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("session", msg.Session.String()),
			attribute.Int("frame.bytes", len(msg.Data)),
		),
	)
	defer span.End()

	rec, err := b.decoder.Decode(msg.Data)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "decode failed")
		b.publishError(err)
		return
	}
	span.SetAttributes(attribute.String("record.kind", rec.Kind()))

	switch r := rec.(type) {
	case *decoder.ProducerError:
		b.publishError(r)
		return
	case *decoder.CommandAck:
		b.logger.Debug("command acknowledged", "type", r.Type)
		return
	}

	upd, ok := b.agg.Apply(rec)
	if !ok {
		return
	}
	span.SetAttributes(
		attribute.String("touched", upd.Touched.String()),
		attribute.Int64("seq", int64(upd.Seq)),
	)
	b.pub.PublishSnapshot(upd.Snapshot, upd.Derived, upd.Touched)
}

// OnError forwards connection errors to subscribers.
func (b *Bridge) OnError(err error) {
	b.publishError(err)
}

func (b *Bridge) publishError(err error) {
	b.errors.Add(1)
	b.pub.PublishError(err)
}
