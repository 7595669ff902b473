package connection

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/google/uuid"
)

// ErrManagerClosed is returned by Connect after Close.
var ErrManagerClosed = errors.New("connection manager closed")

// Manager owns the single WebSocket to the producer and reconnects it.
type Manager interface {
	// Connect starts connecting. It is a no-op while connecting or
	// connected, and cancels a pending retry to dial immediately.
	Connect() error

	// Disconnect closes the socket and cancels any pending retry. No
	// Listener callback runs after Disconnect returns, except those caused
	// by a later Connect.
	Disconnect()

	// Send writes a frame if connected. It reports whether the frame was
	// written; frames are silently dropped otherwise.
	Send(data []byte) bool

	// State returns the current lifecycle state.
	State() State

	// Stats returns current connection statistics.
	Stats() ManagerStats

	// Close disconnects and waits for background goroutines.
	Close(ctx context.Context) error
}

// manager implements the Manager interface.
type manager struct {
	cfg      ManagerConfig
	url      string
	listener Listener
	logger   *slog.Logger

	newClient func(ClientConfig, *slog.Logger) Client

	mu         sync.Mutex
	state      State
	gen        uint64 // Bumped whenever the current attempt is abandoned
	client     Client
	session    uuid.UUID
	cancelDial context.CancelFunc
	retry      *time.Timer
	backoff    backoff.BackOff
	closed     bool
	stats      ManagerStats
	pending    *ConnectivityChange // Explicit disconnect not yet delivered

	received atomic.Int64

	// Serializes Listener callbacks. lastConnected is guarded by it.
	dispatchMu    sync.Mutex
	lastConnected bool

	wg sync.WaitGroup
}

// NewManager creates a new Connection Manager. Config errors surface from Connect.
func NewManager(cfg ManagerConfig, listener Listener, logger *slog.Logger) Manager {
	if logger == nil {
		logger = slog.Default()
	}
	if listener == nil {
		listener = nopListener{}
	}

	return &manager{
		cfg:       cfg,
		url:       cfg.URL(),
		listener:  listener,
		logger:    logger.With("component", "connection"),
		newClient: NewClient,
		backoff:   newBackOff(cfg),
	}
}

func newBackOff(cfg ManagerConfig) backoff.BackOff {
	if cfg.RetryPolicy == RetryExponential {
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = cfg.RetryDelay
		b.MaxInterval = cfg.RetryMaxDelay
		return b
	}
	return backoff.NewConstantBackOff(cfg.RetryDelay)
}

// Connect starts connecting in the background.
func (m *manager) Connect() error {
	if err := m.cfg.Validate(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return ErrManagerClosed
	}
	if m.state != StateDisconnected {
		return nil
	}

	m.stopRetryLocked()
	m.backoff.Reset()
	m.startDialLocked()
	return nil
}

// Disconnect closes the socket and abandons any attempt in flight.
func (m *manager) Disconnect() {
	m.mu.Lock()
	m.stopRetryLocked()
	m.gen++
	wasConnected := m.state == StateConnected
	session := m.session
	client := m.client
	cancel := m.cancelDial
	m.client = nil
	m.cancelDial = nil
	m.state = StateDisconnected
	if wasConnected {
		m.stats.Disconnects++
	}
	m.pending = &ConnectivityChange{
		Connected: false,
		Explicit:  true,
		Session:   session,
		At:        time.Now(),
	}
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if client != nil {
		client.Close()
	}

	m.logger.Info("disconnected", "url", m.url, "was_connected", wasConnected)

	// Waits out any callback from the abandoned generation. A dispatch from
	// a later Connect may deliver the pending event first.
	m.dispatchMu.Lock()
	m.flushDisconnectLocked()
	m.dispatchMu.Unlock()
}

// Send writes data to the producer if connected.
func (m *manager) Send(data []byte) bool {
	m.mu.Lock()
	client := m.client
	if m.state != StateConnected || client == nil {
		m.stats.SendsDropped++
		m.mu.Unlock()
		return false
	}
	m.mu.Unlock()

	// The client serializes writes; mu stays free for State and Stats.
	err := client.Send(data)

	m.mu.Lock()
	defer m.mu.Unlock()
	if err != nil {
		m.logger.Debug("send failed", "error", err)
		m.stats.SendsDropped++
		return false
	}
	m.stats.MessagesSent++
	return true
}

// State returns the current lifecycle state.
func (m *manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Stats returns current statistics.
func (m *manager) Stats() ManagerStats {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := m.stats
	s.State = m.state
	s.Session = m.session
	s.URL = m.url
	s.MessagesReceived = m.received.Load()
	return s
}

// Close disconnects and waits for background goroutines to exit.
func (m *manager) Close(ctx context.Context) error {
	m.Disconnect()

	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// ---- Connection lifecycle ----

// startDialLocked begins a new attempt. Must be called with mu held.
func (m *manager) startDialLocked() {
	m.gen++
	gen := m.gen
	m.state = StateConnecting

	ctx, cancel := context.WithCancel(context.Background())
	m.cancelDial = cancel

	client := m.newClient(m.cfg.clientConfig(), m.logger)

	m.wg.Add(1)
	go m.run(ctx, gen, client)
}

// run dials, writes the handshake, then pumps frames until the socket ends.
func (m *manager) run(ctx context.Context, gen uint64, client Client) {
	defer m.wg.Done()

	m.logger.Debug("dialing producer", "url", m.url)
	err := client.Connect(ctx)

	if err == nil && len(m.cfg.Handshake) > 0 {
		// Written before Connected so no caller frame can precede it.
		if herr := client.Send(m.cfg.Handshake); herr != nil {
			err = fmt.Errorf("send handshake: %w", herr)
		}
	}

	m.mu.Lock()
	if gen != m.gen {
		// Abandoned by Disconnect while dialing.
		m.mu.Unlock()
		client.Close()
		return
	}
	if m.cancelDial != nil {
		m.cancelDial()
		m.cancelDial = nil
	}

	if err != nil {
		m.state = StateDisconnected
		m.stats.DialFailures++
		m.mu.Unlock()
		client.Close()

		m.logger.Warn("connect failed", "url", m.url, "error", err)
		m.dispatch(gen, func(l Listener) {
			l.OnError(fmt.Errorf("connect %s: %w", m.url, err))
		})
		m.scheduleRetry(gen)
		return
	}

	session := uuid.New()
	m.client = client
	m.session = session
	m.state = StateConnected
	m.stats.Connects++
	m.backoff.Reset()
	m.mu.Unlock()

	m.logger.Info("connected to producer", "url", m.url, "session", session)
	m.notifyConnectivity(gen, ConnectivityChange{
		Connected: true,
		Session:   session,
		At:        time.Now(),
	})

	for msg := range client.Messages() {
		m.received.Add(1)
		raw := RawMessage{
			Data:       msg.Data,
			Session:    session,
			ReceivedAt: msg.ReceivedAt,
		}
		m.dispatch(gen, func(l Listener) {
			l.OnMessage(raw)
		})
	}

	m.handleDrop(gen, client, session, client.Err())
}

// handleDrop processes the end of a connection not caused by Disconnect.
func (m *manager) handleDrop(gen uint64, client Client, session uuid.UUID, cause error) {
	m.mu.Lock()
	if gen != m.gen {
		m.mu.Unlock()
		return
	}
	m.client = nil
	m.state = StateDisconnected
	m.stats.Disconnects++
	m.mu.Unlock()

	client.Close()

	clean := isCleanClose(cause)
	if clean {
		m.logger.Info("producer closed connection", "url", m.url, "session", session)
		cause = nil
	} else {
		m.logger.Warn("connection lost",
			"url", m.url,
			"session", session,
			"close_code", closeCode(cause),
			"error", cause,
		)
		if cause != nil {
			m.dispatch(gen, func(l Listener) {
				l.OnError(fmt.Errorf("connection lost: %w", cause))
			})
		}
	}

	m.notifyConnectivity(gen, ConnectivityChange{
		Connected: false,
		Session:   session,
		At:        time.Now(),
		Cause:     cause,
	})

	if !clean {
		m.scheduleRetry(gen)
	}
}

// ---- Retry ----

// scheduleRetry arms the single retry timer unless gen was abandoned.
func (m *manager) scheduleRetry(gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.gen || m.closed || m.state != StateDisconnected || m.retry != nil {
		return
	}

	delay := m.backoff.NextBackOff()
	if delay == backoff.Stop {
		delay = m.cfg.RetryMaxDelay
	}
	m.stats.Retries++
	m.retry = time.AfterFunc(delay, func() { m.fireRetry(gen) })

	m.logger.Info("reconnecting", "url", m.url, "delay", delay)
}

func (m *manager) fireRetry(gen uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.gen || m.closed || m.state != StateDisconnected {
		return
	}
	m.retry = nil
	m.startDialLocked()
}

// stopRetryLocked cancels a pending retry. Must be called with mu held.
func (m *manager) stopRetryLocked() {
	if m.retry != nil {
		m.retry.Stop()
		m.retry = nil
	}
}

// ---- Dispatch ----

// dispatch runs fn against the Listener unless gen has been abandoned.
func (m *manager) dispatch(gen uint64, fn func(Listener)) {
	m.dispatchMu.Lock()
	defer m.dispatchMu.Unlock()

	m.flushDisconnectLocked()

	m.mu.Lock()
	current := gen == m.gen
	m.mu.Unlock()
	if !current {
		return
	}
	fn(m.listener)
}

// notifyConnectivity emits change only when the connected flag flips.
func (m *manager) notifyConnectivity(gen uint64, change ConnectivityChange) {
	m.dispatch(gen, func(Listener) {
		m.emitConnectivityLocked(change)
	})
}

// flushDisconnectLocked delivers the event recorded by Disconnect, bypassing
// the generation check. Must be called with dispatchMu held.
func (m *manager) flushDisconnectLocked() {
	m.mu.Lock()
	change := m.pending
	m.pending = nil
	m.mu.Unlock()
	if change == nil {
		return
	}

	if dl, ok := m.listener.(DisconnectListener); ok {
		dl.OnDisconnect(change.Session)
	}
	m.emitConnectivityLocked(*change)
}

// emitConnectivityLocked must be called with dispatchMu held.
func (m *manager) emitConnectivityLocked(change ConnectivityChange) {
	if m.lastConnected == change.Connected {
		return
	}
	m.lastConnected = change.Connected
	m.listener.OnConnectivity(change)
}

type nopListener struct{}

func (nopListener) OnConnectivity(ConnectivityChange) {}
func (nopListener) OnMessage(RawMessage)              {}
func (nopListener) OnError(error)                     {}
