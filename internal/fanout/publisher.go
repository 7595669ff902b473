package fanout

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/agpsuite/telemetry-bridge/internal/metrics"
	"github.com/agpsuite/telemetry-bridge/internal/model"
)

// ErrClosed is returned by Subscribe after Close.
var ErrClosed = errors.New("publisher closed")

// Config configures the publisher.
type Config struct {
	QueueCapacity int // Initial per-subscriber queue capacity
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{QueueCapacity: 64}
}

// SubscriberStats describes one subscriber.
type SubscriberStats struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Delivered int64     `json:"delivered"`
	Panics    int64     `json:"panics"`
	Depth     int       `json:"depth"`
	Capacity  int       `json:"capacity"`
}

// Stats contains publisher statistics.
type Stats struct {
	Published   int64             `json:"published"`
	Subscribers []SubscriberStats `json:"subscribers"`
}

type subscriber struct {
	id      uuid.UUID
	name    string
	handler Handler
	queue   *Queue[Event]
	stopped atomic.Bool

	delivered atomic.Int64
	panics    atomic.Int64
}

// Publisher fans events out to subscribers without blocking the caller.
type Publisher struct {
	cfg    Config
	logger *slog.Logger
	now    func() time.Time

	mu     sync.RWMutex
	subs   map[uuid.UUID]*subscriber
	closed bool

	seq       atomic.Uint64
	published atomic.Int64

	wg sync.WaitGroup
}

// New creates a Publisher.
func New(cfg Config, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.QueueCapacity <= 0 {
		cfg.QueueCapacity = DefaultConfig().QueueCapacity
	}
	return &Publisher{
		cfg:    cfg,
		logger: logger.With("component", "fanout"),
		now:    time.Now,
		subs:   make(map[uuid.UUID]*subscriber),
	}
}

// Subscribe registers h and starts its delivery goroutine.
func (p *Publisher) Subscribe(name string, h Handler) (uuid.UUID, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return uuid.Nil, ErrClosed
	}

	s := &subscriber{
		id:      uuid.New(),
		name:    name,
		handler: h,
		queue:   NewQueue[Event](p.cfg.QueueCapacity),
	}
	p.subs[s.id] = s

	p.wg.Add(1)
	go p.deliverLoop(s)

	p.logger.Debug("subscriber added", "subscriber", name, "id", s.id)
	return s.id, nil
}

// Unsubscribe stops delivery to id. Queued events are discarded. It
// reports whether id was subscribed.
func (p *Publisher) Unsubscribe(id uuid.UUID) bool {
	p.mu.Lock()
	s, ok := p.subs[id]
	delete(p.subs, id)
	p.mu.Unlock()

	if !ok {
		return false
	}
	s.stopped.Store(true)
	s.queue.Close()

	p.logger.Debug("subscriber removed", "subscriber", s.name, "id", id)
	return true
}

// PublishConnectivity announces a connected-flag flip.
func (p *Publisher) PublishConnectivity(connected, explicit bool, session uuid.UUID) {
	p.publish(Event{
		Kind:      KindConnectivity,
		Connected: connected,
		Explicit:  explicit,
		Session:   session,
	})
}

// PublishSnapshot announces a state change. snap must not be modified afterwards.
func (p *Publisher) PublishSnapshot(snap *model.Snapshot, derived metrics.Values, touched model.SubTreeSet) {
	p.publish(Event{
		Kind:     KindSnapshot,
		Snapshot: snap,
		Derived:  derived,
		Touched:  touched,
	})
}

// PublishError announces a non-fatal error.
func (p *Publisher) PublishError(err error) {
	p.publish(Event{Kind: KindError, Err: err})
}

func (p *Publisher) publish(e Event) {
	// Exclusive so every queue sees concurrent publishes in the same order.
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return
	}

	e.Seq = p.seq.Add(1)
	e.At = p.now()
	p.published.Add(1)

	for _, s := range p.subs {
		s.queue.Push(e)
	}
}

// Close stops accepting events, lets subscribers drain their queues, and
// waits for their goroutines or ctx.
func (p *Publisher) Close(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	for _, s := range p.subs {
		s.queue.Close()
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.logger.Debug("publisher closed")
		return nil
	case <-ctx.Done():
		p.logger.Warn("publisher close timed out")
		return ctx.Err()
	}
}

// Stats returns publisher statistics. Subscribers are sorted by name.
func (p *Publisher) Stats() Stats {
	p.mu.RLock()
	subs := make([]SubscriberStats, 0, len(p.subs))
	for _, s := range p.subs {
		qs := s.queue.Stats()
		subs = append(subs, SubscriberStats{
			ID:        s.id,
			Name:      s.name,
			Delivered: s.delivered.Load(),
			Panics:    s.panics.Load(),
			Depth:     qs.Depth,
			Capacity:  qs.Capacity,
		})
	}
	p.mu.RUnlock()

	sort.Slice(subs, func(i, j int) bool { return subs[i].Name < subs[j].Name })
	return Stats{
		Published:   p.published.Load(),
		Subscribers: subs,
	}
}

func (p *Publisher) deliverLoop(s *subscriber) {
	defer p.wg.Done()

	for {
		e, ok := s.queue.Pop()
		if !ok || s.stopped.Load() {
			return
		}
		p.deliver(s, e)
	}
}

// deliver runs the handler, containing any panic to this subscriber.
func (p *Publisher) deliver(s *subscriber, e Event) {
	defer func() {
		if r := recover(); r != nil {
			s.panics.Add(1)
			p.logger.Error("subscriber panicked",
				"subscriber", s.name,
				"event", e.Kind.String(),
				"seq", e.Seq,
				"panic", r,
			)
		}
	}()

	s.handler.Handle(e)
	s.delivered.Add(1)
}
