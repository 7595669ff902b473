// Package store adapts published events to a UI state store.
package store

import (
	"log/slog"
	"sync"

	"github.com/agpsuite/telemetry-bridge/internal/fanout"
	"github.com/agpsuite/telemetry-bridge/internal/metrics"
	"github.com/agpsuite/telemetry-bridge/internal/model"
)

// Store is the UI-side state container. Setters receive copies that the
// store may keep.
type Store interface {
	SetConnected(connected bool)
	SetTelemetry(t *model.Telemetry)
	SetAnalysis(a *model.Analysis)
	SetStrategy(s *model.Strategy)
	SetRecommendations(r []model.Recommendation)
	SetLiveTiming(l *model.LiveTiming)
	SetStatus(s *model.Status)
	SetDerived(d metrics.Values)
	SetError(msg string)
	Reset()
}

// Adapter forwards events to a Store. It implements fanout.Handler.
type Adapter struct {
	store  Store
	logger *slog.Logger
}

// NewAdapter creates an Adapter for store.
func NewAdapter(store Store, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{
		store:  store,
		logger: logger.With("component", "store_sink"),
	}
}

// Handle dispatches one event to the store.
func (a *Adapter) Handle(e fanout.Event) {
	switch e.Kind {
	case fanout.KindConnectivity:
		if !e.Connected && e.Explicit {
			a.store.Reset()
			a.logger.Debug("store reset after disconnect")
		}
		a.store.SetConnected(e.Connected)
	case fanout.KindSnapshot:
		a.applySnapshot(e)
	case fanout.KindError:
		if e.Err != nil {
			a.store.SetError(e.Err.Error())
		}
	}
}

// applySnapshot calls the setter of each touched sub-tree.
func (a *Adapter) applySnapshot(e fanout.Event) {
	s := e.Snapshot
	if s == nil {
		return
	}

	for _, t := range e.Touched.List() {
		switch t {
		case model.SubTreeTelemetry:
			a.store.SetTelemetry(s.Telemetry.Clone())
		case model.SubTreeAnalysis:
			a.store.SetAnalysis(s.Analysis.Clone())
		case model.SubTreeStrategy:
			a.store.SetStrategy(s.Strategy.Clone())
		case model.SubTreeRecommendations:
			a.store.SetRecommendations(model.CloneRecommendations(s.Recommendations))
		case model.SubTreeLiveTiming:
			a.store.SetLiveTiming(s.LiveTiming.Clone())
		case model.SubTreeStatus:
			a.store.SetStatus(s.Status.Clone())
		}
	}
	a.store.SetDerived(e.Derived.Clone())
}

// MemoryStore is a Store holding the latest values. It backs tests and the tail tool.
type MemoryStore struct {
	mu sync.RWMutex

	Connected       bool
	Telemetry       *model.Telemetry
	Analysis        *model.Analysis
	Strategy        *model.Strategy
	Recommendations []model.Recommendation
	LiveTiming      *model.LiveTiming
	Status          *model.Status
	Derived         metrics.Values
	LastError       string
	Resets          int
}

func (m *MemoryStore) SetConnected(c bool)                  { m.with(func() { m.Connected = c }) }
func (m *MemoryStore) SetTelemetry(t *model.Telemetry)      { m.with(func() { m.Telemetry = t }) }
func (m *MemoryStore) SetAnalysis(a *model.Analysis)        { m.with(func() { m.Analysis = a }) }
func (m *MemoryStore) SetStrategy(s *model.Strategy)        { m.with(func() { m.Strategy = s }) }
func (m *MemoryStore) SetLiveTiming(l *model.LiveTiming)    { m.with(func() { m.LiveTiming = l }) }
func (m *MemoryStore) SetStatus(s *model.Status)            { m.with(func() { m.Status = s }) }
func (m *MemoryStore) SetDerived(d metrics.Values)          { m.with(func() { m.Derived = d }) }
func (m *MemoryStore) SetError(msg string)                  { m.with(func() { m.LastError = msg }) }
func (m *MemoryStore) SetRecommendations(r []model.Recommendation) {
	m.with(func() { m.Recommendations = r })
}

// Reset clears every field back to absent.
func (m *MemoryStore) Reset() {
	m.with(func() {
		m.Connected = false
		m.Telemetry = nil
		m.Analysis = nil
		m.Strategy = nil
		m.Recommendations = nil
		m.LiveTiming = nil
		m.Status = nil
		m.Derived = metrics.Values{}
		m.LastError = ""
		m.Resets++
	})
}

// View calls fn with the store read-locked.
func (m *MemoryStore) View(fn func(m *MemoryStore)) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	fn(m)
}

func (m *MemoryStore) with(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn()
}
