package snapshot

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/agpsuite/telemetry-bridge/internal/decoder"
	"github.com/agpsuite/telemetry-bridge/internal/metrics"
	"github.com/agpsuite/telemetry-bridge/internal/model"
)

// ErrPartialMismatch is returned by Merge when the partial record does not
// belong to the named sub-tree.
var ErrPartialMismatch = errors.New("partial record does not match sub-tree")

// Update is the result of one state change, handed to the publisher.
type Update struct {
	Seq      uint64           // Monotonic per aggregator
	Snapshot *model.Snapshot  // Deep copy, safe to retain
	Derived  metrics.Values   // Derived metrics after the change
	Touched  model.SubTreeSet // Sub-trees the change wrote
}

// Stats contains aggregator counters.
type Stats struct {
	Merges  int64
	Skipped int64 // Records that carried no sub-tree
	Resets  int64
}

// Aggregator owns the Snapshot. It is the only writer; reads return copies.
type Aggregator struct {
	logger *slog.Logger
	now    func() time.Time

	mu      sync.RWMutex
	snap    *model.Snapshot
	derived metrics.Values
	seq     uint64
	stats   Stats
}

// New creates an Aggregator holding an empty Snapshot.
func New(logger *slog.Logger) *Aggregator {
	if logger == nil {
		logger = slog.Default()
	}
	snap := &model.Snapshot{}
	return &Aggregator{
		logger:  logger,
		now:     time.Now,
		snap:    snap,
		derived: metrics.Compute(snap),
	}
}

// Apply merges a decoded record into the Snapshot and recomputes the derived
// metrics that depend on the touched sub-trees. Records without sub-trees
// (errors, acks, unknown types) leave state untouched and return false.
func (a *Aggregator) Apply(rec decoder.Record) (Update, bool) {
	touched := rec.SubTrees()

	a.mu.Lock()
	defer a.mu.Unlock()

	if touched.Empty() {
		a.stats.Skipped++
		return Update{}, false
	}

	switch r := rec.(type) {
	case *decoder.FullSnapshot:
		a.mergeTelemetry(r.Telemetry)
		a.mergeAnalysis(r.Analysis)
		a.mergeStrategy(r.Strategy)
		a.mergeRecommendations(r.Recommendations)
		a.mergeLiveTiming(r.LiveTiming)
		a.mergeStatus(r.Status)
	case *decoder.TelemetryPatch:
		a.mergeTelemetry(r.Telemetry)
	case *decoder.AnalysisPatch:
		a.mergeAnalysis(r.Analysis)
	case *decoder.StrategyPatch:
		a.mergeStrategy(r.Strategy)
	case *decoder.RecommendationsPatch:
		a.mergeRecommendations(r.Recommendations)
	case *decoder.LiveTimingPatch:
		a.mergeLiveTiming(r.LiveTiming)
	case *decoder.StatusPatch:
		a.mergeStatus(r.Status)
	}

	a.snap.UpdatedAt = a.now()
	a.derived = metrics.Recompute(a.derived, a.snap, touched)
	a.stats.Merges++

	return a.updateLocked(touched), true
}

// Merge applies one partial record to the named sub-tree. partial must be
// *model.Telemetry, *model.Analysis, *model.Strategy, []model.Recommendation,
// *model.LiveTiming or *model.Status to match t.
func (a *Aggregator) Merge(t model.SubTree, partial any) (Update, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	ok := false
	switch p := partial.(type) {
	case *model.Telemetry:
		ok = t == model.SubTreeTelemetry
		if ok {
			a.mergeTelemetry(p)
		}
	case *model.Analysis:
		ok = t == model.SubTreeAnalysis
		if ok {
			a.mergeAnalysis(p)
		}
	case *model.Strategy:
		ok = t == model.SubTreeStrategy
		if ok {
			a.mergeStrategy(p)
		}
	case []model.Recommendation:
		ok = t == model.SubTreeRecommendations
		if ok {
			a.mergeRecommendations(p)
		}
	case *model.LiveTiming:
		ok = t == model.SubTreeLiveTiming
		if ok {
			a.mergeLiveTiming(p)
		}
	case *model.Status:
		ok = t == model.SubTreeStatus
		if ok {
			a.mergeStatus(p)
		}
	}
	if !ok {
		return Update{}, fmt.Errorf("%w: %s got %T", ErrPartialMismatch, t, partial)
	}

	touched := model.NewSubTreeSet(t)
	a.snap.UpdatedAt = a.now()
	a.derived = metrics.Recompute(a.derived, a.snap, touched)
	a.stats.Merges++

	return a.updateLocked(touched), nil
}

// SetConnected records the bridge's socket state on the Snapshot.
func (a *Aggregator) SetConnected(connected bool) Update {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.snap.Connected = connected
	return a.updateLocked(0)
}

// Reset discards the Snapshot and starts from empty.
func (a *Aggregator) Reset() Update {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.snap = &model.Snapshot{}
	a.derived = metrics.Compute(a.snap)
	a.stats.Resets++

	a.logger.Debug("snapshot reset")
	return a.updateLocked(model.AllSubTreeSet())
}

// Current returns a copy of the Snapshot and the derived metrics.
func (a *Aggregator) Current() (*model.Snapshot, metrics.Values) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.snap.Clone(), a.derived.Clone()
}

// Stats returns current counters.
func (a *Aggregator) Stats() Stats {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.stats
}

// updateLocked builds an Update. Must be called with lock held.
func (a *Aggregator) updateLocked(touched model.SubTreeSet) Update {
	a.seq++
	return Update{
		Seq:      a.seq,
		Snapshot: a.snap.Clone(),
		Derived:  a.derived.Clone(),
		Touched:  touched,
	}
}

func (a *Aggregator) mergeTelemetry(p *model.Telemetry) {
	if p == nil {
		return
	}
	if a.snap.Telemetry == nil {
		a.snap.Telemetry = &model.Telemetry{}
	}
	a.snap.Telemetry.Merge(p)
}

func (a *Aggregator) mergeAnalysis(p *model.Analysis) {
	if p == nil {
		return
	}
	if a.snap.Analysis == nil {
		a.snap.Analysis = &model.Analysis{}
	}
	a.snap.Analysis.Merge(p)
}

func (a *Aggregator) mergeStrategy(p *model.Strategy) {
	if p == nil {
		return
	}
	if a.snap.Strategy == nil {
		a.snap.Strategy = &model.Strategy{}
	}
	a.snap.Strategy.Merge(p)
}

// mergeRecommendations replaces the list wholesale.
func (a *Aggregator) mergeRecommendations(recs []model.Recommendation) {
	if recs == nil {
		return
	}
	a.snap.Recommendations = model.CloneRecommendations(recs)
}

func (a *Aggregator) mergeLiveTiming(p *model.LiveTiming) {
	if p == nil {
		return
	}
	if a.snap.LiveTiming == nil {
		a.snap.LiveTiming = &model.LiveTiming{}
	}
	a.snap.LiveTiming.Merge(p)
}

func (a *Aggregator) mergeStatus(p *model.Status) {
	if p == nil {
		return
	}
	if a.snap.Status == nil {
		a.snap.Status = &model.Status{}
	}
	a.snap.Status.Merge(p)
}
