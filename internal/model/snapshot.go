package model

import "time"

// Snapshot is the aggregated current state of the producer's data.
type Snapshot struct {
	Connected bool `json:"connected"` // Bridge has a live socket to the producer

	Telemetry       *Telemetry       `json:"telemetry,omitempty"`
	Analysis        *Analysis        `json:"analysis,omitempty"`
	Strategy        *Strategy        `json:"strategy,omitempty"`
	Recommendations []Recommendation `json:"recommendations,omitempty"` // Nil until first reported
	LiveTiming      *LiveTiming      `json:"live_timing,omitempty"`
	Status          *Status          `json:"status,omitempty"`

	UpdatedAt time.Time `json:"updated_at,omitzero"`
}

// Has reports whether the producer has populated the sub-tree.
func (s *Snapshot) Has(t SubTree) bool {
	switch t {
	case SubTreeTelemetry:
		return s.Telemetry != nil
	case SubTreeAnalysis:
		return s.Analysis != nil
	case SubTreeStrategy:
		return s.Strategy != nil
	case SubTreeRecommendations:
		return s.Recommendations != nil
	case SubTreeLiveTiming:
		return s.LiveTiming != nil
	case SubTreeStatus:
		return s.Status != nil
	}
	return false
}

// Present returns the set of populated sub-trees.
func (s *Snapshot) Present() SubTreeSet {
	var set SubTreeSet
	for _, t := range AllSubTrees() {
		if s.Has(t) {
			set = set.With(t)
		}
	}
	return set
}

// NextRecommendation returns the first recommendation in producer order.
func (s *Snapshot) NextRecommendation() (Recommendation, bool) {
	if len(s.Recommendations) == 0 {
		return Recommendation{}, false
	}
	return s.Recommendations[0], true
}

// SimConnected reports the producer's simulator link, false if unknown.
func (s *Snapshot) SimConnected() bool {
	return s.Status != nil && s.Status.SimConnected != nil && *s.Status.SimConnected
}

// Clone returns a deep copy that shares no mutable state with s.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	return &Snapshot{
		Connected:       s.Connected,
		Telemetry:       s.Telemetry.Clone(),
		Analysis:        s.Analysis.Clone(),
		Strategy:        s.Strategy.Clone(),
		Recommendations: CloneRecommendations(s.Recommendations),
		LiveTiming:      s.LiveTiming.Clone(),
		Status:          s.Status.Clone(),
		UpdatedAt:       s.UpdatedAt,
	}
}
