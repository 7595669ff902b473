package metrics

import "github.com/agpsuite/telemetry-bridge/internal/model"

// Values holds the current derived metrics. Nil pointers are metrics that
// cannot be computed from the available data.
type Values struct {
	Balance       *float64 `json:"balance,omitempty"`
	TireCondition float64  `json:"tire_condition"`
	FuelUrgency   *float64 `json:"fuel_urgency,omitempty"`
}

// Clone returns a copy that shares no pointers with v.
func (v Values) Clone() Values {
	c := Values{TireCondition: v.TireCondition}
	if v.Balance != nil {
		c.Balance = model.Float(*v.Balance)
	}
	if v.FuelUrgency != nil {
		c.FuelUrgency = model.Float(*v.FuelUrgency)
	}
	return c
}

// Equal reports whether both value sets are identical.
func (v Values) Equal(o Values) bool {
	return v.TireCondition == o.TireCondition &&
		equalPtr(v.Balance, o.Balance) &&
		equalPtr(v.FuelUrgency, o.FuelUrgency)
}

// derivation binds a metric to the sub-tree it reads.
type derivation struct {
	input   model.SubTree
	compute func(*Values, *model.Snapshot)
}

var derivations = []derivation{
	{model.SubTreeAnalysis, func(v *Values, s *model.Snapshot) { v.Balance = BalanceIndicator(s.Analysis) }},
	{model.SubTreeTelemetry, func(v *Values, s *model.Snapshot) { v.TireCondition = TireCondition(s.Telemetry) }},
	{model.SubTreeStrategy, func(v *Values, s *model.Snapshot) { v.FuelUrgency = StrategyFuelUrgency(s.Strategy) }},
}

// Compute evaluates every metric from scratch.
func Compute(s *model.Snapshot) Values {
	return Recompute(Values{}, s, model.AllSubTreeSet())
}

// Recompute re-evaluates the metrics whose input is in touched and carries
// the rest over from prev.
func Recompute(prev Values, s *model.Snapshot, touched model.SubTreeSet) Values {
	next := prev.Clone()
	for _, d := range derivations {
		if touched.Has(d.input) {
			d.compute(&next, s)
		}
	}
	return next
}

// Inputs returns the sub-trees that feed at least one metric.
func Inputs() model.SubTreeSet {
	var set model.SubTreeSet
	for _, d := range derivations {
		set = set.With(d.input)
	}
	return set
}

func equalPtr(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
