package metrics

import (
	"math"

	"github.com/agpsuite/telemetry-bridge/internal/model"
)

// Balance bounds.
const (
	MaxBalance = 100.0
	MinBalance = -100.0
)

// Fuel urgency breakpoints, in laps of fuel remaining.
const (
	fuelCriticalLaps = 3.0
	fuelLowLaps      = 10.0
)

// BalanceIndicator returns oversteer minus understeer, clamped to [-100, 100].
// Positive values mean the car is oversteering. Returns nil when the analysis
// is absent or reports neither percentage; a single missing percentage counts as 0.
func BalanceIndicator(a *model.Analysis) *float64 {
	if a == nil || (a.UndersteerPct == nil && a.OversteerPct == nil) {
		return nil
	}
	var under, over float64
	if a.UndersteerPct != nil {
		under = *a.UndersteerPct
	}
	if a.OversteerPct != nil {
		over = *a.OversteerPct
	}
	return model.Float(clamp(over-under, MinBalance, MaxBalance))
}

// TireCondition returns the mean tire wear, treating unreported corners as 100.
func TireCondition(t *model.Telemetry) float64 {
	var wear model.CornerReading
	if t != nil {
		wear = t.TireWear
	}
	sum := 0.0
	for _, v := range wear.Resolve(model.DefaultTireWear) {
		sum += v
	}
	return sum / float64(len(model.Corners))
}

// FuelUrgency maps laps of fuel remaining to a 0-100 urgency score:
//
//	l <= 0       100
//	0 < l < 3    100 -> 50 linearly
//	3 <= l < 10  50 -> 20 linearly
//	l >= 10      max(0, 20 - l)
func FuelUrgency(lapsRemaining float64) float64 {
	l := lapsRemaining
	switch {
	case l <= 0:
		return 100
	case l < fuelCriticalLaps:
		return 100 - (l/fuelCriticalLaps)*50
	case l < fuelLowLaps:
		return 50 - ((l-fuelCriticalLaps)/(fuelLowLaps-fuelCriticalLaps))*30
	default:
		return math.Max(0, 20-l)
	}
}

// StrategyFuelUrgency returns FuelUrgency of the strategy's fuel laps remaining,
// nil when the strategy or the field is absent.
func StrategyFuelUrgency(s *model.Strategy) *float64 {
	if s == nil || s.FuelLapsRemaining == nil {
		return nil
	}
	return model.Float(FuelUrgency(*s.FuelLapsRemaining))
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}
