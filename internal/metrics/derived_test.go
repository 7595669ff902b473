package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agpsuite/telemetry-bridge/internal/model"
)

func TestBalanceIndicator(t *testing.T) {
	tests := []struct {
		name     string
		analysis *model.Analysis
		want     *float64
	}{
		{"absent analysis", nil, nil},
		{"no percentages", &model.Analysis{Status: model.String("collecting")}, nil},
		{"understeer dominant", &model.Analysis{UndersteerPct: model.Float(80), OversteerPct: model.Float(10)}, model.Float(-70)},
		{"oversteer dominant", &model.Analysis{UndersteerPct: model.Float(5), OversteerPct: model.Float(25)}, model.Float(20)},
		{"only oversteer", &model.Analysis{OversteerPct: model.Float(30)}, model.Float(30)},
		{"clamped high", &model.Analysis{UndersteerPct: model.Float(-50), OversteerPct: model.Float(90)}, model.Float(100)},
		{"clamped low", &model.Analysis{UndersteerPct: model.Float(150), OversteerPct: model.Float(0)}, model.Float(-100)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BalanceIndicator(tt.analysis)
			if tt.want == nil {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.InDelta(t, *tt.want, *got, 1e-9)
		})
	}
}

func TestTireCondition(t *testing.T) {
	assert.Equal(t, 100.0, TireCondition(nil))
	assert.Equal(t, 100.0, TireCondition(&model.Telemetry{}))

	tel := &model.Telemetry{TireWear: model.CornerReading{
		FL: model.Float(80), FR: model.Float(90), RL: model.Float(70), RR: model.Float(60),
	}}
	assert.InDelta(t, 75.0, TireCondition(tel), 1e-9)

	partial := &model.Telemetry{TireWear: model.CornerReading{FL: model.Float(60)}}
	assert.InDelta(t, 90.0, TireCondition(partial), 1e-9)
}

func TestFuelUrgency(t *testing.T) {
	tests := []struct {
		laps float64
		want float64
	}{
		{-1, 100},
		{0, 100},
		{1.5, 75},
		{3, 50},
		{5, 50 - (2.0/7.0)*30},
		{10, 10},
		{15, 5},
		{20, 0},
		{25, 0},
		{30, 0},
	}

	for _, tt := range tests {
		assert.InDelta(t, tt.want, FuelUrgency(tt.laps), 1e-9, "laps=%v", tt.laps)
	}
}

func TestFuelUrgency_LeftLimits(t *testing.T) {
	assert.InDelta(t, 50.0, FuelUrgency(3-1e-9), 1e-6)
	assert.InDelta(t, 20.0, FuelUrgency(10-1e-9), 1e-6)
	assert.InDelta(t, 100.0, FuelUrgency(1e-9), 1e-6)
}

func TestFuelUrgency_Monotonic(t *testing.T) {
	prev := FuelUrgency(0)
	for l := 0.1; l < 25; l += 0.1 {
		cur := FuelUrgency(l)
		assert.LessOrEqual(t, cur, prev+1e-9, "urgency rose at l=%v", l)
		assert.GreaterOrEqual(t, cur, 0.0)
		assert.LessOrEqual(t, cur, 100.0)
		prev = cur
	}
}

func TestStrategyFuelUrgency_Absent(t *testing.T) {
	assert.Nil(t, StrategyFuelUrgency(nil))
	assert.Nil(t, StrategyFuelUrgency(&model.Strategy{TireLapsRemaining: model.Float(4)}))
}
