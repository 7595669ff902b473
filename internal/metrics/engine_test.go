package metrics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agpsuite/telemetry-bridge/internal/model"
)

func TestCompute_EmptySnapshot(t *testing.T) {
	v := Compute(&model.Snapshot{})

	assert.Nil(t, v.Balance)
	assert.Nil(t, v.FuelUrgency)
	assert.Equal(t, 100.0, v.TireCondition)
}

func TestRecompute_OnlyTouchedInputs(t *testing.T) {
	snap := &model.Snapshot{
		Analysis: &model.Analysis{UndersteerPct: model.Float(40), OversteerPct: model.Float(10)},
		Strategy: &model.Strategy{FuelLapsRemaining: model.Float(5)},
	}
	prev := Values{TireCondition: 55}

	v := Recompute(prev, snap, model.NewSubTreeSet(model.SubTreeStrategy))

	assert.Nil(t, v.Balance, "balance input not touched")
	assert.Equal(t, 55.0, v.TireCondition, "tire condition carried over")
	require.NotNil(t, v.FuelUrgency)
	assert.InDelta(t, 41.43, *v.FuelUrgency, 0.01)
}

func TestRecompute_DoesNotAliasPrev(t *testing.T) {
	prev := Values{Balance: model.Float(10)}
	v := Recompute(prev, &model.Snapshot{}, model.NewSubTreeSet(model.SubTreeTelemetry))

	*v.Balance = 99
	assert.Equal(t, 10.0, *prev.Balance)
}

func TestValuesEqual(t *testing.T) {
	a := Values{Balance: model.Float(1), TireCondition: 90}
	b := Values{Balance: model.Float(1), TireCondition: 90}
	assert.True(t, a.Equal(b))

	b.FuelUrgency = model.Float(20)
	assert.False(t, a.Equal(b))
}

func TestInputs(t *testing.T) {
	in := Inputs()
	assert.True(t, in.Has(model.SubTreeAnalysis))
	assert.True(t, in.Has(model.SubTreeTelemetry))
	assert.True(t, in.Has(model.SubTreeStrategy))
	assert.False(t, in.Has(model.SubTreeLiveTiming))
}
