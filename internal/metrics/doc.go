// Package metrics computes the derived values shown alongside raw telemetry.
//
// Metrics:
//   - Balance indicator: oversteer minus understeer, clamped to ±100
//   - Tire condition: mean remaining tire wear across the four corners
//   - Fuel urgency: 0-100 score from fuel laps remaining
//
// Every metric is a pure function of Snapshot fields. Recompute only
// re-evaluates metrics whose input sub-tree was touched by an update.
package metrics
