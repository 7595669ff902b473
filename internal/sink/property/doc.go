// Package property adapts published snapshots to a host-plugin property bag.
//
// Every known property is registered once with a fully-qualified name such
// as "AGP.Telemetry.Speed" or "AGP.Telemetry.TireWearFL". On each snapshot
// the sink sets only the properties whose resolved value changed; absent
// fields resolve to the registered default.
package property
