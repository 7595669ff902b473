// Package model defines the telemetry domain types shared across the bridge.
//
// Conventions:
//   - Optional producer fields are pointers; nil means the producer has not sent the field.
//   - Sub-records on the Snapshot are nil until the producer first populates them.
//   - Corner readings keep each wheel optional and resolve missing corners per axis.
//   - Speeds are km/h, temperatures °C, pressures kPa, inputs and wear in percent.
package model
