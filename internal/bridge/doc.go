// Package bridge wires the telemetry pipeline together.
//
// Frames flow from the Connection Manager through the decoder and the
// aggregator to the fan-out publisher on a single serialized path, so one
// frame is fully merged and published before the next is decoded.
package bridge
