// Package connection implements the Connection Manager component.
//
// The Connection Manager:
//   - Owns a single WebSocket to the telemetry producer
//   - Writes the subscribe handshake before reporting Connected
//   - Reconnects after unclean drops on a single cancelable timer
//   - Emits connectivity changes only when the connected flag flips
//   - Hands every frame, in arrival order, to one Listener
package connection
