// Package poller implements the Command Poller component.
//
// The Command Poller:
//   - Sends get_status on a fixed interval
//   - Optionally sends get_recommendations on its own interval
//   - Skips silently while the producer is disconnected
package poller
