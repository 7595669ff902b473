// Package command implements the Outbound Command Channel: typed requests
// serialized to the producer over the Connection Manager's socket.
package command
