// Package fanout implements the Fan-out Publisher component.
//
// Every subscriber owns an unbounded Queue and a delivery goroutine, so a
// slow or panicking subscriber never delays the publisher or its peers.
// Each subscriber sees events in publish order.
package fanout
