package fanout

import (
	"time"

	"github.com/google/uuid"

	"github.com/agpsuite/telemetry-bridge/internal/metrics"
	"github.com/agpsuite/telemetry-bridge/internal/model"
)

// Kind identifies the event variant.
type Kind int

const (
	KindConnectivity Kind = iota + 1
	KindSnapshot
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindConnectivity:
		return "connectivity"
	case KindSnapshot:
		return "snapshot"
	case KindError:
		return "error"
	}
	return "unknown"
}

// Event is delivered to subscribers. Only the fields of its Kind are set.
type Event struct {
	Kind Kind
	Seq  uint64 // Publish order
	At   time.Time

	// KindConnectivity
	Connected bool
	Explicit  bool
	Session   uuid.UUID

	// KindSnapshot. Snapshot is shared by all subscribers and must not be modified.
	Snapshot *model.Snapshot
	Derived  metrics.Values
	Touched  model.SubTreeSet

	// KindError
	Err error
}

// Handler consumes events. Handle runs on the subscriber's own goroutine.
type Handler interface {
	Handle(e Event)
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc func(e Event)

func (f HandlerFunc) Handle(e Event) { f(e) }
