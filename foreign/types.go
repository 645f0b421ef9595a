package foreign

import "fmt"

// Handle is an opaque reference to a foreign object in a Store.
// The low 32 bits index the arena, the high 32 bits carry the generation of
// the entry at the time the handle was issued. Handle 0 is always invalid.
type Handle uint64

func makeHandle(index, gen uint32) Handle {
	return Handle(uint64(gen)<<32 | uint64(index))
}

func (h Handle) index() uint32 {
	return uint32(h)
}

func (h Handle) generation() uint32 {
	return uint32(h >> 32)
}

// String formats the handle as index@generation.
func (h Handle) String() string {
	return fmt.Sprintf("%d@%d", h.index(), h.generation())
}

// Finalizer releases resources owned by a foreign value. It receives only
// the stored value and must not touch the VM.
type Finalizer func(value any)

// Class describes one foreign class known to a Store.
type Class struct {
	Finalize Finalizer
	Name     string
	ID       uint32
}

// EventType identifies a lifecycle notification.
type EventType uint8

const (
	EventAllocated EventType = iota
	EventFinalized
)

func (t EventType) String() string {
	switch t {
	case EventAllocated:
		return "allocated"
	case EventFinalized:
		return "finalized"
	default:
		return "unknown"
	}
}

// Event represents a foreign object lifecycle event.
type Event struct {
	Value  any
	Class  *Class
	Handle Handle
	Type   EventType
}

// Observer receives notifications about foreign object lifecycle events.
type Observer interface {
	OnForeignEvent(Event)
}

// ObserverFunc adapts a function to the Observer interface.
// Func values are not comparable, so an ObserverFunc cannot be unsubscribed.
type ObserverFunc func(Event)

// OnForeignEvent calls f(e).
func (f ObserverFunc) OnForeignEvent(e Event) {
	f(e)
}
