package future

// EventType identifies a handle lifecycle event.
type EventType uint8

const (
	EventCreated EventType = iota
	EventCloned
	EventReleased
	EventDestroyed
)

func (t EventType) String() string {
	switch t {
	case EventCreated:
		return "created"
	case EventCloned:
		return "cloned"
	case EventReleased:
		return "released"
	case EventDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// Event represents a handle lifecycle event.
// Refs is the number of live references after the event.
type Event struct {
	Err  error
	Name string
	ID   uint64
	Refs int32
	Type EventType
}

// Observer receives notifications about handle lifecycle events.
// It may be called from any goroutine.
type Observer interface {
	OnFutureEvent(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) OnFutureEvent(e Event) { f(e) }

// DestroyFunc releases the arena of a future. It runs exactly once, when the
// last reference is released.
type DestroyFunc func() error

// Option configures a handle.
type Option func(*handle)

// WithName labels the handle in events and logs.
func WithName(name string) Option {
	return func(h *handle) { h.name = name }
}

// WithObserver adds an observer for lifecycle events.
func WithObserver(o Observer) Option {
	return func(h *handle) {
		if o != nil {
			h.observers = append(h.observers, o)
		}
	}
}
