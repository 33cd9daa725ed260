package prediction

// EventKind names what changed in a session
type EventKind string

const (
	EventChange EventKind = "change"
	EventSave   EventKind = "save"
	EventLoad   EventKind = "load"
	EventDelete EventKind = "delete"
)

// Event is emitted after every session mutation, outside the session lock
type Event struct {
	SessionID string
	Kind      EventKind
	SaveName  string
	View      View
}

// Listener receives session events. Implementations must not block.
type Listener interface {
	SessionChanged(ev Event)
}

// ListenerFunc adapts a function to Listener
type ListenerFunc func(ev Event)

// SessionChanged calls f(ev)
func (f ListenerFunc) SessionChanged(ev Event) {
	f(ev)
}
