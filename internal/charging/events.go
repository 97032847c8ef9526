package charging

import "github.com/chapski-dev/bps-energy-mobile-sub000/internal/api"

// EventKind discriminates the events the service broadcasts.
type EventKind int

const (
	// EventUpdated carries the full session cache after any change.
	EventUpdated EventKind = iota
	// EventStarted carries the session created by StartSession.
	EventStarted
	// EventStopped carries the id removed by StopSession.
	EventStopped
	// EventError carries a failure from any operation or poll cycle.
	EventError
	// EventLoading signals busy-state transitions for UI binding.
	EventLoading
)

func (k EventKind) String() string {
	switch k {
	case EventUpdated:
		return "updated"
	case EventStarted:
		return "started"
	case EventStopped:
		return "stopped"
	case EventError:
		return "error"
	case EventLoading:
		return "loading"
	default:
		return "unknown"
	}
}

// Event is the tagged union delivered to subscribers. Only the fields
// relevant to Kind are populated.
type Event struct {
	Kind      EventKind
	Sessions  []api.Session
	Session   *api.Session
	SessionID string
	Err       error
	Loading   bool
}
