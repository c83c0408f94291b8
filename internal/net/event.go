package net

import "fmt"

// EventKind tags a transport event.
type EventKind int

const (
	EventConnect EventKind = iota
	EventData
	EventDisconnect
)

func (k EventKind) String() string {
	switch k {
	case EventConnect:
		return "Connect"
	case EventData:
		return "Data"
	case EventDisconnect:
		return "Disconnect"
	default:
		return fmt.Sprintf("EventKind(%d)", int(k))
	}
}

// Event is one unit of transport input. All events from all sessions flow
// through a single channel, so the consumer sees them in a total order:
// a session's Connect precedes its Data, which precede its Disconnect.
type Event struct {
	Kind    EventKind
	Session *Session
	Data    []byte // EventData only
}
