package session

import "fmt"

// State is the lifecycle phase of a Controller.
type State int

const (
	StateIdle State = iota
	StateFetching
	StateReady
	StateExporting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateFetching:
		return "fetching"
	case StateReady:
		return "ready"
	case StateExporting:
		return "exporting"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// EventKind identifies a controller notification.
type EventKind int

const (
	EventFetchStarted EventKind = iota
	EventFetchCompleted
	EventFetchFailed
	EventCriteriaChanged
	EventExportStarted
	EventExportCompleted
	EventExportFailed
)

func (k EventKind) String() string {
	switch k {
	case EventFetchStarted:
		return "fetch-started"
	case EventFetchCompleted:
		return "fetch-completed"
	case EventFetchFailed:
		return "fetch-failed"
	case EventCriteriaChanged:
		return "criteria-changed"
	case EventExportStarted:
		return "export-started"
	case EventExportCompleted:
		return "export-completed"
	case EventExportFailed:
		return "export-failed"
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

// Event tells subscribers something changed. Events carry no record data;
// subscribers read the current view from the controller.
type Event struct {
	Kind EventKind
	// Err is set for failure events.
	Err error
	// Count is the number of records fetched or exported.
	Count int
	// Location is where an export was written.
	Location string
	// Refetch is set on criteria changes that moved the fetch boundary.
	Refetch bool
}

type subscriber struct {
	ch chan Event
}

// Subscribe returns a channel of controller events and a function that ends
// the subscription. Delivery never blocks the controller: events that do
// not fit in the buffer are dropped.
func (c *Controller) Subscribe(buffer int) (<-chan Event, func()) {
	if buffer < 1 {
		buffer = 1
	}
	sub := &subscriber{ch: make(chan Event, buffer)}

	c.subMu.Lock()
	c.subs = append(c.subs, sub)
	c.subMu.Unlock()

	var once bool
	cancel := func() {
		c.subMu.Lock()
		defer c.subMu.Unlock()
		if once {
			return
		}
		once = true
		for i, s := range c.subs {
			if s == sub {
				c.subs = append(c.subs[:i], c.subs[i+1:]...)
				break
			}
		}
		close(sub.ch)
	}
	return sub.ch, cancel
}

func (c *Controller) emit(ev Event) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	for _, s := range c.subs {
		select {
		case s.ch <- ev:
		default:
			c.logger.Debug("dropped event for slow subscriber", "event", ev.Kind.String())
		}
	}
}
