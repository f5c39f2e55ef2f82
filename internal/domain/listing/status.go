package listing

import "fmt"

// Status is the lifecycle state of one listing page.
type Status int

// Listing page states. There is no terminal state: a page stays interactive
// until its controller is closed.
const (
	StatusIdle Status = iota
	StatusLoading
	StatusLoaded
	StatusLoadingMore
	StatusError
)

var statusNames = map[Status]string{
	StatusIdle:        "idle",
	StatusLoading:     "loading",
	StatusLoaded:      "loaded",
	StatusLoadingMore: "loading_more",
	StatusError:       "error",
}

// String returns the snake_case name used in logs.
func (s Status) String() string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Event is an input to the listing state machine.
type Event int

// Listing events
const (
	EventQuery     Event = iota // first mount, or filters/search/sort changed
	EventLoadMore               // user asked for the next page
	EventSucceeded              // fetch completed
	EventFailed                 // fetch failed
	EventRetry                  // user retried after a failure
)

// ErrInvalidTransition is returned for events the current state does not accept.
type ErrInvalidTransition struct {
	From  Status
	Event Event
}

func (e ErrInvalidTransition) Error() string {
	return fmt.Sprintf("listing: event %d not allowed in state %s", int(e.Event), e.From)
}

// Next returns the state reached from s on event ev.
// PRE: none
// POST: Returns the next state, or ErrInvalidTransition if ev is not accepted in s
func (s Status) Next(ev Event) (Status, error) {
	switch ev {
	case EventQuery:
		return StatusLoading, nil
	case EventLoadMore:
		if s == StatusLoaded {
			return StatusLoadingMore, nil
		}
	case EventSucceeded:
		if s == StatusLoading || s == StatusLoadingMore {
			return StatusLoaded, nil
		}
	case EventFailed:
		if s == StatusLoading || s == StatusLoadingMore {
			return StatusError, nil
		}
	case EventRetry:
		if s == StatusError {
			return StatusLoading, nil
		}
	}
	return s, ErrInvalidTransition{From: s, Event: ev}
}

// Busy reports whether a fetch is in flight in this state.
func (s Status) Busy() bool {
	return s == StatusLoading || s == StatusLoadingMore
}
