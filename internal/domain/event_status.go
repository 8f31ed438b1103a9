package domain

import (
	"fmt"
	"strings"
)

// EventStatus is the lifecycle state of an event.
type EventStatus int

const (
	EventStatusPending EventStatus = iota
	EventStatusInProgress
	EventStatusPaused
	EventStatusFinished
)

var eventStatusNames = [...]string{"PENDING", "IN_PROGRESS", "PAUSED", "FINISHED"}

func (s EventStatus) String() string {
	if !s.Valid() {
		return fmt.Sprintf("EventStatus(%d)", int(s))
	}
	return eventStatusNames[s]
}

// Valid reports whether s is a known status.
func (s EventStatus) Valid() bool {
	return s >= EventStatusPending && s <= EventStatusFinished
}

// ParseEventStatus parses the upper-case status name.
func ParseEventStatus(name string) (EventStatus, error) {
	for i, n := range eventStatusNames {
		if n == name {
			return EventStatus(i), nil
		}
	}
	return 0, Validationf("unknown status %q", name)
}

func (s EventStatus) MarshalText() ([]byte, error) {
	if !s.Valid() {
		return nil, fmt.Errorf("invalid event status %d", int(s))
	}
	return []byte(s.String()), nil
}

func (s *EventStatus) UnmarshalText(b []byte) error {
	v, err := ParseEventStatus(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// allowedTransitions lists the targets reachable from each status. FINISHED is terminal.
var allowedTransitions = map[EventStatus][]EventStatus{
	EventStatusPending:    {EventStatusInProgress, EventStatusPaused},
	EventStatusInProgress: {EventStatusPaused, EventStatusFinished},
	EventStatusPaused:     {EventStatusInProgress, EventStatusFinished},
	EventStatusFinished:   nil,
}

// AllowedTransitions returns the statuses reachable from s.
func AllowedTransitions(s EventStatus) []EventStatus {
	return append([]EventStatus(nil), allowedTransitions[s]...)
}

// ValidateTransition checks a status change. Leaving FINISHED is ErrInvalidState;
// any other disallowed target, including from == to, is ErrInvalidInput.
func ValidateTransition(from, to EventStatus) error {
	if !from.Valid() {
		return Validationf("unknown current status %d", int(from))
	}
	if !to.Valid() {
		return Validationf("unknown status %d", int(to))
	}
	if from == EventStatusFinished {
		return InvalidStatef("event is finished")
	}
	allowed := allowedTransitions[from]
	for _, s := range allowed {
		if s == to {
			return nil
		}
	}
	names := make([]string, len(allowed))
	for i, s := range allowed {
		names[i] = s.String()
	}
	return Validationf("status must be one of %s", strings.Join(names, ", "))
}
