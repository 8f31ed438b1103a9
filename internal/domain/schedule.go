package domain

import (
	"context"
	"time"
)

// Interval is a closed time range owned by the record with ID.
type Interval struct {
	ID    string
	Start time.Time
	End   time.Time
}

// Overlaps reports whether the closed intervals [aStart, aEnd] and [bStart, bEnd]
// share at least one instant. Touching endpoints overlap.
func Overlaps(aStart, aEnd, bStart, bEnd time.Time) bool {
	return !aStart.After(bEnd) && !bStart.After(aEnd)
}

// ConflictsWith reports whether [start, end] overlaps any interval in existing
// other than the one whose ID is excludeID.
func ConflictsWith(start, end time.Time, existing []Interval, excludeID string) bool {
	for _, iv := range existing {
		if excludeID != "" && iv.ID == excludeID {
			continue
		}
		if Overlaps(start, end, iv.Start, iv.End) {
			return true
		}
	}
	return false
}

// Within reports whether [start, end] lies inside [outerStart, outerEnd].
func Within(start, end, outerStart, outerEnd time.Time) bool {
	return !start.Before(outerStart) && !end.After(outerEnd)
}

// EventIntervals converts events to intervals.
func EventIntervals(events []*Event) []Interval {
	out := make([]Interval, len(events))
	for i, e := range events {
		out[i] = Interval{ID: e.ID, Start: e.StartDate, End: e.EndDate}
	}
	return out
}

// SessionIntervals converts sessions to intervals.
func SessionIntervals(sessions []*Session) []Interval {
	out := make([]Interval, len(sessions))
	for i, s := range sessions {
		out[i] = Interval{ID: s.ID, Start: s.StartDate, End: s.EndDate}
	}
	return out
}

// EventsLockScope serializes event overlap checks.
const EventsLockScope = "events"

// SessionsLockScope serializes session overlap checks within one event.
func SessionsLockScope(eventID string) string {
	return "event:" + eventID + ":sessions"
}

// ScheduleLocker serializes check-then-write sequences for one scope.
// The returned release func must be called exactly once.
type ScheduleLocker interface {
	Acquire(ctx context.Context, scope string) (release func(), err error)
}
