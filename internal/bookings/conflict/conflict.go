// Package conflict decides whether a candidate appointment overlaps the
// active calendar of a staff member. It has no I/O.
package conflict

import (
	"fmt"
	"time"

	bookingserrors "bookline/internal/bookings/errors"
	"bookline/pkg/model"
)

// Interval is a half-open [Start, End) range in minutes since midnight.
type Interval struct {
	Start int
	End   int
}

// ParseClock converts an HH:MM wall-clock time to minutes since midnight.
func ParseClock(value string) (int, error) {
	t, err := time.Parse(model.ClockLayout, value)
	if err != nil {
		return 0, fmt.Errorf("invalid clock time %q: %w", value, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// NewInterval parses start and end and requires end to be after start.
func NewInterval(start, end string) (Interval, error) {
	s, err := ParseClock(start)
	if err != nil {
		return Interval{}, err
	}
	e, err := ParseClock(end)
	if err != nil {
		return Interval{}, err
	}
	if e <= s {
		return Interval{}, bookingserrors.ErrInvalidTimeRange
	}
	return Interval{Start: s, End: e}, nil
}

// Overlaps reports whether two half-open intervals share any minute.
// Touching intervals (one ends when the other starts) do not overlap.
func Overlaps(a, b Interval) bool {
	return a.Start < b.End && a.End > b.Start
}

// HasConflict reports whether candidate overlaps any active appointment of
// staffID on date. Appointments with unparsable times are ignored.
func HasConflict(existing []*model.Appointment, staffID, date string, candidate Interval) bool {
	return FirstConflict(existing, staffID, date, candidate) != nil
}

// FirstConflict returns the first appointment that blocks candidate, or nil.
func FirstConflict(existing []*model.Appointment, staffID, date string, candidate Interval) *model.Appointment {
	for _, appt := range existing {
		if appt.StaffID != staffID || appt.Date != date || !appt.Status.IsActive() {
			continue
		}
		other, err := NewInterval(appt.StartTime, appt.EndTime)
		if err != nil {
			continue
		}
		if Overlaps(candidate, other) {
			return appt
		}
	}
	return nil
}
