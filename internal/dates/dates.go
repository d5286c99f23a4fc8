// Package dates holds the calendar-day logic behind deadline display and
// urgency derivation. Everything here is pure: callers pass the reference
// time explicitly, and the YYYY-MM-DD string form never leaves this boundary.
package dates

import (
	"fmt"
	"math"
	"time"

	"task-board/internal/models"
)

// UrgencyThresholdDays is the window within which an upcoming deadline makes
// a task automatically urgent.
const UrgencyThresholdDays = 3

// InputLayout is the wire form for deadlines at the API boundary.
const InputLayout = "2006-01-02"

const displayLayout = "Jan 2, 2006"

// startOfDay discards the time component, keeping the location.
func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// CalendarDaysBetween returns to-minus-from in whole calendar days.
// Rounding absorbs DST transitions inside the interval.
func CalendarDaysBetween(from, to time.Time) int {
	a := startOfDay(from)
	b := startOfDay(to.In(from.Location()))
	return int(math.Round(b.Sub(a).Hours() / 24))
}

// DeriveUrgency reports whether the deadline falls within
// [today, today+UrgencyThresholdDays), at calendar-day granularity.
// No deadline, a past deadline, or a deadline at or beyond the threshold
// all yield false.
func DeriveUrgency(deadline *time.Time, now time.Time) bool {
	return DeriveUrgencyWithin(deadline, now, UrgencyThresholdDays)
}

func DeriveUrgencyWithin(deadline *time.Time, now time.Time, thresholdDays int) bool {
	if deadline == nil {
		return false
	}
	diff := CalendarDaysBetween(now, *deadline)
	return diff >= 0 && diff < thresholdDays
}

// FormatDeadlineDisplay renders a deadline relative to now:
// "No Deadline", "Overdue by N day(s)", "Today", "Tomorrow", "In N days"
// up to a week out, then an absolute date.
func FormatDeadlineDisplay(deadline *time.Time, now time.Time) string {
	if deadline == nil {
		return "No Deadline"
	}
	diff := CalendarDaysBetween(now, *deadline)
	switch {
	case diff < 0:
		past := -diff
		if past == 1 {
			return "Overdue by 1 day"
		}
		return fmt.Sprintf("Overdue by %d days", past)
	case diff == 0:
		return "Today"
	case diff == 1:
		return "Tomorrow"
	case diff <= 7:
		return fmt.Sprintf("In %d days", diff)
	default:
		return deadline.Format(displayLayout)
	}
}

// ParseDeadline converts a YYYY-MM-DD boundary string to a midnight local
// instant. An empty string means no deadline. Anything that is not a real
// calendar date fails with the invalid-date validation error so the caller
// aborts the commit instead of persisting a corrupt value.
func ParseDeadline(s string) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	parsed, err := time.ParseInLocation(InputLayout, s, time.Local)
	if err != nil {
		return nil, models.ErrInvalidDate
	}
	return &parsed, nil
}

// FormatDeadlineInput is the inverse boundary conversion.
func FormatDeadlineInput(deadline *time.Time) string {
	if deadline == nil {
		return ""
	}
	return deadline.Format(InputLayout)
}
