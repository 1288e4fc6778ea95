// internal/domain/reminder/recurrence.go
package reminder

import (
	"fmt"
	"time"
)

// ErrNotRecurring is returned by NextOccurrence for one-shot reminders.
var ErrNotRecurring = fmt.Errorf("reminder is not recurring")

// fallbackZone is used when a reminder carries an unloadable timezone name.
const fallbackZone = "Asia/Tashkent"

// NextOccurrence computes the UTC instant of the next occurrence of a
// recurring reminder, relative to now:
//
//	daily    — next calendar day
//	weekdays — next day, skipping Saturday and Sunday
//	weekly   — seven calendar days ahead
//	monthly  — same day-of-month next month, clamped to day 28 when the
//	           target month is shorter
//
// The time of day is taken from the reminder's HH:MM recurrence clock in the
// user's zone (09:00 when missing or malformed — a data-quality issue, never
// fatal) and converted to UTC at that future date, so DST-observing zones
// resolve correctly.
func NextOccurrence(r *Reminder, now time.Time) (time.Time, error) {
	if !r.IsRecurring() {
		return time.Time{}, ErrNotRecurring
	}

	hour, minute := parseClock(r.RecurrenceTime.String)
	loc := loadZone(r.UserTimezone)
	local := now.In(loc)

	var next time.Time
	switch r.RecurrenceType {
	case RecurrenceDaily:
		next = local.AddDate(0, 0, 1)
	case RecurrenceWeekdays:
		next = local.AddDate(0, 0, 1)
		for next.Weekday() == time.Saturday || next.Weekday() == time.Sunday {
			next = next.AddDate(0, 0, 1)
		}
	case RecurrenceWeekly:
		next = local.AddDate(0, 0, 7)
	case RecurrenceMonthly:
		year, month, day := local.Date()
		month++
		if month > time.December {
			month = time.January
			year++
		}
		if day > daysIn(year, month) {
			day = 28
		}
		next = time.Date(year, month, day, 0, 0, 0, 0, loc)
	default:
		return time.Time{}, fmt.Errorf("unknown recurrence type %q", r.RecurrenceType)
	}

	next = time.Date(next.Year(), next.Month(), next.Day(), hour, minute, 0, 0, loc)
	return next.UTC(), nil
}

// parseClock parses an HH:MM wall-clock string, falling back to the default
// 09:00 on any malformation.
func parseClock(clock string) (hour, minute int) {
	if n, err := fmt.Sscanf(clock, "%d:%d", &hour, &minute); err != nil || n != 2 ||
		hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 9, 0
	}
	return hour, minute
}

func loadZone(name string) *time.Location {
	if loc, err := time.LoadLocation(name); err == nil && name != "" {
		return loc
	}
	if loc, err := time.LoadLocation(fallbackZone); err == nil {
		return loc
	}
	return time.UTC
}

func daysIn(year int, month time.Month) int {
	// Day 0 of the following month normalizes to the last day of this one.
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
