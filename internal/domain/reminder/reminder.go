// internal/domain/reminder/reminder.go
package reminder

import (
	"database/sql"
	"time"
)

// Status represents the lifecycle state of a reminder.
type Status string

const (
	// StatusPending means the reminder is scheduled and not yet confirmed done.
	StatusPending Status = "pending"
	// StatusDone means the user confirmed the task was completed.
	StatusDone Status = "done"
	// StatusCompleted is terminal for a fired occurrence of a recurring
	// reminder (its successor row carries the schedule forward) and for
	// reminders skipped by startup recovery.
	StatusCompleted Status = "completed"
)

// RecurrenceType describes how a reminder repeats. The zero value means the
// reminder fires once.
type RecurrenceType string

const (
	RecurrenceNone     RecurrenceType = ""
	RecurrenceDaily    RecurrenceType = "daily"
	RecurrenceWeekly   RecurrenceType = "weekly"
	RecurrenceWeekdays RecurrenceType = "weekdays"
	RecurrenceMonthly  RecurrenceType = "monthly"
)

// DefaultRecurrenceClock is used when a recurring reminder carries a missing
// or malformed HH:MM recurrence time.
const DefaultRecurrenceClock = "09:00"

// Reminder is a single scheduled notification. Each occurrence of a recurring
// reminder is a distinct row; ScheduledTimeUTC is always a UTC instant.
// Corresponds to the 'reminders' table.
type Reminder struct {
	ID                  int64
	UserID              int64
	ChatID              int64 // delivery channel (Telegram chat)
	TaskText            string
	Notes               sql.NullString
	Location            sql.NullString
	ScheduledTimeUTC    time.Time
	UserTimezone        string // IANA zone, display and recurrence wall-clock only
	Status              Status
	InitialReminderSent bool
	FollowUpSent        bool
	RecurrenceType      RecurrenceType
	RecurrenceTime      sql.NullString // HH:MM local wall-clock
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// IsRecurring reports whether this reminder regenerates after firing.
// Recurring reminders never receive a follow-up; the next occurrence itself
// serves as the nudge.
func (r *Reminder) IsRecurring() bool {
	return r.RecurrenceType != RecurrenceNone
}
