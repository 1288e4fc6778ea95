package database

import (
	"database/sql"

	"eslatma_bot/internal/domain/reminder"
)

// reminderColumns is the column list every reminder query selects, in the
// order scanReminder expects.
const reminderColumns = `id, user_id, chat_id, task_text, notes, location, scheduled_time_utc,
	user_timezone, status, initial_reminder_sent, follow_up_sent, recurrence_type, recurrence_time,
	created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

// scanReminder maps one row onto a Reminder. recurrence_type is NULL in the
// database for one-shot reminders and becomes RecurrenceNone here.
func scanReminder(row rowScanner) (*reminder.Reminder, error) {
	var (
		r              reminder.Reminder
		recurrenceType sql.NullString
	)
	err := row.Scan(
		&r.ID, &r.UserID, &r.ChatID, &r.TaskText, &r.Notes, &r.Location, &r.ScheduledTimeUTC,
		&r.UserTimezone, &r.Status, &r.InitialReminderSent, &r.FollowUpSent, &recurrenceType, &r.RecurrenceTime,
		&r.CreatedAt, &r.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	r.RecurrenceType = reminder.RecurrenceType(recurrenceType.String)
	r.ScheduledTimeUTC = r.ScheduledTimeUTC.UTC()
	return &r, nil
}

// recurrenceParam converts RecurrenceNone back to NULL for storage.
func recurrenceParam(t reminder.RecurrenceType) sql.NullString {
	if t == reminder.RecurrenceNone {
		return sql.NullString{}
	}
	return sql.NullString{String: string(t), Valid: true}
}

func collectReminders(rows *sql.Rows) ([]*reminder.Reminder, error) {
	defer rows.Close()
	var out []*reminder.Reminder
	for rows.Next() {
		r, err := scanReminder(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
