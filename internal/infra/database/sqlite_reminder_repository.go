// internal/infra/database/sqlite_reminder_repository.go
package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"eslatma_bot/internal/domain/reminder"
)

// SQLiteReminderRepository implements reminder.Repository on a local SQLite
// file. Behaviour is identical to the PostgreSQL backend; only SQL dialect
// details differ.
type SQLiteReminderRepository struct {
	db *sql.DB
}

func NewSQLiteReminderRepository(db *sql.DB) *SQLiteReminderRepository {
	return &SQLiteReminderRepository{db: db}
}

func (r *SQLiteReminderRepository) Add(ctx context.Context, rem *reminder.Reminder) error {
	if rem.Status == "" {
		rem.Status = reminder.StatusPending
	}
	now := time.Now().UTC()
	query := `INSERT INTO reminders (user_id, chat_id, task_text, notes, location, scheduled_time_utc,
                 user_timezone, status, initial_reminder_sent, follow_up_sent, recurrence_type, recurrence_time,
                 created_at, updated_at)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, 0, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, query,
		rem.UserID, rem.ChatID, rem.TaskText, rem.Notes, rem.Location, rem.ScheduledTimeUTC.UTC(),
		rem.UserTimezone, rem.Status, recurrenceParam(rem.RecurrenceType), rem.RecurrenceTime,
		now, now,
	)
	if err != nil {
		return fmt.Errorf("error creating reminder: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("error reading new reminder id: %w", err)
	}
	rem.ID = id
	rem.CreatedAt = now
	rem.UpdatedAt = now
	return nil
}

func (r *SQLiteReminderRepository) GetByID(ctx context.Context, id int64) (*reminder.Reminder, error) {
	query := `SELECT ` + reminderColumns + ` FROM reminders WHERE id = ?`
	rem, err := scanReminder(r.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrReminderNotFound
		}
		return nil, fmt.Errorf("error getting reminder by ID: %w", err)
	}
	return rem, nil
}

func (r *SQLiteReminderRepository) DueForFirstDelivery(ctx context.Context, asOf time.Time) ([]*reminder.Reminder, error) {
	query := `SELECT ` + reminderColumns + `
               FROM reminders
               WHERE status = ? AND initial_reminder_sent = 0 AND scheduled_time_utc <= ?
               ORDER BY scheduled_time_utc ASC, id ASC`
	rows, err := r.db.QueryContext(ctx, query, reminder.StatusPending, asOf.UTC())
	if err != nil {
		return nil, fmt.Errorf("error listing reminders due for first delivery: %w", err)
	}
	return collectReminders(rows)
}

func (r *SQLiteReminderRepository) DueForFollowUp(ctx context.Context, threshold time.Time) ([]*reminder.Reminder, error) {
	query := `SELECT ` + reminderColumns + `
               FROM reminders
               WHERE status = ? AND initial_reminder_sent = 1 AND follow_up_sent = 0
                 AND recurrence_type IS NULL AND scheduled_time_utc <= ?
               ORDER BY scheduled_time_utc ASC, id ASC`
	rows, err := r.db.QueryContext(ctx, query, reminder.StatusPending, threshold.UTC())
	if err != nil {
		return nil, fmt.Errorf("error listing reminders due for follow-up: %w", err)
	}
	return collectReminders(rows)
}

func (r *SQLiteReminderRepository) AllPending(ctx context.Context) ([]*reminder.Reminder, error) {
	query := `SELECT ` + reminderColumns + `
               FROM reminders
               WHERE status = ?
               ORDER BY scheduled_time_utc ASC, id ASC`
	rows, err := r.db.QueryContext(ctx, query, reminder.StatusPending)
	if err != nil {
		return nil, fmt.Errorf("error listing pending reminders: %w", err)
	}
	return collectReminders(rows)
}

func (r *SQLiteReminderRepository) ListByUser(ctx context.Context, userID int64, status reminder.Status) ([]*reminder.Reminder, error) {
	query := `SELECT ` + reminderColumns + `
               FROM reminders
               WHERE user_id = ? AND status = ?
               ORDER BY scheduled_time_utc ASC, id ASC`
	rows, err := r.db.QueryContext(ctx, query, userID, status)
	if err != nil {
		return nil, fmt.Errorf("error listing reminders for user %d: %w", userID, err)
	}
	return collectReminders(rows)
}

func (r *SQLiteReminderRepository) LatestAwaitingResponse(ctx context.Context, userID int64) (*reminder.Reminder, error) {
	query := `SELECT ` + reminderColumns + `
               FROM reminders
               WHERE user_id = ? AND status = ? AND follow_up_sent = 1
               ORDER BY scheduled_time_utc DESC, id DESC
               LIMIT 1`
	rem, err := scanReminder(r.db.QueryRowContext(ctx, query, userID, reminder.StatusPending))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrReminderNotFound
		}
		return nil, fmt.Errorf("error getting latest awaiting-response reminder: %w", err)
	}
	return rem, nil
}

func (r *SQLiteReminderRepository) MarkInitialSent(ctx context.Context, id int64) (bool, error) {
	query := `UPDATE reminders SET initial_reminder_sent = 1, updated_at = CURRENT_TIMESTAMP WHERE id = ?`
	return r.exec(ctx, query, id)
}

func (r *SQLiteReminderRepository) MarkFollowUpSent(ctx context.Context, id int64) (bool, error) {
	query := `UPDATE reminders SET follow_up_sent = 1, updated_at = CURRENT_TIMESTAMP WHERE id = ?`
	return r.exec(ctx, query, id)
}

func (r *SQLiteReminderRepository) SetStatus(ctx context.Context, id int64, status reminder.Status) (bool, error) {
	query := `UPDATE reminders SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`
	return r.exec(ctx, query, status, id)
}

func (r *SQLiteReminderRepository) Reschedule(ctx context.Context, id int64, newTime time.Time, resetFollowUp bool) (bool, error) {
	var query string
	if resetFollowUp {
		query = `UPDATE reminders
                  SET scheduled_time_utc = ?, status = ?, initial_reminder_sent = 0,
                      follow_up_sent = 0, updated_at = CURRENT_TIMESTAMP
                  WHERE id = ?`
	} else {
		query = `UPDATE reminders
                  SET scheduled_time_utc = ?, status = ?, follow_up_sent = 0, updated_at = CURRENT_TIMESTAMP
                  WHERE id = ?`
	}
	return r.exec(ctx, query, newTime.UTC(), reminder.StatusPending, id)
}

func (r *SQLiteReminderRepository) Delete(ctx context.Context, id int64) (bool, error) {
	return r.exec(ctx, `DELETE FROM reminders WHERE id = ?`, id)
}

func (r *SQLiteReminderRepository) exec(ctx context.Context, query string, args ...any) (bool, error) {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("error executing reminder mutation: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("error reading affected rows: %w", err)
	}
	return affected > 0, nil
}
